package engine

import (
	"context"
	"fmt"

	"github.com/petrijr/nodeflow/internal/worker"
	"github.com/petrijr/nodeflow/pkg/api"
)

// toolDispatcher is the api.Tools implementation handed to node handlers.
// It resolves names against the tool registry and runs the callable on the
// engine's worker pool, keeping CPU-bound tool work off the run goroutine.
type toolDispatcher struct {
	registry *api.ToolRegistry
	pool     *worker.Pool
}

var _ api.Tools = (*toolDispatcher)(nil)

func (d *toolDispatcher) Call(ctx context.Context, name string, input any) (any, error) {
	fn, ok := d.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return d.pool.Run(ctx, fn, input)
}
