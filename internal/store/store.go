// Package store holds the process-wide graph and run registries, plus the
// optional archives that copy terminal runs out of process memory.
package store

import (
	"context"

	"github.com/petrijr/nodeflow/pkg/api"
)

// GraphStore holds immutable graph definitions keyed by generated
// identifier. There is no update or delete; graphs live for the process
// lifetime.
type GraphStore interface {
	// CreateGraph stores the graph verbatim under a fresh identifier.
	CreateGraph(graph *api.GraphSpec) (string, error)

	// GetGraph returns the stored graph or api.ErrGraphNotFound.
	GetGraph(id string) (*api.GraphSpec, error)
}

// RunStore holds mutable run-progress records keyed by generated
// identifier. The store does not validate status transitions; the run loop
// is the sole writer of a stored record while the run is active.
type RunStore interface {
	// CreateRun stores the record under a fresh identifier, which is also
	// written into run.RunID.
	CreateRun(run *api.RunInfo) (string, error)

	// GetRun returns the stored record or api.ErrRunNotFound.
	GetRun(id string) (*api.RunInfo, error)
}

// RunFilter selects archived runs. Zero values mean "no filter".
type RunFilter struct {
	GraphID string
	Status  api.RunStatus
}

// RunArchive is an append-only copy of terminal run records. It is a
// collaborator concern: the engine archives best-effort at terminal exit
// when one is configured, and the in-memory stores stay authoritative.
type RunArchive interface {
	ArchiveRun(ctx context.Context, run *api.RunInfo) error
	GetArchivedRun(ctx context.Context, id string) (*api.RunInfo, error)
	ListArchivedRuns(ctx context.Context, filter RunFilter) ([]*api.RunInfo, error)
}
