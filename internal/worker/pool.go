// Package worker provides the pool that keeps synchronous, CPU-bound tool
// calls off the run-loop goroutines.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/petrijr/nodeflow/pkg/api"
)

// ErrPoolClosed is returned when work is submitted after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// DefaultPoolSize is used when a pool is created with a non-positive size.
const DefaultPoolSize = 4

type task struct {
	fn     api.ToolFunc
	input  any
	result chan result
}

type result struct {
	value any
	err   error
}

// Pool runs tool functions on a fixed set of worker goroutines. A run loop
// submits a call and waits for its result; other runs keep their workers
// while a long tool call occupies one.
type Pool struct {
	tasks chan task
	quit  chan struct{}

	closeOnce sync.Once
}

// NewPool starts size worker goroutines.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	p := &Pool{
		tasks: make(chan task),
		quit:  make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	for {
		select {
		case t := <-p.tasks:
			value, err := t.fn(t.input)
			t.result <- result{value: value, err: err}
		case <-p.quit:
			return
		}
	}
}

// Run executes fn(input) on a pool worker and waits for the result. It
// returns ctx.Err() if the context ends before a worker picks the task up
// or before the tool finishes; the tool itself is not interrupted.
func (p *Pool) Run(ctx context.Context, fn api.ToolFunc, input any) (any, error) {
	t := task{
		fn:     fn,
		input:  input,
		result: make(chan result, 1),
	}

	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrPoolClosed
	}

	select {
	case res := <-t.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the workers. Tasks already running finish; their results are
// still delivered through the buffered result channels. Close is
// idempotent.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.quit) })
}
