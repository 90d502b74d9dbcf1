package api

import (
	"context"
	"errors"
)

var (
	// ErrGraphNotFound is returned when a graph identifier is unknown.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrRunNotFound is returned when a run identifier is unknown, or when
	// its event channel has already been drained and disposed.
	ErrRunNotFound = errors.New("run not found")
)

// Engine is the run-execution surface exposed to transport collaborators.
type Engine interface {
	// CreateGraph stores an immutable graph definition and returns its
	// generated identifier. Construction always succeeds for well-formed
	// input; malformed routing is only caught when a run traverses it.
	CreateGraph(graph GraphSpec) (string, error)

	// CreateRun registers a new PENDING run of the given graph, seeded
	// with initial (or an empty state when nil). It fails with
	// ErrGraphNotFound before any run record is created.
	CreateRun(graphID string, initial State) (string, error)

	// StartRun opens the run's event channel and launches the run loop as
	// an independent goroutine, returning immediately. Callers that want
	// the early events should obtain the stream before or right after
	// starting; events are buffered until a consumer attaches.
	StartRun(ctx context.Context, runID string) error

	// GetRun returns the current progress record of a run. While the run
	// is active the record may be observed mid-mutation.
	GetRun(runID string) (*RunInfo, error)

	// StreamEvents claims the run's event channel for its single
	// consumer. It fails with ErrRunNotFound when no channel exists —
	// the run was never started, or the channel was already disposed.
	StreamEvents(runID string) (EventStream, error)
}
