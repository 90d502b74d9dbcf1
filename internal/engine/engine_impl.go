// Package engine implements the run-execution state machine: graph and run
// lifecycle, the step loop, conditional-edge resolution, and event
// publication.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/petrijr/nodeflow/internal/relay"
	"github.com/petrijr/nodeflow/internal/store"
	"github.com/petrijr/nodeflow/internal/worker"
	"github.com/petrijr/nodeflow/pkg/api"
)

// Engine orchestrates graph storage, run lifecycle, and the step loop.
type Engine struct {
	graphs   store.GraphStore
	runs     store.RunStore
	nodes    *api.NodeRegistry
	tools    api.Tools
	pool     *worker.Pool
	observer api.Observer
	archive  store.RunArchive
	logger   *slog.Logger

	mu      sync.Mutex
	relays  map[string]*relay.Relay
	started map[string]bool

	// runMu serializes run-record access between the run loops and the
	// read side. Run records are small, so one coarse lock is enough.
	runMu sync.RWMutex
}

var _ api.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithObserver sets the engine's observer. Defaults to api.NoopObserver.
func WithObserver(obs api.Observer) Option {
	return func(e *Engine) {
		if obs != nil {
			e.observer = obs
		}
	}
}

// WithArchive configures a run archive. When set, the engine copies every
// terminal run record into it, best-effort.
func WithArchive(a store.RunArchive) Option {
	return func(e *Engine) { e.archive = a }
}

// WithPoolSize sets the number of tool worker goroutines.
func WithPoolSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.pool = worker.NewPool(size)
		}
	}
}

// WithLogger sets the engine's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine backed by in-memory graph and run stores. The node
// and tool registries are expected to be fully populated before the first
// run starts.
func New(nodes *api.NodeRegistry, tools *api.ToolRegistry, opts ...Option) *Engine {
	mem := store.NewMemoryStore()

	e := &Engine{
		graphs:   mem,
		runs:     mem,
		nodes:    nodes,
		observer: api.NoopObserver{},
		logger:   slog.Default(),
		relays:   make(map[string]*relay.Relay),
		started:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pool == nil {
		e.pool = worker.NewPool(worker.DefaultPoolSize)
	}
	e.tools = &toolDispatcher{registry: tools, pool: e.pool}

	return e
}

// CreateGraph stores the graph under a fresh identifier. A non-positive
// iteration bound is normalized to api.DefaultMaxIterations. Duplicate edge
// declarations are legal (the last one wins at run time) but get flagged
// here, since they usually indicate an authoring mistake.
func (e *Engine) CreateGraph(graph api.GraphSpec) (string, error) {
	if graph.MaxIterations <= 0 {
		graph.MaxIterations = api.DefaultMaxIterations
	}

	seen := make(map[string]bool, len(graph.Edges))
	for _, edge := range graph.Edges {
		if seen[edge.From] {
			e.logger.Warn("duplicate edge declaration, last one wins",
				slog.String("from_node", edge.From))
		}
		seen[edge.From] = true
	}

	return e.graphs.CreateGraph(&graph)
}

// CreateRun registers a PENDING run of the given graph.
func (e *Engine) CreateRun(graphID string, initial api.State) (string, error) {
	if _, err := e.graphs.GetGraph(graphID); err != nil {
		return "", err
	}

	if initial == nil {
		initial = api.State{}
	}

	run := &api.RunInfo{
		GraphID:    graphID,
		Status:     api.StatusPending,
		StepCount:  0,
		Logs:       []api.LogEntry{},
		FinalState: initial,
	}
	return e.runs.CreateRun(run)
}

// StartRun opens the run's event channel and launches the run loop in its
// own goroutine. The loop outlives the caller's context; only its values
// (not its cancellation) are carried into the run.
func (e *Engine) StartRun(ctx context.Context, runID string) error {
	run, err := e.runs.GetRun(runID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.started[runID] {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRunAlreadyStarted, runID)
	}
	e.started[runID] = true
	r := relay.New()
	e.relays[runID] = r
	e.mu.Unlock()

	go e.runLoop(context.WithoutCancel(ctx), run, r)
	return nil
}

// GetRun returns a snapshot of the run's current progress record. The
// snapshot shares nothing with the record the run loop is writing to.
func (e *Engine) GetRun(runID string) (*api.RunInfo, error) {
	run, err := e.runs.GetRun(runID)
	if err != nil {
		return nil, err
	}

	e.runMu.RLock()
	defer e.runMu.RUnlock()
	return snapshotRun(run), nil
}

// StreamEvents claims the run's event channel for its single consumer. The
// relay is removed from the engine at claim time, so a second call (or a
// call after the consumer disposed it) fails with api.ErrRunNotFound.
func (e *Engine) StreamEvents(runID string) (api.EventStream, error) {
	e.mu.Lock()
	r, ok := e.relays[runID]
	if ok {
		delete(e.relays, runID)
	}
	e.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: no event channel for %s", api.ErrRunNotFound, runID)
	}
	return &eventStream{relay: r}, nil
}

// Close stops the tool worker pool. In-flight runs keep executing but tool
// calls made after Close fail.
func (e *Engine) Close() error {
	e.pool.Close()
	return nil
}

// eventStream adapts a claimed relay to the api.EventStream surface.
type eventStream struct {
	relay *relay.Relay
}

func (s *eventStream) Events() <-chan api.Event {
	return s.relay.Events()
}

func (s *eventStream) Close() {
	s.relay.Dispose()
}
