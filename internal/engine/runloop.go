package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/petrijr/nodeflow/internal/relay"
	"github.com/petrijr/nodeflow/pkg/api"
)

// runLoop drives one run from RUNNING to a terminal status. It is the sole
// writer of the run record for its whole lifetime; every exit path sets the
// terminal status, updates the final state to the latest working state, and
// publishes exactly one completion event as the relay's last message.
func (e *Engine) runLoop(ctx context.Context, run *api.RunInfo, r *relay.Relay) {
	defer r.Finish()

	graph, err := e.graphs.GetGraph(run.GraphID)
	if err != nil {
		// The graph store never deletes, so this only happens if a run
		// record was fabricated outside CreateRun.
		e.finishFailed(ctx, run, run.FinalState, r, err)
		return
	}

	current := graph.StartNode
	e.mutateRun(func() {
		run.Status = api.StatusRunning
		run.CurrentNode = current
	})
	e.observer.OnRunStart(ctx, run)

	state := run.FinalState
	if state == nil {
		state = api.State{}
	}

	table := buildEdgeTable(graph)

	maxIterations := graph.MaxIterations
	if maxIterations <= 0 {
		maxIterations = api.DefaultMaxIterations
	}

	for step := 0; step < maxIterations; step++ {
		fn, ok := e.nodes.Lookup(current)
		if !ok {
			// The node never ran, so there is no log entry for it.
			e.finishFailed(ctx, run, state, r, fmt.Errorf("%w: %q", ErrUnknownNode, current))
			return
		}

		e.observer.OnStepStart(ctx, run, current, step)
		started := time.Now()

		outcome, updated, message, err := invokeNode(ctx, fn, state, e.tools, graph.NodeConfig(current))

		e.observer.OnStepCompleted(ctx, run, current, step, err, time.Since(started))

		if err != nil {
			entry := api.LogEntry{
				StepIndex:     step,
				NodeName:      current,
				StateSnapshot: state.Snapshot(),
				Message:       err.Error(),
				Error:         err.Error(),
			}
			e.mutateRun(func() {
				run.Logs = append(run.Logs, entry)
			})
			r.Publish(api.Event{Type: api.EventLog, Entry: &entry})
			e.finishFailed(ctx, run, state, r, fmt.Errorf("%w: %v", ErrStepExecution, err))
			return
		}

		state = updated
		entry := api.LogEntry{
			StepIndex:     step,
			NodeName:      current,
			StateSnapshot: state.Snapshot(),
			Message:       message,
		}
		e.mutateRun(func() {
			run.Logs = append(run.Logs, entry)
			run.StepCount = step + 1
		})
		r.Publish(api.Event{Type: api.EventLog, Entry: &entry})

		// An empty outcome is the handler's own completion signal; edges
		// are not consulted at all.
		if outcome == "" {
			e.finishCompleted(ctx, run, state, r)
			return
		}

		next, route, err := table.resolve(current, outcome)
		switch route {
		case routeFail:
			e.finishFailed(ctx, run, state, r, err)
			return
		case routeComplete:
			e.finishCompleted(ctx, run, state, r)
			return
		}

		current = next
		e.mutateRun(func() {
			run.CurrentNode = current
		})
	}

	e.finishFailed(ctx, run, state, r, fmt.Errorf("%w: %d steps", ErrIterationLimit, maxIterations))
}

// invokeNode calls the handler, converting a panic into a step-execution
// error so one misbehaving handler cannot take the process down.
func invokeNode(
	ctx context.Context,
	fn api.NodeFunc,
	state api.State,
	tools api.Tools,
	config map[string]any,
) (outcome string, updated api.State, message string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("node handler panic: %v", rec)
		}
	}()
	return fn(ctx, state, tools, config)
}

func (e *Engine) finishCompleted(ctx context.Context, run *api.RunInfo, state api.State, r *relay.Relay) {
	snap := e.finishRun(run, api.StatusCompleted, state)
	r.Publish(api.Event{Type: api.EventCompletion, RunInfo: snap})
	e.observer.OnRunCompleted(ctx, run)
	e.archiveRun(ctx, snap)
}

func (e *Engine) finishFailed(ctx context.Context, run *api.RunInfo, state api.State, r *relay.Relay, cause error) {
	snap := e.finishRun(run, api.StatusFailed, state)
	r.Publish(api.Event{Type: api.EventCompletion, RunInfo: snap})
	e.observer.OnRunFailed(ctx, run, cause)
	e.archiveRun(ctx, snap)
}

// finishRun records the terminal status and final state and returns the
// snapshot that the completion event and the archive both use.
func (e *Engine) finishRun(run *api.RunInfo, status api.RunStatus, state api.State) *api.RunInfo {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	run.Status = status
	run.FinalState = state
	return snapshotRun(run)
}

// mutateRun runs fn with the run-record write lock held.
func (e *Engine) mutateRun(fn func()) {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	fn()
}

func (e *Engine) archiveRun(ctx context.Context, run *api.RunInfo) {
	if e.archive == nil {
		return
	}
	if err := e.archive.ArchiveRun(ctx, run); err != nil {
		e.logger.Error("failed to archive run",
			"run_id", run.RunID,
			"error", err)
	}
}

// snapshotRun copies the record for the completion event so the consumer
// never shares slices with the stored RunInfo.
func snapshotRun(run *api.RunInfo) *api.RunInfo {
	snap := *run
	snap.Logs = make([]api.LogEntry, len(run.Logs))
	copy(snap.Logs, run.Logs)
	snap.FinalState = run.FinalState.Snapshot()
	return &snap
}
