package nodeflow

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/nodeflow/internal/engine"
	"github.com/petrijr/nodeflow/internal/store"
	"github.com/petrijr/nodeflow/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	GraphSpec            = api.GraphSpec
	NodeSpec             = api.NodeSpec
	EdgeSpec             = api.EdgeSpec
	Destination          = api.Destination
	RunStatus            = api.RunStatus
	RunInfo              = api.RunInfo
	LogEntry             = api.LogEntry
	State                = api.State
	NodeFunc             = api.NodeFunc
	ToolFunc             = api.ToolFunc
	Tools                = api.Tools
	NodeRegistry         = api.NodeRegistry
	ToolRegistry         = api.ToolRegistry
	Event                = api.Event
	EventType            = api.EventType
	EventStream          = api.EventStream
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common constructors and helpers.

var (
	NewNodeRegistry      = api.NewNodeRegistry
	NewToolRegistry      = api.NewToolRegistry
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export status and event values for convenience.

const (
	StatusPending   = api.StatusPending
	StatusRunning   = api.StatusRunning
	StatusCompleted = api.StatusCompleted
	StatusFailed    = api.StatusFailed
	StatusCancelled = api.StatusCancelled

	EventLog        = api.EventLog
	EventCompletion = api.EventCompletion
)

// DefaultMaxIterations is the step ceiling applied to graphs that don't
// set one.
const DefaultMaxIterations = api.DefaultMaxIterations

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// Option configures an Engine.
type Option = engine.Option

var (
	WithObserver = engine.WithObserver
	WithPoolSize = engine.WithPoolSize
	WithLogger   = engine.WithLogger
)

// NewEngine returns an in-memory Engine over the given registries.
func NewEngine(nodes *NodeRegistry, tools *ToolRegistry, opts ...Option) *engine.Engine {
	return engine.New(nodes, tools, opts...)
}

// NewEngineWithSQLiteArchive returns an in-memory Engine that archives
// terminal runs to a SQLite database.
func NewEngineWithSQLiteArchive(nodes *NodeRegistry, tools *ToolRegistry, db *sql.DB, opts ...Option) (*engine.Engine, error) {
	archive, err := store.NewSQLiteRunArchive(db)
	if err != nil {
		return nil, err
	}
	opts = append(opts, engine.WithArchive(archive))
	return engine.New(nodes, tools, opts...), nil
}

// NewEngineWithRedisArchive returns an in-memory Engine that archives
// terminal runs to Redis under the given key prefix.
func NewEngineWithRedisArchive(nodes *NodeRegistry, tools *ToolRegistry, client *redis.Client, prefix string, opts ...Option) *engine.Engine {
	opts = append(opts, engine.WithArchive(store.NewRedisRunArchive(client, prefix)))
	return engine.New(nodes, tools, opts...)
}

// Convenience helpers that just forward to the underlying Engine.

// CreateGraph registers a graph and returns its generated ID.
func CreateGraph(eng Engine, spec GraphSpec) (string, error) {
	return eng.CreateGraph(spec)
}

// StartRun creates a run of the graph and starts it in the background.
func StartRun(ctx context.Context, eng Engine, graphID string, initial State) (string, error) {
	runID, err := eng.CreateRun(graphID, initial)
	if err != nil {
		return "", err
	}
	if err := eng.StartRun(ctx, runID); err != nil {
		return "", err
	}
	return runID, nil
}

// RunToCompletion creates a run, subscribes to its event stream, starts it,
// and blocks until the run reaches a terminal status. It returns the final
// run snapshot delivered with the completion event.
func RunToCompletion(ctx context.Context, eng Engine, graphID string, initial State) (*RunInfo, error) {
	runID, err := eng.CreateRun(graphID, initial)
	if err != nil {
		return nil, err
	}

	// The event channel exists only once the run starts; events published
	// before the claim are buffered, so nothing is missed.
	if err := eng.StartRun(ctx, runID); err != nil {
		return nil, err
	}

	stream, err := eng.StreamEvents(runID)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var final *RunInfo
	for event := range stream.Events() {
		if event.Type == EventCompletion {
			final = event.RunInfo
		}
	}
	if final != nil {
		return final, nil
	}
	return eng.GetRun(runID)
}
