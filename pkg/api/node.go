package api

import (
	"context"
	"fmt"
	"sync"
)

// NodeFunc is the calling contract for a step handler.
//
// The handler receives the current state, the tool surface, and the node's
// config from the graph. It returns the outcome key selecting the next edge
// branch, the updated state, and a human-oriented message for the log entry.
// An empty outcome is the handler's own signal that the run is finished; it
// short-circuits edge resolution entirely. A non-nil error terminates the
// run with the error text captured in the step's log entry.
type NodeFunc func(ctx context.Context, state State, tools Tools, config map[string]any) (outcome string, updated State, message string, err error)

// ToolFunc is a named utility a handler may invoke. Tools are synchronous
// and potentially CPU-bound; handlers never call them directly but go
// through Tools, which dispatches off the run goroutine.
type ToolFunc func(input any) (any, error)

// Tools is the tool surface handed to every handler invocation.
type Tools interface {
	// Call runs the named tool with the given input and waits for its
	// result. It fails for unknown names and returns ctx.Err() if the
	// context ends before the tool finishes.
	Call(ctx context.Context, name string, input any) (any, error)
}

// NodeRegistry maps node names to handlers. Registration happens once at
// process startup; after that the registry is read-only.
type NodeRegistry struct {
	mu    sync.RWMutex
	nodes map[string]NodeFunc
}

func NewNodeRegistry() *NodeRegistry {
	return &NodeRegistry{nodes: make(map[string]NodeFunc)}
}

// Register binds a handler to a node name. It panics on empty names or nil
// handlers; both are programming errors at startup.
func (r *NodeRegistry) Register(name string, fn NodeFunc) {
	if name == "" {
		panic("nodeflow: node name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("nodeflow: node %q has nil handler", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[name] = fn
}

// Lookup returns the handler for name, if registered.
func (r *NodeRegistry) Lookup(name string) (NodeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.nodes[name]
	return fn, ok
}

// ToolRegistry maps tool names to callables. Like NodeRegistry it is
// populated at startup and read-only afterwards.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]ToolFunc
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]ToolFunc)}
}

func (r *ToolRegistry) Register(name string, fn ToolFunc) {
	if name == "" {
		panic("nodeflow: tool name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("nodeflow: tool %q has nil function", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
}

func (r *ToolRegistry) Lookup(name string) (ToolFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tools[name]
	return fn, ok
}
