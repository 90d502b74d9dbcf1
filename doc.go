// Package nodeflow provides a small, embeddable graph-workflow engine for
// Go. Graphs are declared as nodes joined by edges, runs walk the graph one
// node at a time, and every run feeds a single-consumer event channel that
// reports step logs and the final outcome.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. GraphSpec - a declared graph: nodes, edges, a start node, and a step
//     ceiling.
//  2. NodeFunc - the handler invoked for each node. It receives the shared
//     run state and returns an outcome used to pick the next edge.
//  3. Tools - named helper functions handlers call through the engine's
//     worker pool.
//  4. Engine - registers graphs, creates and starts runs, and serves run
//     snapshots and event streams.
//  5. Event channel - a per-run stream of log events followed by exactly
//     one completion event.
//
// # Edges
//
// An edge is either unconditional, always leading to the same node, or
// conditional, mapping handler outcomes to follow-up nodes. A conditional
// edge may map an outcome to an empty destination, which ends the run
// successfully. An outcome with no mapping fails the run.
//
// # Runs
//
// A run starts PENDING, turns RUNNING when its goroutine begins, and ends
// COMPLETED or FAILED. Each successful step appends a log entry with a
// snapshot of the state the handler produced. The step ceiling
// (DefaultMaxIterations when unset) fails runaway runs.
//
// # Getting started
//
//	nodes := nodeflow.NewNodeRegistry()
//	nodes.Register("hello", func(ctx context.Context, state nodeflow.State, tools nodeflow.Tools, config map[string]any) (string, nodeflow.State, string, error) {
//	    state["greeting"] = "hello"
//	    return "", state, "greeted", nil
//	})
//
//	eng := nodeflow.NewEngine(nodes, nodeflow.NewToolRegistry())
//	defer eng.Close()
//
//	graphID, _ := eng.CreateGraph(nodeflow.NewGraph("hello").
//	    Node("hello", nil).
//	    Spec())
//
//	run, err := nodeflow.RunToCompletion(context.Background(), eng, graphID, nil)
package nodeflow
