// Package api contains the core building blocks used by the nodeflow
// workflow engine: graph and run data types, the node and tool calling
// contracts, the event channel surface, and the Observer hooks.
//
// Most users interact with the higher-level nodeflow package, which
// re-exports the common types, or with the HTTP transport in cmd/nodeflowd.
package api
