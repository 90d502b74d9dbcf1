package api

import (
	"encoding/json"
	"fmt"
)

// DefaultMaxIterations bounds a run when the graph does not set its own
// limit.
const DefaultMaxIterations = 100

// NodeSpec names a single processing step in a graph. The Type field is a
// hint only; routing and execution depend solely on Name.
type NodeSpec struct {
	Name   string         `json:"name"`
	Type   string         `json:"type,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// Destination is the routing target of an edge. Exactly one form is used:
//
//   - unconditional: Node is set, Outcomes is nil, and the edge is followed
//     regardless of the outcome a handler returns;
//   - conditional: Outcomes maps outcome keys to node names, where an empty
//     node name marks an explicit terminal branch (the run completes).
//
// On the wire a destination is either a JSON string or an object, matching
// the two forms.
type Destination struct {
	Node     string
	Outcomes map[string]string
}

// Conditional reports whether the destination routes by outcome key.
func (d Destination) Conditional() bool {
	return d.Outcomes != nil
}

func (d Destination) MarshalJSON() ([]byte, error) {
	if d.Outcomes != nil {
		return json.Marshal(d.Outcomes)
	}
	return json.Marshal(d.Node)
}

func (d *Destination) UnmarshalJSON(data []byte) error {
	var node string
	if err := json.Unmarshal(data, &node); err == nil {
		d.Node = node
		d.Outcomes = nil
		return nil
	}

	// An outcome mapped to JSON null decodes to "", which is exactly the
	// explicit-terminal marker.
	var outcomes map[string]string
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return fmt.Errorf("destination must be a node name or an outcome map: %w", err)
	}
	d.Node = ""
	d.Outcomes = outcomes
	return nil
}

// EdgeSpec declares the outgoing routing of one node. A graph keeps at most
// one effective entry per source node; when several are supplied, the last
// declared wins.
type EdgeSpec struct {
	From string      `json:"from_node"`
	To   Destination `json:"to_node"`
}

// GraphSpec is an immutable workflow definition: a set of named nodes, the
// edges between them, an entry point, and a per-run iteration bound.
type GraphSpec struct {
	Nodes         []NodeSpec `json:"nodes"`
	Edges         []EdgeSpec `json:"edges,omitempty"`
	StartNode     string     `json:"start_node"`
	MaxIterations int        `json:"max_iterations,omitempty"`
}

// NodeConfig returns the config map of the named node, or nil if the graph
// does not declare it.
func (g *GraphSpec) NodeConfig(name string) map[string]any {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n.Config
		}
	}
	return nil
}
