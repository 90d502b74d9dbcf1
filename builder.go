package nodeflow

import (
	"fmt"

	"github.com/petrijr/nodeflow/pkg/api"
)

// GraphBuilder provides a fluent API for defining graphs:
//
//	spec := nodeflow.NewGraph("extract_functions").
//	    Node("extract_functions", nil).
//	    Node("check_complexity", nil).
//	    Node("compute_quality", map[string]any{"threshold": 85}).
//	    Edge("extract_functions", "check_complexity").
//	    Branch("compute_quality", map[string]string{
//	        "check_complexity": "check_complexity",
//	    }).
//	    MaxIterations(50).
//	    Spec()
//
//	graphID, err := eng.CreateGraph(spec)
type GraphBuilder struct {
	spec api.GraphSpec
}

// NewGraph creates a new graph builder starting at the given node.
func NewGraph(startNode string) *GraphBuilder {
	if startNode == "" {
		panic("nodeflow: start node must not be empty")
	}
	return &GraphBuilder{
		spec: api.GraphSpec{
			Nodes:     make([]api.NodeSpec, 0),
			Edges:     make([]api.EdgeSpec, 0),
			StartNode: startNode,
		},
	}
}

// Spec returns the accumulated GraphSpec.
func (b *GraphBuilder) Spec() GraphSpec {
	return b.spec
}

// Node appends a node declaration. The type defaults to the node name;
// config may be nil.
func (b *GraphBuilder) Node(name string, config map[string]any) *GraphBuilder {
	if name == "" {
		panic("nodeflow: node name must not be empty")
	}
	b.spec.Nodes = append(b.spec.Nodes, api.NodeSpec{
		Name:   name,
		Type:   name,
		Config: config,
	})
	return b
}

// TypedNode appends a node declaration whose handler type differs from its
// name.
func (b *GraphBuilder) TypedNode(name, nodeType string, config map[string]any) *GraphBuilder {
	if name == "" {
		panic("nodeflow: node name must not be empty")
	}
	if nodeType == "" {
		panic(fmt.Sprintf("nodeflow: node %q has empty type", name))
	}
	b.spec.Nodes = append(b.spec.Nodes, api.NodeSpec{
		Name:   name,
		Type:   nodeType,
		Config: config,
	})
	return b
}

// Edge appends an unconditional edge from one node to another. The handler
// outcome is ignored when following it.
func (b *GraphBuilder) Edge(from, to string) *GraphBuilder {
	if from == "" || to == "" {
		panic("nodeflow: edge endpoints must not be empty")
	}
	b.spec.Edges = append(b.spec.Edges, api.EdgeSpec{
		From: from,
		To:   api.Destination{Node: to},
	})
	return b
}

// Branch appends a conditional edge mapping handler outcomes to follow-up
// nodes. An empty-string destination marks that outcome as terminal.
func (b *GraphBuilder) Branch(from string, outcomes map[string]string) *GraphBuilder {
	if from == "" {
		panic("nodeflow: edge endpoints must not be empty")
	}
	if len(outcomes) == 0 {
		panic(fmt.Sprintf("nodeflow: branch from %q has no outcomes", from))
	}
	b.spec.Edges = append(b.spec.Edges, api.EdgeSpec{
		From: from,
		To:   api.Destination{Outcomes: outcomes},
	})
	return b
}

// MaxIterations sets the step ceiling for runs of this graph.
func (b *GraphBuilder) MaxIterations(n int) *GraphBuilder {
	b.spec.MaxIterations = n
	return b
}
