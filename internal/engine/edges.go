package engine

import (
	"errors"
	"fmt"

	"github.com/petrijr/nodeflow/pkg/api"
)

// Run-level failure causes. These terminate a single run; they are recorded
// on the run record and reported to observers, never propagated to other
// runs or the stores.
var (
	ErrUnknownNode       = errors.New("no handler registered for node")
	ErrUnroutableNode    = errors.New("node has no outgoing edge")
	ErrUnmappedOutcome   = errors.New("outcome not mapped by edge")
	ErrIterationLimit    = errors.New("iteration limit exhausted")
	ErrStepExecution     = errors.New("step execution failed")
	ErrToolNotFound      = errors.New("tool not found")
	ErrRunAlreadyStarted = errors.New("run already started")
)

// route is the outcome of resolving one edge.
type route int

const (
	routeFollow route = iota
	routeComplete
	routeFail
)

// edgeTable maps each node name to its effective destination.
type edgeTable map[string]api.Destination

// buildEdgeTable collapses the graph's edge list into a lookup table. When
// the same source node is declared more than once, the last declared edge
// wins.
func buildEdgeTable(g *api.GraphSpec) edgeTable {
	table := make(edgeTable, len(g.Edges))
	for _, e := range g.Edges {
		table[e.From] = e.To
	}
	return table
}

// resolve determines where the run goes after current returned outcome.
//
//   - No entry for current: the node is a dead end, the run fails.
//   - Unconditional destination: always followed, outcome is ignored.
//   - Conditional destination: the outcome selects the branch; an unmapped
//     outcome fails the run, and a branch mapped to the empty node name is
//     an authored terminal, completing the run.
func (t edgeTable) resolve(current, outcome string) (next string, r route, err error) {
	dest, ok := t[current]
	if !ok {
		return "", routeFail, fmt.Errorf("%w: %q", ErrUnroutableNode, current)
	}

	if !dest.Conditional() {
		return dest.Node, routeFollow, nil
	}

	next, ok = dest.Outcomes[outcome]
	if !ok {
		return "", routeFail, fmt.Errorf("%w: node %q returned %q", ErrUnmappedOutcome, current, outcome)
	}
	if next == "" {
		return "", routeComplete, nil
	}
	return next, routeFollow, nil
}
