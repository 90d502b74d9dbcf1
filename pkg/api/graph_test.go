package api

import (
	"encoding/json"
	"testing"
)

func TestDestinationUnmarshalString(t *testing.T) {
	var d Destination
	if err := json.Unmarshal([]byte(`"next_node"`), &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if d.Conditional() {
		t.Fatal("string destination must be unconditional")
	}
	if d.Node != "next_node" {
		t.Fatalf("expected node %q, got %q", "next_node", d.Node)
	}
}

func TestDestinationUnmarshalOutcomeMap(t *testing.T) {
	var d Destination
	data := []byte(`{"ok": "next_node", "finish": null, "stop": ""}`)
	if err := json.Unmarshal(data, &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if !d.Conditional() {
		t.Fatal("object destination must be conditional")
	}
	if d.Outcomes["ok"] != "next_node" {
		t.Fatalf("expected mapping for ok, got %q", d.Outcomes["ok"])
	}
	// Both null and "" mark the branch as an explicit terminal.
	if got, present := d.Outcomes["finish"]; !present || got != "" {
		t.Fatalf("null destination should decode to empty marker, got %q (present=%v)", got, present)
	}
	if d.Outcomes["stop"] != "" {
		t.Fatalf("empty destination should stay empty, got %q", d.Outcomes["stop"])
	}
}

func TestDestinationUnmarshalRejectsOtherShapes(t *testing.T) {
	var d Destination
	if err := json.Unmarshal([]byte(`42`), &d); err == nil {
		t.Fatal("expected error for numeric destination")
	}
	if err := json.Unmarshal([]byte(`["a"]`), &d); err == nil {
		t.Fatal("expected error for array destination")
	}
}

func TestDestinationMarshalBothForms(t *testing.T) {
	plain, err := json.Marshal(Destination{Node: "b"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(plain) != `"b"` {
		t.Fatalf("expected string form, got %s", plain)
	}

	cond, err := json.Marshal(Destination{Outcomes: map[string]string{"ok": "b"}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(cond) != `{"ok":"b"}` {
		t.Fatalf("expected object form, got %s", cond)
	}
}

func TestGraphSpecWireFormat(t *testing.T) {
	data := []byte(`{
		"nodes": [
			{"name": "extract", "config": {"depth": 2}},
			{"name": "review"}
		],
		"edges": [
			{"from_node": "extract", "to_node": "review"},
			{"from_node": "review", "to_node": {"done": null, "retry": "extract"}}
		],
		"start_node": "extract",
		"max_iterations": 25
	}`)

	var g GraphSpec
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if g.StartNode != "extract" || g.MaxIterations != 25 {
		t.Fatalf("unexpected header fields: %+v", g)
	}
	if len(g.Nodes) != 2 || len(g.Edges) != 2 {
		t.Fatalf("unexpected shape: %d nodes, %d edges", len(g.Nodes), len(g.Edges))
	}
	if g.Edges[0].To.Conditional() {
		t.Fatal("first edge should be unconditional")
	}
	if !g.Edges[1].To.Conditional() {
		t.Fatal("second edge should be conditional")
	}
}

func TestNodeConfigLookup(t *testing.T) {
	g := &GraphSpec{
		Nodes: []NodeSpec{
			{Name: "a", Config: map[string]any{"threshold": 85}},
			{Name: "b"},
		},
	}

	cfg := g.NodeConfig("a")
	if cfg == nil || cfg["threshold"] != 85 {
		t.Fatalf("unexpected config: %v", cfg)
	}
	if g.NodeConfig("b") != nil {
		t.Fatal("expected nil config for b")
	}
	if g.NodeConfig("missing") != nil {
		t.Fatal("expected nil config for unknown node")
	}
}

func TestStateSnapshotIsDeepCopy(t *testing.T) {
	nested := map[string]any{"inner": "before"}
	s := State{"nested": nested, "n": 1}

	snap := s.Snapshot()
	nested["inner"] = "after"

	inner := snap["nested"].(map[string]any)
	if inner["inner"] != "before" {
		t.Fatalf("snapshot shares structure with live state: %v", inner)
	}
	// JSON round-trip normalizes numbers.
	if snap["n"] != float64(1) {
		t.Fatalf("expected normalized number, got %T", snap["n"])
	}
}

func TestRunStatusTerminal(t *testing.T) {
	terminal := []RunStatus{StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%q should be terminal", s)
		}
	}
	for _, s := range []RunStatus{StatusPending, StatusRunning} {
		if s.Terminal() {
			t.Fatalf("%q should not be terminal", s)
		}
	}
}
