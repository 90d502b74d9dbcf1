package nodes

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/petrijr/nodeflow/pkg/analysis"
	"github.com/petrijr/nodeflow/pkg/api"
)

// directTools dispatches tool calls synchronously, without a worker pool.
type directTools struct {
	reg *api.ToolRegistry
}

func (d directTools) Call(ctx context.Context, name string, input any) (any, error) {
	fn, ok := d.reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("tool %q not registered", name)
	}
	return fn(input)
}

func newTools(t *testing.T) api.Tools {
	t.Helper()
	reg := api.NewToolRegistry()
	analysis.RegisterTools(reg)
	return directTools{reg: reg}
}

const sampleSource = `package sample

// add sums two ints.
func add(a, b int) int {
	return a + b
}

// classify buckets a number.
func classify(n int) string {
	if n > 10 {
		return "big"
	}
	return "small"
}
`

func TestExtractFunctionsFromString(t *testing.T) {
	state := api.State{KeySourceCode: sampleSource}

	outcome, updated, msg, err := ExtractFunctions(context.Background(), state, newTools(t), nil)
	if err != nil {
		t.Fatalf("ExtractFunctions failed: %v", err)
	}
	if outcome != NodeCheckComplexity {
		t.Fatalf("expected outcome %q, got %q", NodeCheckComplexity, outcome)
	}
	if msg != "extracted 2 functions" {
		t.Fatalf("unexpected message %q", msg)
	}

	functions := updated[KeyFunctions].([]map[string]any)
	if len(functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(functions))
	}

	first := functions[0]
	if first["filename"] != "main.go" {
		t.Fatalf("bare string source should land in main.go, got %v", first["filename"])
	}
	if first["function_name"] != "add" {
		t.Fatalf("expected add first, got %v", first["function_name"])
	}
	if first["start_line"] != 4 {
		t.Fatalf("expected add to start at line 4, got %v", first["start_line"])
	}
	if functions[1]["function_name"] != "classify" {
		t.Fatalf("expected classify second, got %v", functions[1]["function_name"])
	}
}

func TestExtractFunctionsFromFileMap(t *testing.T) {
	state := api.State{
		KeySourceCode: map[string]any{
			"b.go": "func second() {}\n",
			"a.go": "func first() {}\n",
		},
	}

	_, updated, _, err := ExtractFunctions(context.Background(), state, newTools(t), nil)
	if err != nil {
		t.Fatalf("ExtractFunctions failed: %v", err)
	}

	functions := updated[KeyFunctions].([]map[string]any)
	if len(functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(functions))
	}
	// Files are visited in sorted filename order.
	if functions[0]["filename"] != "a.go" || functions[1]["filename"] != "b.go" {
		t.Fatalf("unexpected file order: %v then %v", functions[0]["filename"], functions[1]["filename"])
	}
}

func TestExtractFunctionsParsesMethodReceivers(t *testing.T) {
	src := "func (s *Server) Handle(w http.ResponseWriter) {}\n"
	state := api.State{KeySourceCode: src}

	_, updated, _, err := ExtractFunctions(context.Background(), state, newTools(t), nil)
	if err != nil {
		t.Fatalf("ExtractFunctions failed: %v", err)
	}

	functions := updated[KeyFunctions].([]map[string]any)
	if len(functions) != 1 || functions[0]["function_name"] != "Handle" {
		t.Fatalf("expected method name Handle, got %+v", functions)
	}
}

func TestCheckComplexityDerivesQuality(t *testing.T) {
	tools := newTools(t)
	state := api.State{KeySourceCode: sampleSource}

	_, state, _, err := ExtractFunctions(context.Background(), state, tools, nil)
	if err != nil {
		t.Fatalf("ExtractFunctions failed: %v", err)
	}

	outcome, state, _, err := CheckComplexity(context.Background(), state, tools, nil)
	if err != nil {
		t.Fatalf("CheckComplexity failed: %v", err)
	}
	if outcome != NodeDetectIssues {
		t.Fatalf("expected outcome %q, got %q", NodeDetectIssues, outcome)
	}

	// add scores 2, classify scores 4: quality = 100 - 3.
	quality := state[KeyQualityScore].(float64)
	if quality != 97 {
		t.Fatalf("expected quality 97, got %v", quality)
	}

	metadata := state[KeyMetadata].(map[string]any)
	results := metadata["complexity"].([]map[string]any)
	if len(results) != 2 {
		t.Fatalf("expected per-function complexity, got %+v", results)
	}
}

func TestCheckComplexityWithoutFunctions(t *testing.T) {
	outcome, state, _, err := CheckComplexity(context.Background(), api.State{}, newTools(t), nil)
	if err != nil {
		t.Fatalf("CheckComplexity failed: %v", err)
	}
	if outcome != NodeDetectIssues {
		t.Fatalf("expected outcome %q, got %q", NodeDetectIssues, outcome)
	}
	if state[KeyQualityScore] != 100.0 {
		t.Fatalf("no functions should mean perfect quality, got %v", state[KeyQualityScore])
	}
}

func TestDetectIssuesCollectsFindings(t *testing.T) {
	tools := newTools(t)
	state := api.State{KeySourceCode: "func undocumented() {}\n"}

	_, state, _, err := ExtractFunctions(context.Background(), state, tools, nil)
	if err != nil {
		t.Fatalf("ExtractFunctions failed: %v", err)
	}

	outcome, state, msg, err := DetectIssues(context.Background(), state, tools, nil)
	if err != nil {
		t.Fatalf("DetectIssues failed: %v", err)
	}
	if outcome != NodeSuggestImprovements {
		t.Fatalf("expected outcome %q, got %q", NodeSuggestImprovements, outcome)
	}
	if msg != "found 1 issues" {
		t.Fatalf("unexpected message %q", msg)
	}

	found := state[KeyIssues].([]map[string]any)
	if len(found) != 1 || found[0]["function_name"] != "undocumented" {
		t.Fatalf("unexpected findings: %+v", found)
	}
}

func TestSuggestImprovementsRaisesQuality(t *testing.T) {
	tools := newTools(t)
	state := api.State{KeySourceCode: "func undocumented() {}\n"}

	_, state, _, err := ExtractFunctions(context.Background(), state, tools, nil)
	if err != nil {
		t.Fatalf("ExtractFunctions failed: %v", err)
	}
	state[KeyQualityScore] = 50.0

	outcome, state, _, err := SuggestImprovements(context.Background(), state, tools, nil)
	if err != nil {
		t.Fatalf("SuggestImprovements failed: %v", err)
	}
	if outcome != NodeComputeQuality {
		t.Fatalf("expected outcome %q, got %q", NodeComputeQuality, outcome)
	}

	// One suggestion: quality gains log1p(1)*2.
	want := 50 + math.Log1p(1)*2
	if got := state[KeyQualityScore].(float64); got != want {
		t.Fatalf("expected quality %v, got %v", want, got)
	}
}

func TestSuggestImprovementsQualityCappedAtHundred(t *testing.T) {
	tools := newTools(t)
	state := api.State{KeySourceCode: "func add(a, b int) int {\n\treturn a + b\n}\n"}

	_, state, _, err := ExtractFunctions(context.Background(), state, tools, nil)
	if err != nil {
		t.Fatalf("ExtractFunctions failed: %v", err)
	}
	state[KeyQualityScore] = 99.5

	_, state, _, err = SuggestImprovements(context.Background(), state, tools, nil)
	if err != nil {
		t.Fatalf("SuggestImprovements failed: %v", err)
	}

	if got := state[KeyQualityScore].(float64); got != 100 {
		t.Fatalf("expected capped quality 100, got %v", got)
	}
}

func TestSuggestImprovementsFlatBonusWithoutFunctions(t *testing.T) {
	state := api.State{KeyQualityScore: 50.0}

	_, state, _, err := SuggestImprovements(context.Background(), state, newTools(t), nil)
	if err != nil {
		t.Fatalf("SuggestImprovements failed: %v", err)
	}

	// No functions means no suggestions, so the flat point applies.
	if got := state[KeyQualityScore].(float64); got != 51 {
		t.Fatalf("expected quality 51, got %v", got)
	}
}

func TestComputeQualityGate(t *testing.T) {
	tools := newTools(t)

	state := api.State{KeyQualityScore: 95.0}
	outcome, _, _, err := ComputeQuality(context.Background(), state, tools, nil)
	if err != nil {
		t.Fatalf("ComputeQuality failed: %v", err)
	}
	if outcome != "" {
		t.Fatalf("quality above default threshold should end the run, got %q", outcome)
	}

	state = api.State{KeyQualityScore: 42.0}
	outcome, _, _, err = ComputeQuality(context.Background(), state, tools, nil)
	if err != nil {
		t.Fatalf("ComputeQuality failed: %v", err)
	}
	if outcome != NodeCheckComplexity {
		t.Fatalf("quality below threshold should loop, got %q", outcome)
	}
}

func TestComputeQualityThresholdFromConfig(t *testing.T) {
	state := api.State{KeyQualityScore: 42.0}
	config := map[string]any{"threshold": 40}

	outcome, _, _, err := ComputeQuality(context.Background(), state, newTools(t), config)
	if err != nil {
		t.Fatalf("ComputeQuality failed: %v", err)
	}
	if outcome != "" {
		t.Fatalf("configured threshold should pass, got %q", outcome)
	}
}

func TestRegisterInstallsAllHandlers(t *testing.T) {
	reg := api.NewNodeRegistry()
	Register(reg)

	for _, name := range []string{
		NodeExtractFunctions,
		NodeCheckComplexity,
		NodeDetectIssues,
		NodeSuggestImprovements,
		NodeComputeQuality,
	} {
		if _, ok := reg.Lookup(name); !ok {
			t.Fatalf("handler %q not registered", name)
		}
	}
}

func TestFunctionEntriesAcceptsJSONShape(t *testing.T) {
	state := api.State{
		KeyFunctions: []any{
			map[string]any{"function_name": "a", "source": "func a() {}"},
		},
	}

	entries := functionEntries(state)
	if len(entries) != 1 || entries[0]["function_name"] != "a" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
