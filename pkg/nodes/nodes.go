// Package nodes ships the stock node handlers for the code-review
// pipeline: function extraction, complexity scoring, issue detection,
// suggestion generation, and a quality gate that either ends the run or
// loops back for another pass.
//
// Handlers read and write the shared run state under well-known keys and
// call the analysis tools through the engine's tool dispatcher. They are
// tolerant of JSON-decoded state, so a run started from an HTTP payload
// behaves the same as one started in-process.
package nodes

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/petrijr/nodeflow/pkg/analysis"
	"github.com/petrijr/nodeflow/pkg/api"
)

// State keys used by the stock handlers.
const (
	KeySourceCode   = "source_code"
	KeyFunctions    = "functions"
	KeyQualityScore = "quality_score"
	KeyIssues       = "issues"
	KeySuggestions  = "suggestions"
	KeyMetadata     = "metadata"
)

// Node names under which Register installs the handlers.
const (
	NodeExtractFunctions    = "extract_functions"
	NodeCheckComplexity     = "check_complexity"
	NodeDetectIssues        = "detect_issues"
	NodeSuggestImprovements = "suggest_improvements"
	NodeComputeQuality      = "compute_quality"
)

// DefaultQualityThreshold is the quality gate used when a compute_quality
// node carries no "threshold" config.
const DefaultQualityThreshold = 90.0

// Register installs the stock handlers under their well-known names.
func Register(reg *api.NodeRegistry) {
	reg.Register(NodeExtractFunctions, ExtractFunctions)
	reg.Register(NodeCheckComplexity, CheckComplexity)
	reg.Register(NodeDetectIssues, DetectIssues)
	reg.Register(NodeSuggestImprovements, SuggestImprovements)
	reg.Register(NodeComputeQuality, ComputeQuality)
}

// ExtractFunctions scans the source files in state and records one entry
// per top-level function declaration.
func ExtractFunctions(ctx context.Context, state api.State, tools api.Tools, config map[string]any) (string, api.State, string, error) {
	files := sourceFiles(state)

	filenames := make([]string, 0, len(files))
	for name := range files {
		filenames = append(filenames, name)
	}
	sort.Strings(filenames)

	extracted := []map[string]any{}
	for _, filename := range filenames {
		extracted = append(extracted, scanFunctions(filename, files[filename])...)
	}

	state[KeyFunctions] = extracted
	return NodeCheckComplexity, state, fmt.Sprintf("extracted %d functions", len(extracted)), nil
}

// CheckComplexity scores every extracted function through the
// estimate_complexity tool and derives an initial quality score.
func CheckComplexity(ctx context.Context, state api.State, tools api.Tools, config map[string]any) (string, api.State, string, error) {
	functions := functionEntries(state)

	total := 0
	results := []map[string]any{}
	for _, fn := range functions {
		source, _ := fn["source"].(string)
		out, err := tools.Call(ctx, analysis.ToolEstimateComplexity, source)
		if err != nil {
			return "", state, "", fmt.Errorf("check_complexity: %w", err)
		}
		complexity := intValue(out, 0)
		total += complexity
		results = append(results, map[string]any{
			"function_name": fn["function_name"],
			"complexity":    complexity,
		})
	}

	quality := 100.0
	if len(results) > 0 {
		avg := float64(total) / float64(len(results))
		quality = math.Max(0, 100-avg)
	}

	metadata := metadataMap(state)
	metadata["complexity"] = results
	state[KeyMetadata] = metadata
	state[KeyQualityScore] = quality

	return NodeDetectIssues, state, fmt.Sprintf("computed complexity for %d functions", len(results)), nil
}

// DetectIssues lints every extracted function and records the findings.
func DetectIssues(ctx context.Context, state api.State, tools api.Tools, config map[string]any) (string, api.State, string, error) {
	functions := functionEntries(state)

	found := []map[string]any{}
	totalIssues := 0
	for _, fn := range functions {
		source, _ := fn["source"].(string)
		out, err := tools.Call(ctx, analysis.ToolRunLint, source)
		if err != nil {
			return "", state, "", fmt.Errorf("detect_issues: %w", err)
		}
		result, ok := out.(analysis.LintResult)
		if !ok {
			return "", state, "", fmt.Errorf("detect_issues: unexpected lint result %T", out)
		}
		if result.IssueCount == 0 {
			continue
		}
		totalIssues += result.IssueCount
		found = append(found, map[string]any{
			"function_name": fn["function_name"],
			"issues":        result.Issues,
		})
	}

	state[KeyIssues] = found
	return NodeSuggestImprovements, state, fmt.Sprintf("found %d issues", totalIssues), nil
}

// SuggestImprovements generates suggestions for every extracted function
// and nudges the quality score: finding concrete suggestions raises it by
// a logarithmic bonus, a clean pass by a flat point.
func SuggestImprovements(ctx context.Context, state api.State, tools api.Tools, config map[string]any) (string, api.State, string, error) {
	functions := functionEntries(state)

	suggestions := []map[string]any{}
	count := 0
	for _, fn := range functions {
		source, _ := fn["source"].(string)
		out, err := tools.Call(ctx, analysis.ToolGenerateSuggestions, source)
		if err != nil {
			return "", state, "", fmt.Errorf("suggest_improvements: %w", err)
		}
		generated, ok := out.([]analysis.Suggestion)
		if !ok {
			return "", state, "", fmt.Errorf("suggest_improvements: unexpected suggestion result %T", out)
		}
		if len(generated) == 0 {
			continue
		}
		count += len(generated)
		suggestions = append(suggestions, map[string]any{
			"function_name": fn["function_name"],
			"suggestions":   generated,
		})
	}

	quality := floatValue(state[KeyQualityScore], 0)
	if count > 0 {
		quality = math.Min(100, quality+math.Log1p(float64(count))*2)
	} else {
		quality = math.Min(100, quality+1)
	}

	state[KeySuggestions] = suggestions
	state[KeyQualityScore] = quality
	return NodeComputeQuality, state, fmt.Sprintf("generated %d suggestions", count), nil
}

// ComputeQuality gates the run on the accumulated quality score. At or
// above the threshold the handler declares the run complete; below it the
// pipeline loops back to another complexity pass.
func ComputeQuality(ctx context.Context, state api.State, tools api.Tools, config map[string]any) (string, api.State, string, error) {
	threshold := floatValue(config["threshold"], DefaultQualityThreshold)
	quality := floatValue(state[KeyQualityScore], 0)

	if quality >= threshold {
		return "", state, fmt.Sprintf("quality score %.2f meets threshold %.2f", quality, threshold), nil
	}
	return NodeCheckComplexity, state, fmt.Sprintf("quality score %.2f below threshold %.2f", quality, threshold), nil
}

// sourceFiles normalizes the source_code state entry. A bare string is
// treated as a single main.go; a map is used as filename to content.
func sourceFiles(state api.State) map[string]string {
	switch v := state[KeySourceCode].(type) {
	case string:
		return map[string]string{"main.go": v}
	case map[string]string:
		return v
	case map[string]any:
		files := make(map[string]string, len(v))
		for name, content := range v {
			if s, ok := content.(string); ok {
				files[name] = s
			}
		}
		return files
	default:
		return map[string]string{}
	}
}

// scanFunctions extracts top-level function blocks from one file. A block
// runs from its "func " line to the line before the next one.
func scanFunctions(filename, content string) []map[string]any {
	lines := strings.Split(content, "\n")

	type block struct {
		name  string
		start int
		end   int
	}

	blocks := []block{}
	for i, line := range lines {
		if !strings.HasPrefix(strings.TrimLeft(line, " \t"), "func ") {
			continue
		}
		if len(blocks) > 0 {
			blocks[len(blocks)-1].end = i - 1
		}
		blocks = append(blocks, block{name: functionName(line), start: i, end: len(lines) - 1})
	}

	functions := make([]map[string]any, 0, len(blocks))
	for _, b := range blocks {
		functions = append(functions, map[string]any{
			"filename":      filename,
			"function_name": b.name,
			"start_line":    b.start + 1,
			"end_line":      b.end + 1,
			"source":        strings.Join(lines[b.start:b.end+1], "\n"),
		})
	}
	return functions
}

// functionName pulls the identifier out of a func declaration line,
// skipping a method receiver when present.
func functionName(line string) string {
	rest := strings.TrimPrefix(strings.TrimLeft(line, " \t"), "func ")
	rest = strings.TrimLeft(rest, " ")
	if strings.HasPrefix(rest, "(") {
		if end := strings.Index(rest, ")"); end >= 0 {
			rest = strings.TrimLeft(rest[end+1:], " ")
		}
	}
	if open := strings.Index(rest, "("); open >= 0 {
		rest = rest[:open]
	}
	return strings.TrimSpace(rest)
}

// functionEntries reads the extracted function list back out of state,
// accepting both the in-process and the JSON-decoded shape.
func functionEntries(state api.State) []map[string]any {
	switch v := state[KeyFunctions].(type) {
	case []map[string]any:
		return v
	case []any:
		entries := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				entries = append(entries, m)
			}
		}
		return entries
	default:
		return nil
	}
}

func metadataMap(state api.State) map[string]any {
	if m, ok := state[KeyMetadata].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func intValue(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func floatValue(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return fallback
	}
}
