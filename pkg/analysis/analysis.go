// Package analysis provides the source-quality tools used by the stock
// node set: a branch-counting complexity estimate, a line-level lint pass,
// and a suggestion generator built on top of both.
//
// The tools are pure, synchronous functions over a single source string.
// Node handlers never call them directly; they are registered in a
// ToolRegistry and dispatched through the engine's worker pool.
package analysis

import (
	"fmt"
	"strings"

	"github.com/petrijr/nodeflow/pkg/api"
)

const (
	// MaxComplexity caps the complexity estimate.
	MaxComplexity = 100

	// LongLineLimit is the column beyond which a line is flagged.
	LongLineLimit = 120

	// complexityCeiling is the score above which a function is suggested
	// for splitting.
	complexityCeiling = 10
)

// Issue is one lint finding at a specific line.
type Issue struct {
	Type   string `json:"type"`
	Line   int    `json:"line"`
	Detail string `json:"detail"`
}

// LintResult aggregates the findings for one source fragment.
type LintResult struct {
	IssueCount int     `json:"issue_count"`
	Issues     []Issue `json:"issues"`
}

// Suggestion is one proposed improvement.
type Suggestion struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// Branch-introducing tokens counted by the complexity estimate. Trailing
// spaces keep "form" or "selector" from matching.
var branchKeywords = []string{
	"if ", "for ", "switch ", "case ", "select ",
	"&& ", "|| ", "return ",
}

// EstimateComplexity scores a function body by counting branch keywords.
// The result is clamped to [1, MaxComplexity]; an empty source scores 0.
func EstimateComplexity(source string) int {
	if source == "" {
		return 0
	}

	score := 1
	lower := strings.ToLower(source)
	for _, kw := range branchKeywords {
		score += strings.Count(lower, kw)
	}

	if score > MaxComplexity {
		score = MaxComplexity
	}
	if score < 1 {
		score = 1
	}
	return score
}

// Lint runs the line-level checks: overlong lines, trailing whitespace, and
// a missing doc comment on the first function declaration.
func Lint(source string) LintResult {
	issues := []Issue{}
	lines := strings.Split(source, "\n")

	for i, line := range lines {
		lineNumber := i + 1
		if len(line) > LongLineLimit {
			issues = append(issues, Issue{
				Type:   "long_line",
				Line:   lineNumber,
				Detail: fmt.Sprintf("Line longer than %d characters", LongLineLimit),
			})
		}
		if strings.TrimRight(line, " \t") != line {
			issues = append(issues, Issue{
				Type:   "trailing_whitespace",
				Line:   lineNumber,
				Detail: "Line contains trailing whitespace",
			})
		}
	}

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(stripped, "func ") {
			continue
		}
		if !hasDocComment(lines, i) {
			issues = append(issues, Issue{
				Type:   "missing_doc_comment",
				Line:   i + 1,
				Detail: "Function may be missing a doc comment",
			})
		}
		break
	}

	return LintResult{IssueCount: len(issues), Issues: issues}
}

// hasDocComment reports whether any of the lines directly above index i is
// a comment line.
func hasDocComment(lines []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-3; j-- {
		stripped := strings.TrimSpace(lines[j])
		if strings.HasPrefix(stripped, "//") || strings.HasPrefix(stripped, "/*") {
			return true
		}
		if stripped != "" {
			return false
		}
	}
	return false
}

// Suggest derives improvement suggestions from the complexity estimate and
// the lint findings.
func Suggest(source string) []Suggestion {
	suggestions := []Suggestion{}

	if EstimateComplexity(source) > complexityCeiling {
		suggestions = append(suggestions, Suggestion{
			Type:   "split_function",
			Detail: "Function appears complex and could be split into smaller parts",
		})
	}

	for _, issue := range Lint(source).Issues {
		switch issue.Type {
		case "long_line":
			suggestions = append(suggestions, Suggestion{
				Type:   "wrap_long_line",
				Detail: fmt.Sprintf("Consider wrapping line %d", issue.Line),
			})
		case "missing_doc_comment":
			suggestions = append(suggestions, Suggestion{
				Type:   "add_doc_comment",
				Detail: "Add a descriptive doc comment",
			})
		}
	}

	return suggestions
}

// Tool names registered by RegisterTools.
const (
	ToolEstimateComplexity  = "estimate_complexity"
	ToolRunLint             = "run_lint"
	ToolGenerateSuggestions = "generate_suggestions"
)

// RegisterTools registers the analysis tools under their well-known names.
func RegisterTools(reg *api.ToolRegistry) {
	reg.Register(ToolEstimateComplexity, func(input any) (any, error) {
		source, err := stringInput(ToolEstimateComplexity, input)
		if err != nil {
			return nil, err
		}
		return EstimateComplexity(source), nil
	})

	reg.Register(ToolRunLint, func(input any) (any, error) {
		source, err := stringInput(ToolRunLint, input)
		if err != nil {
			return nil, err
		}
		return Lint(source), nil
	})

	reg.Register(ToolGenerateSuggestions, func(input any) (any, error) {
		source, err := stringInput(ToolGenerateSuggestions, input)
		if err != nil {
			return nil, err
		}
		return Suggest(source), nil
	})
}

func stringInput(tool string, input any) (string, error) {
	source, ok := input.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string input, got %T", tool, input)
	}
	return source, nil
}
