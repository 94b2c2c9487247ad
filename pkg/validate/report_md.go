package validate

import (
	"fmt"
	"strings"
)

// ToMarkdown renders the report as Markdown, e.g. for a merge request
// comment on a quiz repository.
func (r *GateReport) ToMarkdown() string {
	var sb strings.Builder

	badge := "✅"
	status := "PASS"
	if !r.OverallPass {
		badge = "❌"
		status = "FAIL"
	}

	fmt.Fprintf(&sb, "# Validation Report %s\n\n", badge)
	if r.SourcePath != "" {
		fmt.Fprintf(&sb, "Document: `%s`\n\n", r.SourcePath)
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	fmt.Fprintf(&sb, "| **Overall Score** | %.1f%% |\n", r.TotalScore*100)
	fmt.Fprintf(&sb, "| **Status** | %s %s |\n", badge, status)
	fmt.Fprintf(&sb, "| **Gates** | %d passed, %d failed, %d skipped |\n", r.GatesPassed, r.GatesFailed, r.GatesSkipped)
	if r.HaltedAt != "" {
		fmt.Fprintf(&sb, "| **Halted at** | %s |\n", r.HaltedAt)
	}
	sb.WriteString("\n")

	sb.WriteString("## Gates\n\n")
	sb.WriteString("| Gate | Status | Score |\n")
	sb.WriteString("|------|--------|-------|\n")
	for _, result := range r.Results {
		fmt.Fprintf(&sb, "| %s | %s | %.1f%% |\n", result.Gate, statusLabel(result), result.Score*100)
	}
	sb.WriteString("\n")

	for _, result := range r.Results {
		if result.Skipped || (len(result.Errors) == 0 && len(result.Warnings) == 0 && len(result.Findings) == 0) {
			continue
		}
		fmt.Fprintf(&sb, "### %s\n\n", result.Gate)
		for _, name := range sortedMetrics(result.Metrics) {
			fmt.Fprintf(&sb, "- `%s`: %.1f%%\n", name, result.Metrics[name]*100)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(&sb, "- ❌ %s\n", e.Message)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(&sb, "- \u26a0\ufe0f %s\n", w.Message)
		}
		for _, f := range result.Findings {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
