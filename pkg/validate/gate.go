// Package validate runs quality gates over a parsed quiz document: checks
// that a bank which parsed without error is still fit to publish (every
// question has an answer key, no question was silently lost, no
// duplicates).
package validate

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/coolbeans/qcmbank/pkg/extract"
)

// ValidationGate is one quality checkpoint.
type ValidationGate interface {
	// Name returns the gate identifier ("V0" to "V3").
	Name() string

	// Run evaluates the gate against the context.
	Run(ctx *ValidationContext) *GateResult

	// Thresholds returns the minimum acceptable value (0.0-1.0) per metric.
	Thresholds() map[string]float64
}

// ValidationContext holds what the gates inspect.
type ValidationContext struct {
	// SourcePath and Source describe the document as read from disk.
	SourcePath string
	Source     []byte

	// Result is nil when parsing failed.
	Result *extract.Result

	Config *ValidationConfig
}

// ValidationConfig holds user-configurable settings for gate execution.
type ValidationConfig struct {
	// Thresholds overrides per-gate metric thresholds, keyed
	// "GateName.metric_name" (e.g. "V2.answer_key_coverage").
	Thresholds map[string]float64

	// SkipGates lists gate names to skip.
	SkipGates []string

	// StrictMode halts the pipeline on the first failing gate.
	StrictMode bool

	// FailOnWarn fails the run on any warning.
	FailOnWarn bool
}

func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		Thresholds: make(map[string]float64),
	}
}

// GateResult captures the outcome of a single gate execution.
type GateResult struct {
	Gate       string             `json:"gate"`
	Passed     bool               `json:"passed"`
	Score      float64            `json:"score"`
	Metrics    map[string]float64 `json:"metrics"`
	Warnings   []GateIssue        `json:"warnings,omitempty"`
	Errors     []GateIssue        `json:"errors,omitempty"`
	Findings   []string           `json:"findings,omitempty"`
	Duration   time.Duration      `json:"duration"`
	Skipped    bool               `json:"skipped,omitempty"`
	SkipReason string             `json:"skip_reason,omitempty"`
}

// GateIssue is a metric that missed, or came close to, its threshold.
type GateIssue struct {
	Metric  string  `json:"metric"`
	Message string  `json:"message"`
	Value   float64 `json:"value"`
}

// GateReport aggregates the results of a pipeline run.
type GateReport struct {
	SourcePath   string        `json:"source_path,omitempty"`
	Results      []*GateResult `json:"results"`
	OverallPass  bool          `json:"overall_pass"`
	TotalScore   float64       `json:"total_score"`
	GatesPassed  int           `json:"gates_passed"`
	GatesFailed  int           `json:"gates_failed"`
	GatesSkipped int           `json:"gates_skipped"`
	Duration     time.Duration `json:"duration"`
	HaltedAt     string        `json:"halted_at,omitempty"`
}

func (r *GateReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// String returns a human-readable report.
func (r *GateReport) String() string {
	var sb strings.Builder

	sb.WriteString("Validation Gate Report\n")
	sb.WriteString(strings.Repeat("═", 60) + "\n")
	if r.SourcePath != "" {
		fmt.Fprintf(&sb, "Document: %s\n", r.SourcePath)
	}
	sb.WriteString("\n")

	for _, result := range r.Results {
		fmt.Fprintf(&sb, "[%s] Gate %s (score: %.1f%%)\n", statusLabel(result), result.Gate, result.Score*100)

		if result.Skipped {
			fmt.Fprintf(&sb, "  Reason: %s\n", result.SkipReason)
		}
		for _, name := range sortedMetrics(result.Metrics) {
			fmt.Fprintf(&sb, "  %s: %.1f%%\n", name, result.Metrics[name]*100)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(&sb, "  WARNING [%s]: %s\n", w.Metric, w.Message)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(&sb, "  ERROR [%s]: %s\n", e.Metric, e.Message)
		}
		for _, f := range result.Findings {
			fmt.Fprintf(&sb, "  - %s\n", f)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(strings.Repeat("─", 60) + "\n")
	fmt.Fprintf(&sb, "Summary: %d passed, %d failed, %d skipped\n", r.GatesPassed, r.GatesFailed, r.GatesSkipped)
	fmt.Fprintf(&sb, "Overall Score: %.1f%%\n", r.TotalScore*100)

	overall := "PASS"
	if !r.OverallPass {
		overall = "FAIL"
	}
	fmt.Fprintf(&sb, "Status: %s\n", overall)
	if r.HaltedAt != "" {
		fmt.Fprintf(&sb, "Pipeline halted at: %s\n", r.HaltedAt)
	}
	return sb.String()
}

func statusLabel(result *GateResult) string {
	switch {
	case result.Skipped:
		return "SKIP"
	case !result.Passed:
		return "FAIL"
	default:
		return "PASS"
	}
}

func sortedMetrics(metrics map[string]float64) []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GatePipeline executes validation gates in sequence.
type GatePipeline struct {
	gates  []ValidationGate
	config *ValidationConfig
}

func NewGatePipeline(config *ValidationConfig) *GatePipeline {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &GatePipeline{config: config}
}

// NewDefaultPipeline returns a pipeline with the four standard gates.
func NewDefaultPipeline(config *ValidationConfig) *GatePipeline {
	p := NewGatePipeline(config)
	p.RegisterDefaultGates()
	return p
}

// RegisterGate adds a gate. Gates execute in registration order.
func (p *GatePipeline) RegisterGate(gate ValidationGate) {
	p.gates = append(p.gates, gate)
}

// RegisterDefaultGates registers V0 (source), V1 (structure), V2 (answers)
// and V3 (consistency).
func (p *GatePipeline) RegisterDefaultGates() {
	p.RegisterGate(NewSourceGate())
	p.RegisterGate(NewStructureGate())
	p.RegisterGate(NewAnswerGate())
	p.RegisterGate(NewConsistencyGate())
}

// Run executes every registered gate against ctx.
func (p *GatePipeline) Run(ctx *ValidationContext) *GateReport {
	start := time.Now()
	if ctx.Config == nil {
		ctx.Config = p.config
	}

	report := &GateReport{
		SourcePath:  ctx.SourcePath,
		Results:     make([]*GateResult, 0, len(p.gates)),
		OverallPass: true,
	}

	for _, gate := range p.gates {
		if p.isGateSkipped(gate.Name()) {
			report.Results = append(report.Results, skippedResult(gate.Name()))
			report.GatesSkipped++
			continue
		}

		result := gate.Run(ctx)
		report.Results = append(report.Results, result)

		if result.Skipped {
			report.GatesSkipped++
			continue
		}
		if result.Passed {
			report.GatesPassed++
		} else {
			report.GatesFailed++
			report.OverallPass = false
			if p.config.StrictMode {
				report.HaltedAt = gate.Name()
				break
			}
		}

		if p.config.FailOnWarn && len(result.Warnings) > 0 {
			report.OverallPass = false
			report.HaltedAt = gate.Name()
			break
		}
	}

	scored := 0
	total := 0.0
	for _, result := range report.Results {
		if !result.Skipped {
			total += result.Score
			scored++
		}
	}
	if scored > 0 {
		report.TotalScore = total / float64(scored)
	}

	report.Duration = time.Since(start)
	return report
}

// RunGate executes a single named gate. It returns nil for an unknown gate.
func (p *GatePipeline) RunGate(name string, ctx *ValidationContext) *GateResult {
	if p.isGateSkipped(name) {
		return skippedResult(name)
	}
	if ctx.Config == nil {
		ctx.Config = p.config
	}
	for _, gate := range p.gates {
		if gate.Name() == name {
			return gate.Run(ctx)
		}
	}
	return nil
}

func skippedResult(name string) *GateResult {
	return &GateResult{
		Gate:       name,
		Skipped:    true,
		SkipReason: "skipped by configuration",
		Metrics:    make(map[string]float64),
	}
}

func (p *GatePipeline) isGateSkipped(name string) bool {
	for _, skip := range p.config.SkipGates {
		if strings.EqualFold(skip, name) {
			return true
		}
	}
	return false
}

// effectiveThreshold prefers a config override over the gate default.
func effectiveThreshold(config *ValidationConfig, gate ValidationGate, metric string) float64 {
	if config != nil && config.Thresholds != nil {
		if threshold, ok := config.Thresholds[gate.Name()+"."+metric]; ok {
			return threshold
		}
	}
	if threshold, ok := gate.Thresholds()[metric]; ok {
		return threshold
	}
	return 0.80
}

// evaluateMetrics scores the gate and records an error for every metric
// below its threshold and a warning for those within 10% above it. Metrics
// with a zero threshold are informational and left out of the score.
func evaluateMetrics(result *GateResult, config *ValidationConfig, gate ValidationGate) {
	total := 0.0
	scored := 0
	passed := true
	for _, name := range sortedMetrics(result.Metrics) {
		value := result.Metrics[name]
		threshold := effectiveThreshold(config, gate, name)
		if threshold <= 0 {
			continue
		}
		total += value
		scored++

		switch {
		case value < threshold:
			passed = false
			result.Errors = append(result.Errors, GateIssue{
				Metric:  name,
				Message: fmt.Sprintf("%s (%.1f%%) below threshold (%.1f%%)", name, value*100, threshold*100),
				Value:   value,
			})
		case value < threshold*1.1 && value < 1.0:
			result.Warnings = append(result.Warnings, GateIssue{
				Metric:  name,
				Message: fmt.Sprintf("%s (%.1f%%) close to threshold (%.1f%%)", name, value*100, threshold*100),
				Value:   value,
			})
		}
	}

	result.Score = 1.0
	if scored > 0 {
		result.Score = total / float64(scored)
	}
	result.Passed = passed
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 1.0
	}
	return float64(part) / float64(whole)
}
