package validate

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coolbeans/qcmbank/pkg/bank"
	"github.com/coolbeans/qcmbank/pkg/extract"
)

// MaxSourceBytes is the largest document the source gate accepts.
const MaxSourceBytes = 4 << 20

// maxFindings caps the findings listed per gate.
const maxFindings = 20

// SourceGate (V0) checks the raw document before parsing.
type SourceGate struct{}

func NewSourceGate() *SourceGate { return &SourceGate{} }

func (g *SourceGate) Name() string { return "V0" }

func (g *SourceGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"non_empty":  1.0,
		"utf8_valid": 1.0,
		"size_ok":    1.0,
	}
}

func (g *SourceGate) Run(ctx *ValidationContext) *GateResult {
	start := time.Now()
	result := newResult(g.Name())

	result.Metrics["non_empty"] = boolMetric(len(strings.TrimSpace(string(ctx.Source))) > 0)
	result.Metrics["utf8_valid"] = boolMetric(utf8.Valid(ctx.Source))
	result.Metrics["size_ok"] = boolMetric(len(ctx.Source) <= MaxSourceBytes)

	evaluateMetrics(result, ctx.Config, g)
	result.Duration = time.Since(start)
	return result
}

// StructureGate (V1) checks that parsing kept the document's questions.
type StructureGate struct{}

func NewStructureGate() *StructureGate { return &StructureGate{} }

func (g *StructureGate) Name() string { return "V1" }

func (g *StructureGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"has_questions":        1.0,
		"question_retention":   0.90,
		"numbering_continuity": 0.90,
	}
}

func (g *StructureGate) Run(ctx *ValidationContext) *GateResult {
	start := time.Now()
	result := newResult(g.Name())

	if ctx.Result == nil {
		result.Metrics["has_questions"] = 0
		result.Metrics["question_retention"] = 0
		result.Metrics["numbering_continuity"] = 0
		result.Findings = append(result.Findings, "document could not be parsed")
		evaluateMetrics(result, ctx.Config, g)
		result.Duration = time.Since(start)
		return result
	}

	qb := ctx.Result.Bank
	diag := ctx.Result.Diagnostics
	lost := diag.DroppedQuestions + diag.OrphanQuestions

	result.Metrics["has_questions"] = boolMetric(qb.TotalQuestions > 0)
	result.Metrics["question_retention"] = ratio(qb.TotalQuestions, qb.TotalQuestions+lost)
	if lost > 0 {
		result.Findings = append(result.Findings,
			fmt.Sprintf("%d question(s) dropped, %d orphan question(s)", diag.DroppedQuestions, diag.OrphanQuestions))
	}

	numbers := questionNumbers(ctx.Result.Dialect, ctx.Source)
	gaps := numberingGaps(numbers)
	result.Metrics["numbering_continuity"] = 1 - ratio(len(gaps), len(numbers))
	if len(numbers) == 0 {
		result.Metrics["numbering_continuity"] = 1
	}
	result.Findings = appendCapped(result.Findings, gaps)

	evaluateMetrics(result, ctx.Config, g)
	result.Duration = time.Since(start)
	return result
}

// questionNumbers returns the numbers of the question markers of source,
// in document order.
func questionNumbers(dialect extract.Dialect, source []byte) []int {
	var numbers []int
	for _, line := range extract.SplitLines(string(source)) {
		c := dialect.Classify(line, extract.ModeChapter)
		if c.Kind == extract.QuestionMarker && c.Number > 0 {
			numbers = append(numbers, c.Number)
		}
	}
	return numbers
}

// numberingGaps reports forward jumps in question numbering. A restart at a
// lower number (new section) is not a gap.
func numberingGaps(numbers []int) []string {
	var gaps []string
	for i := 1; i < len(numbers); i++ {
		prev, cur := numbers[i-1], numbers[i]
		if cur > prev+1 {
			if cur == prev+2 {
				gaps = append(gaps, fmt.Sprintf("question %d is missing", prev+1))
			} else {
				gaps = append(gaps, fmt.Sprintf("questions %d to %d are missing", prev+1, cur-1))
			}
		}
	}
	return gaps
}

// AnswerGate (V2) checks the answer key.
type AnswerGate struct{}

func NewAnswerGate() *AnswerGate { return &AnswerGate{} }

func (g *AnswerGate) Name() string { return "V2" }

func (g *AnswerGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"answer_key_coverage":  0.95,
		"explanation_coverage": 0.0,
	}
}

func (g *AnswerGate) Run(ctx *ValidationContext) *GateResult {
	start := time.Now()
	result := newResult(g.Name())

	if ctx.Result == nil {
		result.Skipped = true
		result.SkipReason = "document could not be parsed"
		result.Duration = time.Since(start)
		return result
	}

	total, answered, explained := 0, 0, 0
	var findings []string
	walkQuestions(ctx.Result.Bank, func(path string, q bank.Question) {
		total++
		if q.CorrectCount() > 0 {
			answered++
		} else {
			findings = append(findings, fmt.Sprintf("%s: no correct option", path))
		}
		if q.Explanation != nil {
			explained++
		}
	})

	result.Metrics["answer_key_coverage"] = ratio(answered, total)
	result.Metrics["explanation_coverage"] = ratio(explained, total)
	result.Findings = appendCapped(result.Findings, findings)

	evaluateMetrics(result, ctx.Config, g)
	result.Duration = time.Since(start)
	return result
}

// ConsistencyGate (V3) looks for duplicated and non-discriminating
// questions.
type ConsistencyGate struct{}

func NewConsistencyGate() *ConsistencyGate { return &ConsistencyGate{} }

func (g *ConsistencyGate) Name() string { return "V3" }

func (g *ConsistencyGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"uniqueness":     0.95,
		"discriminating": 0.50,
	}
}

func (g *ConsistencyGate) Run(ctx *ValidationContext) *GateResult {
	start := time.Now()
	result := newResult(g.Name())

	if ctx.Result == nil {
		result.Skipped = true
		result.SkipReason = "document could not be parsed"
		result.Duration = time.Since(start)
		return result
	}

	seen := make(map[string]string)
	total, duplicates, discriminating := 0, 0, 0
	var findings []string
	walkQuestions(ctx.Result.Bank, func(path string, q bank.Question) {
		total++
		key := strings.ToLower(strings.Join(strings.Fields(q.QuestionText), " "))
		if first, ok := seen[key]; ok {
			duplicates++
			findings = append(findings, fmt.Sprintf("%s duplicates %s", path, first))
		} else {
			seen[key] = path
		}
		if q.CorrectCount() < len(q.Options) {
			discriminating++
		}
	})

	result.Metrics["uniqueness"] = 1 - ratio(duplicates, total)
	if total == 0 {
		result.Metrics["uniqueness"] = 1
	}
	result.Metrics["discriminating"] = ratio(discriminating, total)
	result.Findings = appendCapped(result.Findings, findings)

	evaluateMetrics(result, ctx.Config, g)
	result.Duration = time.Since(start)
	return result
}

func newResult(name string) *GateResult {
	return &GateResult{Gate: name, Metrics: make(map[string]float64)}
}

func boolMetric(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

func appendCapped(dst, findings []string) []string {
	if len(findings) > maxFindings {
		more := len(findings) - maxFindings
		findings = append(findings[:maxFindings:maxFindings], fmt.Sprintf("... and %d more", more))
	}
	return append(dst, findings...)
}

// walkQuestions visits every question with a readable location such as
// "Parasitologie › Helminthes › Q1".
func walkQuestions(qb bank.QuestionBank, visit func(path string, q bank.Question)) {
	for _, chapter := range qb.Chapters {
		for _, q := range chapter.Questions {
			visit(fmt.Sprintf("%s › Q%d", chapter.Title, q.OrderIndex+1), q)
		}
		for _, sub := range chapter.Subchapters {
			for _, q := range sub.Questions {
				visit(fmt.Sprintf("%s › %s › Q%d", chapter.Title, sub.Title, q.OrderIndex+1), q)
			}
		}
	}
}
