package extract

import (
	"regexp"
	"strings"

	"github.com/coolbeans/qcmbank/pkg/bank"
)

// correctness is the state carried by a correctness glyph.
type correctness int

const (
	unmarked correctness = iota
	correct
	incorrect
	partial
)

// PartialMarker prefixes the justification of options marked ⚠. The model
// keeps isCorrect boolean, so a partially correct option is stored as
// incorrect with this flag in its justification.
const PartialMarker = "\u26a0\ufe0f"

const justificationArrow = "→"

var (
	optionPrefixPattern = regexp.MustCompile(`^([A-Ea-e])(?:[.)\]]|\s*-)\s*`)

	glyphDashes = []string{"—", "–", "-"}
)

// ParseOption extracts text, correctness and justification from an option
// line. It reports false when the line has no option letter prefix.
//
// The leftmost correctness glyph is honoured and removed. Text after the
// first "→", or after a dash directly following the glyph, is the
// justification. A line without any glyph is an incorrect option with no
// justification and its text kept verbatim.
func ParseOption(line string) (bank.Option, byte, bool) {
	loc := optionPrefixPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return bank.Option{}, 0, false
	}
	letter := strings.ToUpper(line[loc[2]:loc[3]])[0]
	body := strings.TrimSpace(line[loc[1]:])

	glyph := correctnessGlyphPattern.FindStringIndex(body)
	if glyph == nil {
		return bank.Option{Text: body}, letter, true
	}

	state := glyphState(body[glyph[0]:glyph[1]])
	left := strings.TrimSpace(body[:glyph[0]])
	right := strings.TrimSpace(body[glyph[1]:])

	text, justification := splitJustification(left, right)

	if state == partial {
		justification = strings.TrimSpace(PartialMarker + " " + justification)
	}

	return bank.Option{
		Text:          cleanOptionText(text),
		IsCorrect:     state == correct,
		Justification: bank.StringPtr(justification),
	}, letter, true
}

func glyphState(glyph string) correctness {
	switch {
	case strings.Contains(glyph, "✅"), strings.Contains(glyph, "✔"):
		return correct
	case strings.Contains(glyph, "❌"):
		return incorrect
	case strings.Contains(glyph, "⚠"):
		return partial
	}
	return unmarked
}

// splitJustification splits the text around a removed glyph. Only the first
// separator splits; the rest belongs to the justification verbatim.
func splitJustification(left, right string) (string, string) {
	for _, dash := range glyphDashes {
		if strings.HasPrefix(right, dash) {
			return left, strings.TrimSpace(strings.TrimPrefix(right, dash))
		}
	}

	combined := strings.TrimSpace(left + " " + right)
	if idx := strings.Index(combined, justificationArrow); idx >= 0 {
		return strings.TrimSpace(combined[:idx]), strings.TrimSpace(combined[idx+len(justificationArrow):])
	}
	return combined, ""
}

func cleanOptionText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimRight(text, " :—–")
	return strings.TrimSpace(text)
}
