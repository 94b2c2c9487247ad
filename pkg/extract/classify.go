// Package extract parses hand-authored quiz documents (QCM study sheets) into
// the normalized question bank defined in package bank.
//
// The pipeline runs leaves first: every line is labelled by the line
// classifier, letter-dot lines that could be either an answer option or a
// subchapter header are settled by a bounded lookahead/lookbehind heuristic,
// and a state machine folds the labelled lines into chapters, subchapters and
// questions. The marker vocabulary in effect is chosen per document by
// DetectDialect.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind is the label assigned to a single line.
type Kind int

const (
	Blank Kind = iota
	ChapterTitle
	SubchapterHeader
	QuestionMarker
	OptionLine
	ExplanationMarker
	Continuation
)

var kindNames = map[Kind]string{
	Blank:             "blank",
	ChapterTitle:      "chapter-title",
	SubchapterHeader:  "subchapter-header",
	QuestionMarker:    "question-marker",
	OptionLine:        "option-line",
	ExplanationMarker: "explanation-marker",
	Continuation:      "continuation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Mode is the parser state the classifier is consulted from.
type Mode int

const (
	ModeSeeking Mode = iota
	ModeChapter
	ModeSubchapter
	ModeQuestion
	ModeExplanation
)

// Classification is the result of labelling one line.
type Classification struct {
	Kind Kind

	// Provisional is set for letter-dot lines without a correctness glyph;
	// the Disambiguation Heuristic decides their final kind.
	Provisional bool

	// Letter is the option or subchapter letter, upper-cased.
	Letter byte

	// Number is the question number carried by a QuestionMarker, or 0.
	Number int

	// Body is the line with its structural prefix removed.
	Body string
}

var (
	// qcmMarkerPattern matches "QCM 12 — text", "QCM 12 : text", "QCM 12"
	// and the "✅ QCM 12" variant used by some contributors.
	qcmMarkerPattern = regexp.MustCompile(`(?i)^(?:✅\s*)?QCM\s*(\d+)\s*[-–—:.]?\s*(.*)$`)

	// glyphMarkerPattern matches keycap numerals (one keycap per digit, or a
	// plain number before a single keycap) and circled numerals ("①".."⑳"),
	// optionally followed by "Question :".
	glyphMarkerPattern = regexp.MustCompile(`^((?:\d+\x{FE0F}?\x{20E3})+|[\x{2460}-\x{2473}])\s*(?:(?i:question)\s*[:.]?\s*)?(.*)$`)

	// bareQuestionPattern matches a "Question : text" line without numeral.
	bareQuestionPattern = regexp.MustCompile(`(?i)^question\s*:\s*(.+)$`)

	// optionPattern is the option-line shape: "A. text", "A) text",
	// "A] text" or "A- text", in either case.
	optionPattern = regexp.MustCompile(`^([A-Ea-e])(?:[.)\]]\s+|\s*-\s*)(.+)$`)

	// letterDotPattern is the subchapter-header shape: "A. Title" .. "J.Title".
	letterDotPattern = regexp.MustCompile(`^([A-J])\.\s*(.+)$`)

	// followingOptionPattern is what a line after a real option may look like.
	followingOptionPattern = regexp.MustCompile(`^[B-E]\.`)

	digitsPattern = regexp.MustCompile(`\d+`)
)

// annotationGlyphs are the correctness and justification glyphs whose
// presence rules out a subchapter header.
var annotationGlyphs = []string{"✅", "❌", "✔", "⚠", "→"}

// isLetterDot reports whether line opens with an upper-case "X." prefix,
// the only option form a subchapter header can share.
func isLetterDot(line string) bool {
	return len(line) > 1 && line[0] >= 'A' && line[0] <= 'Z' && line[1] == '.'
}

func hasAnnotationGlyph(line string) bool {
	for _, g := range annotationGlyphs {
		if strings.Contains(line, g) {
			return true
		}
	}
	return false
}

// Classify labels one trimmed line given the current parser mode. Rules are
// checked in priority order and the first match wins. Letter-dot lines that
// could be an option or a subchapter header come back Provisional.
func (d *Dialect) Classify(line string, mode Mode) Classification {
	if line == "" {
		return Classification{Kind: Blank}
	}

	if rest, ok := d.matchExplanation(line); ok {
		return Classification{Kind: ExplanationMarker, Body: rest}
	}

	if number, text, ok := d.matchQuestion(line); ok {
		return Classification{Kind: QuestionMarker, Number: number, Body: text}
	}

	if mode == ModeSeeking {
		return Classification{Kind: ChapterTitle, Body: line}
	}

	annotated := hasAnnotationGlyph(line)

	if m := optionPattern.FindStringSubmatch(line); m != nil {
		return Classification{
			Kind:        OptionLine,
			Provisional: !annotated && isLetterDot(line),
			Letter:      strings.ToUpper(m[1])[0],
			Body:        m[2],
		}
	}

	if m := letterDotPattern.FindStringSubmatch(line); m != nil && !annotated {
		return Classification{
			Kind:        SubchapterHeader,
			Provisional: true,
			Letter:      m[1][0],
			Body:        strings.TrimSpace(m[2]),
		}
	}

	return Classification{Kind: Continuation, Body: line}
}

// matchQuestion reports whether line is a question marker under the
// dialect's numbering style and returns the number and inline text.
func (d *Dialect) matchQuestion(line string) (int, string, bool) {
	switch d.Numbering {
	case NumberingGlyph:
		if m := glyphMarkerPattern.FindStringSubmatch(line); m != nil {
			return glyphNumber(m[1]), strings.TrimSpace(m[2]), true
		}
		if m := bareQuestionPattern.FindStringSubmatch(line); m != nil {
			return 0, strings.TrimSpace(m[1]), true
		}
	default:
		if m := qcmMarkerPattern.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n, strings.TrimSpace(m[2]), true
		}
	}
	return 0, "", false
}

// glyphNumber converts a keycap sequence or a circled numeral such as "③"
// to its integer value.
func glyphNumber(glyph string) int {
	r := []rune(glyph)
	if len(r) == 1 && r[0] >= 0x2460 && r[0] <= 0x2473 {
		return int(r[0]-0x2460) + 1
	}
	n, _ := strconv.Atoi(strings.Join(digitsPattern.FindAllString(glyph, -1), ""))
	return n
}
