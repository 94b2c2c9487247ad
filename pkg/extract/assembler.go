package extract

import (
	"regexp"
	"slices"
	"strings"

	"github.com/coolbeans/qcmbank/pkg/bank"
)

var (
	// leadingGlyphPattern strips emoji and punctuation decorating a title.
	leadingGlyphPattern = regexp.MustCompile(`^[^\p{L}\p{N}]+`)

	// chapterPrefixPattern strips a "Chapitre 3 —" style prefix.
	chapterPrefixPattern = regexp.MustCompile(`(?i)^(?:chapitre|chapter|chap\.?)\s*\d+\s*[:\-–—.]\s*`)

	// trailingAnnotationPattern strips a trailing "(1→20 QCM)" annotation.
	trailingAnnotationPattern = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
)

type questionDraft struct {
	open        bool
	line        int
	orderIndex  int
	text        []string
	options     []bank.Option
	explanation explanation
}

type subchapterDraft struct {
	open      bool
	title     string
	questions []bank.Question
}

// ParserState is the immutable state threaded through the structural fold.
// Step never mutates its receiver: slices are clipped before every append so
// a new state never shares spare capacity with an older one.
type ParserState struct {
	mode           Mode
	hasSubchapters bool

	title       string
	subchapters []bank.Subchapter
	questions   []bank.Question

	sub      subchapterDraft
	question questionDraft
	counter  int

	diag Diagnostics
}

// NewParserState returns the initial Seeking state for a document of the
// given dialect.
func NewParserState(d *Dialect) ParserState {
	return ParserState{mode: ModeSeeking, hasSubchapters: d.HasSubchapters}
}

// Mode returns the current state of the machine.
func (s ParserState) Mode() Mode {
	return s.mode
}

// Step consumes lines[i] and returns the next state.
func (s ParserState) Step(d *Dialect, lines []string, i int) ParserState {
	raw := lines[i]
	line := i + 1

	c := d.Classify(raw, s.mode)
	if c.Provisional {
		c.Kind = d.Resolve(lines, i, c)
	}

	switch c.Kind {
	case Blank:
		return s
	case ChapterTitle:
		return s.openChapter(cleanChapterTitle(c.Body))
	case QuestionMarker:
		if s.mode == ModeSeeking {
			s = s.openChapter(d.fallbackTitle)
		}
		return s.openQuestion(c.Body, line)
	case SubchapterHeader:
		if s.hasSubchapters {
			return s.openSubchapter(cleanHeading(c.Body))
		}
	case OptionLine:
		return s.addOption(raw, line)
	case ExplanationMarker:
		return s.startExplanation(c.Body)
	}
	return s.continueText(raw)
}

// Finish closes the open question, subchapter and chapter, innermost first,
// and returns the chapter with the diagnostics gathered along the way.
func (s ParserState) Finish() (bank.Chapter, Diagnostics) {
	s = s.closeQuestion()
	s = s.closeSubchapter()
	return bank.Chapter{
		Title:       s.title,
		Subchapters: s.subchapters,
		Questions:   s.questions,
	}, s.diag
}

func (s ParserState) openChapter(title string) ParserState {
	s.title = title
	s.mode = ModeChapter
	return s
}

func (s ParserState) openSubchapter(title string) ParserState {
	s = s.closeQuestion()
	s = s.closeSubchapter()
	s.sub = subchapterDraft{open: true, title: title}
	s.counter = 0
	s.mode = ModeSubchapter
	return s
}

func (s ParserState) closeSubchapter() ParserState {
	if !s.sub.open {
		return s
	}
	s.subchapters = append(slices.Clip(s.subchapters), bank.Subchapter{
		Title:      s.sub.title,
		OrderIndex: len(s.subchapters),
		Questions:  s.sub.questions,
	})
	s.sub = subchapterDraft{}
	s.mode = ModeChapter
	return s
}

func (s ParserState) openQuestion(inline string, line int) ParserState {
	s = s.closeQuestion()
	s.question = questionDraft{open: true, line: line, orderIndex: s.counter}
	s.counter++
	if text := cleanQuestionText(inline); text != "" {
		s.question.text = []string{text}
	}
	s.mode = ModeQuestion
	return s
}

// closeQuestion finalizes the open question. A question without options or
// without text is incomplete data and is dropped.
func (s ParserState) closeQuestion() ParserState {
	if !s.question.open {
		return s
	}
	draft := s.question
	s.question = questionDraft{}
	s.mode = ModeChapter
	if s.sub.open {
		s.mode = ModeSubchapter
	}

	text := cleanQuestionText(strings.Join(draft.text, " "))
	if len(draft.options) == 0 || text == "" {
		s.diag.DroppedQuestions++
		return s
	}

	q := bank.Question{
		QuestionText: text,
		Options:      draft.options,
		Explanation:  draft.explanation.finalize(),
		OrderIndex:   draft.orderIndex,
	}

	switch {
	case s.sub.open:
		s.sub.questions = append(slices.Clip(s.sub.questions), q)
	case s.hasSubchapters:
		s.diag.OrphanQuestions++
		s.diag = s.diag.warn(WarningOrphanQuestion, draft.line, "question %q appears before the first subchapter", text)
	default:
		s.questions = append(slices.Clip(s.questions), q)
	}
	return s
}

func (s ParserState) addOption(raw string, line int) ParserState {
	if !s.question.open {
		s.diag.IgnoredLines++
		s.diag = s.diag.warn(WarningOptionWithoutQuestion, line, "option outside of any question")
		return s
	}
	if len(s.question.options) >= bank.MaxOptions {
		s.diag.ExtraOptions++
		s.diag = s.diag.warn(WarningExtraOption, line, "question already has %d options", bank.MaxOptions)
		return s
	}

	opt, _, ok := ParseOption(raw)
	if !ok {
		return s.continueText(raw)
	}
	s.question.options = append(slices.Clip(s.question.options), opt)
	s.mode = ModeQuestion
	return s
}

func (s ParserState) startExplanation(rest string) ParserState {
	if !s.question.open {
		s.diag.IgnoredLines++
		return s
	}
	s.question.explanation = s.question.explanation.start(rest)
	s.mode = ModeExplanation
	return s
}

// continueText appends an unstructured line to whichever buffer is open:
// the explanation, or the question text while no option has been seen.
// Otherwise the line is ignored.
func (s ParserState) continueText(raw string) ParserState {
	switch {
	case s.mode == ModeExplanation && s.question.open:
		s.question.explanation = s.question.explanation.add(raw)
	case s.question.open && len(s.question.options) == 0:
		s.question.text = append(slices.Clip(s.question.text), raw)
	default:
		s.diag.IgnoredLines++
	}
	return s
}

func cleanChapterTitle(line string) string {
	title := cleanHeading(leadingGlyphPattern.ReplaceAllString(line, ""))
	if stripped := strings.TrimSpace(chapterPrefixPattern.ReplaceAllString(title, "")); stripped != "" {
		title = stripped
	}
	return title
}

func cleanHeading(text string) string {
	text = strings.TrimSpace(text)
	if stripped := strings.TrimSpace(trailingAnnotationPattern.ReplaceAllString(text, "")); stripped != "" {
		text = stripped
	}
	return strings.TrimSpace(strings.TrimSuffix(text, ":"))
}

func cleanQuestionText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(strings.TrimSuffix(text, ":"))
}
