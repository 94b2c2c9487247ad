package extract

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidUTF8 is the only hard parse failure: the input is not text.
	ErrInvalidUTF8 = errors.New("document is not valid UTF-8")

	// ErrEmptyDocument means no chapter title could be found.
	ErrEmptyDocument = errors.New("no chapter title found")

	// ErrNoQuestionsFound means the chapter was discarded because it owned
	// no question. It is reported as a Warning, never returned by Parse.
	ErrNoQuestionsFound = errors.New("no questions found")
)

// WarningCode identifies a non-fatal parse finding.
type WarningCode string

const (
	WarningNoQuestions           WarningCode = "no_questions_found"
	WarningOrphanQuestion        WarningCode = "orphan_question"
	WarningOptionWithoutQuestion WarningCode = "option_without_question"
	WarningExtraOption           WarningCode = "extra_option"
)

// Warning is a non-fatal finding attached to a parse result.
type Warning struct {
	Code    WarningCode `json:"code"`
	Line    int         `json:"line,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) Error() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	return w.Message
}

// Is lets errors.Is(w, ErrNoQuestionsFound) match the corresponding warning.
func (w Warning) Is(target error) bool {
	return w.Code == WarningNoQuestions && target == ErrNoQuestionsFound
}

// Diagnostics summarizes what the parser dropped or ignored in a document.
type Diagnostics struct {
	DroppedChapters    int       `json:"droppedChapters"`
	DroppedSubchapters int       `json:"droppedSubchapters"`
	DroppedQuestions   int       `json:"droppedQuestions"`
	OrphanQuestions    int       `json:"orphanQuestions"`
	ExtraOptions       int       `json:"extraOptions"`
	IgnoredLines       int       `json:"ignoredLines"`
	Warnings           []Warning `json:"warnings,omitempty"`
}

func (d Diagnostics) warn(code WarningCode, line int, format string, args ...any) Diagnostics {
	d.Warnings = append(slices.Clip(d.Warnings), Warning{
		Code:    code,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	})
	return d
}

// HasWarning reports whether a warning with the given code was recorded.
func (d Diagnostics) HasWarning(code WarningCode) bool {
	for _, w := range d.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Dropped returns the total number of discarded entities.
func (d Diagnostics) Dropped() int {
	return d.DroppedChapters + d.DroppedSubchapters + d.DroppedQuestions + d.OrphanQuestions
}
