package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/coolbeans/qcmbank/pkg/bank"
)

// Result is the outcome of parsing one document.
type Result struct {
	Bank        bank.QuestionBank `json:"bank"`
	Dialect     Dialect           `json:"dialect"`
	Diagnostics Diagnostics       `json:"diagnostics"`
}

// Parse converts one document into a question bank holding at most one
// chapter. It never fails on malformed structure; such input degrades to
// fewer questions, recorded in the diagnostics. Errors are ErrInvalidUTF8,
// and ErrEmptyDocument which is returned together with the (empty) result.
//
// Parse is a pure function of its inputs and is safe to call concurrently.
func Parse(text string, hints Hints) (*Result, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidUTF8
	}

	lines := SplitLines(text)
	dialect := DetectDialect(lines, hints)

	state := NewParserState(&dialect)
	for i := range lines {
		state = state.Step(&dialect, lines, i)
	}
	chapter, diag := state.Finish()

	result := &Result{
		Bank:    bank.QuestionBank{Chapters: []bank.Chapter{}},
		Dialect: dialect,
	}

	if chapter.Title == "" {
		result.Diagnostics = diag
		return result, ErrEmptyDocument
	}

	assembled, dropped := bank.Assemble([]bank.Chapter{chapter})
	diag.DroppedChapters += dropped.Chapters
	diag.DroppedSubchapters += dropped.Subchapters
	diag.DroppedQuestions += dropped.Questions
	if assembled.TotalChapters == 0 {
		diag = diag.warn(WarningNoQuestions, 0, "chapter %q: %v", chapter.Title, ErrNoQuestionsFound)
	}

	result.Bank = assembled
	result.Diagnostics = diag
	return result, nil
}

// ParseReader reads the whole document from r and parses it.
func ParseReader(r io.Reader, hints Hints) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return Parse(string(data), hints)
}

// ParseFile parses the document at path. When hints carry no fallback
// title, one is derived from the file name.
func ParseFile(path string, hints Hints) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if hints.FallbackTitle == "" {
		hints.FallbackTitle = TitleFromFileName(path)
	}
	return Parse(string(data), hints)
}

var quizFilePrefixPattern = regexp.MustCompile(`(?i)^(?:quizz?|qcms?)\s+`)

// TitleFromFileName derives a chapter title from a source file name:
// "QUIZZ Fiche 3 - Tissus.txt" becomes "Fiche 3 - Tissus".
func TitleFromFileName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = quizFilePrefixPattern.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}
