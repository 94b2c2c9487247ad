// Package bank defines the normalized question bank produced by the ingestion
// parser and the assembler that turns raw parser output into it.
package bank

// Option is a single answer choice of a question.
type Option struct {
	Text          string  `json:"text"`
	IsCorrect     bool    `json:"isCorrect"`
	Justification *string `json:"justification"`
}

// Question is a multiple-choice question (QCM) with its options.
type Question struct {
	QuestionText string   `json:"questionText"`
	Options      []Option `json:"options"`
	Explanation  *string  `json:"explanation"`
	OrderIndex   int      `json:"orderIndex"`
}

// Subchapter is an optional grouping level between Chapter and Question.
type Subchapter struct {
	Title      string     `json:"title"`
	OrderIndex int        `json:"orderIndex"`
	Questions  []Question `json:"questions"`
}

// Chapter is the top-level unit produced from one source document.
// Questions are attached directly only when the document has no subchapters.
type Chapter struct {
	Title       string       `json:"title"`
	OrderIndex  int          `json:"orderIndex"`
	Subchapters []Subchapter `json:"subchapters,omitempty"`
	Questions   []Question   `json:"questions,omitempty"`
}

// QuestionBank is the hand-off value consumed by persistence collaborators.
type QuestionBank struct {
	Chapters         []Chapter `json:"chapters"`
	TotalChapters    int       `json:"totalChapters"`
	TotalSubchapters int       `json:"totalSubchapters"`
	TotalQuestions   int       `json:"totalQuestions"`
}

// Dropped counts the entities removed by Assemble because they were empty.
type Dropped struct {
	Chapters    int `json:"chapters"`
	Subchapters int `json:"subchapters"`
	Questions   int `json:"questions"`
}

// Add returns the sum of two drop counts.
func (d Dropped) Add(other Dropped) Dropped {
	return Dropped{
		Chapters:    d.Chapters + other.Chapters,
		Subchapters: d.Subchapters + other.Subchapters,
		Questions:   d.Questions + other.Questions,
	}
}

// QuestionCount returns the number of questions owned by the chapter,
// directly or through its subchapters.
func (c Chapter) QuestionCount() int {
	n := len(c.Questions)
	for _, sub := range c.Subchapters {
		n += len(sub.Questions)
	}
	return n
}

// CorrectCount returns how many options of the question are marked correct.
func (q Question) CorrectCount() int {
	n := 0
	for _, opt := range q.Options {
		if opt.IsCorrect {
			n++
		}
	}
	return n
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
