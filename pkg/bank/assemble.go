package bank

import "strings"

// MaxOptions is the largest number of options a question may carry (A–E).
const MaxOptions = 5

// Assemble aggregates parsed chapters into a QuestionBank. Empty questions,
// subchapters and chapters are dropped, orderIndex values are renumbered to
// be contiguous from 0 within each surviving parent, and totals are computed.
// The input is never modified.
func Assemble(chapters []Chapter) (QuestionBank, Dropped) {
	var dropped Dropped
	result := QuestionBank{Chapters: make([]Chapter, 0, len(chapters))}

	for _, chapter := range chapters {
		out := Chapter{Title: chapter.Title}

		for _, sub := range chapter.Subchapters {
			questions, n := keepQuestions(sub.Questions)
			dropped.Questions += n
			if len(questions) == 0 {
				dropped.Subchapters++
				continue
			}
			out.Subchapters = append(out.Subchapters, Subchapter{
				Title:      sub.Title,
				OrderIndex: len(out.Subchapters),
				Questions:  questions,
			})
		}

		questions, n := keepQuestions(chapter.Questions)
		dropped.Questions += n
		out.Questions = questions

		if out.QuestionCount() == 0 {
			dropped.Chapters++
			continue
		}

		out.OrderIndex = len(result.Chapters)
		result.Chapters = append(result.Chapters, out)
		result.TotalSubchapters += len(out.Subchapters)
		result.TotalQuestions += out.QuestionCount()
	}

	result.TotalChapters = len(result.Chapters)
	return result, dropped
}

// Merge concatenates the chapters of several banks and reassembles them, so
// chapter orderIndex follows the order of the inputs.
func Merge(banks ...QuestionBank) QuestionBank {
	var chapters []Chapter
	for _, b := range banks {
		chapters = append(chapters, b.Chapters...)
	}
	merged, _ := Assemble(chapters)
	return merged
}

// Valid reports whether q satisfies the emission invariants.
func (q Question) Valid() bool {
	return strings.TrimSpace(q.QuestionText) != "" && len(q.Options) > 0 && len(q.Options) <= MaxOptions
}

func keepQuestions(questions []Question) ([]Question, int) {
	var kept []Question
	dropped := 0
	for _, q := range questions {
		if !q.Valid() {
			dropped++
			continue
		}
		options := make([]Option, len(q.Options))
		copy(options, q.Options)
		kept = append(kept, Question{
			QuestionText: q.QuestionText,
			Options:      options,
			Explanation:  q.Explanation,
			OrderIndex:   len(kept),
		})
	}
	return kept, dropped
}
