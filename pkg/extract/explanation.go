package extract

import (
	"slices"
	"strings"
)

// explanation accumulates the commentary attached to a question. It is a
// value type; every method returns a new buffer and never writes through to
// the receiver's backing array.
type explanation struct {
	parts []string
}

// start seeds the buffer with the text found after the marker. A second
// marker inside the same question appends to what was collected so far.
func (e explanation) start(rest string) explanation {
	return e.add(rest)
}

// add appends a continuation line.
func (e explanation) add(line string) explanation {
	line = strings.TrimSpace(line)
	if line == "" {
		return e
	}
	return explanation{parts: append(slices.Clip(e.parts), line)}
}

// finalize joins the collected lines with single spaces. An empty result is
// nil, never an empty string.
func (e explanation) finalize() *string {
	text := strings.TrimSpace(strings.Join(e.parts, " "))
	if text == "" {
		return nil
	}
	return &text
}
