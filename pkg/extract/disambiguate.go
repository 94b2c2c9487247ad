package extract

// explanationLookbehind is how many non-blank lines before a letter-dot line
// are searched for an explanation marker.
const explanationLookbehind = 3

// Resolve settles a provisional letter-dot line at lines[i] into
// SubchapterHeader, OptionLine or Continuation. The procedure is a heuristic
// over the observed corpus, evaluated in order:
//
//  1. An explanation marker among the previous three non-blank lines keeps
//     the line inside the explanation (Continuation).
//  2. A following "B." .. "E." line makes it an option: a subchapter must
//     contain a question marker before any option.
//  3. A question marker within the lookahead window makes it a subchapter.
//  4. Otherwise it is an option.
//
// A resolved option outside A–E is Continuation.
func (d *Dialect) Resolve(lines []string, i int, c Classification) Kind {
	if !c.Provisional {
		return c.Kind
	}

	kind := d.resolve(lines, i)
	if kind == OptionLine && (c.Letter < 'A' || c.Letter > 'E') {
		return Continuation
	}
	return kind
}

func (d *Dialect) resolve(lines []string, i int) Kind {
	for _, j := range prevNonBlank(lines, i, explanationLookbehind) {
		if _, ok := d.matchExplanation(lines[j]); ok {
			return Continuation
		}
	}

	next := nextNonBlank(lines, i, d.lookahead())
	if len(next) > 0 && followingOptionPattern.MatchString(lines[next[0]]) {
		return OptionLine
	}

	for _, j := range next {
		if _, _, ok := d.matchQuestion(lines[j]); ok {
			return SubchapterHeader
		}
	}

	return OptionLine
}

func (d *Dialect) lookahead() int {
	if d.SubchapterLookahead > 0 {
		return d.SubchapterLookahead
	}
	return DefaultSubchapterLookahead
}
