package extract

import (
	"regexp"
	"strings"
)

// Numbering is the question numbering style of a document.
type Numbering string

const (
	NumberingQCM   Numbering = "qcm"   // "QCM 1 — ..."
	NumberingGlyph Numbering = "glyph" // keycap "Question : ..." or "① ..."
)

// GlyphFamily names the correctness glyph vocabulary a document uses. All
// families carry the same semantics.
type GlyphFamily string

const (
	GlyphFamilyNone          GlyphFamily = "none"
	GlyphFamilyCheckmark     GlyphFamily = "checkmark"     // ✅ / ❌
	GlyphFamilyHeavyCheck    GlyphFamily = "heavy-check"   // ✔ / ❌
	GlyphFamilyParenthesized GlyphFamily = "parenthesized" // (✅) / (❌) / (✔)
	GlyphFamilyMixed         GlyphFamily = "mixed"
)

// DefaultSubchapterLookahead is how many non-blank lines after a letter-dot
// line are searched for a question marker.
const DefaultSubchapterLookahead = 5

// Dialect is the marker vocabulary in effect for one document. It is produced
// by DetectDialect and consumed read-only by the assembler.
type Dialect struct {
	Numbering           Numbering   `json:"numbering"`
	HasSubchapters      bool        `json:"hasSubchapters"`
	GlyphFamily         GlyphFamily `json:"glyphFamily"`
	CorrectnessGlyphs   []string    `json:"correctnessGlyphs"`
	ExplanationMarkers  []string    `json:"explanationMarkers"`
	SubchapterLookahead int         `json:"subchapterLookahead"`

	fallbackTitle string
	explanation   []explanationMarker
}

// Hints are caller-supplied overrides for dialect detection, usually coming
// from a dialect profile.
type Hints struct {
	// FallbackTitle is the chapter title used when the document starts
	// directly with a question marker (typically the file name).
	FallbackTitle string

	// Numbering forces a numbering style instead of detecting it.
	Numbering Numbering

	// Subchapters forces subchapter handling on or off.
	Subchapters *bool

	// ExplanationMarkers are extra literal prefixes that open an explanation.
	ExplanationMarkers []string

	// SubchapterLookahead overrides DefaultSubchapterLookahead when positive.
	SubchapterLookahead int
}

type explanationMarker struct {
	name    string
	pattern *regexp.Regexp
}

// defaultExplanationMarkers are ordered so that longer forms win over the
// bare glyphs they start with.
var defaultExplanationMarkers = []explanationMarker{
	{"🧠 Conclusion", regexp.MustCompile(`(?i)^🧠\s*Conclusion(?:\s+générale)?\s*:?`)},
	{"🩵 Conclusion", regexp.MustCompile(`(?i)^🩵\s*Conclusion(?:\s+générale)?\s*:?`)},
	{"🧠", regexp.MustCompile(`^🧠\s*:?`)},
	{"🩵", regexp.MustCompile(`^🩵\s*:?`)},
	{"💬", regexp.MustCompile(`^💬\s*:?`)},
	{"Justification générale :", regexp.MustCompile(`(?i)^Justification\s+générale\s*:`)},
	{"Justification :", regexp.MustCompile(`(?i)^Justification\s*:`)},
}

// correctnessGlyphPattern finds any correctness glyph, parenthesized or not.
var correctnessGlyphPattern = regexp.MustCompile(`\(\s*(?:✅|✔\x{FE0F}?|❌|⚠\x{FE0F}?)\s*\)|✅|✔\x{FE0F}?|❌|⚠\x{FE0F}?`)

// DetectDialect scans the whole document once and decides the numbering
// style, the correctness glyph family, the active explanation markers and
// whether the document has subchapters. It has no side effects.
func DetectDialect(lines []string, hints Hints) Dialect {
	d := Dialect{
		SubchapterLookahead: DefaultSubchapterLookahead,
		fallbackTitle:       strings.TrimSpace(hints.FallbackTitle),
	}
	if hints.SubchapterLookahead > 0 {
		d.SubchapterLookahead = hints.SubchapterLookahead
	}

	d.explanation = activeExplanationMarkers(lines, hints.ExplanationMarkers)
	for _, m := range d.explanation {
		d.ExplanationMarkers = append(d.ExplanationMarkers, m.name)
	}

	d.Numbering = hints.Numbering
	if d.Numbering == "" {
		d.Numbering = detectNumbering(lines)
	}

	d.GlyphFamily, d.CorrectnessGlyphs = detectGlyphFamily(lines)

	if hints.Subchapters != nil {
		d.HasSubchapters = *hints.Subchapters
	} else {
		d.HasSubchapters = d.detectSubchapters(lines)
	}

	return d
}

func activeExplanationMarkers(lines []string, extra []string) []explanationMarker {
	candidates := make([]explanationMarker, 0, len(extra)+len(defaultExplanationMarkers))
	for _, prefix := range extra {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		candidates = append(candidates, explanationMarker{
			name:    prefix,
			pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `\s*:?`),
		})
	}
	candidates = append(candidates, defaultExplanationMarkers...)

	seen := make(map[string]bool)
	for _, line := range lines {
		for _, m := range candidates {
			if m.pattern.MatchString(line) {
				seen[m.name] = true
				break
			}
		}
	}
	if len(seen) == 0 {
		return candidates
	}

	active := make([]explanationMarker, 0, len(seen))
	for _, m := range candidates {
		if seen[m.name] {
			active = append(active, m)
		}
	}
	return active
}

func detectNumbering(lines []string) Numbering {
	qcm, glyph := 0, 0
	for _, line := range lines {
		switch {
		case qcmMarkerPattern.MatchString(line):
			qcm++
		case glyphMarkerPattern.MatchString(line), bareQuestionPattern.MatchString(line):
			glyph++
		}
	}
	if glyph > qcm {
		return NumberingGlyph
	}
	return NumberingQCM
}

func detectGlyphFamily(lines []string) (GlyphFamily, []string) {
	var (
		families = make(map[GlyphFamily]bool)
		glyphs   []string
		seen     = make(map[string]bool)
	)
	for _, line := range lines {
		for _, g := range correctnessGlyphPattern.FindAllString(line, -1) {
			canonical := canonicalGlyph(g)
			if !seen[canonical] {
				seen[canonical] = true
				glyphs = append(glyphs, canonical)
			}
			switch {
			case strings.HasPrefix(g, "("):
				families[GlyphFamilyParenthesized] = true
			case strings.HasPrefix(g, "✅"):
				families[GlyphFamilyCheckmark] = true
			case strings.HasPrefix(g, "✔"):
				families[GlyphFamilyHeavyCheck] = true
			}
		}
	}

	switch len(families) {
	case 0:
		if len(glyphs) > 0 {
			// Only ❌ or ⚠ seen: nothing tells the families apart.
			return GlyphFamilyCheckmark, glyphs
		}
		return GlyphFamilyNone, glyphs
	case 1:
		for f := range families {
			return f, glyphs
		}
	}
	return GlyphFamilyMixed, glyphs
}

// canonicalGlyph removes inner spacing and adds the emoji presentation
// selector so that "( ✔ )" and "(✔)" are reported once.
func canonicalGlyph(g string) string {
	g = strings.Join(strings.Fields(g), "")
	g = strings.ReplaceAll(g, "\ufe0f", "")
	g = strings.ReplaceAll(g, "\u2714", "\u2714\ufe0f")
	g = strings.ReplaceAll(g, "\u26a0", "\u26a0\ufe0f")
	return g
}

// detectSubchapters reports whether at least one line passes the
// real-subchapter test of the Disambiguation Heuristic.
func (d *Dialect) detectSubchapters(lines []string) bool {
	for i, line := range lines {
		if line == "" {
			continue
		}
		c := d.Classify(line, ModeChapter)
		if c.Provisional && d.Resolve(lines, i, c) == SubchapterHeader {
			return true
		}
	}
	return false
}

// matchExplanation reports whether line opens an explanation and returns the
// text that follows the marker and its colon.
func (d *Dialect) matchExplanation(line string) (string, bool) {
	markers := d.explanation
	if markers == nil {
		markers = defaultExplanationMarkers
	}
	for _, m := range markers {
		if loc := m.pattern.FindStringIndex(line); loc != nil {
			rest := strings.TrimSpace(line[loc[1]:])
			rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
			return rest, true
		}
	}
	return "", false
}
