package pattern

import (
	"fmt"
	"sort"
	"strings"
)

// ProfileMatch is a scored profile candidate for a document.
type ProfileMatch struct {
	ProfileID  string
	Profile    *Profile
	Confidence float64
	Score      float64
	MaxScore   float64
	Indicators []IndicatorMatch

	RequiredMatched int
	RequiredTotal   int
	OptionalMatched int
	OptionalTotal   int
	NegativeMatched int
	TotalMatchCount int
}

// IndicatorMatch represents a matched indicator.
type IndicatorMatch struct {
	Pattern    string
	Weight     int
	MatchCount int
	Type       string // "required", "optional", "negative"
}

func (m *ProfileMatch) String() string {
	return fmt.Sprintf("%s: %.1f%% confidence (score: %.1f/%.1f, %d indicators matched)",
		m.ProfileID, m.Confidence*100, m.Score, m.MaxScore, len(m.Indicators))
}

// DebugString returns the scoring details of the match.
func (m *ProfileMatch) DebugString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Profile: %s (%s)\n", m.Profile.Name, m.ProfileID)
	fmt.Fprintf(&sb, "  Confidence: %.2f (%.1f%%)\n", m.Confidence, m.Confidence*100)
	fmt.Fprintf(&sb, "  Score: %.1f / %.1f (max)\n", m.Score, m.MaxScore)
	fmt.Fprintf(&sb, "  Required: %d/%d matched\n", m.RequiredMatched, m.RequiredTotal)
	fmt.Fprintf(&sb, "  Optional: %d/%d matched\n", m.OptionalMatched, m.OptionalTotal)
	fmt.Fprintf(&sb, "  Negative: %d triggered\n", m.NegativeMatched)

	if len(m.Indicators) > 0 {
		sb.WriteString("  Matched indicators:\n")
		for _, ind := range m.Indicators {
			fmt.Fprintf(&sb, "    [%s] weight=%d matches=%d pattern=%q\n",
				ind.Type, ind.Weight, ind.MatchCount, truncatePattern(ind.Pattern, 50))
		}
	}
	return sb.String()
}

func truncatePattern(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// DetectorOptions configures the profile detector.
type DetectorOptions struct {
	// MinConfidence filters out content matches at or below this threshold (0.0-1.0)
	MinConfidence float64

	// MaxResults limits the number of results returned (0 = unlimited)
	MaxResults int
}

// DefaultDetectorOptions returns the defaults used by the importer.
func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{MinConfidence: 0.5}
}

// Detector picks the dialect profile for a document.
type Detector struct {
	registry Registry
	options  DetectorOptions
}

// NewDetector creates a detector with default options.
func NewDetector(registry Registry) *Detector {
	return &Detector{registry: registry, options: DefaultDetectorOptions()}
}

// NewDetectorWithOptions creates a detector with custom options.
func NewDetectorWithOptions(registry Registry, options DetectorOptions) *Detector {
	return &Detector{registry: registry, options: options}
}

// Select returns the profile for the document at path with the given
// content. A file glob match wins over content detection; among several
// glob matches the lowest profile ID wins. It returns nil when no profile
// applies.
func (d *Detector) Select(path, content string) *Profile {
	if d == nil || d.registry == nil {
		return nil
	}
	for _, p := range d.registry.List() {
		if p.MatchesFile(path) {
			return p
		}
	}
	if best := d.DetectBest(content); best != nil {
		return best.Profile
	}
	return nil
}

// Detect scores content against every profile with detection indicators
// and returns matches ranked by confidence.
func (d *Detector) Detect(content string) []ProfileMatch {
	var matches []ProfileMatch
	for _, p := range d.registry.List() {
		if len(p.Detection.RequiredIndicators) == 0 {
			continue
		}
		match := evaluateProfile(content, p)
		if match.Confidence > d.options.MinConfidence {
			matches = append(matches, match)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		if matches[i].TotalMatchCount != matches[j].TotalMatchCount {
			return matches[i].TotalMatchCount > matches[j].TotalMatchCount
		}
		return matches[i].ProfileID < matches[j].ProfileID
	})

	if d.options.MaxResults > 0 && len(matches) > d.options.MaxResults {
		matches = matches[:d.options.MaxResults]
	}
	return matches
}

// DetectBest returns the best content match, or nil.
func (d *Detector) DetectBest(content string) *ProfileMatch {
	matches := d.Detect(content)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// evaluateProfile scores one profile. Without a required indicator match
// the confidence is zero.
func evaluateProfile(content string, p *Profile) ProfileMatch {
	match := ProfileMatch{
		ProfileID:     p.ProfileID,
		Profile:       p,
		RequiredTotal: len(p.Detection.RequiredIndicators),
		OptionalTotal: len(p.Detection.OptionalIndicators),
	}

	for _, ind := range p.Detection.RequiredIndicators {
		match.MaxScore += float64(ind.Weight)
	}
	for _, ind := range p.Detection.OptionalIndicators {
		match.MaxScore += float64(ind.Weight)
	}

	match.RequiredMatched = match.score(content, p.Detection.RequiredIndicators, "required")
	if match.RequiredMatched == 0 {
		return match
	}
	match.OptionalMatched = match.score(content, p.Detection.OptionalIndicators, "optional")
	match.NegativeMatched = match.score(content, p.Detection.NegativeIndicators, "negative")

	if match.MaxScore > 0 {
		match.Confidence = min(max(match.Score/match.MaxScore, 0), 1)
	}
	return match
}

func (m *ProfileMatch) score(content string, indicators []Indicator, kind string) int {
	matched := 0
	for _, ind := range indicators {
		if ind.compiled == nil {
			continue
		}
		count := len(ind.compiled.FindAllStringIndex(content, -1))
		if count == 0 {
			continue
		}
		matched++
		m.Score += float64(ind.Weight)
		m.TotalMatchCount += count
		m.Indicators = append(m.Indicators, IndicatorMatch{
			Pattern:    ind.Pattern,
			Weight:     ind.Weight,
			MatchCount: count,
			Type:       kind,
		})
	}
	return matched
}
