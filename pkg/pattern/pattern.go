// Package pattern provides a registry of dialect profiles: YAML files that
// tell the parser which marker vocabulary a family of quiz documents uses.
//
// A profile is selected for a document either by file name (glob patterns
// in files) or by scoring its detection indicators against the content.
package pattern

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/coolbeans/qcmbank/pkg/extract"
)

// Profile describes one document dialect.
type Profile struct {
	Name      string `yaml:"name" json:"name"`
	Version   string `yaml:"version" json:"version"`
	ProfileID string `yaml:"profile_id" json:"profile_id"`

	// Files are glob patterns matched against the document's base name.
	Files []string `yaml:"files" json:"files,omitempty"`

	Detection DetectionConfig `yaml:"detection" json:"detection"`
	Dialect   DialectConfig   `yaml:"dialect" json:"dialect"`

	compiled bool
}

// DetectionConfig defines how to recognize a document of this dialect from
// its content.
type DetectionConfig struct {
	// RequiredIndicators must have at least one match for the profile to apply
	RequiredIndicators []Indicator `yaml:"required_indicators" json:"required_indicators,omitempty"`

	// OptionalIndicators add to confidence but are not required
	OptionalIndicators []Indicator `yaml:"optional_indicators" json:"optional_indicators,omitempty"`

	// NegativeIndicators reduce confidence (negative weights)
	NegativeIndicators []Indicator `yaml:"negative_indicators" json:"negative_indicators,omitempty"`
}

// Indicator is a regular expression whose presence hints at a dialect.
type Indicator struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Weight  int    `yaml:"weight" json:"weight"`

	compiled *regexp.Regexp
}

// DialectConfig overrides what the parser would otherwise detect.
type DialectConfig struct {
	Numbering           string   `yaml:"numbering" json:"numbering,omitempty"`
	Subchapters         *bool    `yaml:"subchapters" json:"subchapters,omitempty"`
	ExplanationMarkers  []string `yaml:"explanation_markers" json:"explanation_markers,omitempty"`
	SubchapterLookahead int      `yaml:"subchapter_lookahead" json:"subchapter_lookahead,omitempty"`
}

// Compile compiles every indicator of the profile.
func (p *Profile) Compile() error {
	groups := []struct {
		name       string
		indicators []Indicator
	}{
		{"required", p.Detection.RequiredIndicators},
		{"optional", p.Detection.OptionalIndicators},
		{"negative", p.Detection.NegativeIndicators},
	}
	for _, g := range groups {
		for i := range g.indicators {
			ind := &g.indicators[i]
			re, err := regexp.Compile(`(?m)` + ind.Pattern)
			if err != nil {
				return fmt.Errorf("compiling %s indicator %d pattern %q: %w", g.name, i, ind.Pattern, err)
			}
			ind.compiled = re
		}
	}
	p.compiled = true
	return nil
}

// IsCompiled returns true if the profile has been compiled.
func (p *Profile) IsCompiled() bool {
	return p.compiled
}

// Validate checks the profile and returns all problems at once.
func (p *Profile) Validate() error {
	if errs := ValidateProfile(p); len(errs) > 0 {
		return errs
	}
	return nil
}

// MatchesFile reports whether the document's base name matches one of the
// profile's file globs.
func (p *Profile) MatchesFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, glob := range p.Files {
		if ok, err := filepath.Match(strings.ToLower(glob), base); err == nil && ok {
			return true
		}
	}
	return false
}

// Hints converts the profile into parser hints. fallbackTitle is passed
// through untouched.
func (p *Profile) Hints(fallbackTitle string) extract.Hints {
	return extract.Hints{
		FallbackTitle:       fallbackTitle,
		Numbering:           extract.Numbering(p.Dialect.Numbering),
		Subchapters:         p.Dialect.Subchapters,
		ExplanationMarkers:  p.Dialect.ExplanationMarkers,
		SubchapterLookahead: p.Dialect.SubchapterLookahead,
	}
}
