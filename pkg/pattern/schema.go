package pattern

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coolbeans/qcmbank/pkg/extract"
)

// ValidationError represents a profile validation error with context
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no errors"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(errs), strings.Join(messages, "\n  - "))
}

// ValidateProfile checks required fields, identifiers, indicator weights,
// file globs and dialect overrides.
func ValidateProfile(p *Profile) ValidationErrors {
	var errs ValidationErrors

	if p.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "required field is missing"})
	}

	if p.ProfileID == "" {
		errs = append(errs, ValidationError{Field: "profile_id", Message: "required field is missing"})
	} else if !isValidProfileID(p.ProfileID) {
		errs = append(errs, ValidationError{
			Field:   "profile_id",
			Message: "must be lowercase alphanumeric with hyphens, starting with a letter",
			Value:   p.ProfileID,
		})
	}

	if p.Version == "" {
		errs = append(errs, ValidationError{Field: "version", Message: "required field is missing"})
	} else if !isValidVersion(p.Version) {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: "must be semantic version (e.g., 1.0.0)",
			Value:   p.Version,
		})
	}

	if len(p.Files) == 0 && len(p.Detection.RequiredIndicators) == 0 {
		errs = append(errs, ValidationError{
			Field:   "files",
			Message: "a profile needs file globs or at least one required indicator",
		})
	}

	for i, glob := range p.Files {
		if _, err := filepath.Match(glob, ""); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("files[%d]", i),
				Message: "malformed glob",
				Value:   glob,
			})
		}
	}

	errs = append(errs, validateDetection(&p.Detection)...)
	errs = append(errs, validateDialect(&p.Dialect)...)

	return errs
}

func validateDetection(d *DetectionConfig) ValidationErrors {
	var errs ValidationErrors

	for i, ind := range d.RequiredIndicators {
		field := fmt.Sprintf("detection.required_indicators[%d]", i)
		errs = append(errs, validateIndicator(field, &ind, true)...)
	}

	for i, ind := range d.OptionalIndicators {
		field := fmt.Sprintf("detection.optional_indicators[%d]", i)
		errs = append(errs, validateIndicator(field, &ind, true)...)
	}

	for i, ind := range d.NegativeIndicators {
		field := fmt.Sprintf("detection.negative_indicators[%d]", i)
		errs = append(errs, validateIndicator(field, &ind, false)...)
	}

	return errs
}

func validateIndicator(field string, ind *Indicator, positiveWeight bool) ValidationErrors {
	var errs ValidationErrors

	if ind.Pattern == "" {
		errs = append(errs, ValidationError{Field: field + ".pattern", Message: "pattern is required"})
	}

	switch {
	case positiveWeight && (ind.Weight < 1 || ind.Weight > 100):
		errs = append(errs, ValidationError{
			Field:   field + ".weight",
			Message: "weight must be between 1 and 100",
			Value:   ind.Weight,
		})
	case !positiveWeight && (ind.Weight > -1 || ind.Weight < -100):
		errs = append(errs, ValidationError{
			Field:   field + ".weight",
			Message: "negative indicator weight must be between -100 and -1",
			Value:   ind.Weight,
		})
	}

	return errs
}

func validateDialect(d *DialectConfig) ValidationErrors {
	var errs ValidationErrors

	switch extract.Numbering(d.Numbering) {
	case "", extract.NumberingQCM, extract.NumberingGlyph:
	default:
		errs = append(errs, ValidationError{
			Field:   "dialect.numbering",
			Message: "must be qcm or glyph",
			Value:   d.Numbering,
		})
	}

	if d.SubchapterLookahead < 0 {
		errs = append(errs, ValidationError{
			Field:   "dialect.subchapter_lookahead",
			Message: "must not be negative",
			Value:   d.SubchapterLookahead,
		})
	}

	for i, marker := range d.ExplanationMarkers {
		if strings.TrimSpace(marker) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("dialect.explanation_markers[%d]", i),
				Message: "marker must not be blank",
			})
		}
	}

	return errs
}

func isValidProfileID(id string) bool {
	if len(id) == 0 {
		return false
	}
	if id[0] < 'a' || id[0] > 'z' {
		return false
	}
	for _, c := range id[1:] {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-') {
			return false
		}
	}
	return true
}

func isValidVersion(v string) bool {
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if len(part) == 0 {
			return false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}
