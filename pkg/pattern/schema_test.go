package pattern

import (
	"strings"
	"testing"
)

func TestValidateProfile(t *testing.T) {
	p := &Profile{
		Name:      "Broken",
		ProfileID: "Broken_ID",
		Version:   "1.0",
		Files:     []string{"[a-"},
		Detection: DetectionConfig{
			RequiredIndicators: []Indicator{{Pattern: "", Weight: 0}},
			NegativeIndicators: []Indicator{{Pattern: "x", Weight: 5}},
		},
		Dialect: DialectConfig{
			SubchapterLookahead: -1,
			ExplanationMarkers:  []string{" "},
		},
	}

	errs := ValidateProfile(p)

	want := []string{
		"profile_id",
		"version",
		"files[0]",
		"detection.required_indicators[0].pattern",
		"detection.required_indicators[0].weight",
		"detection.negative_indicators[0].weight",
		"dialect.subchapter_lookahead",
		"dialect.explanation_markers[0]",
	}
	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, f := range want {
		if !fields[f] {
			t.Errorf("ValidateProfile() missing error for %s, got %v", f, errs)
		}
	}
	if len(errs) != len(want) {
		t.Errorf("ValidateProfile() returned %d errors, want %d: %v", len(errs), len(want), errs)
	}
}

func TestValidateProfileValid(t *testing.T) {
	if errs := ValidateProfile(newTestProfile("ok")); len(errs) != 0 {
		t.Errorf("ValidateProfile() = %v, want no errors", errs)
	}
}

func TestValidationErrorsString(t *testing.T) {
	if got := (ValidationErrors{}).Error(); got != "no errors" {
		t.Errorf("Error() = %q", got)
	}

	one := ValidationErrors{{Field: "name", Message: "required field is missing"}}
	if got := one.Error(); got != "name: required field is missing" {
		t.Errorf("Error() = %q", got)
	}

	two := ValidationErrors{
		{Field: "name", Message: "required field is missing"},
		{Field: "version", Message: "must be semantic version (e.g., 1.0.0)", Value: "1"},
	}
	got := two.Error()
	if !strings.HasPrefix(got, "2 validation errors:") || !strings.Contains(got, "(got: 1)") {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsValidProfileID(t *testing.T) {
	tests := map[string]bool{
		"parasito-myco": true,
		"histo2":        true,
		"":              false,
		"2histo":        false,
		"Histo":         false,
		"histo_nozha":   false,
	}
	for id, want := range tests {
		if got := isValidProfileID(id); got != want {
			t.Errorf("isValidProfileID(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestIsValidVersion(t *testing.T) {
	tests := map[string]bool{
		"1.0.0":  true,
		"10.2.3": true,
		"1.0":    false,
		"1.0.x":  false,
		"1..0":   false,
	}
	for v, want := range tests {
		if got := isValidVersion(v); got != want {
			t.Errorf("isValidVersion(%q) = %v, want %v", v, got, want)
		}
	}
}
