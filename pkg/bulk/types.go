package bulk

import (
	"runtime"
	"time"
)

// Entry statuses.
const (
	StatusImported = "imported"
	StatusEmpty    = "empty"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// ImportConfig holds configuration for a batch import.
type ImportConfig struct {
	// Workers bounds the number of documents parsed concurrently.
	Workers int

	// Extensions lists the file extensions picked up from a directory.
	Extensions []string

	// ManifestPath, when set, records the digest of every imported file so
	// that unchanged files are skipped on the next run.
	ManifestPath string

	// Force re-imports files even when the manifest says they are unchanged.
	Force bool
}

// DefaultImportConfig returns the configuration used by the CLI.
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		Workers:    runtime.NumCPU(),
		Extensions: []string{".txt"},
	}
}

// ImportReport summarizes the results of a batch import.
type ImportReport struct {
	RunID            string        `json:"run_id"`
	TotalAttempted   int           `json:"total_attempted"`
	Succeeded        int           `json:"succeeded"`
	Empty            int           `json:"empty"`
	Skipped          int           `json:"skipped"`
	Failed           int           `json:"failed"`
	TotalChapters    int           `json:"total_chapters"`
	TotalSubchapters int           `json:"total_subchapters"`
	TotalQuestions   int           `json:"total_questions"`
	DroppedQuestions int           `json:"dropped_questions"`
	TotalWarnings    int           `json:"total_warnings"`
	Duration         time.Duration `json:"duration"`
	Entries          []ImportEntry `json:"entries"`
}

// ImportEntry records the outcome of importing a single document.
type ImportEntry struct {
	Path        string        `json:"path"`
	Title       string        `json:"title,omitempty"`
	Profile     string        `json:"profile,omitempty"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Subchapters int           `json:"subchapters,omitempty"`
	Questions   int           `json:"questions,omitempty"`
	Dropped     int           `json:"dropped,omitempty"`
	Warnings    int           `json:"warnings,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	SourceBytes int           `json:"source_bytes,omitempty"`
}

func (r *ImportReport) add(entry ImportEntry) {
	r.TotalAttempted++
	r.Entries = append(r.Entries, entry)
	r.DroppedQuestions += entry.Dropped
	r.TotalWarnings += entry.Warnings

	switch entry.Status {
	case StatusImported:
		r.Succeeded++
	case StatusEmpty:
		r.Empty++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}
