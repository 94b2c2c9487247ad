package bulk

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatBytes converts byte count to human-readable format.
func FormatBytes(byteCount int64) string {
	switch {
	case byteCount >= 1024*1024*1024:
		return fmt.Sprintf("%.1f GB", float64(byteCount)/(1024*1024*1024))
	case byteCount >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(byteCount)/(1024*1024))
	case byteCount >= 1024:
		return fmt.Sprintf("%.1f KB", float64(byteCount)/1024)
	default:
		return fmt.Sprintf("%d B", byteCount)
	}
}

// FormatImportReport formats an ImportReport for terminal output.
func FormatImportReport(report *ImportReport) string {
	var builder strings.Builder

	builder.WriteString("\nImport Report\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	builder.WriteString(fmt.Sprintf("Attempted: %d | Imported: %d | Empty: %d | Skipped: %d | Failed: %d\n",
		report.TotalAttempted, report.Succeeded, report.Empty, report.Skipped, report.Failed))
	builder.WriteString(fmt.Sprintf("Chapters: %d | Subchapters: %d | Questions: %d | Dropped: %d\n",
		report.TotalChapters, report.TotalSubchapters, report.TotalQuestions, report.DroppedQuestions))
	builder.WriteString(strings.Repeat("─", 60) + "\n")

	for _, entry := range report.Entries {
		status := entry.Status
		switch status {
		case StatusImported:
			status = "[OK]"
		case StatusEmpty:
			status = "[EMPTY]"
		case StatusSkipped:
			status = "[SKIP]"
		case StatusFailed:
			status = "[FAIL]"
		}

		name := entry.Title
		if name == "" {
			name = entry.Path
		}
		line := fmt.Sprintf("  %-8s %-30s", status, name)
		if entry.Questions > 0 {
			line += fmt.Sprintf(" (%d questions, %s)", entry.Questions, FormatBytes(int64(entry.SourceBytes)))
		}
		if entry.Profile != "" {
			line += fmt.Sprintf(" [%s]", entry.Profile)
		}
		if entry.Error != "" {
			line += fmt.Sprintf(" error: %s", entry.Error)
		}
		builder.WriteString(line + "\n")
	}

	return builder.String()
}

// FormatImportReportJSON formats an ImportReport as JSON.
func FormatImportReportJSON(report *ImportReport) string {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
