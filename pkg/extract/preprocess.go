package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const byteOrderMark = "\ufeff"

// SplitLines splits a document into trimmed, NFC-normalized lines. Blank lines
// are kept as empty strings so that line numbers in diagnostics match the
// source file.
func SplitLines(text string) []string {
	text = strings.TrimPrefix(text, byteOrderMark)
	raw := strings.Split(text, "\n")

	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = normalizeLine(line)
	}

	// A trailing newline produces one empty element that carries no content.
	if len(lines) > 0 && lines[len(lines)-1] == "" && strings.HasSuffix(text, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// normalizeLine trims a raw line and composes it to NFC so that accented
// letters typed as combining sequences match the same patterns as
// precomposed ones.
func normalizeLine(line string) string {
	line = strings.TrimRight(line, "\r")
	line = strings.TrimSpace(line)
	line = strings.ReplaceAll(line, "\u200b", "")
	return norm.NFC.String(line)
}

// nextNonBlank returns the indexes of up to limit non-blank lines after i.
func nextNonBlank(lines []string, i int, limit int) []int {
	var out []int
	for j := i + 1; j < len(lines) && len(out) < limit; j++ {
		if lines[j] != "" {
			out = append(out, j)
		}
	}
	return out
}

// prevNonBlank returns the indexes of up to limit non-blank lines before i,
// nearest first.
func prevNonBlank(lines []string, i int, limit int) []int {
	var out []int
	for j := i - 1; j >= 0 && len(out) < limit; j-- {
		if lines[j] != "" {
			out = append(out, j)
		}
	}
	return out
}
