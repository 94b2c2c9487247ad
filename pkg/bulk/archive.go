package bulk

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractZIP extracts a ZIP archive of quiz documents to the target
// directory and returns the extracted file paths. Entries that would land
// outside the target directory are skipped.
func ExtractZIP(zipPath string, targetDirectory string) ([]string, error) {
	zipReader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP %s: %w", zipPath, err)
	}
	defer zipReader.Close()

	if err := os.MkdirAll(targetDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}

	root := filepath.Clean(targetDirectory) + string(os.PathSeparator)
	var extractedPaths []string

	for _, zipEntry := range zipReader.File {
		extractedPath := filepath.Join(targetDirectory, zipEntry.Name)
		if !strings.HasPrefix(filepath.Clean(extractedPath)+string(os.PathSeparator), root) {
			continue
		}

		if zipEntry.FileInfo().IsDir() {
			if err := os.MkdirAll(extractedPath, 0755); err != nil {
				return extractedPaths, fmt.Errorf("failed to create %s: %w", extractedPath, err)
			}
			continue
		}

		if err := extractEntry(zipEntry, extractedPath); err != nil {
			return extractedPaths, err
		}
		extractedPaths = append(extractedPaths, extractedPath)
	}

	return extractedPaths, nil
}

func extractEntry(zipEntry *zip.File, extractedPath string) error {
	if err := os.MkdirAll(filepath.Dir(extractedPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(extractedPath), err)
	}

	entryReader, err := zipEntry.Open()
	if err != nil {
		return fmt.Errorf("failed to open ZIP entry %s: %w", zipEntry.Name, err)
	}
	defer entryReader.Close()

	outputFile, err := os.Create(extractedPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", extractedPath, err)
	}
	defer outputFile.Close()

	if _, err := io.Copy(outputFile, entryReader); err != nil {
		return fmt.Errorf("failed to extract %s: %w", zipEntry.Name, err)
	}
	return nil
}
