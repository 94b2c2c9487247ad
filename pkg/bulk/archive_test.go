package bulk

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func createTestZIP(t *testing.T, zipPath string, files map[string]string) {
	t.Helper()

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("failed to create ZIP: %v", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)
	for name, content := range files {
		fileWriter, err := zipWriter.Create(name)
		if err != nil {
			t.Fatalf("failed to create ZIP entry %s: %v", name, err)
		}
		if _, err := fileWriter.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write ZIP entry %s: %v", name, err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		t.Fatalf("failed to close ZIP writer: %v", err)
	}
}

func TestExtractZIP(t *testing.T) {
	temporaryDir := t.TempDir()
	zipPath := filepath.Join(temporaryDir, "quiz.zip")
	createTestZIP(t, zipPath, map[string]string{
		"cellule.txt":         cellDocument,
		"nested/parasito.txt": parasitologyDocument,
	})

	extractDir := filepath.Join(temporaryDir, "out")
	extracted, err := ExtractZIP(zipPath, extractDir)
	if err != nil {
		t.Fatalf("ExtractZIP() error = %v", err)
	}

	if len(extracted) != 2 {
		t.Fatalf("expected 2 extracted files, got %d", len(extracted))
	}

	content, err := os.ReadFile(filepath.Join(extractDir, "nested", "parasito.txt"))
	if err != nil {
		t.Fatalf("failed to read extracted file: %v", err)
	}
	if string(content) != parasitologyDocument {
		t.Error("extracted content does not match")
	}
}

func TestExtractZIPPathTraversal(t *testing.T) {
	temporaryDir := t.TempDir()
	zipPath := filepath.Join(temporaryDir, "evil.zip")
	createTestZIP(t, zipPath, map[string]string{
		"../escape.txt": "outside",
		"safe.txt":      cellDocument,
	})

	extractDir := filepath.Join(temporaryDir, "out")
	extracted, err := ExtractZIP(zipPath, extractDir)
	if err != nil {
		t.Fatalf("ExtractZIP() error = %v", err)
	}

	if len(extracted) != 1 {
		t.Errorf("expected only the safe entry, got %v", extracted)
	}
	if _, err := os.Stat(filepath.Join(temporaryDir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("expected traversal entry to be skipped")
	}
}

func TestExtractZIPInvalidArchive(t *testing.T) {
	temporaryDir := t.TempDir()
	bogus := filepath.Join(temporaryDir, "bogus.zip")
	if err := os.WriteFile(bogus, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ExtractZIP(bogus, filepath.Join(temporaryDir, "out")); err == nil {
		t.Error("expected error for invalid archive")
	}
}

func TestImportArchive(t *testing.T) {
	temporaryDir := t.TempDir()
	zipPath := filepath.Join(temporaryDir, "semestre1.zip")
	createTestZIP(t, zipPath, map[string]string{
		"b-parasito.txt": parasitologyDocument,
		"a-cellule.txt":  cellDocument,
		"readme.md":      "ignored",
	})

	result, err := newTestImporter(DefaultImportConfig()).ImportArchive(context.Background(), zipPath)
	if err != nil {
		t.Fatalf("ImportArchive() error = %v", err)
	}

	if result.Report.TotalAttempted != 2 {
		t.Errorf("expected 2 documents, got %d", result.Report.TotalAttempted)
	}
	if result.Bank.TotalChapters != 2 || result.Bank.Chapters[0].Title != "Cellule" {
		t.Errorf("expected chapters in name order, got %+v", result.Bank.Chapters)
	}
}
