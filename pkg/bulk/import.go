package bulk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coolbeans/qcmbank/internal/logger"
	"github.com/coolbeans/qcmbank/pkg/bank"
	"github.com/coolbeans/qcmbank/pkg/extract"
	"github.com/coolbeans/qcmbank/pkg/pattern"
)

// Importer parses a batch of quiz documents into one question bank. A
// document that fails to parse is recorded in the report and the batch
// continues.
type Importer struct {
	config   ImportConfig
	detector *pattern.Detector
	log      *logger.Logger
}

// ImportResult is the merged bank of a batch together with its report.
type ImportResult struct {
	Bank   bank.QuestionBank `json:"bank"`
	Report *ImportReport     `json:"report"`
}

// NewImporter creates an Importer. The detector may be nil, in which case
// every document is parsed with default hints.
func NewImporter(config ImportConfig, detector *pattern.Detector, log *logger.Logger) *Importer {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultImportConfig().Extensions
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{config: config, detector: detector, log: log}
}

// ListDocuments returns the importable files directly under dir, sorted by
// name.
func (importer *Importer) ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !importer.accepts(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

func (importer *Importer) accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(importer.config.Extensions, ext)
}

// ImportDir imports every document in dir.
func (importer *Importer) ImportDir(ctx context.Context, dir string) (*ImportResult, error) {
	paths, err := importer.ListDocuments(dir)
	if err != nil {
		return nil, err
	}
	return importer.ImportFiles(ctx, paths)
}

// ImportArchive extracts a ZIP of documents next to it and imports the
// extracted files.
func (importer *Importer) ImportArchive(ctx context.Context, zipPath string) (*ImportResult, error) {
	extractDir := strings.TrimSuffix(zipPath, filepath.Ext(zipPath))
	extracted, err := ExtractZIP(zipPath, extractDir)
	if err != nil {
		return nil, fmt.Errorf("failed to extract archive: %w", err)
	}

	var paths []string
	for _, path := range extracted {
		if importer.accepts(path) {
			paths = append(paths, path)
		}
	}
	slices.Sort(paths)
	return importer.ImportFiles(ctx, paths)
}

// ImportFiles parses paths concurrently and merges the resulting chapters
// in the order of paths. Only context cancellation aborts the batch.
func (importer *Importer) ImportFiles(ctx context.Context, paths []string) (*ImportResult, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := importer.log.With("run_id", runID)

	manifest := NewImportManifest()
	if importer.config.ManifestPath != "" {
		loaded, err := LoadManifest(importer.config.ManifestPath)
		if err != nil {
			return nil, err
		}
		manifest = loaded
	}

	entries := make([]ImportEntry, len(paths))
	banks := make([]bank.QuestionBank, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(importer.config.Workers)

	for i, path := range paths {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			entries[i], banks[i] = importer.importFile(path, manifest)
			log.Debug("document processed", "path", path, "status", entries[i].Status)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("import aborted: %w", err)
	}

	report := &ImportReport{RunID: runID}
	for _, entry := range entries {
		report.add(entry)
	}

	merged := bank.Merge(banks...)
	report.TotalChapters = merged.TotalChapters
	report.TotalSubchapters = merged.TotalSubchapters
	report.TotalQuestions = merged.TotalQuestions
	report.Duration = time.Since(start)

	if importer.config.ManifestPath != "" {
		if err := manifest.Save(importer.config.ManifestPath); err != nil {
			return nil, err
		}
	}

	log.Info("import finished",
		"attempted", report.TotalAttempted,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"questions", report.TotalQuestions)

	return &ImportResult{Bank: merged, Report: report}, nil
}

// ParseFile parses a single document with the hints of the profile
// selected for it.
func (importer *Importer) ParseFile(path string) (*extract.Result, *pattern.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return importer.parse(path, data)
}

func (importer *Importer) parse(path string, data []byte) (*extract.Result, *pattern.Profile, error) {
	hints := extract.Hints{FallbackTitle: extract.TitleFromFileName(path)}
	profile := importer.detector.Select(path, string(data))
	if profile != nil {
		hints = profile.Hints(hints.FallbackTitle)
	}
	result, err := extract.Parse(string(data), hints)
	return result, profile, err
}

func (importer *Importer) importFile(path string, manifest *ImportManifest) (ImportEntry, bank.QuestionBank) {
	start := time.Now()
	entry := ImportEntry{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		entry.Status = StatusFailed
		entry.Error = err.Error()
		return entry, bank.QuestionBank{}
	}
	entry.SourceBytes = len(data)

	digest := Digest(data)
	if !importer.config.Force && manifest.Unchanged(path, digest) {
		entry.Status = StatusSkipped
		return entry, bank.QuestionBank{}
	}

	result, profile, err := importer.parse(path, data)
	entry.Duration = time.Since(start)
	if profile != nil {
		entry.Profile = profile.ProfileID
	}

	switch {
	case errors.Is(err, extract.ErrEmptyDocument):
		entry.Status = StatusEmpty
		entry.Error = err.Error()
		return entry, bank.QuestionBank{}
	case err != nil:
		entry.Status = StatusFailed
		entry.Error = err.Error()
		importer.log.Warn("document failed", "path", path, "error", err)
		return entry, bank.QuestionBank{}
	}

	entry.Dropped = result.Diagnostics.Dropped()
	entry.Warnings = len(result.Diagnostics.Warnings)

	if result.Bank.TotalChapters == 0 {
		entry.Status = StatusEmpty
		return entry, result.Bank
	}

	chapter := result.Bank.Chapters[0]
	entry.Status = StatusImported
	entry.Title = chapter.Title
	entry.Subchapters = result.Bank.TotalSubchapters
	entry.Questions = result.Bank.TotalQuestions

	manifest.Record(&ImportRecord{
		Path:       path,
		Digest:     digest,
		Questions:  entry.Questions,
		ImportedAt: time.Now(),
	})

	return entry, result.Bank
}
