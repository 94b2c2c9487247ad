package bulk

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/fsnotify.v1"

	"github.com/coolbeans/qcmbank/internal/logger"
	"github.com/coolbeans/qcmbank/pkg/bank"
)

// Watcher re-parses documents dropped into a directory and writes each
// resulting bank as <name>.json into an output directory.
type Watcher struct {
	importer  *Importer
	dir       string
	outputDir string
	manifest  *ImportManifest
	log       *logger.Logger

	// OnProcessed, when set, is called after every processed document.
	OnProcessed func(entry ImportEntry)
}

// NewWatcher creates a Watcher for dir. When outputDir is empty the JSON
// files are written next to the documents.
func NewWatcher(importer *Importer, dir, outputDir string, log *logger.Logger) *Watcher {
	if outputDir == "" {
		outputDir = dir
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		importer:  importer,
		dir:       dir,
		outputDir: outputDir,
		manifest:  NewImportManifest(),
		log:       log,
	}
}

// OutputPath returns the JSON path written for the document at path.
func (w *Watcher) OutputPath(path string) string {
	base := filepath.Base(path)
	return filepath.Join(w.outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".json")
}

// ProcessExisting processes every document already present in the directory.
func (w *Watcher) ProcessExisting() error {
	paths, err := w.importer.ListDocuments(w.dir)
	if err != nil {
		return err
	}
	for _, path := range paths {
		w.Process(path)
	}
	return nil
}

// Process parses one document and writes its bank. Unchanged content is
// skipped.
func (w *Watcher) Process(path string) ImportEntry {
	entry, questionBank := w.importer.importFile(path, w.manifest)
	if entry.Status == StatusImported || entry.Status == StatusEmpty {
		if err := w.writeBank(path, questionBank); err != nil {
			entry.Status = StatusFailed
			entry.Error = err.Error()
		}
	}

	switch entry.Status {
	case StatusFailed:
		w.log.Warn("document failed", "path", path, "error", entry.Error)
	case StatusSkipped:
		w.log.Debug("document unchanged", "path", path)
	default:
		w.log.Info("document processed", "path", path, "status", entry.Status, "questions", entry.Questions)
	}

	if w.OnProcessed != nil {
		w.OnProcessed(entry)
	}
	return entry
}

func (w *Watcher) writeBank(path string, questionBank bank.QuestionBank) error {
	if questionBank.Chapters == nil {
		questionBank.Chapters = []bank.Chapter{}
	}
	data, err := json.MarshalIndent(questionBank, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bank: %w", err)
	}
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(w.OutputPath(path), data, 0644)
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", w.dir, err)
	}
	w.log.Info("watching documents", "dir", w.dir, "output", w.outputDir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.importer.accepts(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.Process(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("document watcher error", "error", err)
		}
	}
}
