package bulk

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ImportManifest tracks which documents have been imported, keyed by path,
// so unchanged files can be skipped.
type ImportManifest struct {
	Version   string                   `json:"version"`
	UpdatedAt time.Time                `json:"updated_at"`
	Imports   map[string]*ImportRecord `json:"imports"`

	mu sync.Mutex
}

// ImportRecord tracks a single imported document.
type ImportRecord struct {
	Path       string    `json:"path"`
	Digest     string    `json:"digest"`
	Questions  int       `json:"questions"`
	ImportedAt time.Time `json:"imported_at"`
}

const manifestVersion = "1.0.0"

// NewImportManifest creates an empty manifest.
func NewImportManifest() *ImportManifest {
	return &ImportManifest{
		Version:   manifestVersion,
		UpdatedAt: time.Now(),
		Imports:   make(map[string]*ImportRecord),
	}
}

// LoadManifest reads a manifest from disk. A missing file yields an empty
// manifest.
func LoadManifest(manifestPath string) (*ImportManifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewImportManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	manifest := &ImportManifest{}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Imports == nil {
		manifest.Imports = make(map[string]*ImportRecord)
	}
	return manifest, nil
}

// Save writes the manifest to disk.
func (manifest *ImportManifest) Save(manifestPath string) error {
	manifest.mu.Lock()
	defer manifest.mu.Unlock()

	manifest.UpdatedAt = time.Now()

	if err := os.MkdirAll(filepath.Dir(manifestPath), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Record stores the digest of an imported document.
func (manifest *ImportManifest) Record(record *ImportRecord) {
	manifest.mu.Lock()
	defer manifest.mu.Unlock()
	manifest.Imports[record.Path] = record
}

// Unchanged reports whether path was imported with the same digest.
func (manifest *ImportManifest) Unchanged(path, digest string) bool {
	manifest.mu.Lock()
	defer manifest.mu.Unlock()
	record, ok := manifest.Imports[path]
	return ok && record.Digest == digest
}

// Digest returns the hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
