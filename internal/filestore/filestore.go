// Package filestore implements the document store on a single JSON file.
// Suitable for single-host deployments where SQLite would be overkill.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/probelab/headnotes/internal/repository"
)

// Store implements repository.DocumentStore on a flat file. The
// compare-and-swap is a read-compare-write under a process-local mutex, with
// an atomic rename so readers never observe a torn file.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New creates a file-backed document store at path.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// WithClock overrides the stamping clock. Tests only.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Get returns the stored document.
func (s *Store) Get(ctx context.Context) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Put stores the document if expectedVersion matches the stored updatedAt.
func (s *Store) Put(ctx context.Context, doc *project.Project, expectedVersion string) (*project.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := ""
	existing, err := s.read()
	switch {
	case err == nil:
		current = existing.UpdatedAt
	case err == repository.ErrNotFound:
	default:
		return nil, err
	}

	switch {
	case existing == nil && expectedVersion != "":
		return nil, &repository.ConflictError{CurrentUpdatedAt: ""}
	case existing != nil && expectedVersion == "":
		return nil, repository.ErrPreconditionRequired
	case existing != nil && expectedVersion != current:
		return nil, &repository.ConflictError{CurrentUpdatedAt: current}
	}

	stored := doc.Normalized()
	stored.UpdatedAt = project.StampAfter(current, s.now())
	if stored.CreatedAt == "" {
		stored.CreatedAt = stored.UpdatedAt
	}

	if err := writeAtomic(s.path, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *Store) read() (*project.Project, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}
	var doc project.Project
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document file: %w", err)
	}
	return &doc, nil
}

func writeAtomic(path string, doc *project.Project) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create document dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".document-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace document file: %w", err)
	}
	return nil
}
