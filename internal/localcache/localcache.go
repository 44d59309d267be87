// Package localcache keeps the device-local copy of the annotation document,
// the moral equivalent of the browser's localStorage copy. Saves are best
// effort; the sync engine swallows failures here.
package localcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/probelab/headnotes/internal/repository"
)

// Cache implements repository.LocalCache on a JSON state file.
type Cache struct {
	path string

	// lastSelfWrite lets the watcher tell our own saves apart from another
	// process touching the same cache file.
	lastSelfWrite atomic.Int64
}

// New creates a cache backed by the state file at path.
func New(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the state file location.
func (c *Cache) Path() string {
	return c.path
}

// Load reads the cached document. Returns repository.ErrNotFound when no
// cache exists yet; a cache that fails to parse is a read failure, never
// silently accepted.
func (c *Cache) Load(ctx context.Context) (*project.Project, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local cache: %w", err)
	}
	var doc project.Project
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode local cache: %w", err)
	}
	return &doc, nil
}

// Save writes the document to the state file via an atomic rename.
func (c *Cache) Save(ctx context.Context, doc *project.Project) error {
	data, err := json.Marshal(doc.Normalized())
	if err != nil {
		return fmt.Errorf("failed to encode local cache: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp cache: %w", err)
	}
	c.lastSelfWrite.Store(time.Now().UnixNano())
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// wroteRecently reports whether this process saved the cache within the
// given window.
func (c *Cache) wroteRecently(window time.Duration) bool {
	last := c.lastSelfWrite.Load()
	return last != 0 && time.Since(time.Unix(0, last)) < window
}
