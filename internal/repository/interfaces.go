package repository

import (
	"context"

	"github.com/probelab/headnotes/internal/domain/project"
)

// DocumentStore is a single-document register with compare-and-swap on the
// document's updatedAt version token. Implementations: SQLite, flat file,
// and the HTTP client against a remote endpoint.
type DocumentStore interface {
	// Get returns the stored document, or ErrNotFound when nothing has been
	// stored yet.
	Get(ctx context.Context) (*project.Project, error)

	// Put stores the document if the currently stored version token equals
	// expectedVersion. An empty expectedVersion means "store only if nothing
	// exists". On success the store restamps updatedAt and returns the
	// persisted document; the stored value is authoritative. On a version
	// mismatch Put returns a *ConflictError carrying the current token.
	Put(ctx context.Context, doc *project.Project, expectedVersion string) (*project.Project, error)
}

// LocalCache is the device-local copy of the document. Best effort, no
// versioning: the sync engine treats failures as a skipped save.
type LocalCache interface {
	Load(ctx context.Context) (*project.Project, error)
	Save(ctx context.Context, doc *project.Project) error
}

// HistoryEntry describes one accepted write in a store's write log.
type HistoryEntry struct {
	Seq       int64  `json:"seq"`
	UpdatedAt string `json:"updatedAt"`
	ClientID  string `json:"clientId,omitempty"`
	BodySize  int64  `json:"bodySize"`
}

// Historian is implemented by stores that keep a log of accepted writes.
type Historian interface {
	History(ctx context.Context, limit int) ([]HistoryEntry, error)
}
