package mcp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/probelab/headnotes/internal/repository"
)

// ErrTooManyConflicts is returned when a mutation keeps losing the write race.
var ErrTooManyConflicts = errors.New("too many write conflicts")

const maxApplyAttempts = 5

// Defaults describes the document created when the store is empty.
type Defaults struct {
	ModelName string
	NumLayers int
	NumHeads  int
}

// Service runs document reads and mutations against a store. Every mutation
// is a read-reduce-write cycle under optimistic concurrency; conflicts are
// retried against the fresh document.
type Service struct {
	store    repository.DocumentStore
	defaults Defaults
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a document service over store.
func NewService(store repository.DocumentStore, defaults Defaults, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, defaults: defaults, logger: logger, now: time.Now}
}

// WithClock overrides the mutation clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Document returns the current document, or a fresh empty one when the store
// holds nothing yet.
func (s *Service) Document(ctx context.Context) (*project.Project, error) {
	doc, err := s.store.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return project.New(s.defaults.ModelName, s.defaults.NumLayers, s.defaults.NumHeads, s.now()), nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Apply runs an action against the stored document. No-op actions return the
// current document without writing.
func (s *Service) Apply(ctx context.Context, action project.Action) (*project.Project, error) {
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		doc, err := s.store.Get(ctx)
		version := ""
		switch {
		case errors.Is(err, repository.ErrNotFound):
			doc = project.New(s.defaults.ModelName, s.defaults.NumLayers, s.defaults.NumHeads, s.now())
		case err != nil:
			return nil, err
		default:
			version = doc.UpdatedAt
		}

		next := project.Reduce(doc, action, s.now())
		if next == doc && version != "" {
			return doc, nil
		}

		stored, err := s.store.Put(ctx, next, version)
		if err == nil {
			return stored, nil
		}
		if _, ok := repository.IsConflict(err); ok {
			s.logger.Debug("write conflict, retrying", "attempt", attempt+1)
			continue
		}
		if errors.Is(err, repository.ErrPreconditionRequired) {
			// The document appeared between our read and write.
			continue
		}
		return nil, err
	}
	return nil, ErrTooManyConflicts
}
