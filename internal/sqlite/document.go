package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/probelab/headnotes/internal/repository"
)

// DocumentStore implements repository.DocumentStore on a SQLite register
// table. The compare-and-swap runs inside a single transaction keyed on the
// stored updated_at token.
type DocumentStore struct {
	db  *DB
	now func() time.Time
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db, now: time.Now}
}

// WithClock overrides the stamping clock. Tests only.
func (s *DocumentStore) WithClock(now func() time.Time) *DocumentStore {
	s.now = now
	return s
}

// Get retrieves the stored document.
func (s *DocumentStore) Get(ctx context.Context) (*project.Project, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM document WHERE id = 1`).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	var doc project.Project
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode stored document: %w", err)
	}
	return &doc, nil
}

// Put stores the document with optimistic concurrency control. The stored
// updatedAt is restamped from the store's clock and is authoritative.
func (s *DocumentStore) Put(ctx context.Context, doc *project.Project, expectedVersion string) (*project.Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT updated_at FROM document WHERE id = 1`).Scan(&current)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load current version: %w", err)
	}

	switch {
	case !exists && expectedVersion != "":
		return nil, &repository.ConflictError{CurrentUpdatedAt: ""}
	case exists && expectedVersion == "":
		return nil, repository.ErrPreconditionRequired
	case exists && expectedVersion != current:
		return nil, &repository.ConflictError{CurrentUpdatedAt: current}
	}

	stored := doc.Normalized()
	stored.UpdatedAt = project.StampAfter(current, s.now())
	if stored.CreatedAt == "" {
		stored.CreatedAt = stored.UpdatedAt
	}

	body, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	if exists {
		res, err := tx.ExecContext(ctx,
			`UPDATE document SET body = ?, updated_at = ? WHERE id = 1 AND updated_at = ?`,
			string(body), stored.UpdatedAt, expectedVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update document: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check update: %w", err)
		}
		if affected == 0 {
			return nil, &repository.ConflictError{CurrentUpdatedAt: current}
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document (id, body, updated_at) VALUES (1, ?, ?)`,
			string(body), stored.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to insert document: %w", err)
		}
	}

	clientID, _ := repository.ClientIDFromContext(ctx)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO document_history (updated_at, client_id, body_size) VALUES (?, ?, ?)`,
		stored.UpdatedAt, clientID, len(body),
	); err != nil {
		return nil, fmt.Errorf("failed to record history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit document: %w", err)
	}
	return stored, nil
}

// History returns the most recent accepted writes, newest first.
func (s *DocumentStore) History(ctx context.Context, limit int) ([]repository.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, updated_at, COALESCE(client_id, ''), body_size
		 FROM document_history ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []repository.HistoryEntry
	for rows.Next() {
		var e repository.HistoryEntry
		if err := rows.Scan(&e.Seq, &e.UpdatedAt, &e.ClientID, &e.BodySize); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
