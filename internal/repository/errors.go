package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no document has been stored yet.
	ErrNotFound = errors.New("document not found")

	// ErrPreconditionRequired is returned when a conditional write omits the
	// expected version while a document already exists.
	ErrPreconditionRequired = errors.New("expected version required: document already exists")

	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("document store unavailable")
)

// ConflictError reports a failed compare-and-swap. CurrentUpdatedAt is the
// version token actually stored, so the caller can re-poll and reconcile.
type ConflictError struct {
	CurrentUpdatedAt string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: current updatedAt is %q", e.CurrentUpdatedAt)
}

// IsConflict reports whether err is a version conflict and returns the
// stored version token when it is.
func IsConflict(err error) (string, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict.CurrentUpdatedAt, true
	}
	return "", false
}
