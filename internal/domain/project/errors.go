package project

import (
	"errors"
	"fmt"
)

// ErrNotAProject indicates an imported file is missing the required
// top-level fields and was ignored.
var ErrNotAProject = errors.New("not an annotation project document")

// FieldError names the document field that failed validation and why.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid document: field %s: %s", e.Field, e.Reason)
}
