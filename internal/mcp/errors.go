package mcp

import (
	"errors"
	"fmt"

	"github.com/probelab/headnotes/internal/repository"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps store errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	if _, ok := repository.IsConflict(err); ok {
		return &APIError{Code: "CONFLICT", Message: "document modified concurrently", RecoveryHint: "Retry the operation"}
	}
	switch {
	case errors.Is(err, repository.ErrUnavailable):
		return &APIError{Code: "UNAVAILABLE", Message: "document store unreachable", RecoveryHint: "Check connectivity and retry"}
	case errors.Is(err, ErrTooManyConflicts):
		return &APIError{Code: "CONFLICT", Message: "document kept changing under us", RecoveryHint: "Retry the operation"}
	default:
		return nil
	}
}
