package transport

import (
	"encoding/json"
	"net/http"
)

// Wire error kinds. Every failure response is {"error": <kind>} plus
// kind-specific extras.
const (
	KindInvalidDocument      = "invalid_document"
	KindUnauthorized         = "unauthorized"
	KindPreconditionRequired = "precondition_required"
	KindConflict             = "conflict"
	KindPayloadTooLarge      = "payload_too_large"
	KindBackendUnavailable   = "backend_unavailable"
	KindInternal             = "internal"
)

type errorBody struct {
	Error            string `json:"error"`
	Reason           string `json:"reason,omitempty"`
	CurrentUpdatedAt string `json:"currentUpdatedAt,omitempty"`
}

func writeError(w http.ResponseWriter, status int, kind, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: kind, Reason: reason})
}

func writeConflict(w http.ResponseWriter, currentUpdatedAt string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusConflict)
	_ = json.NewEncoder(w).Encode(errorBody{Error: KindConflict, CurrentUpdatedAt: currentUpdatedAt})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
