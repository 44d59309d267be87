package transport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/probelab/headnotes/internal/repository"
)

// Options configures the document endpoint.
type Options struct {
	// Defaults describe the empty document served when nothing is stored.
	DefaultModelName string
	DefaultNumLayers int
	DefaultNumHeads  int

	// MaxBodyBytes caps PUT payloads. Zero means the 4 MiB default.
	MaxBodyBytes int64

	// Secret enables shared-secret bearer auth when non-empty.
	Secret string

	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler

	// History, when set, exposes the accepted-write log at
	// /api/v1/history. Only the SQLite backend provides one.
	History repository.Historian

	Logger *slog.Logger
}

const defaultMaxBodyBytes = 4 << 20

// Server handles the single-document HTTP contract.
type Server struct {
	store repository.DocumentStore
	opts  Options
}

// NewServer wires the document endpoint router.
func NewServer(store repository.DocumentStore, opts Options) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	srv := &Server{store: store, opts: opts}

	r := chi.NewRouter()
	r.Use(RequestLogger(opts.Logger))
	r.Get("/health", srv.handleHealth)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SharedSecretMiddleware(opts.Secret))
		r.Use(ClientIDMiddleware)
		r.Get("/document", srv.handleGet)
		r.Put("/document", srv.handlePut)
		if opts.History != nil {
			r.Get("/history", srv.handleHistory)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleGet returns the stored document, or an empty default when nothing
// has been stored yet. The default carries empty timestamps so clients can
// tell "absent" from "stored".
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	doc, err := s.store.Get(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, doc)
	case errors.Is(err, repository.ErrNotFound):
		empty := &project.Project{
			ModelName:   s.opts.DefaultModelName,
			NumLayers:   s.opts.DefaultNumLayers,
			NumHeads:    s.opts.DefaultNumHeads,
			Annotations: map[string]project.Annotation{},
			Tags:        []string{},
		}
		writeJSON(w, http.StatusOK, empty)
	case errors.Is(err, repository.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, KindBackendUnavailable, "")
	default:
		s.opts.Logger.Error("document read failed", "error", err)
		writeError(w, http.StatusInternalServerError, KindInternal, "")
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, KindPayloadTooLarge, "")
			return
		}
		writeError(w, http.StatusBadRequest, KindInvalidDocument, "unreadable body")
		return
	}

	doc, err := project.ParseDocument(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, KindInvalidDocument, err.Error())
		return
	}

	expected := r.Header.Get("If-Match")
	stored, err := s.store.Put(r.Context(), doc, expected)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, stored)
	case errors.Is(err, repository.ErrPreconditionRequired):
		writeError(w, http.StatusPreconditionRequired, KindPreconditionRequired, "")
	case errors.Is(err, repository.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, KindBackendUnavailable, "")
	default:
		if current, ok := repository.IsConflict(err); ok {
			writeConflict(w, current)
			return
		}
		s.opts.Logger.Error("document write failed", "error", err)
		writeError(w, http.StatusInternalServerError, KindInternal, "")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil {
			writeError(w, http.StatusBadRequest, KindInvalidDocument, "limit must be an integer")
			return
		}
	}
	entries, err := s.opts.History.History(r.Context(), limit)
	if err != nil {
		s.opts.Logger.Error("history read failed", "error", err)
		writeError(w, http.StatusInternalServerError, KindInternal, "")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
