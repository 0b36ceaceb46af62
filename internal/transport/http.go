package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository"
)

// ProjectStore is the owner-scoped cloud copy of every project.
type ProjectStore interface {
	Get(ctx context.Context, ownerID, id string) (*project.Record, error)
	Put(ctx context.Context, ownerID string, rec *project.Record) error
}

// Server wires HTTP handlers.
type Server struct {
	store  ProjectStore
	logger *slog.Logger
}

// NewServer creates an HTTP server router with middleware. Only /v1 routes are authenticated.
func NewServer(store ProjectStore, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	srv := &Server{store: store, logger: logger}

	r.Get("/health", srv.handleHealth)
	r.Route("/v1/projects", func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		r.Get("/{id}", srv.handleGet)
		r.Put("/{id}", srv.handlePut)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	rec, err := s.store.Get(r.Context(), ownerID, id)
	if err != nil {
		s.fail(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := s.owner(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var rec project.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not a project record")
		return
	}
	switch {
	case strings.TrimSpace(rec.ID) == "" || rec.ID != id:
		writeError(w, http.StatusBadRequest, "id_mismatch", "record id does not match the request path")
		return
	case rec.Revision < 1:
		writeError(w, http.StatusBadRequest, "invalid_revision", "revision must be positive")
		return
	}
	if err := rec.CheckConsistency(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "inconsistent_record", err.Error())
		return
	}

	if err := s.store.Put(r.Context(), ownerID, &rec); err != nil {
		s.fail(w, id, err)
		return
	}
	s.logger.Debug("remote project stored", "owner_id", ownerID, "project_id", id, "revision", rec.Revision)
	writeJSON(w, http.StatusOK, PutResult{ID: rec.ID, Revision: rec.Revision})
}

func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, ok := OwnerFromContext(r.Context())
	if !ok || ownerID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing owner")
		return "", false
	}
	return ownerID, true
}

func (s *Server) fail(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "project not found")
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "a newer revision is already stored")
	case errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		s.logger.Error("remote store failure", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
