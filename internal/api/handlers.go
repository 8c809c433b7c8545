package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/torquehq/torque/internal/logger"
	"github.com/torquehq/torque/internal/store"
	"github.com/torquehq/torque/internal/worker"
)

// maxBodyBytes bounds the opaque body accepted at enqueue time.
const maxBodyBytes = 10 << 20 // 10MiB

// reservedHeaders are stripped before forwarding, since they describe the
// request to Torque itself rather than the payload meant for the hook.
var reservedHeaders = map[string]bool{
	"Authorization":     true,
	"Host":              true,
	"Content-Length":    true,
	"Connection":        true,
	"Transfer-Encoding": true,
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// handleEnqueue implements POST /.
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		respondError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		respondError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxBodyBytes {
		respondError(w, http.StatusBadRequest, "request body too large")
		return
	}

	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		if reservedHeaders[k] {
			continue
		}
		headers[k] = r.Header.Get(k)
	}

	t, err := s.dispatcher.Enqueue(r.Context(), rawURL, body, headers)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			respondError(w, http.StatusConflict, "task already exists")
			return
		}
		logger.Error().Err(err).Msg("enqueue failed")
		respondError(w, http.StatusInternalServerError, "failed to enqueue task")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"id": t.ID})
}

// handleGet implements GET /tasks/:id.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found")
			return
		}
		logger.Error().Err(err).Str("task_id", id).Msg("get task failed")
		respondError(w, http.StatusInternalServerError, "failed to fetch task")
		return
	}

	respondJSON(w, http.StatusOK, t.ToSnapshot())
}

// handleDelete implements DELETE /tasks/:id.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "task not found")
			return
		}
		logger.Error().Err(err).Str("task_id", id).Msg("delete task failed")
		respondError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

// handleDeleteAll implements DELETE /.
func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.DeleteAll(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("purge all failed")
		respondError(w, http.StatusInternalServerError, "failed to purge tasks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// handleStats implements GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("stats failed")
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// handleHealth implements GET /admin/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWorkers implements GET /admin/workers: the operator-facing view
// of worker liveness, purely observational and unrelated to claim
// correctness. Reports an empty list when no Redis client is configured,
// rather than failing the request.
func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	if s.redis == nil {
		respondJSON(w, http.StatusOK, []worker.Info{})
		return
	}

	workers, err := worker.ActiveWorkers(r.Context(), s.redis)
	if err != nil {
		logger.Error().Err(err).Msg("list active workers failed")
		respondError(w, http.StatusInternalServerError, "failed to list workers")
		return
	}

	respondJSON(w, http.StatusOK, workers)
}
