// Package api exposes the import pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/importer"
	"github.com/brewtrail/brewtrail/internal/jobs"
	"github.com/brewtrail/brewtrail/internal/model"
	"github.com/brewtrail/brewtrail/internal/resilience"
	"github.com/brewtrail/brewtrail/internal/vcache"
)

// defaultHistoryPageSize is the history page size when the client passes
// none.
const defaultHistoryPageSize = 20

// JobPoller answers job status polls.
type JobPoller interface {
	Status(ctx context.Context, id string) (*model.ImportJob, error)
}

// Server holds the HTTP handler dependencies.
type Server struct {
	service  *importer.Service
	poller   JobPoller
	cache    *vcache.Cache
	trackers []*resilience.FailureTracker

	maxPayloadBytes int64
}

// NewServer wires the HTTP surface. cache and trackers feed the health
// endpoint and may be nil/empty.
func NewServer(service *importer.Service, poller JobPoller, cache *vcache.Cache, trackers []*resilience.FailureTracker, maxPayloadBytes int64) *Server {
	return &Server{
		service:         service,
		poller:          poller,
		cache:           cache,
		trackers:        trackers,
		maxPayloadBytes: maxPayloadBytes,
	}
}

// Router builds the chi router with CORS and request logging.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/import/google-timeline", s.handleImport)
	r.Get("/import/status/{jobID}", s.handleJobStatus)
	r.Get("/import/history", s.handleHistory)

	return r
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	userID := userID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	// Cap the read before buffering anything; the service re-checks the
	// declared size for callers that bypass HTTP.
	body := http.MaxBytesReader(w, r.Body, s.maxPayloadBytes)
	raw, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	result, err := s.service.Import(r.Context(), userID, raw, r.Header.Get("X-File-Name"))
	if err != nil {
		if errors.Is(err, importer.ErrPayloadTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload exceeds size limit")
			return
		}
		zap.L().Error("import request failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}

	if result.JobID != "" {
		writeJSON(w, http.StatusAccepted, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if s.poller == nil {
		writeError(w, http.StatusNotFound, "async imports are not enabled")
		return
	}

	job, err := s.poller.Status(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		zap.L().Error("job status lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}

	// Payloads are large and internal; never echo them to pollers.
	job.Payload = nil

	// Clients poll this endpoint; a short client-side cache keeps them from
	// hammering it.
	w.Header().Set("Cache-Control", "max-age=5")
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := userID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "X-User-ID header is required")
		return
	}

	limit := queryInt(r, "limit", defaultHistoryPageSize)
	offset := queryInt(r, "offset", 0)

	records, total, err := s.service.History(r.Context(), userID, limit, offset)
	if err != nil {
		zap.L().Error("history lookup failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}

	if s.cache != nil {
		resp["cache"] = s.cache.Stats(r.Context())
	}

	if len(s.trackers) > 0 {
		services := map[string]any{}
		for _, t := range s.trackers {
			consecutive, total := t.Counters()
			services[t.Service()] = map[string]any{
				"degraded":             t.Degraded(),
				"consecutive_failures": consecutive,
				"total_failures":       total,
			}
		}
		resp["services"] = services
	}

	writeJSON(w, http.StatusOK, resp)
}

func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
