// Package httpapi exposes the operational endpoints served alongside the scheduler.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"NewsHarvester/internal/domain"
)

// BatchReader loads a discovery batch by id.
type BatchReader interface {
	GetBatch(ctx context.Context, id string) (domain.DiscoveryBatch, error)
}

// RouterDeps groups what NewRouter needs.
type RouterDeps struct {
	Batches BatchReader
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter mounts /healthz, /metrics and /batches/{id}.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	if deps.Batches != nil {
		h := &batchHandler{batches: deps.Batches, logger: logger}
		r.Get("/batches/{id}", h.Get)
	}

	return r
}

type batchHandler struct {
	batches BatchReader
	logger  *slog.Logger
}

type batchResponse struct {
	ID                  string         `json:"id"`
	OrganizationID      string         `json:"organization_id"`
	Status              string         `json:"status"`
	TimeframeDays       int            `json:"timeframe_days"`
	TotalURLs           int            `json:"total_urls"`
	ProcessedURLs       int            `json:"processed_urls"`
	SuccessfulURLs      int            `json:"successful_urls"`
	FailedURLs          int            `json:"failed_urls"`
	SourceCounts        map[string]int `json:"source_counts"`
	Error               string         `json:"error,omitempty"`
	StartedAt           time.Time      `json:"started_at"`
	DiscoveredAt        *time.Time     `json:"discovered_at,omitempty"`
	ProcessingStartedAt *time.Time     `json:"processing_started_at,omitempty"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
}

func toBatchResponse(b domain.DiscoveryBatch) batchResponse {
	counts := b.SourceCounts
	if counts == nil {
		counts = map[string]int{}
	}
	return batchResponse{
		ID:                  b.ID,
		OrganizationID:      b.OrganizationID,
		Status:              string(b.Status),
		TimeframeDays:       b.TimeframeDays,
		TotalURLs:           b.TotalURLs,
		ProcessedURLs:       b.ProcessedURLs,
		SuccessfulURLs:      b.SuccessfulURLs,
		FailedURLs:          b.FailedURLs,
		SourceCounts:        counts,
		Error:               b.Error,
		StartedAt:           b.StartedAt,
		DiscoveredAt:        b.DiscoveredAt,
		ProcessingStartedAt: b.ProcessingStartedAt,
		CompletedAt:         b.CompletedAt,
	}
}

// Get returns one batch.
// GET /batches/{id}
func (h *batchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	batch, err := h.batches.GetBatch(r.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
		return
	case err != nil:
		h.logger.Error("load batch", "batch_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, toBatchResponse(batch))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
