// Package server exposes the on-demand HTTP surface: single-item sync
// without the batch cycle's progress bookkeeping, health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/pricing"
)

// Syncer resolves and ingests one item synchronously.
type Syncer interface {
	ProcessOne(ctx context.Context, variantKey string) (pricing.IngestResult, error)
}

// Server routes on-demand requests to the engine.
type Server struct {
	syncer Syncer
	logger *zap.Logger
}

// New constructs a Server.
func New(syncer Syncer, logger *zap.Logger) *Server {
	return &Server{syncer: syncer, logger: logger}
}

// Router builds the chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/products/{variantKey}/sync", s.handleSync)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type syncResponse struct {
	Success bool                  `json:"success"`
	Error   string                `json:"error,omitempty"`
	Result  *pricing.IngestResult `json:"result,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	variantKey := chi.URLParam(r, "variantKey")

	result, err := s.syncer.ProcessOne(r.Context(), variantKey)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, syncResponse{Success: true, Result: &result})
	case errors.Is(err, pricing.ErrNotFound):
		writeJSON(w, http.StatusNotFound, syncResponse{Error: "unknown product"})
	case errors.Is(err, pricing.ErrNoMatch):
		writeJSON(w, http.StatusNotFound, syncResponse{Error: "no source match"})
	case pricing.IsTransient(err):
		s.logger.Warn("on-demand sync hit transient failure",
			zap.String("variant_key", variantKey),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, syncResponse{Error: "source unavailable"})
	default:
		s.logger.Error("on-demand sync failed",
			zap.String("variant_key", variantKey),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, syncResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
