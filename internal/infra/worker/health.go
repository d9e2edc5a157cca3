package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"rss-reader/internal/observability/tracing"
)

// HealthServer serves the liveness and readiness probes:
//   - GET /health: always 200
//   - GET /health/ready: 200 once SetReady(true) was called, 503 before
//
//	hs := NewHealthServer(":9091", logger)
//	go hs.Start(ctx)
//	hs.SetReady(true)
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	isReady atomic.Bool
}

type healthResponse struct {
	Status string `json:"status"`
}

func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	return &HealthServer{addr: addr, logger: logger}
}

// Handler returns the probe router.
func (h *HealthServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(tracing.Middleware)
	r.Get("/health", h.handleLiveness)
	r.Get("/health/ready", h.handleReadiness)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (h *HealthServer) Start(ctx context.Context) error {
	return Serve(ctx, h.logger, "health", h.addr, h.Handler())
}

// SetReady flips the readiness probe.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) Ready() bool {
	return h.isReady.Load()
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if h.isReady.Load() {
		writeJSON(w, h.logger, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	writeJSON(w, h.logger, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}
