package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rss-reader/internal/observability/tracing"
)

const shutdownTimeout = 5 * time.Second

// Breaker is the view of a circuit breaker the ops endpoint reports.
type Breaker interface {
	Name() string
	IsOpen() bool
}

type breakerStatus struct {
	Name string `json:"name"`
	Open bool   `json:"open"`
}

type breakersResponse struct {
	Healthy  bool            `json:"healthy"`
	Breakers []breakerStatus `json:"breakers"`
}

// NewMetricsHandler serves:
//   - GET /metrics: Prometheus exposition from gatherer
//   - GET /health: always 200
//   - GET /health/breakers: 200 while every breaker is closed, 503 otherwise
func NewMetricsHandler(logger *slog.Logger, gatherer prometheus.Gatherer, breakers ...Breaker) http.Handler {
	r := chi.NewRouter()
	r.Use(tracing.Middleware)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, healthResponse{Status: "ok"})
	})
	r.Get("/health/breakers", func(w http.ResponseWriter, _ *http.Request) {
		resp := breakersResponse{Healthy: true, Breakers: make([]breakerStatus, 0, len(breakers))}
		for _, b := range breakers {
			open := b.IsOpen()
			resp.Breakers = append(resp.Breakers, breakerStatus{Name: b.Name(), Open: open})
			if open {
				resp.Healthy = false
			}
		}
		status := http.StatusOK
		if !resp.Healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, logger, status, resp)
	})
	return r
}

// Serve runs handler on addr until ctx is cancelled. A graceful shutdown
// returns nil.
func Serve(ctx context.Context, logger *slog.Logger, name, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("server", name), slog.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", slog.String("server", name), slog.Any("error", err))
			return err
		}
		logger.Info("server stopped", slog.String("server", name))
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("server failed", slog.String("server", name), slog.Any("error", err))
		return err
	}
}
