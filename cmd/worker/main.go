package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/riverqueue/river"
	"golang.org/x/sync/errgroup"

	pgRepo "rss-reader/internal/infra/adapter/persistence/postgres"
	"rss-reader/internal/infra/db"
	"rss-reader/internal/infra/fetcher"
	"rss-reader/internal/infra/parser"
	"rss-reader/internal/infra/queue"
	"rss-reader/internal/infra/sanitizer"
	"rss-reader/internal/infra/summarizer"
	workerPkg "rss-reader/internal/infra/worker"
	"rss-reader/internal/observability/logging"
	"rss-reader/internal/pkg/config"
	"rss-reader/internal/resilience/circuitbreaker"
	fetchUC "rss-reader/internal/usecase/fetch"
)

const stopTimeout = 30 * time.Second

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerMetrics := workerPkg.NewWorkerMetrics(prometheus.DefaultRegisterer)
	workerConfig := workerPkg.LoadConfigFromEnv(logger, workerMetrics.ConfigMetrics)
	logger.Info("worker configuration loaded",
		slog.String("refresh_schedule", workerConfig.RefreshSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("max_workers", workerConfig.MaxWorkers),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort))

	handles, err := db.Open(ctx)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer handles.Close()

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerConfig.HealthPort), logger)

	dbBreaker := circuitbreaker.NewDBCircuitBreaker(handles.DB)
	svc, breakers, err := buildService(logger, dbBreaker)
	if err != nil {
		return err
	}

	loc, err := workerConfig.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}
	refreshJob, err := queue.RefreshAllJob(workerConfig.RefreshSchedule, loc)
	if err != nil {
		return err
	}

	deps := &queue.Deps{
		Service:     svc,
		Logger:      logger,
		Metrics:     workerMetrics,
		FeedTimeout: workerConfig.JobTimeout,
	}
	client, err := queue.NewClient(handles.Pool, logger, queue.ClientConfig{
		MaxWorkers:   workerConfig.MaxWorkers,
		Workers:      queue.NewWorkers(deps, svc.Summarizer != nil),
		PeriodicJobs: []*river.PeriodicJob{refreshJob},
	})
	if err != nil {
		return err
	}
	svc.Queue = queue.New(client)
	svc.Config = workerConfig.JobOptions()

	metricsHandler := workerPkg.NewMetricsHandler(logger, prometheus.DefaultGatherer, breakers...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthServer.Start(gctx) })
	g.Go(func() error {
		return workerPkg.Serve(gctx, logger, "metrics", fmt.Sprintf(":%d", workerConfig.MetricsPort), metricsHandler)
	})
	g.Go(func() error {
		// Shutdown is driven by Stop below so running jobs can finish.
		if err := client.Start(context.WithoutCancel(gctx)); err != nil {
			return fmt.Errorf("start queue client: %w", err)
		}
		healthServer.SetReady(true)
		logger.Info("worker started",
			slog.Bool("summaries", svc.Summarizer != nil),
			slog.String("refresh_schedule", workerConfig.RefreshSchedule))

		<-gctx.Done()
		healthServer.SetReady(false)

		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("stop queue client: %w", err)
			}
			logger.Warn("jobs still running after stop timeout, cancelling them")
			cancelCtx, cancelStop := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelStop()
			if err := client.StopAndCancel(cancelCtx); err != nil {
				return fmt.Errorf("stop queue client: %w", err)
			}
		}
		logger.Info("queue client stopped")
		return nil
	})

	return g.Wait()
}

// buildService wires the ingestion pipeline. The returned breakers are
// reported on /health/breakers.
func buildService(logger *slog.Logger, dbBreaker *circuitbreaker.DBCircuitBreaker) (*fetchUC.Service, []workerPkg.Breaker, error) {
	fetchCfg := fetcher.LoadConfigFromEnv(logger, config.NewConfigMetrics("fetcher"))
	guard := fetcher.NewGuard(nil, fetchCfg.DenyPrivateIPs)
	if !fetchCfg.DenyPrivateIPs {
		logger.Warn("SSRF protection disabled, private addresses are reachable")
	}
	pages := fetcher.NewPageFetcher(fetchCfg, guard)

	sumCfg := summarizer.LoadConfigFromEnv(logger, config.NewConfigMetrics("summarizer"))
	sum, err := summarizer.New(sumCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create summarizer: %w", err)
	}

	breakers := []workerPkg.Breaker{dbBreaker, pages.Breaker()}
	if b, ok := sum.(interface {
		Breaker() *circuitbreaker.CircuitBreaker
	}); ok {
		breakers = append(breakers, b.Breaker())
	}
	if sum != nil {
		logger.Info("summaries enabled",
			slog.String("provider", sumCfg.Provider),
			slog.String("model", sum.Model()),
			slog.Int("character_limit", sumCfg.CharacterLimit))
	} else {
		logger.Info("summaries disabled")
	}

	svc := &fetchUC.Service{
		Feeds:       pgRepo.NewFeedRepo(dbBreaker),
		Articles:    pgRepo.NewArticleRepo(dbBreaker),
		Guard:       guard,
		FeedFetcher: fetcher.NewFeedFetcher(fetchCfg, guard),
		Parser:      parser.New(),
		Sanitizer:   sanitizer.New(),
		Pages:       pages,
		Summarizer:  sum,
	}
	return svc, breakers, nil
}
