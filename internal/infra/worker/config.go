// Package worker holds the worker process's configuration, its Prometheus
// metrics, and the health and metrics HTTP endpoints.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rss-reader/internal/domain/job"
	"rss-reader/internal/pkg/config"
	"rss-reader/internal/usecase/fetch"
)

// WorkerConfig controls the job queue, the periodic refresh-all schedule and
// the ops ports.
//
//	cfg := LoadConfigFromEnv(logger, metrics)
//	loc, _ := cfg.Location()
type WorkerConfig struct {
	// RefreshSchedule is the 5-field cron expression for refresh-all.
	// Default: "* * * * *" (every minute; per-feed intervals do the throttling)
	RefreshSchedule string

	// Timezone is the IANA name the schedule is evaluated in. Default: "UTC"
	Timezone string

	// MaxWorkers bounds concurrently running jobs. Range: 1-100, default 10
	MaxWorkers int

	// HealthPort serves /health and /health/ready. Default: 9091
	HealthPort int

	// MetricsPort serves /metrics and /health/breakers. Default: 9090
	MetricsPort int

	// Singleton windows for debounced jobs.
	FeedSingleton     time.Duration // default 60s
	FullTextSingleton time.Duration // default 300s
	SummarySingleton  time.Duration // default 300s

	// SummaryMaxAttempts bounds queue retries of summary jobs. Default: 3
	SummaryMaxAttempts int

	// JobTimeout caps a single fetch-feed run. Default: 2m
	JobTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		RefreshSchedule:    "* * * * *",
		Timezone:           "UTC",
		MaxWorkers:         10,
		HealthPort:         9091,
		MetricsPort:        9090,
		FeedSingleton:      60 * time.Second,
		FullTextSingleton:  300 * time.Second,
		SummarySingleton:   300 * time.Second,
		SummaryMaxAttempts: 3,
		JobTimeout:         2 * time.Minute,
	}
}

// Validate collects every invalid field.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.RefreshSchedule); err != nil {
		errs = append(errs, fmt.Errorf("refresh schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.MaxWorkers, 1, 100); err != nil {
		errs = append(errs, fmt.Errorf("max workers: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, errors.New("health and metrics ports must differ"))
	}
	for name, d := range map[string]time.Duration{
		"feed singleton":      c.FeedSingleton,
		"full-text singleton": c.FullTextSingleton,
		"summary singleton":   c.SummarySingleton,
	} {
		if err := config.ValidateDuration(d, 0, 24*time.Hour); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if err := config.ValidateIntRange(c.SummaryMaxAttempts, 1, 25); err != nil {
		errs = append(errs, fmt.Errorf("summary max attempts: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.JobTimeout); err != nil {
		errs = append(errs, fmt.Errorf("job timeout: %w", err))
	}

	return errors.Join(errs...)
}

// Location returns the schedule's time zone.
func (c *WorkerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// JobOptions converts the singleton settings into the service's enqueue
// options. Feed and full-text jobs keep the queue defaults for attempts.
func (c *WorkerConfig) JobOptions() fetch.Config {
	def := fetch.DefaultConfig()
	return fetch.Config{
		FeedJob:     job.Options{SingletonTTL: c.FeedSingleton, MaxAttempts: def.FeedJob.MaxAttempts},
		FullTextJob: job.Options{SingletonTTL: c.FullTextSingleton, MaxAttempts: def.FullTextJob.MaxAttempts},
		SummaryJob:  job.Options{SingletonTTL: c.SummarySingleton, MaxAttempts: c.SummaryMaxAttempts},
	}
}

func seconds(v int) error {
	return config.ValidateIntRange(v, 0, 86400)
}

// LoadConfigFromEnv loads the worker configuration with the fail-open
// strategy: an invalid value is replaced by its default, logged and counted.
//
// Environment variables:
//   - REFRESH_SCHEDULE: cron expression (default: "* * * * *")
//   - WORKER_TIMEZONE: IANA name (default: "UTC")
//   - WORKER_MAX_WORKERS: 1-100 (default: 10)
//   - WORKER_HEALTH_PORT, METRICS_PORT: 1024-65535 (defaults: 9091, 9090)
//   - FEED_SINGLETON_SECONDS (60), FULLTEXT_SINGLETON_SECONDS (300),
//     SUMMARY_SINGLETON_SECONDS (300)
//   - SUMMARY_MAX_ATTEMPTS: 1-25 (default: 3)
//   - WORKER_JOB_TIMEOUT: duration (default: 2m)
func LoadConfigFromEnv(logger *slog.Logger, metrics *config.ConfigMetrics) WorkerConfig {
	def := DefaultConfig()
	env := config.NewEnv(logger, metrics)

	cfg := WorkerConfig{
		RefreshSchedule: config.Track(env, "refresh_schedule",
			config.LoadEnvWithFallback("REFRESH_SCHEDULE", def.RefreshSchedule, config.ValidateCronSchedule)),
		Timezone: config.Track(env, "timezone",
			config.LoadEnvWithFallback("WORKER_TIMEZONE", def.Timezone, config.ValidateTimezone)),
		MaxWorkers: config.Track(env, "max_workers",
			config.LoadEnvInt("WORKER_MAX_WORKERS", def.MaxWorkers, func(v int) error {
				return config.ValidateIntRange(v, 1, 100)
			})),
		HealthPort: config.Track(env, "health_port",
			config.LoadEnvInt("WORKER_HEALTH_PORT", def.HealthPort, func(v int) error {
				return config.ValidateIntRange(v, 1024, 65535)
			})),
		MetricsPort: config.Track(env, "metrics_port",
			config.LoadEnvInt("METRICS_PORT", def.MetricsPort, func(v int) error {
				return config.ValidateIntRange(v, 1024, 65535)
			})),
		FeedSingleton: time.Duration(config.Track(env, "feed_singleton",
			config.LoadEnvInt("FEED_SINGLETON_SECONDS", int(def.FeedSingleton/time.Second), seconds))) * time.Second,
		FullTextSingleton: time.Duration(config.Track(env, "fulltext_singleton",
			config.LoadEnvInt("FULLTEXT_SINGLETON_SECONDS", int(def.FullTextSingleton/time.Second), seconds))) * time.Second,
		SummarySingleton: time.Duration(config.Track(env, "summary_singleton",
			config.LoadEnvInt("SUMMARY_SINGLETON_SECONDS", int(def.SummarySingleton/time.Second), seconds))) * time.Second,
		SummaryMaxAttempts: config.Track(env, "summary_max_attempts",
			config.LoadEnvInt("SUMMARY_MAX_ATTEMPTS", def.SummaryMaxAttempts, func(v int) error {
				return config.ValidateIntRange(v, 1, 25)
			})),
		JobTimeout: config.Track(env, "job_timeout",
			config.LoadEnvDuration("WORKER_JOB_TIMEOUT", def.JobTimeout, func(d time.Duration) error {
				return config.ValidateDuration(d, 10*time.Second, 30*time.Minute)
			})),
	}

	if cfg.HealthPort == cfg.MetricsPort {
		cfg.HealthPort, cfg.MetricsPort = config.Track(env, "health_port", config.Result[int]{
			Value:           def.HealthPort,
			Warning:         fmt.Sprintf("WORKER_HEALTH_PORT and METRICS_PORT are both %d, falling back to defaults", cfg.MetricsPort),
			FallbackApplied: true,
		}), def.MetricsPort
	}

	env.Finish()
	return cfg
}
