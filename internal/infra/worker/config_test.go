package worker

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-reader/internal/pkg/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "* * * * *", cfg.RefreshSchedule)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 10, cfg.MaxWorkers)
	assert.Equal(t, 9091, cfg.HealthPort)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.Equal(t, 60*time.Second, cfg.FeedSingleton)
	assert.Equal(t, 300*time.Second, cfg.FullTextSingleton)
	assert.Equal(t, 300*time.Second, cfg.SummarySingleton)
	assert.Equal(t, 3, cfg.SummaryMaxAttempts)
	require.NoError(t, cfg.Validate())
}

func TestWorkerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WorkerConfig)
		wantErr string
	}{
		{name: "six-field cron", mutate: func(c *WorkerConfig) { c.RefreshSchedule = "0 * * * * *" }, wantErr: "refresh schedule"},
		{name: "unknown timezone", mutate: func(c *WorkerConfig) { c.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
		{name: "no workers", mutate: func(c *WorkerConfig) { c.MaxWorkers = 0 }, wantErr: "max workers"},
		{name: "privileged port", mutate: func(c *WorkerConfig) { c.HealthPort = 80 }, wantErr: "health port"},
		{name: "same ports", mutate: func(c *WorkerConfig) { c.MetricsPort = c.HealthPort }, wantErr: "must differ"},
		{name: "negative singleton", mutate: func(c *WorkerConfig) { c.FeedSingleton = -time.Second }, wantErr: "feed singleton"},
		{name: "zero attempts", mutate: func(c *WorkerConfig) { c.SummaryMaxAttempts = 0 }, wantErr: "summary max attempts"},
		{name: "zero timeout", mutate: func(c *WorkerConfig) { c.JobTimeout = 0 }, wantErr: "job timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}

	t.Run("zero singleton disables debouncing", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SummarySingleton = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestWorkerConfig_Location(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Asia/Tokyo"
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestWorkerConfig_JobOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FeedSingleton = 30 * time.Second
	cfg.SummaryMaxAttempts = 5

	opts := cfg.JobOptions()
	assert.Equal(t, 30*time.Second, opts.FeedJob.SingletonTTL)
	assert.Equal(t, 300*time.Second, opts.FullTextJob.SingletonTTL)
	assert.Equal(t, 300*time.Second, opts.SummaryJob.SingletonTTL)
	assert.Equal(t, 5, opts.SummaryJob.MaxAttempts)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		assert.Equal(t, DefaultConfig(), LoadConfigFromEnv(nil, nil))
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("REFRESH_SCHEDULE", "*/5 * * * *")
		t.Setenv("WORKER_TIMEZONE", "Europe/Berlin")
		t.Setenv("WORKER_MAX_WORKERS", "4")
		t.Setenv("FEED_SINGLETON_SECONDS", "0")
		t.Setenv("SUMMARY_MAX_ATTEMPTS", "7")
		t.Setenv("WORKER_JOB_TIMEOUT", "90s")

		cfg := LoadConfigFromEnv(nil, nil)
		assert.Equal(t, "*/5 * * * *", cfg.RefreshSchedule)
		assert.Equal(t, "Europe/Berlin", cfg.Timezone)
		assert.Equal(t, 4, cfg.MaxWorkers)
		assert.Zero(t, cfg.FeedSingleton)
		assert.Equal(t, 7, cfg.SummaryMaxAttempts)
		assert.Equal(t, 90*time.Second, cfg.JobTimeout)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		t.Setenv("REFRESH_SCHEDULE", "every minute")
		t.Setenv("WORKER_MAX_WORKERS", "500")
		t.Setenv("FULLTEXT_SINGLETON_SECONDS", "-1")
		metrics := config.NewConfigMetricsWith(prometheus.NewRegistry(), "worker")

		cfg := LoadConfigFromEnv(nil, metrics)
		assert.Equal(t, "* * * * *", cfg.RefreshSchedule)
		assert.Equal(t, 10, cfg.MaxWorkers)
		assert.Equal(t, 300*time.Second, cfg.FullTextSingleton)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("refresh_schedule")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("max_workers")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbackActive))
	})

	t.Run("equal ports fall back to defaults", func(t *testing.T) {
		t.Setenv("WORKER_HEALTH_PORT", "8000")
		t.Setenv("METRICS_PORT", "8000")

		cfg := LoadConfigFromEnv(nil, nil)
		assert.Equal(t, 9091, cfg.HealthPort)
		assert.Equal(t, 9090, cfg.MetricsPort)
	})
}
