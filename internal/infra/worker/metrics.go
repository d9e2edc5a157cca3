package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rss-reader/internal/domain/job"
	"rss-reader/internal/pkg/config"
)

// Job run outcomes.
const (
	StatusSuccess   = "success"
	StatusFailure   = "failure"
	StatusCancelled = "cancelled"
)

// WorkerMetrics embeds the worker's ConfigMetrics and adds job metrics:
//   - worker_job_runs_total{kind,status}
//   - worker_job_duration_seconds{kind}
//   - worker_refresh_last_success_timestamp
//   - worker_refresh_feeds_enqueued_total
type WorkerMetrics struct {
	*config.ConfigMetrics

	JobRunsTotal                *prometheus.CounterVec
	JobDurationSeconds          *prometheus.HistogramVec
	RefreshLastSuccessTimestamp prometheus.Gauge
	RefreshFeedsEnqueuedTotal   prometheus.Counter
}

// NewWorkerMetrics registers the worker metrics with reg.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	f := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetricsWith(reg, "worker"),

		JobRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_job_runs_total",
			Help: "Total number of job runs by kind and status",
		}, []string{"kind", "status"}),

		JobDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"kind"}),

		RefreshLastSuccessTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "worker_refresh_last_success_timestamp",
			Help: "Unix timestamp of the last successful refresh-all run",
		}),

		RefreshFeedsEnqueuedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "worker_refresh_feeds_enqueued_total",
			Help: "Total number of fetch-feed jobs enqueued by refresh-all",
		}),
	}
}

// ObserveJob records one finished job run.
func (m *WorkerMetrics) ObserveJob(kind, status string, d time.Duration) {
	m.JobRunsTotal.WithLabelValues(kind, status).Inc()
	m.JobDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
	if kind == job.KindRefreshAll && status == StatusSuccess {
		m.RefreshLastSuccessTimestamp.SetToCurrentTime()
	}
}

// RecordFeedsEnqueued adds the feeds a refresh-all run put on the queue.
func (m *WorkerMetrics) RecordFeedsEnqueued(n int) {
	m.RefreshFeedsEnqueuedTotal.Add(float64(n))
}
