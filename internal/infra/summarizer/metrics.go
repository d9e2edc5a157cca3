package summarizer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SummaryMetricsRecorder records per-call summary metrics. Tests inject a
// recorder backed by their own registry.
type SummaryMetricsRecorder interface {
	RecordLength(length int)
	RecordLimitExceeded()
	// RecordCompliance sets the compliance gauge for the latest summary.
	RecordCompliance(withinLimit bool)
	RecordDuration(duration time.Duration)
}

// PrometheusSummaryMetrics implements SummaryMetricsRecorder.
type PrometheusSummaryMetrics struct {
	lengthHistogram   prometheus.Histogram
	exceededCounter   prometheus.Counter
	complianceGauge   prometheus.Gauge
	durationHistogram prometheus.Histogram
}

// NewPrometheusSummaryMetrics registers the summary metrics on reg.
func NewPrometheusSummaryMetrics(reg prometheus.Registerer) *PrometheusSummaryMetrics {
	f := promauto.With(reg)
	return &PrometheusSummaryMetrics{
		lengthHistogram: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "article_summary_length_characters",
			Help:    "Distribution of summary lengths in characters (Unicode runes)",
			Buckets: []float64{100, 300, 500, 700, 900, 1100, 1500, 2000},
		}),
		exceededCounter: f.NewCounter(prometheus.CounterOpts{
			Name: "article_summary_limit_exceeded_total",
			Help: "Total number of summaries exceeding the configured character limit",
		}),
		complianceGauge: f.NewGauge(prometheus.GaugeOpts{
			Name: "article_summary_limit_compliance_ratio",
			Help: "1 when the latest summary was within the character limit, else 0",
		}),
		durationHistogram: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "article_summarization_duration_seconds",
			Help:    "Time taken to generate a summary via AI API",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}

var defaultMetrics = sync.OnceValue(func() *PrometheusSummaryMetrics {
	return NewPrometheusSummaryMetrics(prometheus.DefaultRegisterer)
})

func (p *PrometheusSummaryMetrics) RecordLength(length int) {
	p.lengthHistogram.Observe(float64(length))
}

func (p *PrometheusSummaryMetrics) RecordLimitExceeded() {
	p.exceededCounter.Inc()
}

func (p *PrometheusSummaryMetrics) RecordCompliance(withinLimit bool) {
	if withinLimit {
		p.complianceGauge.Set(1.0)
	} else {
		p.complianceGauge.Set(0.0)
	}
}

func (p *PrometheusSummaryMetrics) RecordDuration(duration time.Duration) {
	p.durationHistogram.Observe(duration.Seconds())
}
