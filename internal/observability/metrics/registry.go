package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Feed ingestion
var (
	// FeedFetchTotal counts ingestion attempts by result:
	// ok, not_modified, skipped, error.
	FeedFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetch_total",
			Help: "Total number of feed ingestion attempts by result",
		},
		[]string{"result"},
	)

	// FeedFetchErrors counts failed ingestions by error kind.
	FeedFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetch_errors_total",
			Help: "Total number of feed fetch errors by kind",
		},
		[]string{"kind"},
	)

	FeedFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_fetch_duration_seconds",
			Help:    "Time taken to fetch, parse and store one feed",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	// ArticlesIngestedTotal counts parsed items by outcome: inserted, duplicate.
	ArticlesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_ingested_total",
			Help: "Total number of feed items processed by outcome",
		},
		[]string{"outcome"},
	)

	// FeedsScheduledTotal counts fetch-feed jobs enqueued by refresh-all.
	FeedsScheduledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feeds_scheduled_total",
			Help: "Total number of feeds selected by refresh-all",
		},
	)
)

// Full-text extraction
var (
	// FullTextFetchTotal counts full-text jobs by result: success, error, skipped.
	FullTextFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulltext_fetch_total",
			Help: "Total number of full-text fetch attempts by result",
		},
		[]string{"result"},
	)

	FullTextFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulltext_fetch_errors_total",
			Help: "Total number of full-text fetch errors by kind",
		},
		[]string{"kind"},
	)

	FullTextFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fulltext_fetch_duration_seconds",
			Help:    "Time taken to fetch and extract article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// FullTextSize measures sanitized extracted HTML in bytes.
	FullTextSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fulltext_size_bytes",
			Help:    "Sanitized full-text HTML size in bytes",
			Buckets: prometheus.ExponentialBuckets(512, 2, 13), // up to 2 MiB
		},
	)
)

// AI summaries
var (
	ArticlesSummarizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_summarized_total",
			Help: "Total number of articles summarized by status",
		},
		[]string{"status"},
	)

	SummarizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summarization_duration_seconds",
			Help:    "Time taken to summarize an article",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)

// Queue
var (
	// JobsEnqueuedTotal counts enqueue calls by kind and result: enqueued, duplicate.
	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of job enqueue attempts by kind and result",
		},
		[]string{"kind", "result"},
	)
)
