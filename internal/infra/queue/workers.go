package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"go.opentelemetry.io/otel/attribute"

	"rss-reader/internal/domain/job"
	"rss-reader/internal/infra/worker"
	"rss-reader/internal/observability/logging"
	"rss-reader/internal/observability/tracing"
	"rss-reader/internal/usecase/fetch"
)

// Service is what the job workers drive. *fetch.Service implements it.
type Service interface {
	RefreshAll(ctx context.Context, force bool) (*fetch.RefreshStats, error)
	IngestFeed(ctx context.Context, feedID int64, force bool) (*fetch.IngestResult, error)
	FetchFullText(ctx context.Context, articleID int64) error
	SummarizeArticle(ctx context.Context, articleID int64) error
}

// Metrics receives one observation per finished job.
type Metrics interface {
	ObserveJob(kind, status string, d time.Duration)
	RecordFeedsEnqueued(n int)
}

// Deps are shared by all workers.
type Deps struct {
	Service Service
	Logger  *slog.Logger
	Metrics Metrics

	// FeedTimeout caps one fetch-feed run. Zero keeps River's default.
	FeedTimeout time.Duration
}

// run validates the payload, attaches the job logger and span, and records
// the outcome. Invalid payloads are cancelled so they are never retried.
func run[T job.Args](ctx context.Context, d *Deps, j *river.Job[T], fn func(context.Context, T) error, attrs ...attribute.KeyValue) error {
	kind := j.Args.Kind()
	logger := logging.ForJob(d.Logger, j.ID, kind, j.Attempt)
	ctx = logging.WithLogger(ctx, logger)
	ctx, span := tracing.StartJobSpan(ctx, kind, j.ID, j.Attempt, attrs...)
	start := time.Now()

	if err := j.Args.Validate(); err != nil {
		logger.Warn("invalid job payload, cancelling", slog.Any("error", err))
		d.observe(kind, worker.StatusCancelled, time.Since(start))
		tracing.EndSpan(span, err)
		return river.JobCancel(err)
	}

	err := fn(ctx, j.Args)
	duration := time.Since(start)
	tracing.EndSpan(span, err)

	if err != nil {
		d.observe(kind, worker.StatusFailure, duration)
		level := slog.LevelWarn
		if j.Attempt >= j.MaxAttempts {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "job failed",
			slog.Int("max_attempts", j.MaxAttempts),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return err
	}

	d.observe(kind, worker.StatusSuccess, duration)
	logger.Debug("job completed", slog.Duration("duration", duration))
	return nil
}

func (d *Deps) observe(kind, status string, dur time.Duration) {
	if d.Metrics != nil {
		d.Metrics.ObserveJob(kind, status, dur)
	}
}

// RefreshAllWorker runs the due-feed sweep.
type RefreshAllWorker struct {
	river.WorkerDefaults[job.RefreshAllArgs]
	deps *Deps
}

func (w *RefreshAllWorker) Work(ctx context.Context, j *river.Job[job.RefreshAllArgs]) error {
	return run(ctx, w.deps, j, func(ctx context.Context, args job.RefreshAllArgs) error {
		stats, err := w.deps.Service.RefreshAll(ctx, args.Force)
		if stats != nil && w.deps.Metrics != nil {
			w.deps.Metrics.RecordFeedsEnqueued(stats.Enqueued)
		}
		return err
	})
}

// FetchFeedWorker ingests one feed.
type FetchFeedWorker struct {
	river.WorkerDefaults[job.FetchFeedArgs]
	deps *Deps
}

func (w *FetchFeedWorker) Timeout(*river.Job[job.FetchFeedArgs]) time.Duration {
	return w.deps.FeedTimeout
}

func (w *FetchFeedWorker) Work(ctx context.Context, j *river.Job[job.FetchFeedArgs]) error {
	return run(ctx, w.deps, j, func(ctx context.Context, args job.FetchFeedArgs) error {
		res, err := w.deps.Service.IngestFeed(ctx, args.FeedID, args.Force)
		if err != nil {
			return err
		}
		logging.FromContext(ctx).Debug("feed processed",
			slog.String("outcome", string(res.Outcome)),
			slog.Int("inserted", res.Inserted))
		return nil
	}, attribute.Int64("feed.id", j.Args.FeedID))
}

// FetchFullTextWorker extracts the readable text of one article.
type FetchFullTextWorker struct {
	river.WorkerDefaults[job.FetchFullTextArgs]
	deps *Deps
}

func (w *FetchFullTextWorker) Work(ctx context.Context, j *river.Job[job.FetchFullTextArgs]) error {
	return run(ctx, w.deps, j, func(ctx context.Context, args job.FetchFullTextArgs) error {
		return w.deps.Service.FetchFullText(ctx, args.ArticleID)
	}, attribute.Int64("article.id", j.Args.ArticleID))
}

// SummarizeWorker stores an AI summary of one article.
type SummarizeWorker struct {
	river.WorkerDefaults[job.SummarizeArticleArgs]
	deps *Deps
}

func (w *SummarizeWorker) Work(ctx context.Context, j *river.Job[job.SummarizeArticleArgs]) error {
	return run(ctx, w.deps, j, func(ctx context.Context, args job.SummarizeArticleArgs) error {
		return w.deps.Service.SummarizeArticle(ctx, args.ArticleID)
	}, attribute.Int64("article.id", j.Args.ArticleID))
}

// NewWorkers registers the job workers. The summary worker is only
// registered when summaries are enabled.
func NewWorkers(d *Deps, summaries bool) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, &RefreshAllWorker{deps: d})
	river.AddWorker(workers, &FetchFeedWorker{deps: d})
	river.AddWorker(workers, &FetchFullTextWorker{deps: d})
	if summaries {
		river.AddWorker(workers, &SummarizeWorker{deps: d})
	}
	return workers
}
