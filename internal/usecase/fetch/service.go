package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rss-reader/internal/domain/job"
	"rss-reader/internal/observability/metrics"
	"rss-reader/internal/repository"
)

// Config holds the enqueue options the service uses for the jobs it creates.
type Config struct {
	FeedJob     job.Options
	FullTextJob job.Options
	SummaryJob  job.Options
}

// DefaultConfig returns the production enqueue options.
func DefaultConfig() Config {
	return Config{
		FeedJob:     job.Options{SingletonTTL: time.Minute, MaxAttempts: 3},
		FullTextJob: job.Options{SingletonTTL: 5 * time.Minute, MaxAttempts: 1},
		SummaryJob:  job.Options{SingletonTTL: 5 * time.Minute, MaxAttempts: 3},
	}
}

// Service orchestrates feed ingestion and article enrichment.
// Summarizer may be nil, which disables AI summaries.
type Service struct {
	Feeds       repository.FeedRepository
	Articles    repository.ArticleRepository
	Guard       URLGuard
	FeedFetcher FeedFetcher
	Parser      FeedParser
	Sanitizer   Sanitizer
	Pages       PageFetcher
	Summarizer  Summarizer
	Queue       JobQueue
	Config      Config

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ErrSummarizerDisabled is returned when a summary is requested without a
// configured summarizer.
var ErrSummarizerDisabled = errors.New("summarizer is not configured")

// RequestFeedRefresh enqueues an on-demand fetch of one feed. It reports
// false without error when an identical job is already enqueued.
func (s *Service) RequestFeedRefresh(ctx context.Context, feedID int64, force bool) (bool, error) {
	return s.enqueue(ctx, job.FetchFeedArgs{FeedID: feedID, Force: force}, s.Config.FeedJob)
}

// RequestRefreshAll enqueues a refresh-all sweep.
func (s *Service) RequestRefreshAll(ctx context.Context, force bool) (bool, error) {
	return s.enqueue(ctx, job.RefreshAllArgs{Force: force}, job.Options{})
}

// RequestFullText enqueues a full-text extraction, debounced per article.
func (s *Service) RequestFullText(ctx context.Context, articleID int64) (bool, error) {
	return s.enqueue(ctx, job.FetchFullTextArgs{ArticleID: articleID}, s.Config.FullTextJob)
}

// RequestSummary enqueues an AI summary, debounced per article and retried
// by the queue on failure.
func (s *Service) RequestSummary(ctx context.Context, articleID int64) (bool, error) {
	if s.Summarizer == nil {
		return false, ErrSummarizerDisabled
	}
	return s.enqueue(ctx, job.SummarizeArticleArgs{ArticleID: articleID}, s.Config.SummaryJob)
}

func (s *Service) enqueue(ctx context.Context, args job.Args, opts job.Options) (bool, error) {
	if err := args.Validate(); err != nil {
		return false, err
	}
	err := s.Queue.Enqueue(ctx, args, opts)
	switch {
	case err == nil:
		metrics.RecordEnqueue(args.Kind(), false)
		return true, nil
	case errors.Is(err, job.ErrAlreadyEnqueued):
		metrics.RecordEnqueue(args.Kind(), true)
		return false, nil
	default:
		return false, fmt.Errorf("enqueue %s: %w", args.Kind(), err)
	}
}
