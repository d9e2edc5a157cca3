package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rss-reader/internal/observability/logging"
	"rss-reader/internal/observability/metrics"
)

// SummarizeArticle stores an AI summary of the article's full text, or of
// its feed content when no full text exists. Summarizer errors are
// returned so the queue retries the job.
func (s *Service) SummarizeArticle(ctx context.Context, articleID int64) error {
	if s.Summarizer == nil {
		return ErrSummarizerDisabled
	}
	logger := logging.FromContext(ctx).With(slog.Int64("article_id", articleID))

	art, err := s.Articles.Get(ctx, articleID)
	if err != nil {
		return fmt.Errorf("get article: %w", err)
	}
	if art == nil {
		logger.Warn("article not found")
		return nil
	}
	if art.HasAISummary() {
		return nil
	}

	text := s.Sanitizer.PlainText(art.SummarySource())
	if text == "" {
		logger.Info("article has no text to summarize")
		return nil
	}

	start := time.Now()
	summary, err := s.Summarizer.Summarize(ctx, text)
	if err != nil {
		metrics.RecordArticleSummarized(false, time.Since(start))
		return fmt.Errorf("summarize article %d: %w", art.ID, err)
	}
	metrics.RecordArticleSummarized(true, time.Since(start))

	if err := s.Articles.SaveSummary(context.WithoutCancel(ctx), art.ID, summary, s.Summarizer.Model(), s.now()); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	logger.Info("summary stored",
		slog.String("model", s.Summarizer.Model()),
		slog.Duration("duration", time.Since(start)))
	return nil
}
