package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rss-reader/internal/domain/entity"
	"rss-reader/internal/observability/logging"
	"rss-reader/internal/observability/metrics"
)

// FetchFullText extracts and stores the main content of an article's page.
//
// Every fetch or extraction failure is stored on the article as a short
// error string with the best-known source URL. Only storage errors are
// returned.
func (s *Service) FetchFullText(ctx context.Context, articleID int64) error {
	logger := logging.FromContext(ctx).With(slog.Int64("article_id", articleID))

	art, err := s.Articles.Get(ctx, articleID)
	if err != nil {
		return fmt.Errorf("get article: %w", err)
	}
	if art == nil {
		logger.Warn("article not found")
		metrics.RecordFullTextSkipped()
		return nil
	}
	if art.HasFullText() || art.Link == "" {
		metrics.RecordFullTextSkipped()
		return nil
	}

	start := time.Now()

	if !s.Guard.IsSafeExternalURL(ctx, art.Link) {
		return s.saveFullTextError(ctx, logger, art.ID, &entity.FetchError{Kind: entity.FetchErrorUnsafeURL}, art.Link, start)
	}

	page, err := s.Pages.FetchPage(ctx, art.Link)
	if err != nil {
		source := art.Link
		var se *SourceError
		if errors.As(err, &se) && se.URL != "" {
			source = se.URL
		}
		return s.saveFullTextError(ctx, logger, art.ID, Classify(err), source, start)
	}

	source := firstNonEmpty(page.FinalURL, art.Link)
	clean, ok := s.Sanitizer.Sanitize(page.ContentHTML, source)
	if !ok {
		return s.saveFullTextError(ctx, logger, art.ID, &entity.FetchError{Kind: entity.FetchErrorExtractFailed}, source, start)
	}

	if err := s.Articles.SaveFullText(context.WithoutCancel(ctx), art.ID, clean, source, s.now()); err != nil {
		return fmt.Errorf("save full text: %w", err)
	}
	metrics.RecordFullTextSuccess(time.Since(start), len(clean))
	logger.Info("full text stored",
		slog.String("source_url", source),
		slog.Int("bytes", len(clean)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (s *Service) saveFullTextError(ctx context.Context, logger *slog.Logger, id int64, fe *entity.FetchError, source string, start time.Time) error {
	if err := s.Articles.SaveFullTextError(context.WithoutCancel(ctx), id, fe.String(), source, s.now()); err != nil {
		return fmt.Errorf("save full text error: %w", err)
	}
	metrics.RecordFullTextFailure(fe.Kind.Label(), time.Since(start))
	logger.Warn("full text fetch failed",
		slog.String("source_url", source),
		slog.String("error", fe.String()))
	return nil
}
