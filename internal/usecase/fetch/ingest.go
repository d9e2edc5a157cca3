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

// IngestOutcome is the terminal state of one ingestion run.
type IngestOutcome string

const (
	OutcomeNotFound    IngestOutcome = "not_found"
	OutcomeDisabled    IngestOutcome = "disabled"
	OutcomeNotDue      IngestOutcome = "not_due"
	OutcomeNotModified IngestOutcome = "not_modified"
	OutcomeFailed      IngestOutcome = "failed"
	OutcomeIngested    IngestOutcome = "ingested"
)

// IngestResult describes one ingestion run.
type IngestResult struct {
	Outcome    IngestOutcome
	Status     int
	Items      int
	Inserted   int
	Duplicates int
	Invalid    int // items skipped because they failed validation
	Err        *entity.FetchError
}

// IngestFeed fetches, parses and stores one feed.
//
// Fetch, guard and parse failures are recorded on the feed row and reported
// in the result; they are not returned. Only storage failures are returned,
// so the queue can retry them.
func (s *Service) IngestFeed(ctx context.Context, feedID int64, force bool) (*IngestResult, error) {
	logger := logging.FromContext(ctx).With(slog.Int64("feed_id", feedID))
	start := time.Now()

	feed, err := s.Feeds.Get(ctx, feedID)
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	switch {
	case feed == nil:
		logger.Warn("feed not found")
		return &IngestResult{Outcome: OutcomeNotFound}, nil
	case !feed.Enabled:
		metrics.RecordFeedFetch(metrics.FeedResultSkipped, "", 0)
		return &IngestResult{Outcome: OutcomeDisabled}, nil
	case !force && !IsFeedDue(feed.LastFetchedAt, feed.FetchIntervalMinutes, s.now()):
		metrics.RecordFeedFetch(metrics.FeedResultSkipped, "", 0)
		return &IngestResult{Outcome: OutcomeNotDue}, nil
	}

	fetchedAt := s.now()
	record := entity.FetchResult{
		FetchedAt:    fetchedAt,
		ETag:         feed.ETag,
		LastModified: feed.LastModified,
	}

	if !s.Guard.IsSafeExternalURL(ctx, feed.URL) {
		record.Err = &entity.FetchError{Kind: entity.FetchErrorUnsafeURL}
		return s.finishFailed(ctx, logger, feed, record, start)
	}

	resp, err := s.FeedFetcher.FetchFeedXML(ctx, feed.URL, FetchOptions{
		ETag:         feed.ETag,
		LastModified: feed.LastModified,
	})
	if err != nil {
		record.Err = Classify(err)
		return s.finishFailed(ctx, logger, feed, record, start)
	}

	record.Status = resp.Status
	if resp.ETag != "" {
		record.ETag = resp.ETag
	}
	if resp.LastModified != "" {
		record.LastModified = resp.LastModified
	}

	if resp.Status == 304 {
		if err := s.recordFetch(ctx, feed.ID, record); err != nil {
			return nil, err
		}
		metrics.RecordFeedFetch(metrics.FeedResultNotModified, "", time.Since(start))
		logger.Debug("feed not modified")
		return &IngestResult{Outcome: OutcomeNotModified, Status: resp.Status}, nil
	}
	if resp.Status < 200 || resp.Status > 299 {
		record.Err = entity.NewHTTPStatusError(resp.Status)
		return s.finishFailed(ctx, logger, feed, record, start)
	}

	parsed, err := s.Parser.Parse(resp.XML, fetchedAt, feed.URL)
	if err != nil {
		record.Err = Classify(err)
		return s.finishFailed(ctx, logger, feed, record, start)
	}

	if feed.Title == "" && parsed.Title != "" {
		if err := s.Feeds.UpdateMetadata(ctx, feed.ID, parsed.Title, parsed.Link); err != nil {
			return nil, fmt.Errorf("update feed metadata: %w", err)
		}
	}

	result := &IngestResult{Outcome: OutcomeIngested, Status: resp.Status, Items: len(parsed.Items)}
	for i := range parsed.Items {
		inserted, err := s.storeItem(ctx, feed, parsed, &parsed.Items[i], fetchedAt)
		var invalid *entity.ValidationError
		if errors.As(err, &invalid) {
			result.Invalid++
			logger.Warn("skipping invalid item",
				slog.String("title", parsed.Items[i].Title),
				slog.String("error", invalid.Error()))
			continue
		}
		if err != nil {
			return nil, err
		}
		if inserted {
			result.Inserted++
		} else {
			result.Duplicates++
		}
	}

	if err := s.recordFetch(ctx, feed.ID, record); err != nil {
		return nil, err
	}

	metrics.RecordFeedFetch(metrics.FeedResultOK, "", time.Since(start))
	metrics.RecordArticlesIngested(result.Inserted, result.Duplicates)
	logger.Info("feed ingested",
		slog.Int("status", resp.Status),
		slog.Int("items", result.Items),
		slog.Int("inserted", result.Inserted),
		slog.Int("duplicates", result.Duplicates),
		slog.Int("invalid", result.Invalid),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

// storeItem inserts one parsed item unless its dedupe key already exists.
// Items failing Article.Validate return the *entity.ValidationError.
func (s *Service) storeItem(ctx context.Context, feed *entity.Feed, parsed *ParsedFeed, item *ParsedItem, fetchedAt time.Time) (bool, error) {
	base := firstNonEmpty(item.Link, parsed.Link, feed.BaseURL())
	content, _ := s.Sanitizer.Sanitize(item.ContentHTML, base)

	key := DedupeInput{GUID: item.GUID, Link: item.Link, Title: item.Title}
	if item.Dated {
		key.PublishedAt = item.PublishedAt
	}
	published := item.PublishedAt
	if published.IsZero() {
		published = fetchedAt
	}

	art := &entity.Article{
		FeedID:       feed.ID,
		DedupeKey:    BuildDedupeKey(key),
		Title:        item.Title,
		Link:         item.Link,
		Author:       item.Author,
		PublishedAt:  published,
		ContentHTML:  content,
		PreviewImage: item.PreviewImage,
		Summary:      item.Summary,
	}
	if err := art.Validate(); err != nil {
		return false, err
	}

	inserted, err := s.Articles.InsertIgnoreDuplicate(ctx, art)
	if err != nil {
		return false, fmt.Errorf("insert article %q: %w", art.DedupeKey, err)
	}
	return inserted, nil
}

func (s *Service) finishFailed(ctx context.Context, logger *slog.Logger, feed *entity.Feed, record entity.FetchResult, start time.Time) (*IngestResult, error) {
	if err := s.recordFetch(ctx, feed.ID, record); err != nil {
		return nil, err
	}
	metrics.RecordFeedFetch(metrics.FeedResultError, record.Err.Kind.Label(), time.Since(start))
	logger.Warn("feed fetch failed",
		slog.String("url", feed.URL),
		slog.Int("status", record.Status),
		slog.String("error", record.Err.String()))
	return &IngestResult{Outcome: OutcomeFailed, Status: record.Status, Err: record.Err}, nil
}

// recordFetch outlives job cancellation so a finished fetch is never lost.
func (s *Service) recordFetch(ctx context.Context, feedID int64, record entity.FetchResult) error {
	if err := s.Feeds.RecordFetchResult(context.WithoutCancel(ctx), feedID, record); err != nil {
		return fmt.Errorf("record fetch result: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
