package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rss-reader/internal/domain/job"
	"rss-reader/internal/observability/logging"
	"rss-reader/internal/observability/metrics"
)

// IsFeedDue reports whether a feed should be fetched at now.
// A non-positive interval or a missing last fetch is always due.
func IsFeedDue(lastFetchedAt *time.Time, intervalMinutes int, now time.Time) bool {
	if intervalMinutes <= 0 {
		return true
	}
	if lastFetchedAt == nil || lastFetchedAt.IsZero() {
		return true
	}
	next := lastFetchedAt.Add(time.Duration(intervalMinutes) * time.Minute)
	return !now.Before(next)
}

// RefreshStats summarizes one refresh-all sweep.
type RefreshStats struct {
	Enabled    int
	Selected   int
	Enqueued   int
	Duplicates int
}

// RefreshAll enqueues one fetch-feed job per due enabled feed, or per
// enabled feed when force is set. A duplicate enqueue is counted, not
// failed; any other enqueue error is returned after the sweep so the queue
// retries it.
func (s *Service) RefreshAll(ctx context.Context, force bool) (*RefreshStats, error) {
	logger := logging.FromContext(ctx)

	feeds, err := s.Feeds.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled feeds: %w", err)
	}

	now := s.now()
	stats := &RefreshStats{Enabled: len(feeds)}
	var errs []error

	for _, feed := range feeds {
		if !force && !IsFeedDue(feed.LastFetchedAt, feed.FetchIntervalMinutes, now) {
			continue
		}
		stats.Selected++

		args := job.FetchFeedArgs{FeedID: feed.ID, Force: force}
		switch err := s.Queue.Enqueue(ctx, args, s.Config.FeedJob); {
		case err == nil:
			stats.Enqueued++
			metrics.RecordEnqueue(args.Kind(), false)
		case errors.Is(err, job.ErrAlreadyEnqueued):
			stats.Duplicates++
			metrics.RecordEnqueue(args.Kind(), true)
		default:
			errs = append(errs, fmt.Errorf("enqueue feed %d: %w", feed.ID, err))
		}
	}

	metrics.RecordFeedsScheduled(stats.Enqueued)
	logger.Info("refresh-all completed",
		slog.Bool("force", force),
		slog.Int("enabled", stats.Enabled),
		slog.Int("selected", stats.Selected),
		slog.Int("enqueued", stats.Enqueued),
		slog.Int("duplicates", stats.Duplicates))

	return stats, errors.Join(errs...)
}
