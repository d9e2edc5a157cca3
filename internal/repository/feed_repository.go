package repository

import (
	"context"

	"rss-reader/internal/domain/entity"
)

type FeedRepository interface {
	// Get returns (nil, nil) when the feed does not exist.
	Get(ctx context.Context, id int64) (*entity.Feed, error)
	ListEnabled(ctx context.Context) ([]*entity.Feed, error)
	// CreateIfAbsent inserts the feed unless its URL is already subscribed.
	// It reports whether a row was created and sets feed.ID when it was.
	CreateIfAbsent(ctx context.Context, feed *entity.Feed) (bool, error)
	// RecordFetchResult stores the cache headers, status, error and
	// timestamp of one fetch attempt.
	RecordFetchResult(ctx context.Context, id int64, result entity.FetchResult) error
	// UpdateMetadata fills title and site URL discovered from the feed document.
	UpdateMetadata(ctx context.Context, id int64, title, siteURL string) error
}
