package repository

import (
	"context"
	"time"

	"rss-reader/internal/domain/entity"
)

type ArticleRepository interface {
	// Get returns (nil, nil) when the article does not exist.
	Get(ctx context.Context, id int64) (*entity.Article, error)
	// InsertIgnoreDuplicate inserts the article unless (feed_id, dedupe_key)
	// already exists. It is a single conditional insert, never an upsert:
	// an existing row, including its read/starred state, is left untouched.
	// It reports whether a new row was created and sets article.ID when it was.
	InsertIgnoreDuplicate(ctx context.Context, article *entity.Article) (bool, error)
	// SaveFullText stores extracted HTML and clears any previous error.
	SaveFullText(ctx context.Context, id int64, html, sourceURL string, fetchedAt time.Time) error
	// SaveFullTextError stores a short error string and the best-known source URL.
	SaveFullTextError(ctx context.Context, id int64, errMsg, sourceURL string, fetchedAt time.Time) error
	SaveSummary(ctx context.Context, id int64, summary, model string, summarizedAt time.Time) error
}
