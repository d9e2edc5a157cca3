package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rss-reader/internal/domain/entity"
	"rss-reader/internal/repository"
)

type FeedRepo struct {
	db DBTX
}

func NewFeedRepo(db DBTX) repository.FeedRepository {
	return &FeedRepo{db: db}
}

const feedColumns = `
id, url, title, site_url, enabled,
COALESCE(etag, ''), COALESCE(last_modified, ''),
fetch_interval_minutes, last_fetched_at,
COALESCE(last_fetch_status, 0), COALESCE(last_fetch_error, ''),
created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*entity.Feed, error) {
	var feed entity.Feed
	if err := row.Scan(
		&feed.ID, &feed.URL, &feed.Title, &feed.SiteURL, &feed.Enabled,
		&feed.ETag, &feed.LastModified,
		&feed.FetchIntervalMinutes, &feed.LastFetchedAt,
		&feed.LastFetchStatus, &feed.LastFetchError,
		&feed.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &feed, nil
}

func (repo *FeedRepo) Get(ctx context.Context, id int64) (*entity.Feed, error) {
	query := `SELECT` + feedColumns + `
FROM feeds
WHERE id = $1
LIMIT 1`
	feed, err := scanFeed(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return feed, nil
}

func (repo *FeedRepo) ListEnabled(ctx context.Context) ([]*entity.Feed, error) {
	query := `SELECT` + feedColumns + `
FROM feeds
WHERE enabled = TRUE
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListEnabled: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 32)
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("ListEnabled: Scan: %w", err)
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

func (repo *FeedRepo) CreateIfAbsent(ctx context.Context, feed *entity.Feed) (bool, error) {
	const query = `
INSERT INTO feeds (url, title, site_url, enabled, fetch_interval_minutes)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (url) DO NOTHING
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		feed.URL, feed.Title, feed.SiteURL, feed.Enabled, feed.FetchIntervalMinutes,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("CreateIfAbsent: %w", err)
	}
	feed.ID = id
	return true, nil
}

func (repo *FeedRepo) RecordFetchResult(ctx context.Context, id int64, result entity.FetchResult) error {
	const query = `
UPDATE feeds SET
  etag              = NULLIF($2, ''),
  last_modified     = NULLIF($3, ''),
  last_fetched_at   = $4,
  last_fetch_status = $5,
  last_fetch_error  = $6
WHERE id = $1`
	var errMsg sql.NullString
	if result.Err != nil {
		errMsg = sql.NullString{String: result.Err.String(), Valid: true}
	}
	res, err := repo.db.ExecContext(ctx, query,
		id, result.ETag, result.LastModified, result.FetchedAt, result.Status, errMsg)
	if err != nil {
		return fmt.Errorf("RecordFetchResult: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("RecordFetchResult: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("RecordFetchResult: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *FeedRepo) UpdateMetadata(ctx context.Context, id int64, title, siteURL string) error {
	// only blank columns are filled; user-edited titles win
	const query = `
UPDATE feeds SET
  title    = CASE WHEN title = '' THEN $2 ELSE title END,
  site_url = CASE WHEN site_url = '' THEN $3 ELSE site_url END
WHERE id = $1`
	if _, err := repo.db.ExecContext(ctx, query, id, title, siteURL); err != nil {
		return fmt.Errorf("UpdateMetadata: %w", err)
	}
	return nil
}
