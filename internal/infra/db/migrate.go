package db

import (
	"context"
	"database/sql"
)

// MigrateUp creates the feeds and articles schema. Every statement is
// idempotent so it is safe to run on each deploy.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS feeds (
    id                     BIGSERIAL PRIMARY KEY,
    url                    TEXT NOT NULL UNIQUE,
    title                  TEXT NOT NULL DEFAULT '',
    site_url               TEXT NOT NULL DEFAULT '',
    enabled                BOOLEAN NOT NULL DEFAULT TRUE,
    etag                   TEXT,
    last_modified          TEXT,
    fetch_interval_minutes INTEGER NOT NULL DEFAULT 0 CHECK (fetch_interval_minutes >= 0),
    last_fetched_at        TIMESTAMPTZ,
    last_fetch_status      INTEGER,
    last_fetch_error       TEXT,
    created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS articles (
    id                  BIGSERIAL PRIMARY KEY,
    feed_id             BIGINT NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    dedupe_key          TEXT NOT NULL,
    title               TEXT NOT NULL DEFAULT '',
    link                TEXT,
    author              TEXT,
    published_at        TIMESTAMPTZ NOT NULL,
    content_html        TEXT,
    preview_image       TEXT,
    summary_text        TEXT,
    fulltext_html       TEXT,
    fulltext_error      TEXT,
    fulltext_source_url TEXT,
    fulltext_fetched_at TIMESTAMPTZ,
    is_read             BOOLEAN NOT NULL DEFAULT FALSE,
    read_at             TIMESTAMPTZ,
    is_starred          BOOLEAN NOT NULL DEFAULT FALSE,
    starred_at          TIMESTAMPTZ,
    ai_summary          TEXT,
    ai_summary_model    TEXT,
    ai_summarized_at    TIMESTAMPTZ,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (feed_id, dedupe_key)
)`); err != nil {
		return err
	}

	indexes := []string{
		// article lists are ordered by recency
		`CREATE INDEX IF NOT EXISTS idx_articles_feed_published ON articles(feed_id, published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_starred ON articles(starred_at DESC) WHERE is_starred`,
		// refresh-all only scans enabled feeds
		`CREATE INDEX IF NOT EXISTS idx_feeds_enabled ON feeds(id) WHERE enabled`,
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the schema created by MigrateUp.
// Use with caution: this deletes every feed and article.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS articles CASCADE`,
		`DROP TABLE IF EXISTS feeds CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
