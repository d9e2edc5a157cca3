package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rss-reader/internal/domain/entity"
	"rss-reader/internal/repository"
)

type ArticleRepo struct {
	db DBTX
}

func NewArticleRepo(db DBTX) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	const query = `
SELECT id, feed_id, dedupe_key, title, COALESCE(link, ''), COALESCE(author, ''), published_at,
       COALESCE(content_html, ''), COALESCE(preview_image, ''), COALESCE(summary_text, ''),
       COALESCE(fulltext_html, ''), COALESCE(fulltext_error, ''), COALESCE(fulltext_source_url, ''), fulltext_fetched_at,
       is_read, read_at, is_starred, starred_at,
       COALESCE(ai_summary, ''), COALESCE(ai_summary_model, ''), ai_summarized_at,
       created_at
FROM articles
WHERE id = $1
LIMIT 1`
	var a entity.Article
	err := repo.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.FeedID, &a.DedupeKey, &a.Title, &a.Link, &a.Author, &a.PublishedAt,
		&a.ContentHTML, &a.PreviewImage, &a.Summary,
		&a.FullTextHTML, &a.FullTextError, &a.FullTextSourceURL, &a.FullTextFetchedAt,
		&a.IsRead, &a.ReadAt, &a.IsStarred, &a.StarredAt,
		&a.AISummary, &a.AISummaryModel, &a.AISummarizedAt,
		&a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &a, nil
}

// InsertIgnoreDuplicate relies on the UNIQUE (feed_id, dedupe_key)
// constraint; concurrent ingestions of one feed race safely.
func (repo *ArticleRepo) InsertIgnoreDuplicate(ctx context.Context, a *entity.Article) (bool, error) {
	const query = `
INSERT INTO articles (feed_id, dedupe_key, title, link, author, published_at,
                      content_html, preview_image, summary_text)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6,
        NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''))
ON CONFLICT (feed_id, dedupe_key) DO NOTHING
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		a.FeedID, a.DedupeKey, a.Title, a.Link, a.Author, a.PublishedAt,
		a.ContentHTML, a.PreviewImage, a.Summary,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("InsertIgnoreDuplicate: %w", err)
	}
	a.ID = id
	return true, nil
}

func (repo *ArticleRepo) SaveFullText(ctx context.Context, id int64, html, sourceURL string, fetchedAt time.Time) error {
	const query = `
UPDATE articles SET
  fulltext_html       = $2,
  fulltext_source_url = $3,
  fulltext_fetched_at = $4,
  fulltext_error      = NULL
WHERE id = $1`
	return repo.exec(ctx, "SaveFullText", query, id, html, sourceURL, fetchedAt)
}

func (repo *ArticleRepo) SaveFullTextError(ctx context.Context, id int64, errMsg, sourceURL string, fetchedAt time.Time) error {
	const query = `
UPDATE articles SET
  fulltext_error      = $2,
  fulltext_source_url = NULLIF($3, ''),
  fulltext_fetched_at = $4
WHERE id = $1`
	return repo.exec(ctx, "SaveFullTextError", query, id, errMsg, sourceURL, fetchedAt)
}

func (repo *ArticleRepo) SaveSummary(ctx context.Context, id int64, summary, model string, summarizedAt time.Time) error {
	const query = `
UPDATE articles SET
  ai_summary       = $2,
  ai_summary_model = $3,
  ai_summarized_at = $4
WHERE id = $1`
	return repo.exec(ctx, "SaveSummary", query, id, summary, model, summarizedAt)
}

func (repo *ArticleRepo) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: RowsAffected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrNotFound)
	}
	return nil
}
