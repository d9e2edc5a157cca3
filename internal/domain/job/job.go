// Package job defines the payloads of the background jobs the worker runs.
//
// Each payload is a typed struct with a stable Kind and a Validate method
// that is called once when a job is picked up. The queue serializes
// payloads as JSON.
package job

import (
	"errors"
	"time"

	"rss-reader/internal/domain/entity"
)

// Job kinds.
const (
	KindRefreshAll       = "refresh-all"
	KindFetchFeed        = "fetch-feed"
	KindFetchFullText    = "fetch-fulltext"
	KindSummarizeArticle = "summarize-article"
)

// ErrAlreadyEnqueued is returned by a queue when an equivalent job is still
// inside its singleton window. Callers treat it as a soft no-op.
var ErrAlreadyEnqueued = errors.New("job already enqueued")

// Args is implemented by every job payload.
type Args interface {
	Kind() string
	Validate() error
}

// Options control one enqueue call.
type Options struct {
	// SingletonTTL rejects an identical payload enqueued again within the
	// window. Zero disables debouncing.
	SingletonTTL time.Duration
	// MaxAttempts bounds queue-level retries. Zero uses the queue default.
	MaxAttempts int
}

// RefreshAllArgs triggers the due-feed sweep.
type RefreshAllArgs struct {
	Force bool `json:"force,omitempty"`
}

func (RefreshAllArgs) Kind() string    { return KindRefreshAll }
func (RefreshAllArgs) Validate() error { return nil }

// FetchFeedArgs ingests one feed. Force is omitted from the payload when
// false so repeated sweeps produce identical jobs.
type FetchFeedArgs struct {
	FeedID int64 `json:"feed_id"`
	Force  bool  `json:"force,omitempty"`
}

func (FetchFeedArgs) Kind() string { return KindFetchFeed }

func (a FetchFeedArgs) Validate() error {
	if a.FeedID <= 0 {
		return &entity.ValidationError{Field: "feed_id", Message: "must be positive"}
	}
	return nil
}

// FetchFullTextArgs extracts the full text of one article.
type FetchFullTextArgs struct {
	ArticleID int64 `json:"article_id"`
}

func (FetchFullTextArgs) Kind() string { return KindFetchFullText }

func (a FetchFullTextArgs) Validate() error {
	if a.ArticleID <= 0 {
		return &entity.ValidationError{Field: "article_id", Message: "must be positive"}
	}
	return nil
}

// SummarizeArticleArgs produces an AI summary of one article.
type SummarizeArticleArgs struct {
	ArticleID int64 `json:"article_id"`
}

func (SummarizeArticleArgs) Kind() string { return KindSummarizeArticle }

func (a SummarizeArticleArgs) Validate() error {
	if a.ArticleID <= 0 {
		return &entity.ValidationError{Field: "article_id", Message: "must be positive"}
	}
	return nil
}
