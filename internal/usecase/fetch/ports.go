package fetch

import (
	"context"
	"time"

	"rss-reader/internal/domain/job"
)

// URLGuard decides whether a URL is safe to fetch server-side.
type URLGuard interface {
	IsSafeExternalURL(ctx context.Context, rawURL string) bool
}

// FetchOptions carries conditional-request state and per-call overrides.
// Zero Timeout or UserAgent leave the fetcher's defaults in place.
type FetchOptions struct {
	ETag         string
	LastModified string
	Timeout      time.Duration
	UserAgent    string
}

// FeedResponse is the outcome of a feed request that received a response.
// XML is nil for 304 Not Modified and for non-2xx statuses.
type FeedResponse struct {
	Status       int
	XML          []byte
	ETag         string
	LastModified string
	URL          string // candidate that answered
}

// FeedFetcher performs the conditional GET of a feed document. A non-2xx
// status is a response, not an error; errors mean no candidate answered.
type FeedFetcher interface {
	FetchFeedXML(ctx context.Context, rawURL string, opts FetchOptions) (*FeedResponse, error)
}

// ParsedFeed is a normalized RSS or Atom document.
type ParsedFeed struct {
	Title string
	Link  string
	Items []ParsedItem
}

// ParsedItem is one normalized entry. It is never persisted as-is.
type ParsedItem struct {
	Title        string
	Link         string
	GUID         string
	Author       string
	PublishedAt  time.Time // fetch time when the entry carries no usable date
	Dated        bool      // false when PublishedAt is the fetch-time fallback
	ContentHTML  string
	PreviewImage string
	Summary      string
}

// FeedParser turns a feed document into a ParsedFeed.
type FeedParser interface {
	Parse(xml []byte, fetchedAt time.Time, fetchURL string) (*ParsedFeed, error)
}

// Sanitizer cleans untrusted HTML. ok is false when nothing remains.
type Sanitizer interface {
	Sanitize(html, baseURL string) (clean string, ok bool)
	PlainText(html string) string
}

// Page is the extracted main content of an article page.
type Page struct {
	ContentHTML string
	FinalURL    string
}

// PageFetcher downloads an article page and extracts its main content.
// Errors after the first request may be wrapped in *SourceError.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (*Page, error)
}

// Summarizer produces an AI summary of plain text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	Model() string
}

// JobQueue enqueues background jobs. Enqueue returns job.ErrAlreadyEnqueued
// when opts.SingletonTTL debounced the call.
type JobQueue interface {
	Enqueue(ctx context.Context, args job.Args, opts job.Options) error
}
