package entity

import (
	"net/url"
	"strings"
	"time"
)

// Feed is a subscribed RSS or Atom source.
//
// Ingestion mutates only the conditional-fetch cache (ETag, LastModified)
// and the last-fetch bookkeeping; content changes never touch the row.
type Feed struct {
	ID      int64
	URL     string
	Title   string
	SiteURL string
	Enabled bool

	ETag         string
	LastModified string

	// FetchIntervalMinutes of 0 means the feed is always due.
	FetchIntervalMinutes int
	LastFetchedAt        *time.Time
	LastFetchStatus      int
	LastFetchError       string

	CreatedAt time.Time
}

// Validate checks the feed URL and interval.
func (f *Feed) Validate() error {
	if strings.TrimSpace(f.URL) == "" {
		return &ValidationError{Field: "url", Message: "is required"}
	}
	u, err := url.Parse(f.URL)
	if err != nil || u.Host == "" {
		return &ValidationError{Field: "url", Message: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "scheme must be http or https"}
	}
	if f.FetchIntervalMinutes < 0 {
		return &ValidationError{Field: "fetchIntervalMinutes", Message: "must be >= 0"}
	}
	return nil
}

// BaseURL returns the URL relative links in feed content resolve against
// when an item carries no link of its own.
func (f *Feed) BaseURL() string {
	if f.SiteURL != "" {
		return f.SiteURL
	}
	return f.URL
}

// FetchResult is what one ingestion attempt records on the feed row.
// It is written on success and failure alike so cache headers stay fresh.
type FetchResult struct {
	FetchedAt    time.Time
	Status       int // 0 when no response was received
	ETag         string
	LastModified string
	Err          *FetchError // nil on success
}
