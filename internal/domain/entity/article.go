// Package entity defines the core domain entities of the feed reader.
// It contains Feed and Article, the closed FetchError taxonomy stored on
// them after failed fetches, and domain-specific errors.
package entity

import (
	"net/url"
	"strings"
	"time"
)

// Article is one stored feed entry. It is created once by ingestion and
// later mutated only by user actions (read/star) and enrichment jobs
// (full text, AI summary).
type Article struct {
	ID          int64
	FeedID      int64
	DedupeKey   string
	Title       string
	Link        string
	Author      string
	PublishedAt time.Time

	// ContentHTML is the sanitized content delivered by the feed itself.
	ContentHTML  string
	PreviewImage string
	Summary      string

	FullTextHTML      string
	FullTextError     string
	FullTextSourceURL string
	FullTextFetchedAt *time.Time

	IsRead    bool
	ReadAt    *time.Time
	IsStarred bool
	StarredAt *time.Time

	AISummary      string
	AISummaryModel string
	AISummarizedAt *time.Time

	CreatedAt time.Time
}

// HasFullText reports whether a full-text extraction is already stored.
func (a *Article) HasFullText() bool {
	return strings.TrimSpace(a.FullTextHTML) != ""
}

// HasAISummary reports whether an AI summary is already stored.
func (a *Article) HasAISummary() bool {
	return strings.TrimSpace(a.AISummary) != ""
}

// SummarySource returns the best HTML to summarize: the full text when
// present, otherwise the feed-provided content.
func (a *Article) SummarySource() string {
	if a.HasFullText() {
		return a.FullTextHTML
	}
	return a.ContentHTML
}

// Validate checks the fields ingestion must always populate.
func (a *Article) Validate() error {
	if a.FeedID <= 0 {
		return &ValidationError{Field: "feedID", Message: "must be positive"}
	}
	if strings.TrimSpace(a.DedupeKey) == "" {
		return &ValidationError{Field: "dedupeKey", Message: "is required"}
	}
	if a.PublishedAt.IsZero() {
		return &ValidationError{Field: "publishedAt", Message: "is required"}
	}
	if a.Link != "" && !isWebURL(a.Link) {
		return &ValidationError{Field: "link", Message: "must be an absolute http(s) URL"}
	}
	if a.PreviewImage != "" && !isWebURL(a.PreviewImage) {
		return &ValidationError{Field: "previewImage", Message: "must be an absolute http(s) URL"}
	}
	return nil
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
