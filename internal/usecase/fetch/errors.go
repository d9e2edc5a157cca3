// Package fetch implements feed ingestion: due-feed scheduling, conditional
// fetching, parsing, sanitizing and idempotent article insertion, plus the
// full-text and AI-summary enrichment jobs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"

	"rss-reader/internal/domain/entity"
)

// Sentinel errors returned by the fetch adapters. Classify maps them to the
// stored entity.FetchError taxonomy.
var (
	// ErrInvalidURL indicates the URL does not parse or is not http(s).
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrUnsafeURL indicates the SSRF guard rejected the URL, either before
	// the request or after following redirects.
	ErrUnsafeURL = errors.New("unsafe URL")

	// ErrTooManyRedirects indicates the redirect chain exceeded the configured maximum.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the byte cap.
	// Partial data is discarded.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates the request was aborted by its timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrNotHTML indicates a full-text target served a non-HTML content type.
	ErrNotHTML = errors.New("response is not HTML")

	// ErrReadabilityFailed indicates main-content extraction found nothing usable.
	ErrReadabilityFailed = errors.New("content extraction failed")

	// ErrParse indicates the feed document is neither valid RSS nor Atom.
	ErrParse = errors.New("feed parse failed")
)

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Status)
}

// ParseError wraps a parser failure with its message.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%v: %v", ErrParse, e.Err) }
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// SourceError carries the last URL reached before a page fetch failed, so
// the full-text job can record the best-known source.
type SourceError struct {
	URL string
	Err error
}

func (e *SourceError) Error() string { return e.Err.Error() }
func (e *SourceError) Unwrap() error { return e.Err }

// Classify maps an adapter error to the stored error taxonomy.
func Classify(err error) *entity.FetchError {
	var fe *entity.FetchError
	if errors.As(err, &fe) {
		return fe
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return entity.NewHTTPStatusError(statusErr.Status)
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return &entity.FetchError{Kind: entity.FetchErrorParseFailed, Msg: parseErr.Err.Error()}
	}

	var netErr net.Error
	switch {
	case errors.Is(err, ErrUnsafeURL), errors.Is(err, ErrInvalidURL):
		return &entity.FetchError{Kind: entity.FetchErrorUnsafeURL}
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return &entity.FetchError{Kind: entity.FetchErrorTimeout}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &entity.FetchError{Kind: entity.FetchErrorTimeout}
	case errors.Is(err, ErrBodyTooLarge):
		return &entity.FetchError{Kind: entity.FetchErrorTooLarge}
	case errors.Is(err, ErrNotHTML):
		return &entity.FetchError{Kind: entity.FetchErrorNotHTML}
	case errors.Is(err, ErrReadabilityFailed):
		return &entity.FetchError{Kind: entity.FetchErrorExtractFailed}
	case errors.Is(err, ErrParse):
		return &entity.FetchError{Kind: entity.FetchErrorParseFailed}
	default:
		return &entity.FetchError{Kind: entity.FetchErrorUnknown, Msg: err.Error()}
	}
}
