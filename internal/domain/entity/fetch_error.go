package entity

import (
	"fmt"

	"rss-reader/internal/utils/text"
)

// MaxErrorLength bounds every error string stored on a feed or article.
const MaxErrorLength = 200

// FetchErrorKind is the closed set of failure modes recorded after a feed
// or full-text fetch.
type FetchErrorKind int

const (
	FetchErrorUnknown FetchErrorKind = iota
	FetchErrorUnsafeURL
	FetchErrorTimeout
	FetchErrorHTTPStatus
	FetchErrorParseFailed
	FetchErrorTooLarge
	FetchErrorNotHTML
	FetchErrorExtractFailed
)

// FetchError is a classified fetch failure. String gives the stable short
// form persisted in last_fetch_error / fulltext_error.
type FetchError struct {
	Kind   FetchErrorKind
	Status int    // FetchErrorHTTPStatus only
	Msg    string // FetchErrorParseFailed and FetchErrorUnknown
}

// NewHTTPStatusError returns the error recorded for a non-2xx response.
func NewHTTPStatusError(status int) *FetchError {
	return &FetchError{Kind: FetchErrorHTTPStatus, Status: status}
}

// String renders the storage form, truncated to MaxErrorLength runes.
func (e *FetchError) String() string {
	var s string
	switch e.Kind {
	case FetchErrorUnsafeURL:
		s = "Unsafe URL"
	case FetchErrorTimeout:
		s = "Timeout"
	case FetchErrorHTTPStatus:
		s = fmt.Sprintf("HTTP %d", e.Status)
	case FetchErrorParseFailed:
		s = "Parse failed"
		if msg := text.CollapseWhitespace(e.Msg); msg != "" {
			s += ": " + msg
		}
	case FetchErrorTooLarge:
		s = "Response too large"
	case FetchErrorNotHTML:
		s = "Not HTML"
	case FetchErrorExtractFailed:
		s = "Extraction failed"
	default:
		s = text.CollapseWhitespace(e.Msg)
		if s == "" {
			s = "Unknown error"
		}
	}
	return text.Truncate(s, MaxErrorLength)
}

// Error implements error.
func (e *FetchError) Error() string {
	return e.String()
}

// Label is a low-cardinality name for metrics.
func (k FetchErrorKind) Label() string {
	switch k {
	case FetchErrorUnsafeURL:
		return "unsafe_url"
	case FetchErrorTimeout:
		return "timeout"
	case FetchErrorHTTPStatus:
		return "http_status"
	case FetchErrorParseFailed:
		return "parse_failed"
	case FetchErrorTooLarge:
		return "too_large"
	case FetchErrorNotHTML:
		return "not_html"
	case FetchErrorExtractFailed:
		return "extract_failed"
	default:
		return "unknown"
	}
}
