package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/go-shiori/go-readability"

	"rss-reader/internal/resilience/circuitbreaker"
	"rss-reader/internal/usecase/fetch"
)

// PageFetcher downloads article pages and extracts their main content
// with go-readability.
//
// Thread safety: PageFetcher is safe for concurrent use.
type PageFetcher struct {
	client  *http.Client
	cfg     Config
	guard   *Guard
	breaker *circuitbreaker.CircuitBreaker
}

// NewPageFetcher returns a page fetcher. The circuit breaker only counts
// transport failures; a site answering 404 or serving a PDF does not trip it.
func NewPageFetcher(cfg Config, guard *Guard) *PageFetcher {
	cbCfg := circuitbreaker.FullTextConfig()
	cbCfg.IsSuccessful = isSiteError
	return &PageFetcher{
		client:  newHTTPClient(cfg, guard),
		cfg:     cfg,
		guard:   guard,
		breaker: circuitbreaker.New(cbCfg),
	}
}

// Breaker exposes the egress breaker for the health endpoint.
func (p *PageFetcher) Breaker() *circuitbreaker.CircuitBreaker { return p.breaker }

// FetchPage fetches rawURL, following redirects, and returns the readable
// content and the final URL. Errors are wrapped in *fetch.SourceError
// carrying the last URL reached.
func (p *PageFetcher) FetchPage(ctx context.Context, rawURL string) (*fetch.Page, error) {
	if err := p.guard.Check(ctx, rawURL); err != nil {
		return nil, &fetch.SourceError{URL: rawURL, Err: err}
	}

	trail := &redirectTrail{last: rawURL}
	page, err := circuitbreaker.Run(p.breaker, func() (*fetch.Page, error) {
		return p.doFetch(ctx, trail, rawURL)
	})
	if err != nil {
		var se *fetch.SourceError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &fetch.SourceError{URL: trail.get(), Err: err}
	}
	return page, nil
}

func (p *PageFetcher) doFetch(ctx context.Context, trail *redirectTrail, rawURL string) (*fetch.Page, error) {
	reqCtx, cancel := context.WithTimeout(context.WithValue(ctx, trailKey{}, trail), p.cfg.FullTextTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, requestError(ctx, reqCtx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	wrap := func(err error) error { return &fetch.SourceError{URL: finalURL, Err: err} }

	if err := p.guard.CheckURL(reqCtx, resp.Request.URL); err != nil {
		return nil, wrap(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, wrap(&fetch.HTTPStatusError{Status: resp.StatusCode})
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return nil, wrap(fmt.Errorf("%w: %s", fetch.ErrNotHTML, resp.Header.Get("Content-Type")))
	}

	body, err := readCapped(resp.Body, p.cfg.MaxBodySize)
	if err != nil {
		return nil, wrap(requestError(ctx, reqCtx, err))
	}

	article, err := readability.FromReader(bytes.NewReader(body), resp.Request.URL)
	if err != nil {
		return nil, wrap(fmt.Errorf("%w: %v", fetch.ErrReadabilityFailed, err))
	}
	if strings.TrimSpace(article.Content) == "" || strings.TrimSpace(article.TextContent) == "" {
		return nil, wrap(fmt.Errorf("%w: no readable content", fetch.ErrReadabilityFailed))
	}

	return &fetch.Page{ContentHTML: article.Content, FinalURL: finalURL}, nil
}

// isHTML accepts text/html and application/xhtml+xml. A missing content
// type is rejected.
func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// isSiteError reports errors caused by one site rather than by our egress.
func isSiteError(err error) bool {
	if err == nil {
		return true
	}
	var statusErr *fetch.HTTPStatusError
	return errors.As(err, &statusErr) ||
		errors.Is(err, fetch.ErrNotHTML) ||
		errors.Is(err, fetch.ErrBodyTooLarge) ||
		errors.Is(err, fetch.ErrReadabilityFailed) ||
		errors.Is(err, fetch.ErrUnsafeURL) ||
		errors.Is(err, fetch.ErrInvalidURL) ||
		errors.Is(err, fetch.ErrTooManyRedirects)
}
