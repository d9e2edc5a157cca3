package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"rss-reader/internal/observability/logging"
	"rss-reader/internal/usecase/fetch"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"

// FeedFetcher performs conditional GETs of feed documents.
type FeedFetcher struct {
	client  *http.Client
	cfg     Config
	limiter *hostLimiter
}

// NewFeedFetcher returns a fetcher whose redirects are checked by guard.
func NewFeedFetcher(cfg Config, guard *Guard) *FeedFetcher {
	return &FeedFetcher{
		client:  newHTTPClient(cfg, guard),
		cfg:     cfg,
		limiter: newHostLimiter(cfg.HostRPS, cfg.HostBurst),
	}
}

// FetchFeedXML requests rawURL, then each fallback candidate, until one
// answers. Any HTTP response is returned, whatever its status; XML is set
// only for 2xx. The error of the last candidate is returned when none
// answers, with ErrTimeout when that candidate timed out.
func (f *FeedFetcher) FetchFeedXML(ctx context.Context, rawURL string, opts fetch.FetchOptions) (*fetch.FeedResponse, error) {
	candidates, err := f.candidates(rawURL)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i, candidate := range candidates {
		resp, err := f.fetchOnce(ctx, candidate, opts)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if i < len(candidates)-1 {
			logging.FromContext(ctx).Debug("feed candidate failed, trying fallback",
				slog.String("url", candidate),
				slog.String("error", err.Error()))
		}
	}
	return nil, lastErr
}

func (f *FeedFetcher) fetchOnce(ctx context.Context, target string, opts fetch.FetchOptions) (*fetch.FeedResponse, error) {
	timeout := f.cfg.FeedTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	userAgent := f.cfg.UserAgent
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", feedAccept)
	if opts.ETag != "" {
		req.Header.Set("If-None-Match", opts.ETag)
	}
	if opts.LastModified != "" {
		req.Header.Set("If-Modified-Since", opts.LastModified)
	}

	if err := f.limiter.Wait(reqCtx, req.URL.Host); err != nil {
		return nil, requestError(ctx, reqCtx, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, requestError(ctx, reqCtx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	out := &fetch.FeedResponse{
		Status:       resp.StatusCode,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		URL:          target,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return out, nil
	}

	body, err := readCapped(resp.Body, f.cfg.MaxFeedSize)
	if err != nil {
		return nil, requestError(ctx, reqCtx, err)
	}
	out.XML = body
	return out, nil
}

// candidates returns rawURL followed by its loopback fallback rewrites.
func (f *FeedFetcher) candidates(rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrInvalidURL, err)
	}
	out := []string{rawURL}
	if !f.cfg.AllowLoopbackFallback {
		return out, nil
	}

	replacement, ok := f.cfg.FallbackHosts[strings.ToLower(u.Hostname())]
	if !ok {
		return out, nil
	}
	alt := *u
	if port := u.Port(); port != "" {
		alt.Host = net.JoinHostPort(replacement, port)
	} else {
		alt.Host = replacement
	}
	return append(out, alt.String()), nil
}
