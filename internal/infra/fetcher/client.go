package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"rss-reader/internal/usecase/fetch"
)

// newHTTPClient builds a client that re-checks every redirect hop with the
// guard and, when the guard is enabled, refuses to dial non-public
// addresses. The caller's context carries the per-request timeout.
func newHTTPClient(cfg Config, guard *Guard) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if cfg.DenyPrivateIPs {
		dialer.Control = dialControl
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if trail, ok := req.Context().Value(trailKey{}).(*redirectTrail); ok {
				trail.set(req.URL.String())
			}
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", fetch.ErrTooManyRedirects, len(via))
			}
			if err := guard.CheckURL(req.Context(), req.URL); err != nil {
				return fmt.Errorf("redirect to %s: %w", req.URL.Redacted(), err)
			}
			return nil
		},
	}
}

type trailKey struct{}

// redirectTrail remembers the last URL a request was redirected to.
type redirectTrail struct {
	mu   sync.Mutex
	last string
}

func (t *redirectTrail) set(u string) {
	t.mu.Lock()
	t.last = u
	t.mu.Unlock()
}

func (t *redirectTrail) get() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// readCapped reads at most max bytes of r. More data is ErrBodyTooLarge
// and the partial body is discarded.
func readCapped(r io.Reader, max int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", fetch.ErrBodyTooLarge, max)
	}
	return body, nil
}

// requestError turns a client error into a fetch sentinel. reqCtx is the
// per-request context; parent is the caller's.
func requestError(parent, reqCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", fetch.ErrTimeout, err)
	}
	return err
}

// limiterIdleTTL is how long a host's limiter is kept after its last use.
const limiterIdleTTL = 10 * time.Minute

// hostLimiter rate-limits requests per host. Entries idle for
// limiterIdleTTL with a full bucket are evicted, since a fresh limiter
// would behave the same.
type hostLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*hostEntry
	rps       rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

type hostEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

func newHostLimiter(rps float64, burst int) *hostLimiter {
	return &hostLimiter{
		limiters: make(map[string]*hostEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// Wait blocks until host may be contacted or ctx is done.
func (h *hostLimiter) Wait(ctx context.Context, host string) error {
	now := h.now()

	h.mu.Lock()
	if now.Sub(h.lastSweep) >= limiterIdleTTL {
		h.sweep(now)
	}
	e, ok := h.limiters[host]
	if !ok {
		e = &hostEntry{limiter: rate.NewLimiter(h.rps, h.burst)}
		h.limiters[host] = e
	}
	e.lastUsed = now
	h.mu.Unlock()

	return e.limiter.Wait(ctx)
}

// sweep must be called with mu held.
func (h *hostLimiter) sweep(now time.Time) {
	for host, e := range h.limiters {
		if now.Sub(e.lastUsed) >= limiterIdleTTL && e.limiter.TokensAt(now) >= float64(h.burst) {
			delete(h.limiters, host)
		}
	}
	h.lastSweep = now
}

func (h *hostLimiter) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.limiters)
}
