// Package fetcher implements the outbound HTTP side of ingestion: the SSRF
// guard, the conditional feed fetcher and the full-text page fetcher.
package fetcher

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rss-reader/internal/pkg/config"
)

// DefaultUserAgent identifies the reader to feed publishers.
const DefaultUserAgent = "rss-reader/1.0 (+https://github.com/rss-reader)"

// Config holds the settings shared by the feed and page fetchers.
type Config struct {
	// FeedTimeout bounds one feed request, including the body read.
	// Default: 20s
	FeedTimeout time.Duration

	// FullTextTimeout bounds one article page request.
	// Default: 15s
	FullTextTimeout time.Duration

	// MaxBodySize caps an article page body. It is enforced while
	// streaming, never from Content-Length.
	// Default: 2 MiB
	MaxBodySize int64

	// MaxFeedSize caps a feed document.
	// Default: 10 MiB
	MaxFeedSize int64

	// MaxRedirects is the number of redirects followed before giving up.
	// Every hop is re-checked by the SSRF guard.
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs enables the SSRF guard. Only tests turn it off.
	// Default: true
	DenyPrivateIPs bool

	// AllowLoopbackFallback enables FallbackHosts rewrites for local
	// development, where a feed served on localhost is reachable from a
	// container under another name.
	// Default: false
	AllowLoopbackFallback bool

	// FallbackHosts maps a loopback host to its replacement.
	// Default: localhost and 127.0.0.1 => host.docker.internal
	FallbackHosts map[string]string

	// UserAgent is sent with every request.
	UserAgent string

	// HostRPS and HostBurst rate-limit requests per host.
	// Default: 1 request/s, burst 2
	HostRPS   float64
	HostBurst int
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		FeedTimeout:     20 * time.Second,
		FullTextTimeout: 15 * time.Second,
		MaxBodySize:     2 * 1024 * 1024,
		MaxFeedSize:     10 * 1024 * 1024,
		MaxRedirects:    5,
		DenyPrivateIPs:  true,
		FallbackHosts: map[string]string{
			"localhost": "host.docker.internal",
			"127.0.0.1": "host.docker.internal",
		},
		UserAgent: DefaultUserAgent,
		HostRPS:   1,
		HostBurst: 2,
	}
}

// Validate rejects values that would disable a safety limit.
func (c *Config) Validate() error {
	var errs []error

	if err := config.ValidateDuration(c.FeedTimeout, time.Second, 2*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("feed timeout: %w", err))
	}
	if err := config.ValidateDuration(c.FullTextTimeout, time.Second, 2*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("full-text timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.MaxBodySize, 1024, 100*1024*1024); err != nil {
		errs = append(errs, fmt.Errorf("max body size: %w", err))
	}
	if err := config.ValidateIntRange(c.MaxFeedSize, 1024, 100*1024*1024); err != nil {
		errs = append(errs, fmt.Errorf("max feed size: %w", err))
	}
	if err := config.ValidateIntRange(c.MaxRedirects, 0, 10); err != nil {
		errs = append(errs, fmt.Errorf("max redirects: %w", err))
	}
	if err := config.ValidateFloatRange(c.HostRPS, 0.01, 100); err != nil {
		errs = append(errs, fmt.Errorf("host rps: %w", err))
	}
	if err := config.ValidateIntRange(c.HostBurst, 1, 100); err != nil {
		errs = append(errs, fmt.Errorf("host burst: %w", err))
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		errs = append(errs, errors.New("user agent must not be empty"))
	}

	return errors.Join(errs...)
}

// LoadConfigFromEnv loads the configuration with the fail-open strategy:
// invalid values fall back to defaults, are logged, and are counted in
// metrics. It never returns an unusable configuration.
//
// Environment variables:
//   - FEED_FETCH_TIMEOUT (20s)
//   - FULLTEXT_TIMEOUT (15s)
//   - FULLTEXT_MAX_BODY_SIZE (2097152)
//   - FEED_MAX_SIZE (10485760)
//   - FETCH_MAX_REDIRECTS (5)
//   - FETCH_DENY_PRIVATE_IPS (true)
//   - FETCH_ALLOW_LOOPBACK_FALLBACK (false)
//   - FETCH_FALLBACK_HOSTS ("localhost=host.docker.internal,...")
//   - FETCH_USER_AGENT
//   - FETCH_HOST_RPS (1), FETCH_HOST_BURST (2)
func LoadConfigFromEnv(logger *slog.Logger, metrics *config.ConfigMetrics) Config {
	def := DefaultConfig()
	env := config.NewEnv(logger, metrics)

	cfg := Config{
		FeedTimeout: config.Track(env, "feed_timeout",
			config.LoadEnvDuration("FEED_FETCH_TIMEOUT", def.FeedTimeout, func(d time.Duration) error {
				return config.ValidateDuration(d, time.Second, 2*time.Minute)
			})),
		FullTextTimeout: config.Track(env, "fulltext_timeout",
			config.LoadEnvDuration("FULLTEXT_TIMEOUT", def.FullTextTimeout, func(d time.Duration) error {
				return config.ValidateDuration(d, time.Second, 2*time.Minute)
			})),
		MaxBodySize: config.Track(env, "fulltext_max_body_size",
			config.LoadEnvInt64("FULLTEXT_MAX_BODY_SIZE", def.MaxBodySize, func(n int64) error {
				return config.ValidateIntRange(n, 1024, 100*1024*1024)
			})),
		MaxFeedSize: config.Track(env, "feed_max_size",
			config.LoadEnvInt64("FEED_MAX_SIZE", def.MaxFeedSize, func(n int64) error {
				return config.ValidateIntRange(n, 1024, 100*1024*1024)
			})),
		MaxRedirects: config.Track(env, "max_redirects",
			config.LoadEnvInt("FETCH_MAX_REDIRECTS", def.MaxRedirects, func(n int) error {
				return config.ValidateIntRange(n, 0, 10)
			})),
		DenyPrivateIPs: config.Track(env, "deny_private_ips",
			config.LoadEnvBool("FETCH_DENY_PRIVATE_IPS", def.DenyPrivateIPs)),
		AllowLoopbackFallback: config.Track(env, "allow_loopback_fallback",
			config.LoadEnvBool("FETCH_ALLOW_LOOPBACK_FALLBACK", def.AllowLoopbackFallback)),
		UserAgent: config.LoadEnvString("FETCH_USER_AGENT", def.UserAgent),
		HostRPS: config.Track(env, "host_rps",
			config.LoadEnvFloat("FETCH_HOST_RPS", def.HostRPS, func(f float64) error {
				return config.ValidateFloatRange(f, 0.01, 100)
			})),
		HostBurst: config.Track(env, "host_burst",
			config.LoadEnvInt("FETCH_HOST_BURST", def.HostBurst, func(n int) error {
				return config.ValidateIntRange(n, 1, 100)
			})),
		FallbackHosts: def.FallbackHosts,
	}

	if pairs := config.LoadEnvList("FETCH_FALLBACK_HOSTS", nil); len(pairs) > 0 {
		hosts, err := parseFallbackHosts(pairs)
		cfg.FallbackHosts = config.Track(env, "fallback_hosts", fallbackResult(hosts, def.FallbackHosts, err))
	}

	env.Finish()
	return cfg
}

// parseFallbackHosts parses "from=to" pairs.
func parseFallbackHosts(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		from, to, ok := strings.Cut(p, "=")
		from, to = strings.ToLower(strings.TrimSpace(from)), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid fallback host pair %q, expected from=to", p)
		}
		out[from] = to
	}
	return out, nil
}

func fallbackResult(v, def map[string]string, err error) config.Result[map[string]string] {
	if err != nil {
		return config.Result[map[string]string]{
			Value:           def,
			Warning:         fmt.Sprintf("Invalid FETCH_FALLBACK_HOSTS: %v, falling back to default", err),
			FallbackApplied: true,
		}
	}
	return config.Result[map[string]string]{Value: v}
}
