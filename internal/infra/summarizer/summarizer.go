// Package summarizer provides AI summaries of article text. Claude and
// OpenAI adapters share one call path with retry, a circuit breaker,
// structured logging and Prometheus metrics.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"rss-reader/internal/observability/logging"
	"rss-reader/internal/resilience/circuitbreaker"
	"rss-reader/internal/resilience/retry"
	"rss-reader/internal/usecase/fetch"
	"rss-reader/internal/utils/text"
)

var (
	// ErrMissingAPIKey is returned by New when the provider has no key.
	ErrMissingAPIKey = errors.New("summarizer: api key is required")
	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("summarizer: empty response")
)

// New builds the summarizer selected by cfg.Provider. It returns nil for
// ProviderNone, which disables the summary job.
func New(cfg Config, opts ...Option) (fetch.Summarizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderNone, "":
		return nil, nil
	case ProviderNoOp:
		return NewNoOp(), nil
	case ProviderClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY", ErrMissingAPIKey)
		}
		return NewClaude(cfg, opts...), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
		}
		return NewOpenAI(cfg, opts...), nil
	}
	return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
}

// Option customizes an adapter.
type Option func(*engine)

// WithRetry replaces the retry policy. Retryable is kept from the adapter
// when the given config leaves it nil.
func WithRetry(cfg retry.Config) Option {
	return func(e *engine) {
		if cfg.Retryable == nil {
			cfg.Retryable = e.retry.Retryable
		}
		e.retry = cfg
	}
}

// WithCircuitBreaker replaces the breaker settings.
func WithCircuitBreaker(cfg circuitbreaker.Config) Option {
	return func(e *engine) { e.breaker = circuitbreaker.New(cfg) }
}

// WithMetrics replaces the metrics recorder.
func WithMetrics(m SummaryMetricsRecorder) Option {
	return func(e *engine) { e.metrics = m }
}

// engine is the provider-independent call path.
type engine struct {
	provider string
	cfg      Config
	breaker  *circuitbreaker.CircuitBreaker
	retry    retry.Config
	metrics  SummaryMetricsRecorder
	complete func(ctx context.Context, prompt string) (string, error)
}

func newEngine(provider string, cfg Config, breaker circuitbreaker.Config, opts []Option) *engine {
	rc := retry.AIAPIConfig()
	rc.Retryable = retryableAPIError
	e := &engine{
		provider: provider,
		cfg:      cfg,
		breaker:  circuitbreaker.New(breaker),
		retry:    rc,
		metrics:  defaultMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engine) summarize(ctx context.Context, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	logger := logging.FromContext(ctx).With(
		slog.String("provider", e.provider),
		slog.String("request_id", uuid.NewString()))
	ctx = logging.WithLogger(ctx, logger)

	if n := text.CountRunes(input); n > e.cfg.MaxInputRunes {
		input = text.Truncate(input, e.cfg.MaxInputRunes)
		logger.Warn("input truncated",
			slog.Int("original_length", n),
			slog.Int("truncated_length", e.cfg.MaxInputRunes))
	}
	prompt := buildPrompt(e.cfg, input)

	logger.Info("Starting summarization",
		slog.Int("input_length", text.CountRunes(input)),
		slog.Int("character_limit", e.cfg.CharacterLimit))

	start := time.Now()
	var summary string
	err := retry.WithBackoff(ctx, e.retry, func() error {
		out, err := circuitbreaker.Run(e.breaker, func() (string, error) {
			return e.complete(ctx, prompt)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logger.Warn("circuit breaker open, request rejected",
				slog.String("breaker", e.breaker.Name()),
				slog.String("state", e.breaker.State().String()))
			return fmt.Errorf("%s api unavailable: %w", e.provider, err)
		}
		if err != nil {
			return err
		}
		summary = out
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		logger.Error("Summarization failed",
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%s summarize: %w", e.provider, err)
	}

	summary = strings.TrimSpace(summary)
	length := text.CountRunes(summary)
	withinLimit := length <= e.cfg.CharacterLimit

	logger.Info("Summarization completed",
		slog.Int("summary_length", length),
		slog.Bool("within_limit", withinLimit),
		slog.Duration("duration", duration))
	if !withinLimit {
		logger.Warn("Summary exceeds character limit",
			slog.Int("summary_length", length),
			slog.Int("limit", e.cfg.CharacterLimit),
			slog.Int("excess", length-e.cfg.CharacterLimit))
	}

	e.metrics.RecordLength(length)
	e.metrics.RecordDuration(duration)
	e.metrics.RecordCompliance(withinLimit)
	if !withinLimit {
		e.metrics.RecordLimitExceeded()
	}
	return summary, nil
}

func buildPrompt(cfg Config, input string) string {
	return fmt.Sprintf("Summarize the following article in %s in at most %d characters. "+
		"Reply with the summary only.\n\n%s", cfg.Language, cfg.CharacterLimit, input)
}

// retryableAPIError retries rate limits, server errors and transient
// network failures. Client errors such as a bad key are final.
func retryableAPIError(err error) bool {
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) {
		return retry.IsRetryableStatus(claudeErr.StatusCode)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retry.IsRetryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retry.IsRetryableStatus(reqErr.HTTPStatusCode)
	}
	return retry.IsRetryable(err)
}
