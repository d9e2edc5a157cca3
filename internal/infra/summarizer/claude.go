package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"rss-reader/internal/resilience/circuitbreaker"
)

// Claude summarizes with Anthropic's Messages API.
type Claude struct {
	client anthropic.Client
	engine *engine
}

// NewClaude builds a Claude summarizer. SDK retries are disabled; the
// engine's retry policy applies instead.
func NewClaude(cfg Config, opts ...Option) *Claude {
	if cfg.Model == "" {
		cfg.Model = DefaultModel(ProviderClaude)
	}
	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}

	c := &Claude{client: anthropic.NewClient(clientOpts...)}
	c.engine = newEngine(ProviderClaude, cfg, circuitbreaker.ClaudeAPIConfig(), opts)
	c.engine.complete = c.complete
	return c
}

// Summarize implements fetch.Summarizer.
func (c *Claude) Summarize(ctx context.Context, text string) (string, error) {
	return c.engine.summarize(ctx, text)
}

// Model implements fetch.Summarizer.
func (c *Claude) Model() string { return c.engine.cfg.Model }

func (c *Claude) Breaker() *circuitbreaker.CircuitBreaker { return c.engine.breaker }

func (c *Claude) complete(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.engine.cfg.Model),
		MaxTokens: int64(c.engine.cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}

	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok && strings.TrimSpace(tb.Text) != "" {
			return tb.Text, nil
		}
	}
	return "", ErrEmptyResponse
}
