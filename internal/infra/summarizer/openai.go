package summarizer

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"rss-reader/internal/resilience/circuitbreaker"
)

// OpenAI summarizes with the Chat Completions API.
type OpenAI struct {
	client *openai.Client
	engine *engine
}

// NewOpenAI builds an OpenAI summarizer. BaseURL, when set, must include
// the API version path ("https://host/v1").
func NewOpenAI(cfg Config, opts ...Option) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = DefaultModel(ProviderOpenAI)
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	o := &OpenAI{client: openai.NewClientWithConfig(clientCfg)}
	o.engine = newEngine(ProviderOpenAI, cfg, circuitbreaker.OpenAIAPIConfig(), opts)
	o.engine.complete = o.complete
	return o
}

// Summarize implements fetch.Summarizer.
func (o *OpenAI) Summarize(ctx context.Context, text string) (string, error) {
	return o.engine.summarize(ctx, text)
}

// Model implements fetch.Summarizer.
func (o *OpenAI) Model() string { return o.engine.cfg.Model }

func (o *OpenAI) Breaker() *circuitbreaker.CircuitBreaker { return o.engine.breaker }

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.engine.cfg.Model,
		MaxTokens: o.engine.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
