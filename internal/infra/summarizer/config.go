package summarizer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"

	"rss-reader/internal/pkg/config"
)

// Providers accepted by SUMMARIZER_TYPE.
const (
	ProviderNone   = "none"
	ProviderNoOp   = "noop"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

const (
	minCharLimit = 100
	maxCharLimit = 5000
)

// Config holds the settings shared by every provider.
type Config struct {
	Provider string
	APIKey   string
	// Model defaults per provider when empty.
	Model string
	// BaseURL overrides the provider endpoint; empty uses the SDK default.
	BaseURL string

	// CharacterLimit is a soft limit passed in the prompt. Summaries over
	// it are kept, logged and counted.
	CharacterLimit int
	Language       string
	MaxTokens      int
	// MaxInputRunes truncates long articles before they are sent.
	MaxInputRunes int
	Timeout       time.Duration
}

// DefaultConfig returns the configuration for provider.
func DefaultConfig(provider string) Config {
	return Config{
		Provider:       provider,
		Model:          DefaultModel(provider),
		CharacterLimit: 900,
		Language:       "english",
		MaxTokens:      1024,
		MaxInputRunes:  10000,
		Timeout:        60 * time.Second,
	}
}

// DefaultModel returns the model used when SUMMARIZER_MODEL is unset.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderClaude:
		return string(anthropic.ModelClaudeSonnet4_5_20250929)
	case ProviderOpenAI:
		return openai.GPT4oMini
	case ProviderNoOp:
		return "noop"
	}
	return ""
}

// Validate checks the fields a provider needs to make calls.
func (c *Config) Validate() error {
	if c.Provider == ProviderNone || c.Provider == "" {
		return nil
	}
	var errs []error
	if err := ValidateCharacterLimit(c.CharacterLimit); err != nil {
		errs = append(errs, fmt.Errorf("invalid character limit: %w", err))
	}
	if strings.TrimSpace(c.Language) == "" {
		errs = append(errs, errors.New("language cannot be empty"))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model cannot be empty"))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens))
	}
	if c.MaxInputRunes <= 0 {
		errs = append(errs, fmt.Errorf("max input runes must be positive, got %d", c.MaxInputRunes))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	return errors.Join(errs...)
}

// ValidateCharacterLimit validates that the character limit is within the valid range (100-5000).
//
//	ValidateCharacterLimit(900)  // nil
//	ValidateCharacterLimit(50)   // error: "character limit 50 is below minimum 100"
func ValidateCharacterLimit(limit int) error {
	if limit < minCharLimit {
		return fmt.Errorf("character limit %d is below minimum %d", limit, minCharLimit)
	}
	if limit > maxCharLimit {
		return fmt.Errorf("character limit %d exceeds maximum %d", limit, maxCharLimit)
	}
	return nil
}

func validateProvider(p string) error {
	switch p {
	case ProviderNone, ProviderNoOp, ProviderClaude, ProviderOpenAI:
		return nil
	}
	return fmt.Errorf("unknown provider %q", p)
}

// LoadConfigFromEnv loads the summarizer configuration with the fail-open
// strategy. A missing API key is not a fallback; New reports it.
//
// Environment variables:
//   - SUMMARIZER_TYPE: none|noop|claude|openai (default: none)
//   - ANTHROPIC_API_KEY / OPENAI_API_KEY
//   - SUMMARIZER_MODEL (provider default)
//   - SUMMARIZER_CHAR_LIMIT: 100-5000 (default: 900)
//   - SUMMARIZER_LANGUAGE (default: english)
//   - SUMMARIZER_TIMEOUT (default: 60s)
func LoadConfigFromEnv(logger *slog.Logger, metrics *config.ConfigMetrics) Config {
	env := config.NewEnv(logger, metrics)
	provider := config.Track(env, "summarizer_type",
		config.LoadEnvWithFallback("SUMMARIZER_TYPE", ProviderNone, validateProvider))

	cfg := DefaultConfig(provider)
	switch provider {
	case ProviderClaude:
		cfg.APIKey = config.LoadEnvString("ANTHROPIC_API_KEY", "")
	case ProviderOpenAI:
		cfg.APIKey = config.LoadEnvString("OPENAI_API_KEY", "")
	}
	cfg.Model = config.LoadEnvString("SUMMARIZER_MODEL", cfg.Model)
	cfg.CharacterLimit = config.Track(env, "summarizer_char_limit",
		config.LoadEnvInt("SUMMARIZER_CHAR_LIMIT", cfg.CharacterLimit, ValidateCharacterLimit))
	cfg.Language = config.LoadEnvString("SUMMARIZER_LANGUAGE", cfg.Language)
	cfg.Timeout = config.Track(env, "summarizer_timeout",
		config.LoadEnvDuration("SUMMARIZER_TIMEOUT", cfg.Timeout, func(d time.Duration) error {
			return config.ValidateDuration(d, 5*time.Second, 5*time.Minute)
		}))

	env.Finish()
	return cfg
}
