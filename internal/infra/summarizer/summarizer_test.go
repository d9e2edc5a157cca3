package summarizer_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-reader/internal/infra/summarizer"
	"rss-reader/internal/pkg/config"
	"rss-reader/internal/resilience/circuitbreaker"
	"rss-reader/internal/resilience/retry"
)

// recordingMetrics captures what the engine reports.
type recordingMetrics struct {
	mu         sync.Mutex
	lengths    []int
	exceeded   int
	compliance []bool
}

func (m *recordingMetrics) RecordLength(length int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lengths = append(m.lengths, length)
}

func (m *recordingMetrics) RecordLimitExceeded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exceeded++
}

func (m *recordingMetrics) RecordCompliance(withinLimit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compliance = append(m.compliance, withinLimit)
}

func (m *recordingMetrics) RecordDuration(time.Duration) {}

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func testConfig(provider, baseURL string) summarizer.Config {
	cfg := summarizer.DefaultConfig(provider)
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL
	cfg.Timeout = 5 * time.Second
	return cfg
}

func testOptions(t *testing.T, m summarizer.SummaryMetricsRecorder) []summarizer.Option {
	return []summarizer.Option{
		summarizer.WithRetry(fastRetry()),
		summarizer.WithCircuitBreaker(circuitbreaker.DefaultConfig(t.Name())),
		summarizer.WithMetrics(m),
	}
}

func TestValidateCharacterLimit(t *testing.T) {
	assert.NoError(t, summarizer.ValidateCharacterLimit(100))
	assert.NoError(t, summarizer.ValidateCharacterLimit(5000))
	assert.ErrorContains(t, summarizer.ValidateCharacterLimit(99), "below minimum 100")
	assert.ErrorContains(t, summarizer.ValidateCharacterLimit(5001), "exceeds maximum 5000")
}

func TestConfig_Validate(t *testing.T) {
	none := summarizer.Config{Provider: summarizer.ProviderNone}
	assert.NoError(t, none.Validate(), "disabled provider needs no settings")

	cfg := summarizer.DefaultConfig(summarizer.ProviderOpenAI)
	require.NoError(t, cfg.Validate())

	cfg.CharacterLimit = 10
	cfg.Language = " "
	cfg.MaxTokens = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "character limit")
	assert.ErrorContains(t, err, "language")
	assert.ErrorContains(t, err, "max tokens")
}

func TestDefaultModel(t *testing.T) {
	assert.NotEmpty(t, summarizer.DefaultModel(summarizer.ProviderClaude))
	assert.Equal(t, "gpt-4o-mini", summarizer.DefaultModel(summarizer.ProviderOpenAI))
	assert.Equal(t, "", summarizer.DefaultModel(summarizer.ProviderNone))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := summarizer.LoadConfigFromEnv(nil, nil)
		assert.Equal(t, summarizer.ProviderNone, cfg.Provider)
		assert.Equal(t, 900, cfg.CharacterLimit)
		assert.Equal(t, "english", cfg.Language)
	})

	t.Run("claude", func(t *testing.T) {
		t.Setenv("SUMMARIZER_TYPE", "claude")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
		t.Setenv("OPENAI_API_KEY", "sk-openai")
		t.Setenv("SUMMARIZER_CHAR_LIMIT", "400")
		t.Setenv("SUMMARIZER_LANGUAGE", "german")
		t.Setenv("SUMMARIZER_MODEL", "claude-custom")

		cfg := summarizer.LoadConfigFromEnv(nil, nil)
		assert.Equal(t, summarizer.ProviderClaude, cfg.Provider)
		assert.Equal(t, "sk-ant", cfg.APIKey)
		assert.Equal(t, 400, cfg.CharacterLimit)
		assert.Equal(t, "german", cfg.Language)
		assert.Equal(t, "claude-custom", cfg.Model)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		t.Setenv("SUMMARIZER_TYPE", "gemini")
		t.Setenv("SUMMARIZER_CHAR_LIMIT", "20")
		t.Setenv("SUMMARIZER_TIMEOUT", "soon")
		metrics := config.NewConfigMetricsWith(prometheus.NewRegistry(), "summarizer")

		cfg := summarizer.LoadConfigFromEnv(nil, metrics)
		assert.Equal(t, summarizer.ProviderNone, cfg.Provider)
		assert.Equal(t, 900, cfg.CharacterLimit)
		assert.Equal(t, 60*time.Second, cfg.Timeout)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("summarizer_type")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("summarizer_char_limit")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbackActive))
	})
}

func TestNew(t *testing.T) {
	s, err := summarizer.New(summarizer.Config{Provider: summarizer.ProviderNone})
	require.NoError(t, err)
	assert.Nil(t, s, "none disables summaries")

	s, err = summarizer.New(summarizer.DefaultConfig(summarizer.ProviderNoOp))
	require.NoError(t, err)
	assert.Equal(t, "noop", s.Model())

	_, err = summarizer.New(summarizer.DefaultConfig(summarizer.ProviderClaude))
	assert.ErrorIs(t, err, summarizer.ErrMissingAPIKey)

	_, err = summarizer.New(summarizer.DefaultConfig(summarizer.ProviderOpenAI))
	assert.ErrorIs(t, err, summarizer.ErrMissingAPIKey)

	s, err = summarizer.New(testConfig(summarizer.ProviderOpenAI, ""))
	require.NoError(t, err)
	assert.IsType(t, &summarizer.OpenAI{}, s)

	bad := testConfig(summarizer.ProviderClaude, "")
	bad.CharacterLimit = 1
	_, err = summarizer.New(bad)
	assert.Error(t, err)

	unknown := testConfig("gemini", "")
	unknown.Model = "gemini-pro"
	_, err = summarizer.New(unknown)
	assert.ErrorContains(t, err, "unknown summarizer provider")
}

func TestNoOp(t *testing.T) {
	n := summarizer.NewNoOp()

	out, err := n.Summarize(context.Background(), "short")
	require.NoError(t, err)
	assert.Equal(t, "short", out)

	long := strings.Repeat("日本", 400)
	out, err = n.Summarize(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, 503, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestPrometheusSummaryMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := summarizer.NewPrometheusSummaryMetrics(reg)

	m.RecordLength(300)
	m.RecordLimitExceeded()
	m.RecordCompliance(false)
	m.RecordDuration(time.Second)

	count, err := testutil.GatherAndCount(reg,
		"article_summary_length_characters",
		"article_summary_limit_exceeded_total",
		"article_summary_limit_compliance_ratio",
		"article_summarization_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	m.RecordCompliance(true)
	assert.Equal(t, 1.0, gaugeValue(t, reg, "article_summary_limit_compliance_ratio"))
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
