package summarizer_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-reader/internal/infra/summarizer"
)

func chatCompletion(content string) string {
	return `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4o-mini",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": ` + quote(content) + `}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`
}

func openAIError(msg, kind string) string {
	return `{"error": {"message": ` + quote(msg) + `, "type": ` + quote(kind) + `}}`
}

func openAIServer(t *testing.T, status []int, bodies []string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		n := int(calls.Add(1)) - 1
		if n >= len(status) {
			n = len(status) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status[n])
		_, _ = io.WriteString(w, bodies[n])
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAI_Summarize(t *testing.T) {
	var req struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletion("Summary here."))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(summarizer.ProviderOpenAI, srv.URL+"/v1")
	cfg.Language = "french"
	m := &recordingMetrics{}
	o := summarizer.NewOpenAI(cfg, testOptions(t, m)...)

	out, err := o.Summarize(context.Background(), "Body")
	require.NoError(t, err)

	assert.Equal(t, "Summary here.", out)
	assert.Equal(t, "gpt-4o-mini", o.Model())
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 1024, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "in french in at most 900 characters")
	assert.Equal(t, []int{13}, m.lengths)
}

func TestOpenAI_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    []int
		bodies    []string
		wantCalls int32
		wantErr   bool
	}{
		{
			name:      "rate limit retried then succeeds",
			status:    []int{http.StatusTooManyRequests, http.StatusOK},
			bodies:    []string{openAIError("slow down", "rate_limit_error"), chatCompletion("ok")},
			wantCalls: 2,
		},
		{
			name:      "server errors exhaust retries",
			status:    []int{http.StatusServiceUnavailable},
			bodies:    []string{openAIError("unavailable", "server_error")},
			wantCalls: 3,
			wantErr:   true,
		},
		{
			name:      "unauthorized is final",
			status:    []int{http.StatusUnauthorized},
			bodies:    []string{openAIError("bad key", "invalid_request_error")},
			wantCalls: 1,
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := openAIServer(t, tt.status, tt.bodies)
			o := summarizer.NewOpenAI(testConfig(summarizer.ProviderOpenAI, srv.URL+"/v1"), testOptions(t, &recordingMetrics{})...)

			_, err := o.Summarize(context.Background(), "text")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "openai api error")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	srv, calls := openAIServer(t, []int{http.StatusOK},
		[]string{`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`})
	o := summarizer.NewOpenAI(testConfig(summarizer.ProviderOpenAI, srv.URL+"/v1"), testOptions(t, &recordingMetrics{})...)

	_, err := o.Summarize(context.Background(), "text")
	assert.ErrorIs(t, err, summarizer.ErrEmptyResponse)
	assert.Equal(t, int32(1), calls.Load(), "empty responses are not retried")
}

func TestOpenAI_CircuitBreakerOpens(t *testing.T) {
	srv, calls := openAIServer(t, []int{http.StatusBadGateway},
		[]string{openAIError("bad gateway", "server_error")})
	o := summarizer.NewOpenAI(testConfig(summarizer.ProviderOpenAI, srv.URL+"/v1"), testOptions(t, &recordingMetrics{})...)

	// Two calls of three attempts each reach the breaker's minimum of five
	// requests; the sixth attempt is rejected without a request.
	for i := 0; i < 2; i++ {
		_, err := o.Summarize(context.Background(), "text")
		require.Error(t, err)
	}
	assert.Equal(t, int32(5), calls.Load())

	_, err := o.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Equal(t, int32(5), calls.Load())
}
