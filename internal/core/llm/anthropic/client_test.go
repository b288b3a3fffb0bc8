package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
)

const messagesReply = `{
	"id": "msg_1",
	"type": "message",
	"role": "assistant",
	"model": "claude-3-5-haiku-latest",
	"content": [{"type": "text", "text": "{\"findings\":"}, {"type": "text", "text": "[]}"}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 20, "output_tokens": 6}
}`

func TestCompleteMapsRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messagesReply))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key-test", BaseURL: srv.URL + "/v1"}, nil)
	out, err := c.Complete(context.Background(), llm.Request{
		System:      "You extract findings.",
		Prompt:      "SOURCE: thermal",
		Schema:      map[string]any{"type": "object"},
		Temperature: 0.5,
		MaxTokens:   300,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"findings":[]}`, out)

	assert.Equal(t, "claude-3-5-haiku-latest", got["model"])
	assert.EqualValues(t, 300, got["max_tokens"])
	assert.InDelta(t, 0.5, got["temperature"], 1e-6)
	system, ok := got["system"].(string)
	require.True(t, ok, "system is sent as a string")
	assert.Contains(t, system, "You extract findings.")
	assert.Contains(t, system, "JSON Schema:")

	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestCompleteDefaultsMaxTokens(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(messagesReply))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Complete(context.Background(), llm.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.EqualValues(t, 4096, got["max_tokens"])
	_, hasSystem := got["system"]
	assert.False(t, hasSystem)
}

func TestCompleteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"Number of requests has exceeded your rate limit"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Complete(context.Background(), llm.Request{Prompt: "x"})
	require.Error(t, err)

	var pe *llm.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, providerName, pe.Provider)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.True(t, llm.IsRateLimited(err))
}

func TestCompleteEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"msg_2","type":"message","role":"assistant","content":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Complete(context.Background(), llm.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text content")
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		retryable  bool
	}{
		{
			name:       "request error keeps status",
			err:        &anthropic.RequestError{StatusCode: http.StatusServiceUnavailable, Body: []byte("unavailable")},
			wantStatus: http.StatusServiceUnavailable,
			retryable:  true,
		},
		{
			name:       "overloaded",
			err:        fmt.Errorf("error, status code: 529, message: %w", &anthropic.APIError{Type: anthropic.ErrTypeOverloaded}),
			wantStatus: 529,
			retryable:  true,
		},
		{
			name:       "invalid request has no status",
			err:        fmt.Errorf("error, status code: 400, message: %w", &anthropic.APIError{Type: anthropic.ErrTypeInvalidRequest}),
			wantStatus: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError(tt.err)
			var pe *llm.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantStatus, pe.StatusCode)
			assert.Equal(t, tt.retryable, llm.IsRetryable(err))
		})
	}

	assert.Equal(t, context.DeadlineExceeded, wrapError(context.DeadlineExceeded))
}
