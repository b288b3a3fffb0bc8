package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
)

const chatReply = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"findings\":[]}"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
}`

func TestCompleteMapsRequest(t *testing.T) {
	var got goopenai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}, nil)
	out, err := c.Complete(context.Background(), llm.Request{
		System:      "You extract findings.",
		Prompt:      "SOURCE: inspection",
		Schema:      map[string]any{"type": "object"},
		Temperature: 0.2,
		MaxTokens:   512,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"findings":[]}`, out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, float32(0.2), got.Temperature)
	assert.Equal(t, 512, got.MaxTokens)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, goopenai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "You extract findings.", got.Messages[0].Content)
	assert.Equal(t, goopenai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Equal(t, "SOURCE: inspection", got.Messages[1].Content)
	assert.Equal(t, goopenai.ChatMessageRoleSystem, got.Messages[2].Role)
	assert.Contains(t, got.Messages[2].Content, "JSON Schema:")
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, goopenai.ChatCompletionResponseFormatTypeJSONObject, got.ResponseFormat.Type)
}

func TestCompleteWithoutSchemaOrSystem(t *testing.T) {
	var got goopenai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(chatReply))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL, Model: "local"}, nil).Complete(context.Background(), llm.Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "local", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, goopenai.ChatMessageRoleUser, got.Messages[0].Role)
	assert.Nil(t, got.ResponseFormat)
}

func TestCompleteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`))
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

func TestCompleteServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Complete(context.Background(), llm.Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, llm.IsRetryable(err))
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Complete(context.Background(), llm.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestWrapErrorKeepsContextErrors(t *testing.T) {
	assert.Equal(t, context.Canceled, wrapError(context.Canceled))
	wrapped := wrapError(errors.New("dial tcp: refused"))
	var pe *llm.ProviderError
	require.ErrorAs(t, wrapped, &pe)
	assert.Zero(t, pe.StatusCode)
}
