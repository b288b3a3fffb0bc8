package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
)

const providerName = "anthropic"

// Config for the Anthropic client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg    Config
	api    *anthropic.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(&http.Client{Timeout: cfg.Timeout})}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		cfg:    cfg,
		api:    anthropic.NewClient(cfg.APIKey, opts...),
		logger: logger,
	}
}

// Complete implements llm.Client with the messages API. The schema, if any,
// is appended to the system prompt since the API has no JSON mode.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	start := time.Now()

	system := req.System
	if req.Schema != nil {
		system = strings.TrimSpace(system + "\n\nJSON Schema:\n" + llm.SchemaJSON(req.Schema))
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	temperature := req.Temperature

	resp, err := c.api.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:  anthropic.Model(c.cfg.Model),
		System: system,
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(req.Prompt),
				},
			},
		},
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		c.logger.Error("llm.anthropic.error", "model", c.cfg.Model, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", wrapError(err)
	}

	var b strings.Builder
	for _, part := range resp.Content {
		if part.Text != nil {
			b.WriteString(*part.Text)
		}
	}
	if b.Len() == 0 {
		return "", &llm.ProviderError{Provider: providerName, Err: fmt.Errorf("no text content in response")}
	}

	c.logger.Debug("llm.anthropic.ok",
		"model", c.cfg.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b.String(), nil
}

// wrapError keeps context errors intact and recovers a status code. The SDK only
// reports the code on RequestError, so typed API errors are mapped by kind.
func wrapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	pe := &llm.ProviderError{Provider: providerName, Err: err}
	var reqErr *anthropic.RequestError
	var apiErr *anthropic.APIError
	switch {
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.StatusCode
	case errors.As(err, &apiErr):
		switch {
		case apiErr.IsRateLimitErr():
			pe.StatusCode = http.StatusTooManyRequests
		case apiErr.IsOverloadedErr():
			pe.StatusCode = 529
		case apiErr.IsApiErr():
			pe.StatusCode = http.StatusInternalServerError
		}
	}
	return pe
}
