package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
)

const providerName = "ollama"

// Config for a local Ollama server.
type Config struct {
	BaseURL string // default http://localhost:11434
	Model   string // default llama3.1
	Timeout time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Format  any            `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Complete implements llm.Client against /api/generate. The schema is passed
// as the structured output format.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	body := generateRequest{
		Model:  c.cfg.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.MaxTokens > 0 {
		body.Options["num_predict"] = req.MaxTokens
	}
	if req.Schema != nil {
		body.Format = req.Schema
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/generate"
	raw, _, err := llm.SendJSON(ctx, c.http, providerName, endpoint, body, nil, c.logger)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &llm.ProviderError{Provider: providerName, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != "" {
		return "", &llm.ProviderError{Provider: providerName, Err: fmt.Errorf("%s", out.Error)}
	}
	return out.Response, nil
}
