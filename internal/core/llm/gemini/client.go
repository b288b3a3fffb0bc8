package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
)

const providerName = "gemini"

// Config for the Gemini client.
type Config struct {
	APIKey string
	Model  string // default gemini-2.5-flash
}

type Client struct {
	cfg    Config
	api    *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	api, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{cfg: cfg, api: api, logger: logger}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.api.Close()
}

// Complete implements llm.Client. A schema switches the response MIME type to JSON.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	start := time.Now()

	model := c.api.GenerativeModel(c.cfg.Model)
	configure(model, req)

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		c.logger.Error("llm.gemini.error", "model", c.cfg.Model, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", wrapError(err)
	}

	var b strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	if b.Len() == 0 {
		return "", &llm.ProviderError{Provider: providerName, Err: fmt.Errorf("no response candidates or content")}
	}

	c.logger.Debug("llm.gemini.ok", "model", c.cfg.Model, "elapsed_ms", time.Since(start).Milliseconds())
	return b.String(), nil
}

// configure applies the per-call settings of req to model.
func configure(model *genai.GenerativeModel, req llm.Request) {
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	system := req.System
	if req.Schema != nil {
		model.ResponseMIMEType = "application/json"
		system = strings.TrimSpace(system + "\n\nJSON Schema:\n" + llm.SchemaJSON(req.Schema))
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
}

func wrapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	pe := &llm.ProviderError{Provider: providerName, Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		pe.StatusCode = gerr.Code
	}
	return pe
}
