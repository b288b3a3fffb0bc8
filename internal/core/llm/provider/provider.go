// Package provider builds the configured llm.Client, wrapped with the retry
// policy and the shared rate limiter.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/ddr-generator/internal/common"
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm"
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm/anthropic"
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm/gemini"
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm/ollama"
	"github.com/joseph-ayodele/ddr-generator/internal/core/llm/openai"
)

const retryBaseBackoff = 2 * time.Second

// New returns the client for cfg.Provider and a func that releases it.
func New(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Client, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base, closer, err := newBase(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	client := llm.WithRetry(base, cfg.MaxRetries, retryBaseBackoff, logger)
	client = llm.NewRateLimited(client, cfg.RequestsPerMinute, cfg.Concurrency)

	logger.Info("llm.provider.ready",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"max_retries", cfg.MaxRetries,
		"requests_per_minute", cfg.RequestsPerMinute,
	)
	return client, closer, nil
}

func newBase(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Client, func() error, error) {
	noop := func() error { return nil }
	timeout := max(cfg.Timeout, cfg.ReportTimeout)

	switch cfg.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		}, logger), noop, nil
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		}, logger), noop, nil
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.APIKey, Model: cfg.Model}, logger)
		if err != nil {
			return nil, nil, common.NewLLMUnavailableError("gemini client", err)
		}
		return c, c.Close, nil
	case "ollama":
		return ollama.NewClient(ollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: timeout,
		}, logger), noop, nil
	default:
		return nil, nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown LLM_PROVIDER %q", cfg.Provider), common.ErrInvalidInput)
	}
}
