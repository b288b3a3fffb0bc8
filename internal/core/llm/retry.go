package llm

import (
	"context"
	"log/slog"
	"time"
)

// Retrying re-issues calls that failed with a retryable error, doubling the
// wait each attempt.
type Retrying struct {
	next        Client
	maxRetries  int
	baseBackoff time.Duration
	logger      *slog.Logger
}

// WithRetry wraps next. With maxRetries <= 0 it returns next unchanged.
func WithRetry(next Client, maxRetries int, baseBackoff time.Duration, logger *slog.Logger) Client {
	if maxRetries <= 0 {
		return next
	}
	if baseBackoff <= 0 {
		baseBackoff = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, maxRetries: maxRetries, baseBackoff: baseBackoff, logger: logger}
}

func (r *Retrying) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		out, err := r.next.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsRetryable(err) {
			return "", lastErr
		}

		if attempt < r.maxRetries {
			wait := r.baseBackoff * (1 << uint(attempt))
			r.logger.WarnContext(ctx, "llm.retry",
				"attempt", attempt+1,
				"max_retries", r.maxRetries,
				"backoff_ms", wait.Milliseconds(),
				"error", err,
			)
			select {
			case <-ctx.Done():
				return "", lastErr
			case <-time.After(wait):
			}
		}
	}
	return "", lastErr
}
