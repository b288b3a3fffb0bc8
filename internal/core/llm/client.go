package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Request is one completion call. Schema, when set, is sent to the model as an
// output hint; the caller still validates whatever comes back.
type Request struct {
	System      string
	Prompt      string
	Schema      map[string]any
	Temperature float32
	MaxTokens   int
}

// Client is the only contract the pipeline has with a model provider: raw text
// out, or a transport/timeout error.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ProviderError wraps a failure reported by a provider SDK or HTTP endpoint.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when the provider did not expose one
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

var rateLimitMarkers = []string{"quota", "429", "rate_limit", "rate limit"}

// IsRateLimited reports whether err looks like a provider quota or rate-limit rejection.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether a new attempt could succeed: rate limits, 5xx
// responses and network timeouts. Context errors are never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if IsRateLimited(err) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode >= 500 {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Call runs client.Complete and returns as soon as ctx ends, even when the
// client ignores ctx. A late reply is discarded.
func Call(ctx context.Context, client Client, req Request) (string, error) {
	type reply struct {
		text string
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		text, err := client.Complete(ctx, req)
		ch <- reply{text, err}
	}()
	select {
	case r := <-ch:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
