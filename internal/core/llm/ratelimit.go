package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited shares one token bucket across every call made through it.
type RateLimited struct {
	next    Client
	limiter *rate.Limiter
}

// NewRateLimited allows requestsPerMinute calls per minute with a burst of burst.
// A non-positive rate disables limiting.
func NewRateLimited(next Client, requestsPerMinute, burst int) *RateLimited {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Complete waits for a token, then delegates. Waiting honours ctx.
func (r *RateLimited) Complete(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.next.Complete(ctx, req)
}
