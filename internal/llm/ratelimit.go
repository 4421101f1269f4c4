package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to the wrapped Completer. A call that cannot
// get a token before its deadline fails with ErrUpstreamRateLimited.
type RateLimited struct {
	next    Completer
	limiter *rate.Limiter
}

// NewRateLimited wraps next. rps <= 0 disables limiting.
func NewRateLimited(next Completer, rps float64, burst int) *RateLimited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Complete(ctx context.Context, req Request) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamRateLimited, err)
	}
	return r.next.Complete(ctx, req)
}

// ListModels delegates when the wrapped Completer can list models.
func (r *RateLimited) ListModels(ctx context.Context) ([]ModelInfo, error) {
	lister, ok := r.next.(ModelLister)
	if !ok {
		return nil, fmt.Errorf("%w: model listing not supported", ErrUpstreamService)
	}
	return lister.ListModels(ctx)
}

// Unwrap returns the wrapped Completer.
func (r *RateLimited) Unwrap() Completer { return r.next }
