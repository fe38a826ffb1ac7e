package backend

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-duel/internal/ports"
)

// rateLimitedBackend throttles request admission with a token bucket.
// Speculative precomputation issues up to four background requests per
// round on top of the committed ones; bounding admission keeps a shared
// backend responsive for its interactive callers.
type rateLimitedBackend struct {
	next    ports.ComputeBackend
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces rate limiting using
// a token bucket algorithm. The limit parameter sets requests per second,
// while burst allows temporary spikes above the sustained rate.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next ports.ComputeBackend) ports.ComputeBackend {
		return &rateLimitedBackend{next: next, limiter: limiter}
	}
}

// SelectPair waits for rate limit permission before forwarding.
func (r *rateLimitedBackend) SelectPair(ctx context.Context, req ports.SelectPairRequest) (ports.SelectPairResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return ports.SelectPairResponse{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.SelectPair(ctx, req)
}

// BayesianRefit waits for rate limit permission before forwarding.
func (r *rateLimitedBackend) BayesianRefit(ctx context.Context, req ports.RefitRequest) (ports.RefitResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return ports.RefitResponse{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.BayesianRefit(ctx, req)
}
