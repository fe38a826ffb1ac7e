// Package oracle supplies automated judges for unattended ranking runs.
// An Oracle answers one pairwise comparison at a time; the CLI wires one
// between Session.SelectPair and Session.RecordComparison. Implementations
// range from deterministic scripted oracles for simulation and tests to
// LLM-backed judges for real content.
package oracle

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-duel/internal/domain"
)

// Oracle decides the winner of one pairwise comparison.
type Oracle interface {
	// Compare returns whichever of a and b the oracle judges stronger.
	Compare(ctx context.Context, a, b domain.Item) (domain.Item, error)
}

// rateLimitedOracle throttles comparisons with a token bucket, keeping
// LLM-backed judges inside provider rate limits.
type rateLimitedOracle struct {
	next    Oracle
	limiter *rate.Limiter
}

// RateLimited wraps an oracle with token-bucket rate limiting at the given
// sustained comparisons-per-second limit and burst.
func RateLimited(next Oracle, limit rate.Limit, burst int) Oracle {
	return &rateLimitedOracle{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Compare waits for rate limit permission before forwarding.
func (r *rateLimitedOracle) Compare(ctx context.Context, a, b domain.Item) (domain.Item, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.Item{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Compare(ctx, a, b)
}
