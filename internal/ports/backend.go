// Package ports defines the interfaces between the ranking orchestrator
// and its infrastructure: the compute backend that runs the expensive
// statistics, and the observability collectors. Implementations live under
// infrastructure/; the orchestrator depends only on these contracts, which
// keeps every collaborator substitutable in tests.
package ports

import (
	"context"

	"github.com/ahrav/go-duel/internal/domain"
)

// SelectPairRequest asks the backend to choose the most informative next
// comparison given the current belief state. ID is a unique numeric
// correlator echoed in the response; no ordering is guaranteed across
// independently issued requests.
type SelectPairRequest struct {
	// ID correlates this request with its response.
	ID uint64 `json:"id"`

	// Mu and Sigma describe the current posterior over item strengths.
	Mu    []float64 `json:"mu"`
	Sigma []float64 `json:"sigma"`

	// History is the full committed comparison history.
	History []domain.Comparison `json:"history"`

	// K is the number of top items being identified.
	K int `json:"k"`

	// N is the item count.
	N int `json:"n"`

	// PriorVariance is the Gaussian prior variance for hypothetical refits.
	PriorVariance float64 `json:"prior_variance"`

	// RecencyDiscount in (0, 1] penalizes pairs repeating recent items.
	RecencyDiscount float64 `json:"recency_discount"`

	// NoCache forces a bypass of backend memoization, for benchmarking and
	// determinism tests.
	NoCache bool `json:"no_cache,omitempty"`
}

// SelectPairResponse carries the chosen pair, with I < J guaranteed.
type SelectPairResponse struct {
	// ID echoes the request correlator.
	ID uint64 `json:"id"`

	// I and J are the selected item indices, I < J.
	I int `json:"i"`
	J int `json:"j"`
}

// RefitRequest asks the backend for a full Bayesian refit over the given
// history. Refits are pure functions of (History, N, PriorVariance), which
// is what makes backend-side memoization sound.
type RefitRequest struct {
	// ID correlates this request with its response.
	ID uint64 `json:"id"`

	// History is the comparison history to fit, possibly hypothetical.
	History []domain.Comparison `json:"history"`

	// N is the item count.
	N int `json:"n"`

	// PriorVariance is the Gaussian prior variance.
	PriorVariance float64 `json:"prior_variance"`

	// NoCache forces a bypass of backend memoization.
	NoCache bool `json:"no_cache,omitempty"`
}

// RefitResponse carries the refitted posterior.
type RefitResponse struct {
	// ID echoes the request correlator.
	ID uint64 `json:"id"`

	// Mu and Sigma are the MAP strengths and marginal uncertainties.
	Mu    []float64 `json:"mu"`
	Sigma []float64 `json:"sigma"`
}

// ComputeBackend runs the O(N^2)-pair, O(N)-Newton-iteration statistics off
// the caller's critical path. The contract is identical whether the
// implementation runs in-process, on worker goroutines, or across a process
// boundary: requests and responses are matched by their numeric correlator,
// and results depend only on request content.
//
// Both methods suspend the caller until the correlated response arrives.
// There is no cancellation protocol for in-flight work beyond ctx; callers
// issuing speculative requests simply discard stale results.
type ComputeBackend interface {
	// SelectPair chooses the most informative next comparison.
	SelectPair(ctx context.Context, req SelectPairRequest) (SelectPairResponse, error)

	// BayesianRefit recomputes the posterior over the full given history.
	BayesianRefit(ctx context.Context, req RefitRequest) (RefitResponse, error)
}
