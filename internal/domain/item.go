// Package domain contains the core types for active top-K ranking:
// candidate items, pairwise comparison events, and posterior strength
// estimates. These types carry no behavior beyond invariant checks and
// are shared by the statistics engine, the session orchestrator, and
// the compute backend protocol.
package domain

import "time"

// Item represents a single candidate being ranked.
// Each item has a unique identifier and its displayable content.
type Item struct {
	// ID uniquely identifies this item within a ranking session.
	ID string `json:"id"`

	// Content contains the item text or payload shown to a judge.
	Content string `json:"content"`
}

// Comparison records the outcome of one pairwise comparison in index space.
// Winner and Loser are positions in the session's item slice, not item IDs.
// The comparison history is append-only and ordered; index r corresponds to
// round r+1.
type Comparison struct {
	// Winner is the index of the item that won the comparison.
	Winner int `json:"winner"`

	// Loser is the index of the item that lost the comparison.
	Loser int `json:"loser"`
}

// Involves reports whether the comparison references the given item index.
func (c Comparison) Involves(i int) bool { return c.Winner == i || c.Loser == i }

// ComparisonRecord is the same event as Comparison but in the caller's
// item domain. Records are kept in parallel with the index history for
// undo support and display.
type ComparisonRecord struct {
	// Winner is the item that won the comparison.
	Winner Item `json:"winner"`

	// Loser is the item that lost the comparison.
	Loser Item `json:"loser"`

	// Timestamp records when the comparison was committed.
	Timestamp time.Time `json:"timestamp"`
}

// StrengthEstimate holds the MAP strengths and marginal posterior standard
// deviations for every item, as produced by a full Bayesian refit.
// Mu[0] is always pinned at 0 because Bradley-Terry strengths are
// identifiable only up to an additive constant. Estimates are recomputed
// wholesale after every comparison, never patched incrementally.
type StrengthEstimate struct {
	// Mu contains the MAP strength for each item.
	Mu []float64 `json:"mu"`

	// Sigma contains the marginal posterior standard deviation for each
	// item. Sigma[i] >= 0 for all i.
	Sigma []float64 `json:"sigma"`
}

// Len returns the number of items covered by the estimate.
func (e StrengthEstimate) Len() int { return len(e.Mu) }

// Clone returns a deep copy of the estimate so callers can hold it across
// subsequent refits without aliasing session state.
func (e StrengthEstimate) Clone() StrengthEstimate {
	out := StrengthEstimate{
		Mu:    make([]float64, len(e.Mu)),
		Sigma: make([]float64, len(e.Sigma)),
	}
	copy(out.Mu, e.Mu)
	copy(out.Sigma, e.Sigma)
	return out
}

// StopReason identifies which stopping criterion terminated a session.
type StopReason string

// Stopping criteria, checked in this order after every recorded comparison.
const (
	// StopConfidence fires when the confidence intervals of the top-K and
	// the remaining items no longer overlap by more than the configured
	// threshold.
	StopConfidence StopReason = "confidence"

	// StopStability fires when the top-K set has not changed for the
	// configured number of consecutive rounds.
	StopStability StopReason = "stability"

	// StopMaxComparisons fires unconditionally once the round count
	// reaches the configured hard cap.
	StopMaxComparisons StopReason = "max-comparisons"
)
