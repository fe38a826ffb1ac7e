package ranking

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ahrav/go-duel/internal/domain"
	"github.com/ahrav/go-duel/internal/ports"
	"github.com/ahrav/go-duel/internal/stats"
)

// Session is the state machine for one active ranking run. It owns the
// belief state exclusively and moves between two states: active and
// stopped. Recording a comparison that fires any stopping criterion
// transitions to stopped; only an undo transitions back.
//
// Mutating calls (RecordComparison, UndoLastComparison) must be serialized
// by the caller; concurrent mutating calls on one session are undefined
// behavior. Read-only observers are synchronous and never touch the
// backend. SelectPair, RecordComparison, and UndoLastComparison suspend
// while awaiting the backend's correlated response.
type Session struct {
	items []domain.Item
	index map[string]int
	cfg   Config

	backend ports.ComputeBackend

	mu    []float64
	sigma []float64

	history []domain.Comparison
	records []domain.ComparisonRecord

	stability stats.StabilityTracker

	stopped    bool
	stopReason domain.StopReason

	// generation invalidates in-flight speculative work; it only advances
	// on undo, the one transition that makes speculative histories wrong.
	generation atomic.Uint64

	// requestID correlates backend requests with their responses.
	requestID atomic.Uint64

	duplicates []DuplicateWarning
}

// Outcome reports whether a recorded comparison terminated the session.
type Outcome struct {
	// Stopped is true when any stopping criterion fired.
	Stopped bool `json:"stopped"`

	// Reason identifies the criterion that fired; empty while active.
	Reason domain.StopReason `json:"reason,omitempty"`
}

// NewSession creates an active session over the given items.
// The configuration is normalized and validated; the initial belief state
// is the prior (all strengths zero, all uncertainties sqrt(priorVariance)).
// The backend is an explicitly injected collaborator whose lifecycle the
// caller owns; the session never starts or stops it.
func NewSession(items []domain.Item, cfg Config, backend ports.ComputeBackend) (*Session, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: nil compute backend", domain.ErrInvalidConfiguration)
	}
	if len(items) < 2 {
		return nil, fmt.Errorf("%w: need at least two items, got %d",
			domain.ErrInvalidConfiguration, len(items))
	}

	index := make(map[string]int, len(items))
	for i, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("%w: item %d has empty id", domain.ErrInvalidConfiguration, i)
		}
		if _, dup := index[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %q", domain.ErrInvalidConfiguration, item.ID)
		}
		index[item.ID] = i
	}

	// The empty-history fit is the prior; computing it locally keeps the
	// constructor synchronous while matching the backend's math exactly.
	est, err := stats.Fit(nil, len(items), cfg.PriorVariance)
	if err != nil {
		return nil, err
	}

	return &Session{
		items:      append([]domain.Item(nil), items...),
		index:      index,
		cfg:        cfg,
		backend:    backend,
		mu:         est.Mu,
		sigma:      est.Sigma,
		duplicates: FindNearDuplicates(items, DuplicateSimilarityThreshold),
	}, nil
}

// SelectPair asks the backend for the most informative next comparison and
// returns the two items to present. Immediately after the pair resolves,
// the session speculatively precomputes both possible outcomes in the
// background to warm the backend cache; see speculate.go.
func (s *Session) SelectPair(ctx context.Context) (domain.Item, domain.Item, error) {
	if s.stopped {
		return domain.Item{}, domain.Item{}, domain.ErrSessionStopped
	}

	req := ports.SelectPairRequest{
		ID:              s.requestID.Add(1),
		Mu:              append([]float64(nil), s.mu...),
		Sigma:           append([]float64(nil), s.sigma...),
		History:         append([]domain.Comparison(nil), s.history...),
		K:               s.cfg.K,
		N:               len(s.items),
		PriorVariance:   s.cfg.PriorVariance,
		RecencyDiscount: s.cfg.RecencyDiscount,
	}

	resp, err := s.backend.SelectPair(ctx, req)
	if err != nil {
		return domain.Item{}, domain.Item{}, err
	}
	if resp.ID != req.ID {
		return domain.Item{}, domain.Item{}, fmt.Errorf(
			"backend correlator mismatch: sent %d, got %d", req.ID, resp.ID)
	}

	s.speculate(resp.I, resp.J)

	return s.items[resp.I], s.items[resp.J], nil
}

// RecordComparison commits one comparison outcome, refits the posterior
// over the full new history through the backend, and evaluates the
// stopping policy. The refit is always authoritative: speculative results
// can only have warmed the backend cache, never substitute for it.
//
// Any error leaves the session exactly as it was before the call.
func (s *Session) RecordComparison(ctx context.Context, winnerID, loserID string) (Outcome, error) {
	if s.stopped {
		return Outcome{}, domain.ErrSessionStopped
	}

	winner, ok := s.index[winnerID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: winner %q", domain.ErrUnknownItem, winnerID)
	}
	loser, ok := s.index[loserID]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: loser %q", domain.ErrUnknownItem, loserID)
	}
	if winner == loser {
		return Outcome{}, fmt.Errorf("%w: %q", domain.ErrSelfComparison, winnerID)
	}

	s.history = append(s.history, domain.Comparison{Winner: winner, Loser: loser})
	s.records = append(s.records, domain.ComparisonRecord{
		Winner:    s.items[winner],
		Loser:     s.items[loser],
		Timestamp: time.Now(),
	})

	if err := s.refit(ctx); err != nil {
		s.history = s.history[:len(s.history)-1]
		s.records = s.records[:len(s.records)-1]
		return Outcome{}, err
	}

	s.evaluateStopping()

	return Outcome{Stopped: s.stopped, Reason: s.stopReason}, nil
}

// UndoLastComparison removes the most recent comparison and returns it.
// The posterior is restored by a fresh refit over the truncated history,
// never from a cached snapshot, and all stability memory is forfeited:
// previous top-K, stable count, and flip history reset to their initial
// state. A stopped session re-enters the active state.
func (s *Session) UndoLastComparison(ctx context.Context) (domain.ComparisonRecord, error) {
	if len(s.history) == 0 {
		return domain.ComparisonRecord{}, domain.ErrEmptyHistory
	}

	// Invalidate in-flight speculation; its hypothetical histories no
	// longer extend the committed one.
	s.generation.Add(1)

	last := len(s.history) - 1
	popped := s.records[last]
	poppedComparison := s.history[last]
	s.history = s.history[:last]
	s.records = s.records[:last]

	if err := s.refit(ctx); err != nil {
		s.history = append(s.history, poppedComparison)
		s.records = append(s.records, popped)
		return domain.ComparisonRecord{}, err
	}

	s.stability.Reset()
	s.stopped = false
	s.stopReason = ""

	return popped, nil
}

// refit replaces the session posterior with a fresh backend fit over the
// current history.
func (s *Session) refit(ctx context.Context) error {
	req := ports.RefitRequest{
		ID:            s.requestID.Add(1),
		History:       append([]domain.Comparison(nil), s.history...),
		N:             len(s.items),
		PriorVariance: s.cfg.PriorVariance,
	}

	resp, err := s.backend.BayesianRefit(ctx, req)
	if err != nil {
		return err
	}
	if resp.ID != req.ID {
		return fmt.Errorf("backend correlator mismatch: sent %d, got %d", req.ID, resp.ID)
	}

	s.mu = append([]float64(nil), resp.Mu...)
	s.sigma = append([]float64(nil), resp.Sigma...)
	return nil
}

// evaluateStopping checks the criteria in their fixed order: confidence,
// stability, hard cap. The stability tracker observes every round so the
// flip history stays complete for the forecaster even when an earlier
// criterion fires.
func (s *Session) evaluateStopping() {
	confidence := stats.CheckConfidenceStop(
		s.mu, s.sigma, s.cfg.K, s.cfg.Z, s.cfg.ConfidenceThreshold)

	s.stability.Observe(stats.TopKIndices(s.mu, s.cfg.K))
	stability := s.stability.Stopped(s.cfg.StabilityWindow)

	switch {
	case confidence:
		s.stop(domain.StopConfidence)
	case stability:
		s.stop(domain.StopStability)
	case len(s.history) >= s.cfg.MaxComparisons:
		s.stop(domain.StopMaxComparisons)
	}
}

func (s *Session) stop(reason domain.StopReason) {
	s.stopped = true
	s.stopReason = reason
}

// Round returns the number of committed comparisons.
func (s *Session) Round() int { return len(s.history) }

// Stopped reports whether any stopping criterion has fired.
func (s *Session) Stopped() bool { return s.stopped }

// StopReason returns the criterion that stopped the session, or empty
// while active.
func (s *Session) StopReason() domain.StopReason { return s.stopReason }

// Estimate returns a copy of the current posterior.
func (s *Session) Estimate() domain.StrengthEstimate {
	return domain.StrengthEstimate{Mu: s.mu, Sigma: s.sigma}.Clone()
}

// Mu returns a copy of the current MAP strengths.
func (s *Session) Mu() []float64 { return append([]float64(nil), s.mu...) }

// Sigma returns a copy of the current marginal uncertainties.
func (s *Session) Sigma() []float64 { return append([]float64(nil), s.sigma...) }

// TopK returns the current top-K items ordered by MAP strength descending.
func (s *Session) TopK() []domain.Item {
	top := stats.TopKIndices(s.mu, s.cfg.K)

	// Canonical order is ascending by index; present strongest first.
	out := make([]domain.Item, 0, len(top))
	for len(top) > 0 {
		best := 0
		for i := 1; i < len(top); i++ {
			if s.mu[top[i]] > s.mu[top[best]] {
				best = i
			}
		}
		out = append(out, s.items[top[best]])
		top = append(top[:best], top[best+1:]...)
	}
	return out
}

// History returns a copy of the committed comparison records.
func (s *Session) History() []domain.ComparisonRecord {
	return append([]domain.ComparisonRecord(nil), s.records...)
}

// Items returns a copy of the session's item list.
func (s *Session) Items() []domain.Item {
	return append([]domain.Item(nil), s.items...)
}

// DuplicateWarnings returns the near-duplicate item pairs detected at
// construction. Purely advisory; duplicates are legal.
func (s *Session) DuplicateWarnings() []DuplicateWarning {
	return append([]DuplicateWarning(nil), s.duplicates...)
}

// EstimateRemaining forecasts the rounds left until the stability stop,
// capped by the remaining comparison budget. Nil means the forecast is not
// yet informative. Advisory only; it never blocks the session.
func (s *Session) EstimateRemaining() *stats.RemainingEstimate {
	budget := s.cfg.MaxComparisons - len(s.history)
	if budget < 0 {
		budget = 0
	}
	return stats.EstimateRemaining(
		s.stability.FlipHistory(),
		s.stability.StableCount(),
		s.cfg.StabilityWindow,
		budget,
	)
}
