package ranking

import (
	"context"

	"github.com/ahrav/go-duel/internal/domain"
	"github.com/ahrav/go-duel/internal/ports"
)

// speculate issues fire-and-forget background work for both possible
// outcomes of the pair the caller is about to judge: a hypothetical refit,
// then the pair selection that would follow it. Neither result is ever
// read back; a pure-function-keyed backend cache is the only place they
// land, so the committed path's authoritative recomputation finds warm
// entries instead of cold O(N^2) work.
//
// Speculation never mutates committed state and never gates the main path.
// A generation counter captured at launch detects sessions that have moved
// on (an undo occurred); stale work is abandoned silently, and all errors
// are swallowed.
func (s *Session) speculate(i, j int) {
	gen := s.generation.Load()
	base := append([]domain.Comparison(nil), s.history...)

	for _, outcome := range [2]domain.Comparison{
		{Winner: i, Loser: j},
		{Winner: j, Loser: i},
	} {
		hypothetical := make([]domain.Comparison, len(base), len(base)+1)
		copy(hypothetical, base)
		hypothetical = append(hypothetical, outcome)

		go s.speculateOutcome(gen, hypothetical)
	}
}

// speculateOutcome runs one hypothetical branch to completion unless the
// session's generation has advanced past the one it was launched under.
func (s *Session) speculateOutcome(gen uint64, hypothetical []domain.Comparison) {
	ctx := context.Background()

	refit, err := s.backend.BayesianRefit(ctx, ports.RefitRequest{
		ID:            s.requestID.Add(1),
		History:       hypothetical,
		N:             len(s.items),
		PriorVariance: s.cfg.PriorVariance,
	})
	if err != nil || gen != s.generation.Load() {
		return
	}

	_, _ = s.backend.SelectPair(ctx, ports.SelectPairRequest{
		ID:              s.requestID.Add(1),
		Mu:              refit.Mu,
		Sigma:           refit.Sigma,
		History:         hypothetical,
		K:               s.cfg.K,
		N:               len(s.items),
		PriorVariance:   s.cfg.PriorVariance,
		RecencyDiscount: s.cfg.RecencyDiscount,
	})
}
