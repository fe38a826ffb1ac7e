package oracle

import (
	"context"
	"fmt"

	"github.com/ahrav/go-duel/internal/domain"
	"github.com/ahrav/go-duel/internal/stats"
)

// PerfectOracle always reports the item with the higher assigned true
// strength. Useful for simulations and for validating that a session
// converges to the genuinely strongest items.
type PerfectOracle struct {
	strengths map[string]float64
}

// NewPerfectOracle creates an oracle over the given true strengths, keyed
// by item ID.
func NewPerfectOracle(strengths map[string]float64) *PerfectOracle {
	return &PerfectOracle{strengths: strengths}
}

// Compare implements Oracle.
func (o *PerfectOracle) Compare(_ context.Context, a, b domain.Item) (domain.Item, error) {
	sa, ok := o.strengths[a.ID]
	if !ok {
		return domain.Item{}, fmt.Errorf("no strength assigned to item %q", a.ID)
	}
	sb, ok := o.strengths[b.ID]
	if !ok {
		return domain.Item{}, fmt.Errorf("no strength assigned to item %q", b.ID)
	}

	if sa >= sb {
		return a, nil
	}
	return b, nil
}

// NoisyOracle reports winners stochastically from the Bradley-Terry model
// over assigned true strengths, reproducing the noise profile the engine
// is designed for. Deterministic for a given seed and comparison sequence.
type NoisyOracle struct {
	strengths map[string]float64
	rng       *stats.RNG
}

// NewNoisyOracle creates a seeded stochastic oracle over the given true
// strengths.
func NewNoisyOracle(strengths map[string]float64, seed uint64) *NoisyOracle {
	return &NoisyOracle{strengths: strengths, rng: stats.NewRNG(seed)}
}

// Compare implements Oracle.
func (o *NoisyOracle) Compare(_ context.Context, a, b domain.Item) (domain.Item, error) {
	sa, ok := o.strengths[a.ID]
	if !ok {
		return domain.Item{}, fmt.Errorf("no strength assigned to item %q", a.ID)
	}
	sb, ok := o.strengths[b.ID]
	if !ok {
		return domain.Item{}, fmt.Errorf("no strength assigned to item %q", b.ID)
	}

	if o.rng.Float64() < stats.WinProbability(sa, sb) {
		return a, nil
	}
	return b, nil
}
