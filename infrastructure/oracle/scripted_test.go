package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-duel/internal/domain"
)

var (
	strong = domain.Item{ID: "strong", Content: "the better one"}
	weak   = domain.Item{ID: "weak", Content: "the worse one"}

	strengths = map[string]float64{"strong": 2.0, "weak": -1.0}
)

func TestPerfectOracle(t *testing.T) {
	o := NewPerfectOracle(strengths)
	ctx := context.Background()

	winner, err := o.Compare(ctx, strong, weak)
	require.NoError(t, err)
	assert.Equal(t, "strong", winner.ID)

	// Argument order is irrelevant.
	winner, err = o.Compare(ctx, weak, strong)
	require.NoError(t, err)
	assert.Equal(t, "strong", winner.ID)
}

func TestPerfectOracle_UnknownItem(t *testing.T) {
	o := NewPerfectOracle(strengths)

	_, err := o.Compare(context.Background(), domain.Item{ID: "mystery"}, weak)
	assert.Error(t, err)

	_, err = o.Compare(context.Background(), strong, domain.Item{ID: "mystery"})
	assert.Error(t, err)
}

func TestNoisyOracle_Deterministic(t *testing.T) {
	ctx := context.Background()
	a := NewNoisyOracle(strengths, 42)
	b := NewNoisyOracle(strengths, 42)

	for i := 0; i < 50; i++ {
		wa, err := a.Compare(ctx, strong, weak)
		require.NoError(t, err)
		wb, err := b.Compare(ctx, strong, weak)
		require.NoError(t, err)
		assert.Equal(t, wa.ID, wb.ID, "same seed must replay the same outcomes")
	}
}

// TestNoisyOracle_FavorsStrongerItem verifies the outcome frequency tracks
// the Bradley-Terry win probability: a 3-unit strength gap should produce
// an overwhelming but not perfect win rate.
func TestNoisyOracle_FavorsStrongerItem(t *testing.T) {
	o := NewNoisyOracle(strengths, 7)
	ctx := context.Background()

	wins := 0
	const rounds = 2000
	for i := 0; i < rounds; i++ {
		w, err := o.Compare(ctx, strong, weak)
		require.NoError(t, err)
		if w.ID == "strong" {
			wins++
		}
	}

	// P(strong wins) = sigmoid(3) ~ 0.9526.
	winRate := float64(wins) / rounds
	assert.InDelta(t, 0.9526, winRate, 0.02)
}

func TestNoisyOracle_UnknownItem(t *testing.T) {
	o := NewNoisyOracle(strengths, 1)
	_, err := o.Compare(context.Background(), domain.Item{ID: "mystery"}, weak)
	assert.Error(t, err)
}
