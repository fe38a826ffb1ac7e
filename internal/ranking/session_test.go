package ranking

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-duel/internal/domain"
	"github.com/ahrav/go-duel/internal/ports"
	"github.com/ahrav/go-duel/internal/stats"
)

// syncBackend runs the statistics engine inline, with no pooling or
// caching. Sessions cannot tell the difference, which is the point of the
// ComputeBackend port.
type syncBackend struct {
	estimator stats.TopKEstimator
}

func newSyncBackend() *syncBackend {
	return &syncBackend{estimator: stats.QuadratureEstimator{}}
}

func (b *syncBackend) SelectPair(ctx context.Context, req ports.SelectPairRequest) (ports.SelectPairResponse, error) {
	i, j, err := stats.SelectPair(ctx, stats.SelectorParams{
		Mu:              req.Mu,
		Sigma:           req.Sigma,
		History:         req.History,
		K:               req.K,
		N:               req.N,
		PriorVariance:   req.PriorVariance,
		RecencyDiscount: req.RecencyDiscount,
	}, b.estimator)
	if err != nil {
		return ports.SelectPairResponse{}, err
	}
	return ports.SelectPairResponse{ID: req.ID, I: i, J: j}, nil
}

func (b *syncBackend) BayesianRefit(_ context.Context, req ports.RefitRequest) (ports.RefitResponse, error) {
	est, err := stats.Fit(req.History, req.N, req.PriorVariance)
	if err != nil {
		return ports.RefitResponse{}, err
	}
	return ports.RefitResponse{ID: req.ID, Mu: est.Mu, Sigma: est.Sigma}, nil
}

// failingBackend errors on every call, for rollback tests.
type failingBackend struct{}

func (failingBackend) SelectPair(context.Context, ports.SelectPairRequest) (ports.SelectPairResponse, error) {
	return ports.SelectPairResponse{}, fmt.Errorf("backend unavailable")
}

func (failingBackend) BayesianRefit(context.Context, ports.RefitRequest) (ports.RefitResponse, error) {
	return ports.RefitResponse{}, fmt.Errorf("backend unavailable")
}

func testItems(n int) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		items[i] = domain.Item{
			ID:      fmt.Sprintf("item-%d", i),
			Content: fmt.Sprintf("candidate number %d", i),
		}
	}
	return items
}

func TestNewSession_Validation(t *testing.T) {
	backend := newSyncBackend()

	tests := []struct {
		name    string
		items   []domain.Item
		cfg     Config
		backend ports.ComputeBackend
	}{
		{name: "missing K", items: testItems(3), cfg: Config{}, backend: backend},
		{name: "single item", items: testItems(1), cfg: Config{K: 1}, backend: backend},
		{name: "nil backend", items: testItems(3), cfg: Config{K: 1}, backend: nil},
		{
			name: "duplicate item ids",
			items: []domain.Item{
				{ID: "x", Content: "one"},
				{ID: "x", Content: "two"},
			},
			cfg: Config{K: 1}, backend: backend,
		},
		{
			name: "empty item id",
			items: []domain.Item{
				{ID: "", Content: "one"},
				{ID: "y", Content: "two"},
			},
			cfg: Config{K: 1}, backend: backend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession(tt.items, tt.cfg, tt.backend)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestNewSession_InitialState(t *testing.T) {
	sess, err := NewSession(testItems(4), Config{K: 2, PriorVariance: 4}, newSyncBackend())
	require.NoError(t, err)

	assert.Zero(t, sess.Round())
	assert.False(t, sess.Stopped())
	assert.Empty(t, sess.StopReason())
	assert.Empty(t, sess.History())
	assert.Len(t, sess.Items(), 4)

	// Prior belief: all strengths zero, all uncertainties sqrt(variance).
	est := sess.Estimate()
	for i := 0; i < 4; i++ {
		assert.Zero(t, est.Mu[i])
		assert.InDelta(t, 2.0, est.Sigma[i], 1e-12)
	}
}

func TestSession_RecordComparison(t *testing.T) {
	sess, err := NewSession(testItems(3), Config{K: 1}, newSyncBackend())
	require.NoError(t, err)

	outcome, err := sess.RecordComparison(context.Background(), "item-1", "item-0")
	require.NoError(t, err)
	assert.False(t, outcome.Stopped)

	assert.Equal(t, 1, sess.Round())
	require.Len(t, sess.History(), 1)
	assert.Equal(t, "item-1", sess.History()[0].Winner.ID)
	assert.Equal(t, "item-0", sess.History()[0].Loser.ID)
	assert.False(t, sess.History()[0].Timestamp.IsZero())

	// The refit should now favor the winner.
	mu := sess.Mu()
	assert.Greater(t, mu[1], mu[0])

	// Index 0 stays pinned, and its sigma collapses once evidence exists.
	assert.Zero(t, mu[0])
	assert.Zero(t, sess.Sigma()[0])
}

func TestSession_RecordComparison_Validation(t *testing.T) {
	sess, err := NewSession(testItems(3), Config{K: 1}, newSyncBackend())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = sess.RecordComparison(ctx, "item-9", "item-0")
	assert.ErrorIs(t, err, domain.ErrUnknownItem)

	_, err = sess.RecordComparison(ctx, "item-0", "item-9")
	assert.ErrorIs(t, err, domain.ErrUnknownItem)

	_, err = sess.RecordComparison(ctx, "item-0", "item-0")
	assert.ErrorIs(t, err, domain.ErrSelfComparison)

	// None of the failures committed anything.
	assert.Zero(t, sess.Round())
}

func TestSession_RecordComparison_RollsBackOnBackendFailure(t *testing.T) {
	sess, err := NewSession(testItems(3), Config{K: 1}, newSyncBackend())
	require.NoError(t, err)

	// Swap in a failing backend after construction.
	sess.backend = failingBackend{}

	muBefore := sess.Mu()
	_, err = sess.RecordComparison(context.Background(), "item-1", "item-0")
	require.Error(t, err)

	assert.Zero(t, sess.Round())
	assert.Empty(t, sess.History())
	assert.Equal(t, muBefore, sess.Mu())
}

func TestSession_SelectPair(t *testing.T) {
	sess, err := NewSession(testItems(4), Config{K: 2}, newSyncBackend())
	require.NoError(t, err)

	a, b, err := sess.SelectPair(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Contains(t, []string{"item-0", "item-1", "item-2", "item-3"}, a.ID)
	assert.Contains(t, []string{"item-0", "item-1", "item-2", "item-3"}, b.ID)
}

func TestSession_StoppedRejectsInteraction(t *testing.T) {
	sess, err := NewSession(testItems(3), Config{K: 1, MaxComparisons: 1}, newSyncBackend())
	require.NoError(t, err)

	ctx := context.Background()
	outcome, err := sess.RecordComparison(ctx, "item-1", "item-0")
	require.NoError(t, err)
	require.True(t, outcome.Stopped)
	assert.Equal(t, domain.StopMaxComparisons, outcome.Reason)
	assert.Equal(t, domain.StopMaxComparisons, sess.StopReason())

	_, _, err = sess.SelectPair(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionStopped)

	_, err = sess.RecordComparison(ctx, "item-2", "item-0")
	assert.ErrorIs(t, err, domain.ErrSessionStopped)

	// Observers remain available on a stopped session.
	assert.Equal(t, 1, sess.Round())
	assert.Len(t, sess.TopK(), 1)
}

func TestSession_Undo(t *testing.T) {
	sess, err := NewSession(testItems(3), Config{K: 1}, newSyncBackend())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = sess.RecordComparison(ctx, "item-1", "item-0")
	require.NoError(t, err)
	_, err = sess.RecordComparison(ctx, "item-2", "item-1")
	require.NoError(t, err)
	require.Equal(t, 2, sess.Round())

	popped, err := sess.UndoLastComparison(ctx)
	require.NoError(t, err)

	assert.Equal(t, "item-2", popped.Winner.ID)
	assert.Equal(t, "item-1", popped.Loser.ID)
	assert.Equal(t, 1, sess.Round())

	// The posterior matches a fresh fit over the truncated history.
	want, err := stats.Fit([]domain.Comparison{{Winner: 1, Loser: 0}}, 3, sess.cfg.PriorVariance)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Mu, sess.Mu(), 1e-12)
	assert.InDeltaSlice(t, want.Sigma, sess.Sigma(), 1e-12)
}

func TestSession_UndoEmptyHistory(t *testing.T) {
	sess, err := NewSession(testItems(3), Config{K: 1}, newSyncBackend())
	require.NoError(t, err)

	_, err = sess.UndoLastComparison(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmptyHistory)
}

func TestSession_UndoReactivatesStoppedSession(t *testing.T) {
	sess, err := NewSession(testItems(3), Config{K: 1, MaxComparisons: 1}, newSyncBackend())
	require.NoError(t, err)

	ctx := context.Background()
	outcome, err := sess.RecordComparison(ctx, "item-1", "item-0")
	require.NoError(t, err)
	require.True(t, outcome.Stopped)

	_, err = sess.UndoLastComparison(ctx)
	require.NoError(t, err)

	assert.False(t, sess.Stopped())
	assert.Empty(t, sess.StopReason())

	// The session accepts comparisons again.
	_, err = sess.RecordComparison(ctx, "item-2", "item-0")
	assert.NoError(t, err)
}

func TestSession_UndoForfeitsStabilityMemory(t *testing.T) {
	// A long stable streak, then an undo: the streak must not survive.
	sess, err := NewSession(testItems(3),
		Config{K: 1, StabilityWindow: 10, MaxComparisons: 50, ConfidenceThreshold: 100}, newSyncBackend())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err = sess.RecordComparison(ctx, "item-1", "item-0")
		require.NoError(t, err)
	}
	require.Greater(t, sess.stability.StableCount(), 0)

	_, err = sess.UndoLastComparison(ctx)
	require.NoError(t, err)

	assert.Zero(t, sess.stability.StableCount())
	assert.Empty(t, sess.stability.FlipHistory())
}

func TestSession_MaxComparisonsCap(t *testing.T) {
	sess, err := NewSession(testItems(4),
		Config{K: 2, MaxComparisons: 5, StabilityWindow: 100, ConfidenceThreshold: 1000}, newSyncBackend())
	require.NoError(t, err)

	ctx := context.Background()
	for !sess.Stopped() {
		require.Less(t, sess.Round(), 5, "session must stop at the cap")

		a, b, err := sess.SelectPair(ctx)
		require.NoError(t, err)
		_, err = sess.RecordComparison(ctx, a.ID, b.ID)
		require.NoError(t, err)
	}

	assert.Equal(t, 5, sess.Round())
	assert.Equal(t, domain.StopMaxComparisons, sess.StopReason())
}

// TestSession_ConvergesWithConsistentJudge drives a full session against a
// deterministic judge that always prefers the item with the higher hidden
// strength, and verifies the session both stops and finds that item.
//
// The stability window is widened beyond the default: with a window of 3, an
// early leader can freeze the ranking before it has ever been compared
// against the true strongest item. An aggressive window trades exactly this
// risk for fewer comparisons; the test wants the converged answer.
func TestSession_ConvergesWithConsistentJudge(t *testing.T) {
	items := testItems(5)
	strength := map[string]float64{
		"item-0": 0.1, "item-1": 2.0, "item-2": 0.5, "item-3": -1.0, "item-4": 0.9,
	}

	sess, err := NewSession(items,
		Config{K: 1, Seed: 7, StabilityWindow: 8, MaxComparisons: 60}, newSyncBackend())
	require.NoError(t, err)

	ctx := context.Background()
	for !sess.Stopped() {
		require.Less(t, sess.Round(), 60, "runaway session")

		a, b, err := sess.SelectPair(ctx)
		require.NoError(t, err)

		winner, loser := a, b
		if strength[b.ID] > strength[a.ID] {
			winner, loser = b, a
		}
		_, err = sess.RecordComparison(ctx, winner.ID, loser.ID)
		require.NoError(t, err)
	}

	assert.NotEmpty(t, sess.StopReason())
	top := sess.TopK()
	require.Len(t, top, 1)
	assert.Equal(t, "item-1", top[0].ID, "strongest item should win the ranking")
}

// TestSession_FindsTopTwoUnderPerfectJudge runs the canonical happy path: six
// items with strictly increasing hidden strengths, a judge that never errs,
// and K=2. The session must find the two strongest items and stop on its own
// terms rather than by exhausting the comparison budget.
func TestSession_FindsTopTwoUnderPerfectJudge(t *testing.T) {
	items := testItems(6)
	strength := make(map[string]float64, len(items))
	for i, it := range items {
		strength[it.ID] = float64(i) * 0.8
	}

	sess, err := NewSession(items, Config{K: 2, Seed: 11}, newSyncBackend())
	require.NoError(t, err)

	ctx := context.Background()
	for !sess.Stopped() {
		require.Less(t, sess.Round(), 50, "runaway session")

		a, b, err := sess.SelectPair(ctx)
		require.NoError(t, err)

		winner, loser := a, b
		if strength[b.ID] > strength[a.ID] {
			winner, loser = b, a
		}
		_, err = sess.RecordComparison(ctx, winner.ID, loser.ID)
		require.NoError(t, err)
	}

	assert.NotEqual(t, domain.StopMaxComparisons, sess.StopReason(),
		"a perfect judge should satisfy confidence or stability before the cap")

	top := sess.TopK()
	require.Len(t, top, 2)
	got := map[string]bool{top[0].ID: true, top[1].ID: true}
	assert.True(t, got["item-5"] && got["item-4"], "top-2 should be the two strongest items, got %v", got)
}

func TestSession_TopKOrderedByStrength(t *testing.T) {
	// Stability and confidence are disabled so the full script commits.
	sess, err := NewSession(testItems(4),
		Config{K: 2, MaxComparisons: 50, StabilityWindow: 100, ConfidenceThreshold: 1000}, newSyncBackend())
	require.NoError(t, err)

	// item-3 beats everyone, item-2 beats the rest.
	ctx := context.Background()
	for _, c := range [][2]string{
		{"item-3", "item-0"}, {"item-3", "item-1"}, {"item-3", "item-2"},
		{"item-2", "item-0"}, {"item-2", "item-1"},
	} {
		_, err = sess.RecordComparison(ctx, c[0], c[1])
		require.NoError(t, err)
	}

	top := sess.TopK()
	require.Len(t, top, 2)
	assert.Equal(t, "item-3", top[0].ID)
	assert.Equal(t, "item-2", top[1].ID)
}

func TestSession_EstimateRemaining(t *testing.T) {
	sess, err := NewSession(testItems(3),
		Config{K: 1, MaxComparisons: 4, StabilityWindow: 2, ConfidenceThreshold: 1000}, newSyncBackend())
	require.NoError(t, err)

	// Before any history the forecast is uninformative but bounded by the
	// remaining budget, which is still positive.
	assert.Nil(t, sess.EstimateRemaining())

	ctx := context.Background()
	for !sess.Stopped() {
		_, err = sess.RecordComparison(ctx, "item-1", "item-0")
		require.NoError(t, err)
	}

	// Stopped at the stability window: zero rounds remain on every bound.
	est := sess.EstimateRemaining()
	require.NotNil(t, est)
	assert.Equal(t, stats.RemainingEstimate{}, *est)
}

func TestSession_DuplicateWarnings(t *testing.T) {
	items := []domain.Item{
		{ID: "a", Content: "identical payload"},
		{ID: "b", Content: "IDENTICAL payload"},
		{ID: "c", Content: "something else entirely"},
	}

	sess, err := NewSession(items, Config{K: 1}, newSyncBackend())
	require.NoError(t, err)

	warnings := sess.DuplicateWarnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "a", warnings[0].A.ID)
	assert.Equal(t, "b", warnings[0].B.ID)
}
