package stats

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-duel/internal/domain"
)

// SelectorParams bundles the belief state and configuration the pair
// selector needs. Mu, Sigma, and History are read-only inputs.
type SelectorParams struct {
	// Mu and Sigma describe the current posterior over item strengths.
	Mu    []float64
	Sigma []float64

	// History is the full committed comparison history.
	History []domain.Comparison

	// K is the number of top items being identified.
	K int

	// N is the item count.
	N int

	// PriorVariance is the Gaussian prior variance used for refits.
	PriorVariance float64

	// RecencyDiscount in (0, 1] penalizes pairs sharing items with the
	// most recent comparison; 1.0 is a no-op.
	RecencyDiscount float64
}

// SelectPair returns the unordered index pair (i < j) whose observation
// maximizes the expected reduction in top-K uncertainty.
//
// Every one of the C(N,2) candidate pairs is scored by simulating both
// outcomes: the hypothetical comparison is appended to the history, the
// full Bayesian fit is re-run, and the resulting belief state is scored by
// the estimator. The pair's gain is the negated expectation of posterior
// entropy under the current win probability, discounted once per item the
// pair shares with the most recent comparison. Ties resolve to the first
// pair in ascending (i, j) enumeration order.
//
// Scoring fans out across an errgroup with bounded parallelism; gains land
// in a slice indexed by enumeration order and the argmax reduction is
// sequential, so parallelism never disturbs the deterministic tie rule.
func SelectPair(
	ctx context.Context,
	params SelectorParams,
	estimator TopKEstimator,
) (int, int, error) {
	n := params.N
	if n < 2 {
		return 0, 0, fmt.Errorf("pair selection requires at least two items, got %d", n)
	}

	type candidate struct{ i, j int }
	pairs := make([]candidate, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, candidate{i, j})
		}
	}

	gains := make([]float64, len(pairs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for idx, pair := range pairs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			gain, err := expectedGain(pair.i, pair.j, params, estimator)
			if err != nil {
				return err
			}
			gains[idx] = gain
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	best := 0
	for idx := 1; idx < len(gains); idx++ {
		if gains[idx] > gains[best] {
			best = idx
		}
	}

	return pairs[best].i, pairs[best].j, nil
}

// expectedGain scores one candidate pair by simulating both outcomes.
func expectedGain(i, j int, params SelectorParams, estimator TopKEstimator) (float64, error) {
	pWin := WinProbability(params.Mu[i], params.Mu[j])

	entropyIfWinner := func(winner, loser int) (float64, error) {
		hypothetical := make([]domain.Comparison, len(params.History), len(params.History)+1)
		copy(hypothetical, params.History)
		hypothetical = append(hypothetical, domain.Comparison{Winner: winner, Loser: loser})

		est, err := Fit(hypothetical, params.N, params.PriorVariance)
		if err != nil {
			return 0, err
		}
		return estimator.Entropy(est.Mu, est.Sigma, params.K), nil
	}

	entropyI, err := entropyIfWinner(i, j)
	if err != nil {
		return 0, err
	}
	entropyJ, err := entropyIfWinner(j, i)
	if err != nil {
		return 0, err
	}

	// Higher gain means lower expected future uncertainty.
	gain := -(pWin*entropyI + (1-pWin)*entropyJ)

	// Discount applies once per item shared with the latest comparison, so
	// a pair repeating both items is discounted twice. Empty history means
	// no discount at all.
	if len(params.History) > 0 && params.RecencyDiscount > 0 {
		last := params.History[len(params.History)-1]
		if last.Involves(i) {
			gain /= params.RecencyDiscount
		}
		if last.Involves(j) {
			gain /= params.RecencyDiscount
		}
	}

	return gain, nil
}
