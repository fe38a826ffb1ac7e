package stats

import (
	"math"
	"sort"
)

// TopKEstimator scores how uncertain the identity of the top-K set remains
// given a posterior strength estimate. Lower is more certain; 0 means the
// set is fully determined.
//
// Two implementations coexist deliberately: QuadratureEstimator is the
// default for interactive use, and MonteCarloEstimator is the reference
// used to validate the surrogate's error in tests.
type TopKEstimator interface {
	// Entropy returns the uncertainty score for the top-K identity under
	// the posterior described by mu and sigma. Implementations must be
	// deterministic functions of their inputs.
	Entropy(mu, sigma []float64, k int) float64
}

// BinaryEntropy returns -p*ln(p) - (1-p)*ln(1-p), with the usual convention
// that 0*ln(0) == 0.
func BinaryEntropy(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return -p*math.Log(p) - (1-p)*math.Log(1-p)
}

// topKSet returns the indices of the k largest values, canonicalized by
// sorting the chosen indices ascending. Ties resolve to the lower index.
func topKSet(values []float64, k int) []int {
	n := len(values)
	if k > n {
		k = n
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})

	top := append([]int(nil), idx[:k]...)
	sort.Ints(top)
	return top
}
