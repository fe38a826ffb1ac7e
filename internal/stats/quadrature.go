package stats

import "math"

// 7-point Gauss-Hermite rule for the weight function exp(-x^2). Seven
// points integrate the smooth tail probabilities involved here to well
// beyond the precision the pair selector can exploit.
var (
	gaussHermiteNodes = [7]float64{
		-2.6519613568352334,
		-1.6735516287674714,
		-0.8162878828589647,
		0,
		0.8162878828589647,
		1.6735516287674714,
		2.6519613568352334,
	}
	gaussHermiteWeights = [7]float64{
		0.0009717812450995192,
		0.05451558281912703,
		0.4256072526101278,
		0.8102646175568073,
		0.4256072526101278,
		0.05451558281912703,
		0.0009717812450995192,
	}
)

// Below this, a posterior marginal is treated as a point mass and its
// exceedance probabilities collapse to 0/1.
const degenerateSigma = 1e-12

// QuadratureEstimator is the fast-path top-K uncertainty surrogate. For
// each item it computes the marginal probability of ranking in the top K
// by Gauss-Hermite quadrature over that item's posterior, combining the
// other items' analytic exceedance probabilities through a Poisson-binomial
// dynamic program. The returned score is the sum of per-item binary
// entropies.
//
// By subadditivity this is a provable upper bound on the Monte Carlo
// entropy. It is not guaranteed to preserve the relative ordering of
// candidate pairs by information gain in every case; that is an accepted
// approximation tradeoff for interactive latency, not a defect.
type QuadratureEstimator struct{}

// Entropy implements TopKEstimator.
func (QuadratureEstimator) Entropy(mu, sigma []float64, k int) float64 {
	n := len(mu)
	if k > n {
		k = n
	}
	if k <= 0 || n == 0 {
		return 0
	}

	total := 0.0
	for i := 0; i < n; i++ {
		total += BinaryEntropy(marginalTopKProbability(mu, sigma, k, i))
	}
	return total
}

// marginalTopKProbability returns P(item i ranks among the top k) under
// independent Normal(mu_j, sigma_j) posteriors.
func marginalTopKProbability(mu, sigma []float64, k, i int) float64 {
	n := len(mu)

	// dp[m] = P(exactly m other items exceed the abscissa score), truncated
	// at m = k-1; mass that would flow past the table is exactly the mass
	// of outcomes where item i misses the top K.
	dp := make([]float64, k)

	p := 0.0
	for t, x := range gaussHermiteNodes {
		// Substitution s = mu_i + sqrt(2)*sigma_i*x turns the posterior
		// expectation into the exp(-x^2)-weighted form the rule expects.
		s := mu[i] + math.Sqrt2*sigma[i]*x

		for m := range dp {
			dp[m] = 0
		}
		dp[0] = 1

		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			q := exceedanceProbability(mu[j], sigma[j], s)
			for m := k - 1; m >= 1; m-- {
				dp[m] = dp[m]*(1-q) + dp[m-1]*q
			}
			dp[0] *= 1 - q
		}

		within := 0.0
		for _, v := range dp {
			within += v
		}
		p += gaussHermiteWeights[t] * within
	}

	p /= math.SqrtPi
	return math.Min(1, math.Max(0, p))
}

// exceedanceProbability returns P(Normal(mu, sigma) > x), degenerating to
// a deterministic 0/1 when sigma is effectively zero.
func exceedanceProbability(mu, sigma, x float64) float64 {
	if sigma < degenerateSigma {
		if mu > x {
			return 1
		}
		return 0
	}
	return 0.5 * math.Erfc((x-mu)/(sigma*math.Sqrt2))
}
