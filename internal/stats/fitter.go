package stats

import (
	"math"

	"github.com/ahrav/go-duel/internal/domain"
)

// Newton-Raphson termination parameters. Hitting the iteration cap is not
// an error: the fit is accepted as-is, a documented limitation of the
// optimizer.
const (
	newtonTolerance     = 1e-8
	maxNewtonIterations = 50
)

// Fit computes the MAP strength estimate and Laplace marginal uncertainties
// for n items given the full comparison history and a Gaussian prior with
// variance priorVariance (> 0).
//
// The log-posterior is sum(log WinProbability(mu_w, mu_l)) over the history
// minus sum(mu_i^2 / (2v)). Mu[0] is pinned at 0 for identifiability; the
// remaining n-1 parameters are optimized by Newton-Raphson with a dense
// Hessian re-factorized via Cholesky every iteration. Sigma is the square
// root of the inverse-Hessian diagonal at the mode, with Sigma[0] fixed at
// 0 once any comparison exists.
//
// An empty history skips the optimizer and returns Mu all zero with
// Sigma[i] = sqrt(priorVariance) for every index, including index 0. The
// resulting discontinuity in Sigma[0] versus the non-empty case is
// intentional and must be preserved.
func Fit(history []domain.Comparison, n int, priorVariance float64) (domain.StrengthEstimate, error) {
	est := domain.StrengthEstimate{
		Mu:    make([]float64, n),
		Sigma: make([]float64, n),
	}

	if len(history) == 0 {
		prior := math.Sqrt(priorVariance)
		for i := range est.Sigma {
			est.Sigma[i] = prior
		}
		return est, nil
	}

	free := n - 1
	if free == 0 {
		return est, nil
	}

	theta := make([]float64, free)

	for iter := 0; iter < maxNewtonIterations; iter++ {
		grad, hess := buildNewtonSystem(theta, history, priorVariance)

		factor, err := hess.Cholesky()
		if err != nil {
			return domain.StrengthEstimate{}, domain.NewNumericalError("cholesky", iter, err)
		}

		delta := factor.Solve(grad)

		var maxStep float64
		for i, d := range delta {
			theta[i] -= d
			if abs := math.Abs(d); abs > maxStep {
				maxStep = abs
			}
		}

		if maxStep < newtonTolerance {
			break
		}
	}

	// Laplace approximation: marginal variances are the diagonal of the
	// inverse Hessian recomputed at the mode.
	_, hess := buildNewtonSystem(theta, history, priorVariance)
	factor, err := hess.Cholesky()
	if err != nil {
		return domain.StrengthEstimate{}, domain.NewNumericalError("cholesky", maxNewtonIterations, err)
	}

	diag := factor.InverseDiagonal()
	for i := 0; i < free; i++ {
		est.Mu[i+1] = theta[i]
		est.Sigma[i+1] = math.Sqrt(math.Max(0, diag[i]))
	}

	return est, nil
}

// buildNewtonSystem assembles the gradient and Hessian of the negative
// log-posterior at theta. The prior contributes a diagonal 1/v term; each
// comparison contributes a rank-2 update weighted by p(1-p), where p is the
// winner's current win probability.
func buildNewtonSystem(
	theta []float64,
	history []domain.Comparison,
	priorVariance float64,
) ([]float64, *Matrix) {
	free := len(theta)
	grad := make([]float64, free)
	hess := NewMatrix(free)

	for i := 0; i < free; i++ {
		grad[i] = theta[i] / priorVariance
		hess.Set(i, i, 1/priorVariance)
	}

	strength := func(item int) float64 {
		if item == 0 {
			return 0
		}
		return theta[item-1]
	}

	for _, c := range history {
		p := Sigmoid(strength(c.Winner) - strength(c.Loser))
		weight := p * (1 - p)

		if c.Winner != 0 {
			grad[c.Winner-1] -= 1 - p
			hess.Add(c.Winner-1, c.Winner-1, weight)
		}
		if c.Loser != 0 {
			grad[c.Loser-1] += 1 - p
			hess.Add(c.Loser-1, c.Loser-1, weight)
		}
		if c.Winner != 0 && c.Loser != 0 {
			hess.Add(c.Winner-1, c.Loser-1, -weight)
			hess.Add(c.Loser-1, c.Winner-1, -weight)
		}
	}

	return grad, hess
}
