package stats

import (
	"fmt"
	"math"

	"github.com/ahrav/go-duel/internal/domain"
)

// Matrix is a dense, row-major square matrix. The Newton-Raphson fitter
// rebuilds and re-factorizes one of these every iteration; no sparse or
// iterative representation is used.
type Matrix struct {
	n    int
	data []float64
}

// NewMatrix creates an n-by-n zero matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{n: n, data: make([]float64, n*n)}
}

// Size returns the matrix dimension.
func (m *Matrix) Size() int { return m.n }

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 { return m.data[i*m.n+j] }

// Set assigns the element at row i, column j.
func (m *Matrix) Set(i, j int, v float64) { m.data[i*m.n+j] = v }

// Add accumulates v into the element at row i, column j.
func (m *Matrix) Add(i, j int, v float64) { m.data[i*m.n+j] += v }

// CholeskyFactor holds the lower-triangular factor L of a symmetric
// positive-definite matrix A, with A = L L^T.
type CholeskyFactor struct {
	n int
	l []float64
}

// Cholesky factorizes the matrix, which must be symmetric positive
// definite. A non-positive pivot aborts with domain.ErrNotPositiveDefinite;
// the regularizing prior should make that impossible during fitting, so it
// is surfaced rather than patched over.
func (m *Matrix) Cholesky() (*CholeskyFactor, error) {
	n := m.n
	l := make([]float64, n*n)

	for j := 0; j < n; j++ {
		sum := m.At(j, j)
		for k := 0; k < j; k++ {
			sum -= l[j*n+k] * l[j*n+k]
		}
		if sum <= 0 || math.IsNaN(sum) {
			return nil, fmt.Errorf("pivot %d is %g: %w", j, sum, domain.ErrNotPositiveDefinite)
		}
		diag := math.Sqrt(sum)
		l[j*n+j] = diag

		for i := j + 1; i < n; i++ {
			s := m.At(i, j)
			for k := 0; k < j; k++ {
				s -= l[i*n+k] * l[j*n+k]
			}
			l[i*n+j] = s / diag
		}
	}

	return &CholeskyFactor{n: n, l: l}, nil
}

// Solve returns x such that A x = b, via forward and back substitution
// against the triangular factor. b is not modified.
func (f *CholeskyFactor) Solve(b []float64) []float64 {
	n := f.n

	// Forward: L y = b.
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		s := b[i]
		for k := 0; k < i; k++ {
			s -= f.l[i*n+k] * y[k]
		}
		y[i] = s / f.l[i*n+i]
	}

	// Back: L^T x = y.
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		s := y[i]
		for k := i + 1; k < n; k++ {
			s -= f.l[k*n+i] * x[k]
		}
		x[i] = s / f.l[i*n+i]
	}

	return x
}

// InverseDiagonal returns the diagonal of A^-1 by solving against each
// unit basis vector. O(n^3), acceptable at the item counts this engine
// targets.
func (f *CholeskyFactor) InverseDiagonal() []float64 {
	n := f.n
	diag := make([]float64, n)
	e := make([]float64, n)

	for k := 0; k < n; k++ {
		e[k] = 1
		col := f.Solve(e)
		diag[k] = col[k]
		e[k] = 0
	}

	return diag
}
