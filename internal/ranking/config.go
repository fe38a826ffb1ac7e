// Package ranking provides the stateful session orchestrator that wraps
// the statistics engine: it owns one session's belief state, delegates
// pair selection and refitting to a ComputeBackend, evaluates the stopping
// policy after every comparison, and speculatively precomputes both
// possible next rounds to hide backend latency from an interactive caller.
package ranking

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-duel/internal/domain"
	"github.com/ahrav/go-duel/internal/stats"
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// EstimatorKind names a top-K uncertainty estimator strategy.
type EstimatorKind string

// Available estimator strategies.
const (
	// EstimatorQuadrature is the Gauss-Hermite / Poisson-binomial
	// surrogate, the default for interactive latency.
	EstimatorQuadrature EstimatorKind = "quadrature"

	// EstimatorMonteCarlo is the sampling reference estimator, retained
	// as ground truth for validating the surrogate.
	EstimatorMonteCarlo EstimatorKind = "montecarlo"
)

// Config holds all tunables for a ranking session. The zero value of every
// field except K is replaced by a production default in Normalize; K must
// be supplied by the caller. Configuration is immutable once a session is
// constructed.
type Config struct {
	// K is the number of top items to identify.
	K int `yaml:"k" validate:"required,min=1"`

	// Z is the confidence z-score for the confidence stop, e.g. 1.96 for
	// 95% intervals.
	Z float64 `yaml:"z" validate:"gt=0"`

	// StabilityWindow is the number of consecutive rounds the top-K set
	// must remain unchanged before the stability stop fires.
	StabilityWindow int `yaml:"stability_window" validate:"min=1"`

	// MaxComparisons is the hard cap on rounds; the session stops
	// unconditionally when it is reached.
	MaxComparisons int `yaml:"max_comparisons" validate:"min=1"`

	// PriorVariance is the variance of the Gaussian prior over item
	// strengths.
	PriorVariance float64 `yaml:"prior_variance" validate:"gt=0"`

	// ConfidenceThreshold is the minimum gap between the weakest top-K
	// lower confidence bound and the strongest remainder upper bound.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" validate:"min=0"`

	// RecencyDiscount in (0, 1] penalizes selecting pairs that repeat
	// items from the most recent comparison; 1.0 disables the penalty.
	RecencyDiscount float64 `yaml:"recency_discount" validate:"gt=0,lte=1"`

	// Estimator selects the top-K uncertainty strategy.
	Estimator EstimatorKind `yaml:"estimator" validate:"oneof=quadrature montecarlo"`

	// Samples is the Monte Carlo sample count; ignored by the quadrature
	// estimator.
	Samples int `yaml:"samples" validate:"min=1"`

	// Seed is the base seed for deterministic pseudo-random sequences.
	Seed uint64 `yaml:"seed"`
}

// DefaultConfig returns the production defaults for everything except K,
// which has no sensible default and must be set by the caller.
func DefaultConfig() Config {
	return Config{
		Z:                   1.96,
		StabilityWindow:     3,
		MaxComparisons:      50,
		PriorVariance:       1.0,
		ConfidenceThreshold: 0,
		RecencyDiscount:     0.8,
		Estimator:           EstimatorQuadrature,
		Samples:             stats.DefaultMonteCarloSamples,
	}
}

// Normalize fills zero-valued fields with defaults and returns the result.
// ConfidenceThreshold and Seed legitimately default to zero and are left
// alone.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.Z == 0 {
		c.Z = d.Z
	}
	if c.StabilityWindow == 0 {
		c.StabilityWindow = d.StabilityWindow
	}
	if c.MaxComparisons == 0 {
		c.MaxComparisons = d.MaxComparisons
	}
	if c.PriorVariance == 0 {
		c.PriorVariance = d.PriorVariance
	}
	if c.RecencyDiscount == 0 {
		c.RecencyDiscount = d.RecencyDiscount
	}
	if c.Estimator == "" {
		c.Estimator = d.Estimator
	}
	if c.Samples == 0 {
		c.Samples = d.Samples
	}
	return c
}

// Validate checks the normalized configuration against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

// NewEstimator constructs the configured uncertainty estimator.
func (c Config) NewEstimator() stats.TopKEstimator {
	if c.Estimator == EstimatorMonteCarlo {
		return stats.NewMonteCarloEstimator(c.Samples, c.Seed)
	}
	return stats.QuadratureEstimator{}
}
