package stats

import "math"

// splitmix64 multiplier constants. The generator passes BigCrush and is
// trivially seedable, which matters more here than period length: every
// backend instance must reproduce identical sequences from the same seed.
const (
	splitmixGamma = 0x9E3779B97F4A7C15
	splitmixMulA  = 0xBF58476D1CE4E5B9
	splitmixMulB  = 0x94D049BB133111EB
)

// mix64 applies the splitmix64 finalizer to x.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= splitmixMulA
	x ^= x >> 27
	x *= splitmixMulB
	x ^= x >> 31
	return x
}

// DeriveSeed deterministically mixes a base seed with a per-call counter.
// Both in-process and remote backend instances derive per-computation seeds
// through this single function, so identical (seed, counter) inputs always
// reproduce identical sample sequences.
func DeriveSeed(base, counter uint64) uint64 {
	return mix64(base + (counter+1)*splitmixGamma)
}

// RNG is a deterministic splitmix64 pseudo-random generator.
// It is not safe for concurrent use; each computation owns its own instance.
type RNG struct {
	state uint64
}

// NewRNG creates a generator with the given seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{state: seed}
}

// Uint64 returns the next pseudo-random 64-bit value.
func (r *RNG) Uint64() uint64 {
	r.state += splitmixGamma
	return mix64(r.state)
}

// Float64 returns a uniform value in [0, 1) with 53 bits of precision.
func (r *RNG) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// NormalSampler draws standard normal deviates from a uniform generator
// using the Box-Muller transform. The spare deviate from each transform is
// cached so consecutive draws consume uniform values in a fixed pattern.
type NormalSampler struct {
	src      *RNG
	spare    float64
	hasSpare bool
}

// NewNormalSampler creates a sampler backed by the given generator.
func NewNormalSampler(src *RNG) *NormalSampler {
	return &NormalSampler{src: src}
}

// Sample returns one draw from Normal(mu, sigma).
func (s *NormalSampler) Sample(mu, sigma float64) float64 {
	return mu + sigma*s.standard()
}

// standard returns one standard normal deviate.
func (s *NormalSampler) standard() float64 {
	if s.hasSpare {
		s.hasSpare = false
		return s.spare
	}

	// 1 - Float64() keeps u1 in (0, 1], avoiding log(0).
	u1 := 1.0 - s.src.Float64()
	u2 := s.src.Float64()

	radius := math.Sqrt(-2.0 * math.Log(u1))
	angle := 2.0 * math.Pi * u2

	s.spare = radius * math.Sin(angle)
	s.hasSpare = true
	return radius * math.Cos(angle)
}
