package stats

import "math"

// Forecaster tuning. The flip rate is measured over a bounded trailing
// window so old instability stops haunting the estimate.
const (
	flipRateWindow = 15

	// maxForecastRounds caps the high bound before integer conversion;
	// beyond this the estimate is meaningless anyway and the too-wide
	// check will suppress it.
	maxForecastRounds = 1 << 30
)

// NoBudgetCap disables budget clipping in EstimateRemaining.
const NoBudgetCap = -1

// RemainingEstimate forecasts how many more rounds the stability stop
// needs. Low <= Mid <= High always holds.
type RemainingEstimate struct {
	Low  int `json:"low"`
	Mid  int `json:"mid"`
	High int `json:"high"`
}

// EstimateRemaining is the advisory remaining-rounds forecaster. It never
// blocks or stops a session; it only predicts when the stability criterion
// will fire.
//
// The empirical flip rate p over the most recent <= 15 rounds of flip
// history gets Jeffreys-style smoothing, (flips+0.5)/(window+1). The count
// of additional consecutive non-flip rounds still needed is modeled as a
// geometric waiting time with success probability 1-p, which has a closed
// form expectation. A normal-approximation standard error on p recomputed
// at p-SE and p+SE yields the low and high bounds.
//
// budgetCap, when >= 0, clips all three bounds before any other
// suppression; a budgetCap of exactly 0 short-circuits to a degenerate
// {0,0,0} result, bypassing the null checks entirely. Otherwise the result
// is nil while fewer than stabilityWindow rounds of flip history exist, or
// when the interval is too wide to be informative (High > 3*Low and
// High-Low > stabilityWindow).
func EstimateRemaining(
	flipHistory []bool,
	stableCount, stabilityWindow int,
	budgetCap int,
) *RemainingEstimate {
	if budgetCap == 0 {
		return &RemainingEstimate{}
	}

	if len(flipHistory) < stabilityWindow {
		return nil
	}

	window := len(flipHistory)
	if window > flipRateWindow {
		window = flipRateWindow
	}

	flips := 0
	for _, flipped := range flipHistory[len(flipHistory)-window:] {
		if flipped {
			flips++
		}
	}

	p := (float64(flips) + 0.5) / (float64(window) + 1)
	se := math.Sqrt(p * (1 - p) / float64(window))

	need := stabilityWindow - stableCount
	if need < 0 {
		need = 0
	}

	low := roundsToInt(geometricWait(math.Max(0, p-se), need))
	mid := roundsToInt(geometricWait(p, need))
	high := roundsToInt(geometricWait(math.Min(1, p+se), need))

	if budgetCap >= 0 {
		low = min(low, budgetCap)
		mid = min(mid, budgetCap)
		high = min(high, budgetCap)
	}

	if high > 3*low && high-low > stabilityWindow {
		return nil
	}

	return &RemainingEstimate{Low: low, Mid: mid, High: high}
}

// geometricWait returns the expected number of rounds until r consecutive
// non-flips occur, when each round flips independently with probability p.
// Standard run-length result: E = (1 - q^r) / (p * q^r) with q = 1-p.
func geometricWait(p float64, r int) float64 {
	if r == 0 {
		return 0
	}
	if p <= 0 {
		return float64(r)
	}
	q := 1 - p
	if q <= 0 {
		return math.Inf(1)
	}
	qr := math.Pow(q, float64(r))
	return (1 - qr) / (p * qr)
}

// roundsToInt converts an expectation to whole rounds, saturating rather
// than overflowing on the unbounded high tail.
func roundsToInt(x float64) int {
	if math.IsInf(x, 1) || x > maxForecastRounds {
		return maxForecastRounds
	}
	return int(math.Round(x))
}
