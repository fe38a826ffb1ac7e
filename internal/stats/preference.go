package stats

import "math"

// Sigmoid maps a strength difference to a win probability in (0, 1).
// It is strictly increasing, and Sigmoid(x) + Sigmoid(-x) == 1 for all x.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// WinProbability returns the Bradley-Terry probability that an item with
// strength muI beats an item with strength muJ.
func WinProbability(muI, muJ float64) float64 {
	return Sigmoid(muI - muJ)
}
