package stats

// TopKIndices returns the indices of the k strongest items by MAP strength,
// canonicalized by sorting the chosen indices ascending. Ties in strength
// resolve to the lower index. k larger than the item count returns all
// indices.
func TopKIndices(mu []float64, k int) []int {
	return topKSet(mu, k)
}

// CheckConfidenceStop reports whether the confidence criterion has fired:
// the weakest lower confidence bound inside the top K exceeds the strongest
// upper confidence bound outside it by more than threshold. With k >= n
// there is no outside, and the criterion fires unconditionally.
func CheckConfidenceStop(mu, sigma []float64, k int, z, threshold float64) bool {
	n := len(mu)
	if k >= n {
		return true
	}

	top := TopKIndices(mu, k)
	member := make([]bool, n)
	for _, i := range top {
		member[i] = true
	}

	weakestLCB := mu[top[0]] - z*sigma[top[0]]
	for _, i := range top[1:] {
		if lcb := mu[i] - z*sigma[i]; lcb < weakestLCB {
			weakestLCB = lcb
		}
	}

	strongestUCB := 0.0
	first := true
	for j := 0; j < n; j++ {
		if member[j] {
			continue
		}
		ucb := mu[j] + z*sigma[j]
		if first || ucb > strongestUCB {
			strongestUCB = ucb
			first = false
		}
	}

	return weakestLCB-strongestUCB > threshold
}

// StabilityTracker watches the top-K set across rounds. A round whose set
// matches the previous round's increments a consecutive-stable counter; a
// mismatch resets it to 0 and is recorded as a flip. The very first
// observed round has no predecessor and records no flip entry.
type StabilityTracker struct {
	previous    []int
	stableCount int
	flips       []bool
}

// Observe feeds the current round's canonical (ascending) top-K index set
// into the tracker.
func (t *StabilityTracker) Observe(topK []int) {
	current := append([]int(nil), topK...)

	if t.previous == nil {
		t.previous = current
		return
	}

	if equalIndexSets(t.previous, current) {
		t.stableCount++
		t.flips = append(t.flips, false)
	} else {
		t.stableCount = 0
		t.flips = append(t.flips, true)
	}
	t.previous = current
}

// StableCount returns the number of consecutive rounds the top-K set has
// remained unchanged.
func (t *StabilityTracker) StableCount() int { return t.stableCount }

// FlipHistory returns the per-round flip record. The returned slice is the
// tracker's own; callers must not mutate it.
func (t *StabilityTracker) FlipHistory() []bool { return t.flips }

// Stopped reports whether the stability criterion has fired for the given
// window.
func (t *StabilityTracker) Stopped(stabilityWindow int) bool {
	return t.stableCount >= stabilityWindow
}

// Reset forfeits all stability memory: previous top-K, stable count, and
// flip history return to their initial absent/zero state. Undo relies on
// this; stability evidence gathered before an undo is intentionally not
// trusted afterwards.
func (t *StabilityTracker) Reset() {
	t.previous = nil
	t.stableCount = 0
	t.flips = nil
}

// equalIndexSets compares two ascending index slices.
func equalIndexSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
