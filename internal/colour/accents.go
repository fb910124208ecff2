package colour

import (
	"slices"
	"sort"
)

const (
	// AccentTrackLimit is the maximum number of accent candidates kept while sampling.
	AccentTrackLimit = 20

	// AccentSaturationThreshold is the HSL saturation at which a pixel becomes an accent candidate.
	AccentSaturationThreshold = 0.55

	// AccentDistanceThreshold is the RGB distance within which two colours count as the same accent.
	AccentDistanceThreshold = 25.0
)

// AccentCandidate is a high-saturation colour region seen while sampling.
type AccentCandidate struct {
	Colour     RGB     `json:"colour"`
	Count      int     `json:"count"`
	Saturation float64 `json:"saturation"`
	Score      float64 `json:"score"`
}

// AccentTracker keeps a bounded set of distinct high-saturation colours,
// ordered by descending score (saturation x count).
//
// The tracker is a greedy streaming approximation: which candidates survive
// depends on the order pixels are observed in. Once the tracker is full, a
// new colour only registers if its score beats the weakest candidate.
type AccentTracker struct {
	limit      int
	candidates []AccentCandidate
}

// NewAccentTracker creates a tracker with the default capacity.
func NewAccentTracker() *AccentTracker {
	return &AccentTracker{
		limit:      AccentTrackLimit,
		candidates: make([]AccentCandidate, 0, AccentTrackLimit+1),
	}
}

// Observe records a saturated pixel. The first candidate (in score order)
// within AccentDistanceThreshold absorbs it; otherwise a new candidate is
// added and the lowest-scoring candidate is evicted past capacity.
func (t *AccentTracker) Observe(rgb RGB, saturation float64) {
	for i := range t.candidates {
		c := &t.candidates[i]
		if c.Colour.distance(rgb) > AccentDistanceThreshold {
			continue
		}
		c.Count++
		if saturation > c.Saturation {
			c.Saturation = saturation
		}
		c.Score = c.Saturation * float64(c.Count)
		t.sort()
		return
	}

	t.candidates = append(t.candidates, AccentCandidate{
		Colour:     rgb,
		Count:      1,
		Saturation: saturation,
		Score:      saturation,
	})
	t.sort()
	if len(t.candidates) > t.limit {
		t.candidates = t.candidates[:t.limit]
	}
}

// Len returns the number of tracked candidates.
func (t *AccentTracker) Len() int {
	return len(t.candidates)
}

// Candidates returns a copy of the tracked candidates sorted by descending score.
func (t *AccentTracker) Candidates() []AccentCandidate {
	return slices.Clone(t.candidates)
}

func (t *AccentTracker) sort() {
	sort.SliceStable(t.candidates, func(i, j int) bool {
		return t.candidates[i].Score > t.candidates[j].Score
	})
}
