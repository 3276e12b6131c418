package detect

import (
	"sort"

	"github.com/pagescan/pagescan/internal/geometry"
)

// SelectBest scores every candidate against the frame and returns the
// highest-scoring one.
//
// The sort is stable and descending by score, so ties are broken by the
// candidates' original pool order; no candidate is dropped solely for
// tying. The second return value is false when the input is empty.
func SelectBest(candidates []Candidate, frame geometry.Rect) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredCandidate{Candidate: c, Score: Score(c, frame)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored[0].Candidate, true
}
