package fusion

import "github.com/kailas-cloud/queryfuse/internal/domain"

// fuseWeighted averages the raw similarity scores across contributing
// spaces, weighted by the per-space weight (1.0 when unconfigured).
// Spaces that did not return the item do not dilute its average.
func (e *Engine) fuseWeighted(resultsBySpace map[string][]domain.VectorSearchResult) []domain.FusedCandidate {
	acc := newAccumulator()
	weightSum := make(map[string]float64)

	for _, space := range sortedSpaces(resultsBySpace) {
		weight := e.spaceWeight(space)
		for _, r := range resultsBySpace[space] {
			if !acc.add(r, weight*r.Score()) {
				e.logDuplicate(r)
				continue
			}
			weightSum[r.ItemID()] += weight
		}
	}

	candidates := acc.candidates()
	for i := range candidates {
		if sum := weightSum[candidates[i].ItemID]; sum > 0 {
			candidates[i].FusedScore /= sum
		}
	}
	return candidates
}

func (e *Engine) spaceWeight(space string) float64 {
	if w, ok := e.cfg.Weights[space]; ok && w > 0 {
		return w
	}
	return 1.0
}
