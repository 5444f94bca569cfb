package fusion

import "github.com/kailas-cloud/queryfuse/internal/domain"

// fuseRRF applies reciprocal rank fusion: each appearance of an item
// contributes 1/(k + rank) to its fused score, with ranks 1-based. An
// item found by several spaces accumulates one term per space, so
// cross-space agreement outranks a single strong hit.
func (e *Engine) fuseRRF(resultsBySpace map[string][]domain.VectorSearchResult) []domain.FusedCandidate {
	acc := newAccumulator()
	for _, space := range sortedSpaces(resultsBySpace) {
		for _, r := range resultsBySpace[space] {
			if !acc.add(r, 1.0/float64(e.cfg.K+r.Rank())) {
				e.logDuplicate(r)
			}
		}
	}
	return acc.candidates()
}
