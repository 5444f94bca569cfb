package fusion

import (
	"sort"

	"github.com/kailas-cloud/queryfuse/internal/domain"
)

// fusePriority ranks candidates by the highest-priority space that
// found them, keeping that space's raw score as the tiebreaker inside
// a tier. Tiers are encoded as score bands: similarity scores live in
// [0,1], so a band width of 2 keeps tiers strictly ordered.
func (e *Engine) fusePriority(resultsBySpace map[string][]domain.VectorSearchResult) []domain.FusedCandidate {
	order := e.priorityOrder(resultsBySpace)
	byID := make(map[string]*domain.FusedCandidate)
	seen := make(map[string]bool)
	var ids []string

	for tier, space := range order {
		band := 2.0 * float64(len(order)-tier)
		for _, r := range resultsBySpace[space] {
			pair := r.ItemID() + "\x00" + r.Space()
			if seen[pair] {
				e.logDuplicate(r)
				continue
			}
			seen[pair] = true

			cand, ok := byID[r.ItemID()]
			if !ok {
				cand = &domain.FusedCandidate{
					ItemID:          r.ItemID(),
					FusedScore:      band + r.Score(),
					PerSourceScores: make(map[string]float64),
				}
				byID[r.ItemID()] = cand
				ids = append(ids, r.ItemID())
			}
			cand.PerSourceScores[r.Space()] = r.Score()
			cand.ContributingSources = append(cand.ContributingSources, r.Space())
		}
	}

	out := make([]domain.FusedCandidate, 0, len(ids))
	for _, id := range ids {
		cand := byID[id]
		sort.Strings(cand.ContributingSources)
		out = append(out, *cand)
	}
	return out
}

// priorityOrder returns the configured priority list followed by any
// remaining spaces in name order.
func (e *Engine) priorityOrder(resultsBySpace map[string][]domain.VectorSearchResult) []string {
	seen := make(map[string]bool, len(e.cfg.Priority))
	var order []string
	for _, space := range e.cfg.Priority {
		if _, ok := resultsBySpace[space]; ok && !seen[space] {
			order = append(order, space)
			seen[space] = true
		}
	}
	for _, space := range sortedSpaces(resultsBySpace) {
		if !seen[space] {
			order = append(order, space)
			seen[space] = true
		}
	}
	return order
}
