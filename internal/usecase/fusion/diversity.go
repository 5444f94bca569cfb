package fusion

import "github.com/kailas-cloud/queryfuse/internal/domain"

// PromoteDiversity re-orders the top of a fused list so that no two
// consecutive candidates among the first topK share a category. It is a
// stable re-insertion: when a candidate would repeat the previous
// category, the next differently-categorized candidate is pulled
// forward and the skipped ones keep their relative order. Nothing is
// ever dropped, and candidates without hydrated item metadata are left
// where they are.
func PromoteDiversity(candidates []domain.FusedCandidate, topK int) []domain.FusedCandidate {
	if topK <= 1 || len(candidates) <= 2 {
		return candidates
	}
	if topK > len(candidates) {
		topK = len(candidates)
	}

	out := make([]domain.FusedCandidate, 0, len(candidates))
	pending := append([]domain.FusedCandidate(nil), candidates...)
	prevCategory := ""

	for len(out) < topK && len(pending) > 0 {
		picked := -1
		for i, cand := range pending {
			if categoryOf(cand) == "" || categoryOf(cand) != prevCategory {
				picked = i
				break
			}
		}
		if picked < 0 {
			// Only repeats remain, so give up on alternating.
			picked = 0
		}
		prevCategory = categoryOf(pending[picked])
		out = append(out, pending[picked])
		pending = append(pending[:picked], pending[picked+1:]...)
	}

	return append(out, pending...)
}

func categoryOf(cand domain.FusedCandidate) string {
	if cand.Item == nil {
		return ""
	}
	return cand.Item.Category
}
