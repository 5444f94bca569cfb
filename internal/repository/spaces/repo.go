// Package spaces adapts the db search driver to the vector-space contract
// used by enrichment and the multi-space coordinator. Each named space maps
// to one index: <prefix>space:<name>.
package spaces

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/queryfuse/internal/db"
	"github.com/kailas-cloud/queryfuse/internal/domain"
)

// Repo searches named vector spaces.
type Repo struct {
	searcher  db.Searcher
	keyPrefix string
}

// New creates a vector-space repository.
func New(searcher db.Searcher, keyPrefix string) *Repo {
	return &Repo{searcher: searcher, keyPrefix: keyPrefix}
}

// IndexName returns the index backing a space.
func (r *Repo) IndexName(space string) string {
	return r.keyPrefix + "space:" + space
}

// Search runs KNN search against one space. Hits below minScore are
// dropped; ranks are 1-based in the order the index returned them.
func (r *Repo) Search(
	ctx context.Context, space string, vector []float32, limit int, minScore float64,
) ([]domain.VectorSearchResult, error) {
	res, err := r.searcher.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.IndexName(space),
		Vector:    vector,
		K:         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search space %s: %w", space, err)
	}

	results := make([]domain.VectorSearchResult, 0, len(res.Entries))
	rank := 0
	for _, e := range res.Entries {
		if e.Score < minScore {
			continue
		}
		rank++
		results = append(results, domain.NewVectorSearchResult(itemID(e), e.Score, space, rank))
	}
	return results, nil
}

// itemID resolves the canonical item identifier for a hit. Indexed
// documents carry it in the item_id field; the document key is the
// fallback for older payloads.
func itemID(e db.SearchEntry) string {
	if id, ok := e.Fields["item_id"]; ok && id != "" {
		return id
	}
	return e.Key
}
