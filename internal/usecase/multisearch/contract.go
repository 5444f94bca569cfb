package multisearch

import (
	"context"

	"github.com/kailas-cloud/queryfuse/internal/domain"
)

// Embedder turns query text into a vector for a given space.
type Embedder interface {
	Embed(ctx context.Context, text, space string) (domain.EmbeddingResult, error)
}

// SpaceSearcher runs a KNN search against one named vector space.
type SpaceSearcher interface {
	Search(ctx context.Context, space string, vector []float32, limit int, minScore float64) ([]domain.VectorSearchResult, error)
}
