package enrichment

import (
	"context"

	"github.com/kailas-cloud/queryfuse/internal/domain"
)

// Embedder vectorizes entity text for a named space.
type Embedder interface {
	Embed(ctx context.Context, text, space string) (domain.EmbeddingResult, error)
}

// SpaceSearcher runs similarity search against one named vector space.
type SpaceSearcher interface {
	Search(ctx context.Context, space string, vector []float32, limit int, minScore float64) ([]domain.VectorSearchResult, error)
}

// ItemReader hydrates item metadata for attribute distributions and
// resolves exact-name matches to seed entity profiles.
type ItemReader interface {
	GetItemsByIDs(ctx context.Context, ids []string) ([]domain.Item, error)
	GetItemByText(ctx context.Context, name string) (*domain.Item, error)
}

// StatisticCache caches computed entity statistics.
type StatisticCache interface {
	Statistic(ctx context.Context, entity string) (domain.EntityStatistic, bool)
	PutStatistic(ctx context.Context, stat domain.EntityStatistic)
}
