package pipeline

import (
	"context"

	"github.com/kailas-cloud/queryfuse/internal/domain"
	"github.com/kailas-cloud/queryfuse/internal/domain/outcome"
	"github.com/kailas-cloud/queryfuse/internal/domain/strategy"
)

// Extractor pulls entities and intent out of a query.
type Extractor interface {
	Extract(ctx context.Context, q domain.Query) outcome.Outcome[domain.Extraction]
}

// Enricher profiles extracted entities against the catalog.
type Enricher interface {
	Enrich(ctx context.Context, entities []domain.ExtractedEntity) outcome.Outcome[map[string]domain.EntityStatistic]
}

// Searcher fans the query out across the vector spaces.
type Searcher interface {
	Search(ctx context.Context, query string) (map[string][]domain.VectorSearchResult, []string, error)
	SearchSemanticOnly(ctx context.Context, query string) (map[string][]domain.VectorSearchResult, []string, error)
}

// Fuser merges per-space ranked lists into one candidate list.
type Fuser interface {
	Fuse(resultsBySpace map[string][]domain.VectorSearchResult, strat strategy.Strategy) ([]domain.FusedCandidate, error)
}

// ItemReader hydrates fused candidates with catalog metadata.
type ItemReader interface {
	GetItemsByIDs(ctx context.Context, ids []string) ([]domain.Item, error)
}
