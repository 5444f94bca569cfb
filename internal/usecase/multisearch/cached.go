package multisearch

import (
	"context"

	"github.com/kailas-cloud/queryfuse/internal/domain"
)

// ResultCache stores per-space result sets keyed by query signature.
type ResultCache interface {
	Results(ctx context.Context, signature string, spaces []string) (map[string][]domain.VectorSearchResult, bool)
	PutResults(ctx context.Context, signature string, spaces []string, results map[string][]domain.VectorSearchResult)
}

// CachedCoordinator short-circuits the fan-out for repeated queries.
// Only clean runs are cached: a run with failed spaces would pin the
// degraded result set for the whole TTL.
type CachedCoordinator struct {
	inner  *Coordinator
	cache  ResultCache
	spaces []string
}

func NewCached(inner *Coordinator, cache ResultCache) *CachedCoordinator {
	names := make([]string, 0, len(inner.spaces))
	for _, space := range inner.spaces {
		names = append(names, space.Name)
	}
	return &CachedCoordinator{inner: inner, cache: cache, spaces: names}
}

func (c *CachedCoordinator) Search(ctx context.Context, query string) (map[string][]domain.VectorSearchResult, []string, error) {
	if results, ok := c.cache.Results(ctx, query, c.spaces); ok {
		return results, nil, nil
	}

	results, failed, err := c.inner.Search(ctx, query)
	if err == nil && len(failed) == 0 {
		c.cache.PutResults(ctx, query, c.spaces, results)
	}
	return results, failed, err
}

func (c *CachedCoordinator) SearchSemanticOnly(ctx context.Context, query string) (map[string][]domain.VectorSearchResult, []string, error) {
	return c.inner.SearchSemanticOnly(ctx, query)
}
