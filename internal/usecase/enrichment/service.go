// Package enrichment builds statistical profiles of extracted entities
// from catalog data. Profiles are purely additive context for downstream
// planning; backend unavailability degrades to minimal statistics and
// never blocks the pipeline.
package enrichment

import (
	"context"
	"errors"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/queryfuse/internal/domain"
	"github.com/kailas-cloud/queryfuse/internal/domain/outcome"
)

// topValuesPerAttribute bounds how many values each distribution keeps.
const topValuesPerAttribute = 5

// Config holds enrichment settings.
type Config struct {
	// Spaces to search per entity.
	Spaces []string
	// MinScore is the minimum similarity for a hit to count.
	MinScore float64
	// ResultCap bounds hits per entity per space.
	ResultCap int
	// ConfidenceSampleDivisor sets confidence = min(sampleSize/divisor, 1).
	ConfidenceSampleDivisor int
}

// Service computes entity statistics.
type Service struct {
	embed  Embedder
	search SpaceSearcher
	items  ItemReader
	cache  StatisticCache
	cfg    Config
	logger *zap.Logger
}

// New creates an enrichment service. cache may be nil.
func New(
	embed Embedder, search SpaceSearcher, items ItemReader,
	cache StatisticCache, cfg Config, logger *zap.Logger,
) *Service {
	return &Service{
		embed:  embed,
		search: search,
		items:  items,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// Enrich builds one statistic per entity. The outcome is degraded (never
// failed) when any entity fell back to a minimal statistic because of a
// backend error.
func (s *Service) Enrich(ctx context.Context, entities []domain.ExtractedEntity) outcome.Outcome[map[string]domain.EntityStatistic] {
	stats := make(map[string]domain.EntityStatistic, len(entities))
	degraded := false

	for _, entity := range entities {
		if _, ok := stats[entity.Text]; ok {
			continue
		}

		if s.cache != nil {
			if stat, ok := s.cache.Statistic(ctx, entity.Text); ok {
				stats[entity.Text] = stat
				continue
			}
		}

		stat, ok := s.profile(ctx, entity.Text)
		if !ok {
			degraded = true
		}
		stats[entity.Text] = stat

		if s.cache != nil && ok && stat.SampleSize > 0 {
			s.cache.PutStatistic(ctx, stat)
		}
	}

	if degraded {
		return outcome.Degraded(stats, "similarity backend unavailable for some entities")
	}
	return outcome.Ok(stats)
}

// profile computes one entity's statistic. ok=false means the backend
// failed and the minimal statistic stands in.
func (s *Service) profile(ctx context.Context, entity string) (domain.EntityStatistic, bool) {
	seen := make(map[string]bool)
	var itemIDs []string
	var sources []string
	backendErr := false

	// An exact catalog match anchors the profile before similarity search.
	switch match, err := s.items.GetItemByText(ctx, entity); {
	case err == nil:
		seen[match.ID] = true
		itemIDs = append(itemIDs, match.ID)
		sources = append(sources, "catalog")
	case !errors.Is(err, domain.ErrItemNotFound):
		s.logger.Warn("Exact-match lookup failed for entity",
			zap.String("entity", entity), zap.Error(err))
		backendErr = true
	}

	// Each space gets its own vector: indexes hold instruction-prefixed
	// embeddings, so a semantic vector would not match a category index.
	// The embedding cache keys on (text, space), so repeats stay cheap.
	for _, space := range s.cfg.Spaces {
		emb, err := s.embed.Embed(ctx, entity, space)
		if err != nil {
			s.logger.Warn("Entity embedding failed",
				zap.String("entity", entity), zap.String("space", space), zap.Error(err))
			backendErr = true
			continue
		}

		hits, err := s.search.Search(ctx, space, emb.Embedding, s.cfg.ResultCap, s.cfg.MinScore)
		if err != nil {
			s.logger.Warn("Similarity search failed for entity",
				zap.String("entity", entity), zap.String("space", space), zap.Error(err))
			backendErr = true
			continue
		}
		if len(hits) == 0 {
			continue
		}
		sources = append(sources, space)
		for i := range hits {
			id := hits[i].ItemID()
			if !seen[id] {
				seen[id] = true
				itemIDs = append(itemIDs, id)
			}
		}
	}

	if len(itemIDs) == 0 {
		// Zero hits is a valid answer, not an error.
		return domain.MinimalStatistic(entity), !backendErr
	}

	items, err := s.items.GetItemsByIDs(ctx, itemIDs)
	if err != nil {
		s.logger.Warn("Item hydration failed for entity statistics",
			zap.String("entity", entity), zap.Error(err))
		return domain.MinimalStatistic(entity), false
	}
	if len(items) == 0 {
		return domain.MinimalStatistic(entity), !backendErr
	}

	stat := domain.EntityStatistic{
		Entity:              entity,
		Distributions:       distributions(items),
		SampleSize:          len(items),
		Confidence:          s.confidence(len(items)),
		ContributingSources: sources,
	}
	return stat, !backendErr
}

// confidence is a monotonically increasing function of sample size,
// capped at 1.0. The divisor is configuration, not a law.
func (s *Service) confidence(sampleSize int) float64 {
	divisor := s.cfg.ConfidenceSampleDivisor
	if divisor <= 0 {
		divisor = 10
	}
	return math.Min(float64(sampleSize)/float64(divisor), 1.0)
}

// distributions computes per-attribute value shares across items.
// Category counts as an attribute; percentages are integer-rounded.
func distributions(items []domain.Item) map[string][]domain.AttributeShare {
	counts := make(map[string]map[string]int)
	add := func(attr, value string) {
		if value == "" {
			return
		}
		if counts[attr] == nil {
			counts[attr] = make(map[string]int)
		}
		counts[attr][value]++
	}

	for _, item := range items {
		add("category", item.Category)
		for attr, value := range item.Attributes {
			add(attr, value)
		}
	}

	total := len(items)
	out := make(map[string][]domain.AttributeShare, len(counts))
	for attr, values := range counts {
		shares := make([]domain.AttributeShare, 0, len(values))
		for value, n := range values {
			shares = append(shares, domain.AttributeShare{
				Value:      value,
				Percentage: int(math.Round(100 * float64(n) / float64(total))),
			})
		}
		sort.Slice(shares, func(i, j int) bool {
			if shares[i].Percentage != shares[j].Percentage {
				return shares[i].Percentage > shares[j].Percentage
			}
			return shares[i].Value < shares[j].Value
		})
		if len(shares) > topValuesPerAttribute {
			shares = shares[:topValuesPerAttribute]
		}
		out[attr] = shares
	}
	return out
}
