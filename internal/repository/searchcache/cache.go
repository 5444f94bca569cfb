// Package searchcache caches entity statistics and per-space result sets.
// TTLs are adaptive: statistics are statistically stable and keep a longer
// TTL than raw result sets. The cache is never a source of truth — every
// miss is recomputable, and corrupt values are treated as misses.
package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/queryfuse/internal/db"
	"github.com/kailas-cloud/queryfuse/internal/domain"
)

// store is the consumer interface for the search cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores entity statistics and space result sets.
type Cache struct {
	store         store
	statPrefix    string
	resultsPrefix string
	statTTL       time.Duration
	resultsTTL    time.Duration
	logger        *zap.Logger
}

// Config holds cache key and TTL settings.
type Config struct {
	KeyPrefix    string
	StatisticTTL time.Duration
	ResultSetTTL time.Duration
}

// New creates a search cache over a key-value store.
func New(s store, cfg Config, logger *zap.Logger) *Cache {
	return &Cache{
		store:         s,
		statPrefix:    cfg.KeyPrefix + "stat_cache:",
		resultsPrefix: cfg.KeyPrefix + "result_cache:",
		statTTL:       cfg.StatisticTTL,
		resultsTTL:    cfg.ResultSetTTL,
		logger:        logger,
	}
}

// Statistic returns a cached entity statistic, if present and well-formed.
func (c *Cache) Statistic(ctx context.Context, entity string) (domain.EntityStatistic, bool) {
	key := c.statPrefix + hashKey(domain.NormalizeText(entity))

	data, ok := c.get(ctx, key)
	if !ok {
		return domain.EntityStatistic{}, false
	}

	var stat domain.EntityStatistic
	if err := json.Unmarshal(data, &stat); err != nil || stat.Entity == "" {
		c.logger.Warn("Corrupt cached statistic treated as miss",
			zap.String("key", key), zap.Error(err))
		return domain.EntityStatistic{}, false
	}
	return stat, true
}

// PutStatistic stores an entity statistic.
func (c *Cache) PutStatistic(ctx context.Context, stat domain.EntityStatistic) {
	key := c.statPrefix + hashKey(domain.NormalizeText(stat.Entity))
	c.put(ctx, key, stat, c.statTTL)
}

// resultSetEntry is the persisted shape of one space hit.
type resultSetEntry struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
	Space  string  `json:"space"`
	Rank   int     `json:"rank"`
}

// Results returns cached hits for a (query signature, space set) pair.
func (c *Cache) Results(ctx context.Context, signature string, spaces []string) (map[string][]domain.VectorSearchResult, bool) {
	key := c.resultsKey(signature, spaces)

	data, ok := c.get(ctx, key)
	if !ok {
		return nil, false
	}

	var entries map[string][]resultSetEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("Corrupt cached result set treated as miss",
			zap.String("key", key), zap.Error(err))
		return nil, false
	}

	out := make(map[string][]domain.VectorSearchResult, len(entries))
	for space, list := range entries {
		results := make([]domain.VectorSearchResult, 0, len(list))
		for _, e := range list {
			results = append(results, domain.NewVectorSearchResult(e.ItemID, e.Score, e.Space, e.Rank))
		}
		out[space] = results
	}
	return out, true
}

// PutResults stores hits for a (query signature, space set) pair.
func (c *Cache) PutResults(
	ctx context.Context, signature string, spaces []string,
	results map[string][]domain.VectorSearchResult,
) {
	entries := make(map[string][]resultSetEntry, len(results))
	for space, list := range results {
		dto := make([]resultSetEntry, 0, len(list))
		for i := range list {
			r := &list[i]
			dto = append(dto, resultSetEntry{
				ItemID: r.ItemID(), Score: r.Score(), Space: r.Space(), Rank: r.Rank(),
			})
		}
		entries[space] = dto
	}

	c.put(ctx, c.resultsKey(signature, spaces), entries, c.resultsTTL)
}

func (c *Cache) resultsKey(signature string, spaces []string) string {
	return c.resultsPrefix + hashKey(signature+"\x00"+strings.Join(spaces, ","))
}

func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cache entry", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (c *Cache) put(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		c.logger.Warn("Failed to set cache entry", zap.String("key", key), zap.Error(err))
	}
}

func hashKey(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
