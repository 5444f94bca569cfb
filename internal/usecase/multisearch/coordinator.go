package multisearch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/queryfuse/internal/domain"
	"github.com/kailas-cloud/queryfuse/internal/metrics"
)

// Config holds fan-out parameters.
type Config struct {
	LimitPerSpace  int
	MinScore       float64
	SpaceTimeout   time.Duration
	DegradeTimeout time.Duration
}

// Coordinator fans a query out across all configured vector spaces in
// parallel. A failure in one space never cancels the others.
type Coordinator struct {
	embed  Embedder
	search SpaceSearcher
	spaces []domain.VectorSpace
	cfg    Config
	logger *zap.Logger
}

func New(
	embed Embedder, search SpaceSearcher,
	spaces []domain.VectorSpace, cfg Config, logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		embed:  embed,
		search: search,
		spaces: spaces,
		cfg:    cfg,
		logger: logger,
	}
}

// Search queries every configured space concurrently. It returns the
// per-space result lists, the names of spaces that failed or timed out,
// and ErrAllSpacesFailed when no space produced results.
func (c *Coordinator) Search(ctx context.Context, query string) (map[string][]domain.VectorSearchResult, []string, error) {
	return c.fanOut(ctx, query, c.spaces, c.cfg.SpaceTimeout)
}

// SearchSemanticOnly retries against the semantic space alone, with a
// more generous timeout. Used as the last resort when the full fan-out
// produced nothing.
func (c *Coordinator) SearchSemanticOnly(ctx context.Context, query string) (map[string][]domain.VectorSearchResult, []string, error) {
	for _, space := range c.spaces {
		if space.Name == domain.SemanticSpaceName {
			return c.fanOut(ctx, query, []domain.VectorSpace{space}, c.cfg.DegradeTimeout)
		}
	}
	return nil, nil, fmt.Errorf("%s space not configured: %w", domain.SemanticSpaceName, domain.ErrAllSpacesFailed)
}

func (c *Coordinator) fanOut(
	ctx context.Context, query string,
	spaces []domain.VectorSpace, timeout time.Duration,
) (map[string][]domain.VectorSearchResult, []string, error) {
	vectors, embedFailed := c.embedByInstruction(ctx, query, spaces)

	var (
		mu      sync.Mutex
		results = make(map[string][]domain.VectorSearchResult, len(spaces))
		failed  = append([]string(nil), embedFailed...)
		wg      sync.WaitGroup
	)

	for _, space := range spaces {
		vector, ok := vectors[space.Instruction]
		if !ok {
			continue
		}

		wg.Add(1)
		go func(space domain.VectorSpace) {
			defer wg.Done()

			found, err := c.searchSpace(ctx, space.Name, vector, timeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, space.Name)
				return
			}
			results[space.Name] = found
		}(space)
	}
	wg.Wait()

	sort.Strings(failed)
	if len(results) == 0 {
		return nil, failed, domain.ErrAllSpacesFailed
	}
	return results, failed, nil
}

// embedByInstruction embeds the query once per distinct instruction
// prefix. Spaces sharing an instruction reuse the same vector.
func (c *Coordinator) embedByInstruction(
	ctx context.Context, query string, spaces []domain.VectorSpace,
) (map[string][]float32, []string) {
	vectors := make(map[string][]float32)
	var failed []string

	for _, space := range spaces {
		if _, done := vectors[space.Instruction]; done {
			continue
		}

		emb, err := c.embed.Embed(ctx, query, space.Name)
		if err != nil {
			c.logger.Warn("Query embedding failed",
				zap.String("space", space.Name),
				zap.Error(err))
			for _, s := range spaces {
				if s.Instruction == space.Instruction {
					failed = append(failed, s.Name)
					metrics.SpaceSearchTotal.WithLabelValues(s.Name, "error").Inc()
				}
			}
			vectors[space.Instruction] = nil
			continue
		}
		vectors[space.Instruction] = emb.Embedding
	}

	for instruction, vec := range vectors {
		if vec == nil {
			delete(vectors, instruction)
		}
	}
	return vectors, failed
}

func (c *Coordinator) searchSpace(
	ctx context.Context, space string, vector []float32, timeout time.Duration,
) ([]domain.VectorSearchResult, error) {
	spaceCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	found, err := c.search.Search(spaceCtx, space, vector, c.cfg.LimitPerSpace, c.cfg.MinScore)
	metrics.SpaceSearchDuration.WithLabelValues(space).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(spaceCtx.Err(), context.DeadlineExceeded) {
			metrics.SpaceSearchTotal.WithLabelValues(space, "timeout").Inc()
			c.logger.Warn("Space search timed out",
				zap.String("space", space),
				zap.Duration("timeout", timeout))
			return nil, domain.NewSpaceError(space, domain.ErrSpaceSearchTimeout)
		}
		metrics.SpaceSearchTotal.WithLabelValues(space, "error").Inc()
		c.logger.Warn("Space search failed",
			zap.String("space", space),
			zap.Error(err))
		return nil, domain.NewSpaceError(space, fmt.Errorf("%w: %w", domain.ErrSpaceSearchFailed, err))
	}

	metrics.SpaceSearchTotal.WithLabelValues(space, "ok").Inc()
	return found, nil
}
