package fusion

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/queryfuse/internal/domain"
	"github.com/kailas-cloud/queryfuse/internal/domain/strategy"
	"github.com/kailas-cloud/queryfuse/internal/metrics"
)

// Config holds fusion parameters. K is the RRF rank constant. Weights
// and Priority feed the alternative strategies and may name only a
// subset of the configured spaces.
type Config struct {
	K        int
	Weights  map[string]float64
	Priority []string
}

const defaultRRFK = 60

// Engine merges per-space ranked lists into one deduplicated, fully
// attributed candidate list.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if cfg.K <= 0 {
		cfg.K = defaultRRFK
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Fuse applies the requested strategy. The output is deterministic for
// a given input: ties are broken by contributing source count, then by
// item ID.
func (e *Engine) Fuse(
	resultsBySpace map[string][]domain.VectorSearchResult,
	strat strategy.Strategy,
) ([]domain.FusedCandidate, error) {
	var candidates []domain.FusedCandidate

	switch strat {
	case strategy.RRF:
		candidates = e.fuseRRF(resultsBySpace)
	case strategy.WeightedAverage:
		candidates = e.fuseWeighted(resultsBySpace)
	case strategy.SourcePriority:
		candidates = e.fusePriority(resultsBySpace)
	default:
		return nil, fmt.Errorf("unknown fusion strategy %q", strat)
	}

	sortCandidates(candidates)
	for i := range candidates {
		candidates[i].Explanation = explain(candidates[i].ContributingSources)
	}
	metrics.FusionCandidatesTotal.Observe(float64(len(candidates)))
	return candidates, nil
}

// merge accumulates one space's results into the working set, keyed by
// item ID. First sighting of an item creates the candidate; later
// sightings only add attribution. A repeated (item, space) pair is a
// backend anomaly: the earliest record wins and the rest are dropped.
type accumulator struct {
	byID  map[string]*domain.FusedCandidate
	order []string
	seen  map[string]bool
}

func newAccumulator() *accumulator {
	return &accumulator{
		byID: make(map[string]*domain.FusedCandidate),
		seen: make(map[string]bool),
	}
}

// add returns false without accumulating when the (item, space) pair
// was already recorded.
func (a *accumulator) add(r domain.VectorSearchResult, contribution float64) bool {
	pair := r.ItemID() + "\x00" + r.Space()
	if a.seen[pair] {
		return false
	}
	a.seen[pair] = true

	cand, ok := a.byID[r.ItemID()]
	if !ok {
		cand = &domain.FusedCandidate{
			ItemID:          r.ItemID(),
			PerSourceScores: make(map[string]float64),
		}
		a.byID[r.ItemID()] = cand
		a.order = append(a.order, r.ItemID())
	}
	cand.FusedScore += contribution
	cand.PerSourceScores[r.Space()] = r.Score()
	cand.ContributingSources = append(cand.ContributingSources, r.Space())
	return true
}

func (e *Engine) logDuplicate(r domain.VectorSearchResult) {
	e.logger.Warn("Duplicate result for item within space dropped",
		zap.String("item_id", r.ItemID()), zap.String("space", r.Space()),
		zap.Int("rank", r.Rank()))
}

func (a *accumulator) candidates() []domain.FusedCandidate {
	out := make([]domain.FusedCandidate, 0, len(a.order))
	for _, id := range a.order {
		cand := a.byID[id]
		sort.Strings(cand.ContributingSources)
		out = append(out, *cand)
	}
	return out
}

// sortedSpaces fixes the iteration order so fusion is reproducible.
func sortedSpaces(resultsBySpace map[string][]domain.VectorSearchResult) []string {
	spaces := make([]string, 0, len(resultsBySpace))
	for space := range resultsBySpace {
		spaces = append(spaces, space)
	}
	sort.Strings(spaces)
	return spaces
}

func sortCandidates(candidates []domain.FusedCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FusedScore != candidates[j].FusedScore {
			return candidates[i].FusedScore > candidates[j].FusedScore
		}
		if len(candidates[i].ContributingSources) != len(candidates[j].ContributingSources) {
			return len(candidates[i].ContributingSources) > len(candidates[j].ContributingSources)
		}
		return candidates[i].ItemID < candidates[j].ItemID
	})
}

func explain(sources []string) string {
	switch len(sources) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("matched via %s vector", sources[0])
	case 2:
		return fmt.Sprintf("matched via %s and %s vectors", sources[0], sources[1])
	default:
		head := strings.Join(sources[:len(sources)-1], ", ")
		return fmt.Sprintf("matched via %s, and %s vectors", head, sources[len(sources)-1])
	}
}
