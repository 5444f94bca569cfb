package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/queryfuse/internal/domain"
	"github.com/kailas-cloud/queryfuse/internal/domain/intent"
	"github.com/kailas-cloud/queryfuse/internal/domain/stage"
	"github.com/kailas-cloud/queryfuse/internal/domain/strategy"
	"github.com/kailas-cloud/queryfuse/internal/logger"
	"github.com/kailas-cloud/queryfuse/internal/metrics"
	"github.com/kailas-cloud/queryfuse/internal/usecase/fusion"
)

// Config holds pipeline defaults.
type Config struct {
	DefaultStrategy strategy.Strategy
	DefaultTopK     int
	// DiversityTopK bounds how deep the diversity re-order reaches.
	// Zero falls back to the request's top-K.
	DiversityTopK int
}

// Service drives a query through extraction, optional enrichment,
// multi-space search, and fusion. Every run produces a well-formed
// response; degradations are recorded in its metadata instead of
// failing the request.
type Service struct {
	extract Extractor
	enrich  Enricher
	search  Searcher
	fuse    Fuser
	items   ItemReader
	cfg     Config
	logger  *zap.Logger
}

func New(
	extract Extractor, enrich Enricher, search Searcher,
	fuse Fuser, items ItemReader, cfg Config, log *zap.Logger,
) *Service {
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = strategy.RRF
	}
	return &Service{
		extract: extract,
		enrich:  enrich,
		search:  search,
		fuse:    fuse,
		items:   items,
		cfg:     cfg,
		logger:  log,
	}
}

// run tracks the state machine of a single request.
type run struct {
	path     []string
	timings  map[string]time.Duration
	degraded []string
}

func (r *run) enter(s stage.Stage) time.Time {
	r.path = append(r.path, string(s))
	return time.Now()
}

func (r *run) finish(s stage.Stage, start time.Time) {
	d := time.Since(start)
	r.timings[string(s)] = d
	metrics.PipelineStageDuration.WithLabelValues(string(s)).Observe(d.Seconds())
}

func (r *run) degrade(s stage.Stage) {
	r.path = append(r.path, s.DegradedLabel())
	r.degraded = append(r.degraded, string(s))
	metrics.PipelineDegradedTotal.WithLabelValues(string(s)).Inc()
}

// RunSearch executes the full pipeline for one raw query.
func (s *Service) RunSearch(ctx context.Context, rawQuery string, opts Options) (domain.SearchResponse, error) {
	opts = s.applyDefaults(opts)
	q := domain.NewQuery(rawQuery)
	log := logger.WithRequestID(s.logger, q.ID())
	ctx = logger.ContextWithLogger(ctx, log)

	r := &run{
		path:    []string{string(stage.Received)},
		timings: make(map[string]time.Duration),
	}
	meta := domain.ResponseMetadata{RequestID: q.ID()}

	// Extracting.
	start := r.enter(stage.Extracting)
	extOut := s.extract.Extract(ctx, q)
	r.finish(stage.Extracting, start)

	extraction := extOut.Value()
	switch {
	case extOut.IsFailed():
		// Both the local model and the remote classifier are gone.
		// Search still works on the raw query text, so advance with an
		// empty extraction instead of aborting.
		log.Warn("Extraction unavailable, continuing without entities",
			zap.Error(extOut.Err()))
		extraction = domain.Extraction{
			Intent: domain.IntentClassification{Label: intent.Exploration},
		}
		r.degrade(stage.Extracting)
	case extOut.IsDegraded():
		log.Info("Extraction degraded", zap.String("reason", extOut.Reason()))
		r.degrade(stage.Extracting)
	}
	meta.Intent = extraction.Intent
	meta.Strategy = extraction.Strategy

	plan := planFor(extraction)

	// Enriching.
	if plan.Includes(stage.Enriching) {
		start = r.enter(stage.Enriching)
		enrichOut := s.enrich.Enrich(ctx, extraction.Entities)
		r.finish(stage.Enriching, start)

		if enrichOut.IsDegraded() {
			log.Info("Enrichment degraded", zap.String("reason", enrichOut.Reason()))
			r.degrade(stage.Enriching)
		}
		meta.EntityStatistics = sortedStatistics(enrichOut.Value())
	}

	// Searching.
	start = r.enter(stage.Searching)
	results, failedSpaces, err := s.search.Search(ctx, q.Normalized())
	if errors.Is(err, domain.ErrAllSpacesFailed) {
		log.Warn("All spaces failed, retrying semantic only")
		r.degrade(stage.Searching)
		firstFailed := failedSpaces
		results, failedSpaces, err = s.search.SearchSemanticOnly(ctx, q.Normalized())
		failedSpaces = mergeSpaceLists(firstFailed, failedSpaces)
	}
	r.finish(stage.Searching, start)

	if err != nil {
		return s.errored(r, meta, log, fmt.Errorf("search failed for request %s: %w", q.ID(), err))
	}
	if len(failedSpaces) > 0 {
		if !contains(r.degraded, string(stage.Searching)) {
			r.degrade(stage.Searching)
		}
		for _, space := range failedSpaces {
			r.degraded = append(r.degraded, "space:"+space)
		}
	}
	if ctx.Err() != nil {
		// The caller deadline expired mid-fan-out; fuse whatever came
		// back instead of returning nothing.
		meta.Partial = true
	}

	// Fusing.
	start = r.enter(stage.Fusing)
	candidates, err := s.fuse.Fuse(results, opts.Strategy)
	if err != nil {
		r.finish(stage.Fusing, start)
		return s.errored(r, meta, log, fmt.Errorf("fusion failed for request %s: %w", q.ID(), err))
	}
	if opts.TopK < len(candidates) {
		candidates = candidates[:opts.TopK]
	}
	if hydrateErr := s.hydrate(ctx, candidates); hydrateErr != nil {
		log.Warn("Candidate hydration failed", zap.Error(hydrateErr))
		r.degrade(stage.Fusing)
	}
	if opts.Diversity {
		depth := s.cfg.DiversityTopK
		if depth <= 0 || depth > opts.TopK {
			depth = opts.TopK
		}
		candidates = fusion.PromoteDiversity(candidates, depth)
	}
	r.finish(stage.Fusing, start)

	r.path = append(r.path, string(stage.Completed))
	meta.ExecutionPath = r.path
	meta.TimingsByStage = r.timings
	meta.DegradedStages = r.degraded

	status := "ok"
	if len(r.degraded) > 0 {
		status = "degraded"
	}
	metrics.PipelineRequestsTotal.WithLabelValues(status).Inc()

	return domain.SearchResponse{Candidates: candidates, Metadata: meta}, nil
}

// hydrate attaches catalog items to candidates in place. Missing items
// leave the candidate bare, which is not an error.
func (s *Service) hydrate(ctx context.Context, candidates []domain.FusedCandidate) error {
	if len(candidates) == 0 {
		return nil
	}
	ids := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		ids = append(ids, cand.ItemID)
	}

	items, err := s.items.GetItemsByIDs(ctx, ids)
	if err != nil {
		return err
	}

	byID := make(map[string]*domain.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	for i := range candidates {
		candidates[i].Item = byID[candidates[i].ItemID]
	}
	return nil
}

func (s *Service) errored(r *run, meta domain.ResponseMetadata, log *zap.Logger, err error) (domain.SearchResponse, error) {
	r.path = append(r.path, string(stage.Errored))
	meta.ExecutionPath = r.path
	meta.TimingsByStage = r.timings
	meta.DegradedStages = r.degraded
	metrics.PipelineRequestsTotal.WithLabelValues("errored").Inc()
	log.Error("Pipeline errored", zap.Error(err))
	return domain.SearchResponse{Metadata: meta}, err
}

func sortedStatistics(stats map[string]domain.EntityStatistic) []domain.EntityStatistic {
	out := make([]domain.EntityStatistic, 0, len(stats))
	for _, stat := range stats {
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}

func mergeSpaceLists(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(a, b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
