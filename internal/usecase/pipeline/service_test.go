package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/queryfuse/internal/domain"
	"github.com/kailas-cloud/queryfuse/internal/domain/intent"
	"github.com/kailas-cloud/queryfuse/internal/domain/outcome"
	"github.com/kailas-cloud/queryfuse/internal/domain/stage"
	"github.com/kailas-cloud/queryfuse/internal/domain/strategy"
	"github.com/kailas-cloud/queryfuse/internal/usecase/fusion"
)

// --- Mocks ---

type mockExtractor struct {
	out outcome.Outcome[domain.Extraction]
}

func (m *mockExtractor) Extract(_ context.Context, _ domain.Query) outcome.Outcome[domain.Extraction] {
	return m.out
}

type mockEnricher struct {
	out    outcome.Outcome[map[string]domain.EntityStatistic]
	called bool
}

func (m *mockEnricher) Enrich(_ context.Context, _ []domain.ExtractedEntity) outcome.Outcome[map[string]domain.EntityStatistic] {
	m.called = true
	return m.out
}

type mockSearcher struct {
	results       map[string][]domain.VectorSearchResult
	failedSpaces  []string
	err           error
	semResults    map[string][]domain.VectorSearchResult
	semErr        error
	semanticCalls int
}

func (m *mockSearcher) Search(_ context.Context, _ string) (map[string][]domain.VectorSearchResult, []string, error) {
	return m.results, m.failedSpaces, m.err
}

func (m *mockSearcher) SearchSemanticOnly(_ context.Context, _ string) (map[string][]domain.VectorSearchResult, []string, error) {
	m.semanticCalls++
	return m.semResults, nil, m.semErr
}

type mockItems struct {
	items []domain.Item
	err   error
}

func (m *mockItems) GetItemsByIDs(_ context.Context, _ []string) ([]domain.Item, error) {
	return m.items, m.err
}

// --- Helpers ---

func okExtraction() outcome.Outcome[domain.Extraction] {
	return outcome.Ok(domain.Extraction{
		Entities: []domain.ExtractedEntity{
			{Text: "ui builder", Type: domain.EntityCategory, Confidence: 0.9},
		},
		Intent:   domain.IntentClassification{Label: intent.Exploration, Confidence: 0.8},
		Strategy: domain.StrategyLocal,
	})
}

func okEnrichment() outcome.Outcome[map[string]domain.EntityStatistic] {
	return outcome.Ok(map[string]domain.EntityStatistic{
		"ui builder": {Entity: "ui builder", SampleSize: 5, Confidence: 0.5},
	})
}

func spaceResults() map[string][]domain.VectorSearchResult {
	return map[string][]domain.VectorSearchResult{
		"semantic": {
			domain.NewVectorSearchResult("a", 0.9, "semantic", 1),
			domain.NewVectorSearchResult("b", 0.8, "semantic", 2),
		},
		"category": {
			domain.NewVectorSearchResult("a", 0.85, "category", 1),
		},
	}
}

func newService(ex Extractor, en Enricher, se Searcher, it ItemReader) *Service {
	return New(ex, en, se, fusion.NewEngine(fusion.Config{K: 60}, zap.NewNop()), it,
		Config{DefaultStrategy: strategy.RRF, DefaultTopK: 10}, zap.NewNop())
}

func pathOf(resp domain.SearchResponse) string {
	return strings.Join(resp.Metadata.ExecutionPath, " ")
}

// --- Tests ---

func TestRunSearch_HappyPath(t *testing.T) {
	enricher := &mockEnricher{out: okEnrichment()}
	svc := newService(
		&mockExtractor{out: okExtraction()},
		enricher,
		&mockSearcher{results: spaceResults()},
		&mockItems{items: []domain.Item{{ID: "a", Name: "Tool A", Category: "cms"}}},
	)

	resp, err := svc.RunSearch(context.Background(), "Free UI builder", Options{})
	if err != nil {
		t.Fatalf("RunSearch() error = %v", err)
	}

	want := "received extracting enriching searching fusing completed"
	if got := pathOf(resp); got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if len(resp.Metadata.DegradedStages) != 0 {
		t.Errorf("degraded stages = %v", resp.Metadata.DegradedStages)
	}
	if resp.Metadata.RequestID == "" {
		t.Error("request ID missing")
	}
	if !enricher.called {
		t.Error("enrichment stage skipped")
	}

	if len(resp.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(resp.Candidates))
	}
	if resp.Candidates[0].ItemID != "a" {
		t.Errorf("top candidate = %q", resp.Candidates[0].ItemID)
	}
	if resp.Candidates[0].Item == nil || resp.Candidates[0].Item.Name != "Tool A" {
		t.Errorf("candidate not hydrated: %+v", resp.Candidates[0].Item)
	}
	if len(resp.Metadata.EntityStatistics) != 1 {
		t.Errorf("statistics = %+v", resp.Metadata.EntityStatistics)
	}
	for _, s := range []stage.Stage{stage.Extracting, stage.Searching, stage.Fusing} {
		if _, ok := resp.Metadata.TimingsByStage[string(s)]; !ok {
			t.Errorf("missing timing for %s", s)
		}
	}
}

func TestRunSearch_ExtractionFailureDegradesAndContinues(t *testing.T) {
	enricher := &mockEnricher{out: okEnrichment()}
	svc := newService(
		&mockExtractor{out: outcome.Failed[domain.Extraction](domain.ErrExtractionUnavailable)},
		enricher,
		&mockSearcher{results: spaceResults()},
		&mockItems{},
	)

	resp, err := svc.RunSearch(context.Background(), "query", Options{})
	if err != nil {
		t.Fatalf("extraction failure must not fail the request: %v", err)
	}
	if !strings.Contains(pathOf(resp), "degraded-extracting") {
		t.Errorf("path = %q, want degraded-extracting", pathOf(resp))
	}
	if enricher.called {
		t.Error("enrichment should be skipped when no entities were extracted")
	}
	if len(resp.Candidates) == 0 {
		t.Error("search must still produce candidates")
	}
}

func TestRunSearch_SkipsEnrichmentForConfidentFilterSearch(t *testing.T) {
	enricher := &mockEnricher{out: okEnrichment()}
	svc := newService(
		&mockExtractor{out: outcome.Ok(domain.Extraction{
			Entities: []domain.ExtractedEntity{{Text: "free", Type: domain.EntityAttribute, Confidence: 0.9}},
			Intent:   domain.IntentClassification{Label: intent.FilterSearch, Confidence: 0.9},
			Strategy: domain.StrategyLocal,
		})},
		enricher,
		&mockSearcher{results: spaceResults()},
		&mockItems{},
	)

	resp, err := svc.RunSearch(context.Background(), "free tools", Options{})
	if err != nil {
		t.Fatalf("RunSearch() error = %v", err)
	}
	if enricher.called {
		t.Error("confident filter search must skip enrichment")
	}
	if strings.Contains(pathOf(resp), string(stage.Enriching)) {
		t.Errorf("path = %q", pathOf(resp))
	}
}

func TestRunSearch_FailedSpacesAreRecorded(t *testing.T) {
	svc := newService(
		&mockExtractor{out: okExtraction()},
		&mockEnricher{out: okEnrichment()},
		&mockSearcher{results: spaceResults(), failedSpaces: []string{"alias"}},
		&mockItems{},
	)

	resp, err := svc.RunSearch(context.Background(), "query", Options{})
	if err != nil {
		t.Fatalf("RunSearch() error = %v", err)
	}
	degraded := strings.Join(resp.Metadata.DegradedStages, " ")
	if !strings.Contains(degraded, "searching") || !strings.Contains(degraded, "space:alias") {
		t.Errorf("degraded = %q", degraded)
	}
	if len(resp.Candidates) == 0 {
		t.Error("surviving spaces must still be fused")
	}
}

func TestRunSearch_AllSpacesFailedRetriesSemanticOnly(t *testing.T) {
	searcher := &mockSearcher{
		err:          domain.ErrAllSpacesFailed,
		failedSpaces: []string{"alias", "category", "semantic"},
		semResults: map[string][]domain.VectorSearchResult{
			"semantic": {domain.NewVectorSearchResult("a", 0.9, "semantic", 1)},
		},
	}
	svc := newService(&mockExtractor{out: okExtraction()}, &mockEnricher{out: okEnrichment()}, searcher, &mockItems{})

	resp, err := svc.RunSearch(context.Background(), "query", Options{})
	if err != nil {
		t.Fatalf("RunSearch() error = %v", err)
	}
	if searcher.semanticCalls != 1 {
		t.Errorf("semantic retries = %d, want 1", searcher.semanticCalls)
	}
	if !strings.Contains(pathOf(resp), "degraded-searching") {
		t.Errorf("path = %q", pathOf(resp))
	}
	degraded := strings.Join(resp.Metadata.DegradedStages, " ")
	for _, space := range []string{"space:alias", "space:category", "space:semantic"} {
		if !strings.Contains(degraded, space) {
			t.Errorf("degraded = %q, missing %s", degraded, space)
		}
	}
	if len(resp.Candidates) != 1 {
		t.Errorf("got %d candidates", len(resp.Candidates))
	}
}

func TestRunSearch_TotalSearchFailureErrors(t *testing.T) {
	searcher := &mockSearcher{
		err:    domain.ErrAllSpacesFailed,
		semErr: domain.ErrAllSpacesFailed,
	}
	svc := newService(&mockExtractor{out: okExtraction()}, &mockEnricher{out: okEnrichment()}, searcher, &mockItems{})

	resp, err := svc.RunSearch(context.Background(), "query", Options{})
	if !errors.Is(err, domain.ErrAllSpacesFailed) {
		t.Fatalf("error = %v, want ErrAllSpacesFailed", err)
	}
	if !strings.HasSuffix(pathOf(resp), string(stage.Errored)) {
		t.Errorf("path = %q, want errored terminal state", pathOf(resp))
	}
	if resp.Metadata.RequestID == "" {
		t.Error("errored response must still carry metadata")
	}
}

func TestRunSearch_TopKTruncation(t *testing.T) {
	results := map[string][]domain.VectorSearchResult{"semantic": nil}
	for i := 1; i <= 20; i++ {
		results["semantic"] = append(results["semantic"],
			domain.NewVectorSearchResult(string(rune('a'+i)), 0.9, "semantic", i))
	}
	svc := newService(&mockExtractor{out: okExtraction()}, &mockEnricher{out: okEnrichment()},
		&mockSearcher{results: results}, &mockItems{})

	resp, err := svc.RunSearch(context.Background(), "query", Options{TopK: 5})
	if err != nil {
		t.Fatalf("RunSearch() error = %v", err)
	}
	if len(resp.Candidates) != 5 {
		t.Errorf("got %d candidates, want 5", len(resp.Candidates))
	}
}

func TestRunSearch_HydrationFailureDegrades(t *testing.T) {
	svc := newService(
		&mockExtractor{out: okExtraction()},
		&mockEnricher{out: okEnrichment()},
		&mockSearcher{results: spaceResults()},
		&mockItems{err: errors.New("store down")},
	)

	resp, err := svc.RunSearch(context.Background(), "query", Options{})
	if err != nil {
		t.Fatalf("hydration failure must not fail the request: %v", err)
	}
	if !strings.Contains(pathOf(resp), "degraded-fusing") {
		t.Errorf("path = %q", pathOf(resp))
	}
	for _, cand := range resp.Candidates {
		if cand.Item != nil {
			t.Errorf("unexpected hydrated item on %q", cand.ItemID)
		}
	}
}

func TestRunSearch_UnknownStrategyErrors(t *testing.T) {
	svc := newService(&mockExtractor{out: okExtraction()}, &mockEnricher{out: okEnrichment()},
		&mockSearcher{results: spaceResults()}, &mockItems{})

	resp, err := svc.RunSearch(context.Background(), "query", Options{Strategy: strategy.Strategy("bogus")})
	if err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	if !strings.HasSuffix(pathOf(resp), string(stage.Errored)) {
		t.Errorf("path = %q", pathOf(resp))
	}
}

func TestRunSearch_ExpiredDeadlineMarksPartial(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	svc := newService(&mockExtractor{out: okExtraction()}, &mockEnricher{out: okEnrichment()},
		&mockSearcher{results: spaceResults()}, &mockItems{})

	resp, err := svc.RunSearch(ctx, "query", Options{})
	if err != nil {
		t.Fatalf("RunSearch() error = %v", err)
	}
	if !resp.Metadata.Partial {
		t.Error("expired deadline with surviving results must be marked partial")
	}
}

func TestPlanFor(t *testing.T) {
	noEntities := planFor(domain.Extraction{})
	if noEntities.Includes(stage.Enriching) {
		t.Error("no entities must skip enrichment")
	}

	confident := planFor(domain.Extraction{
		Entities: []domain.ExtractedEntity{{Text: "free"}},
		Intent:   domain.IntentClassification{Label: intent.FilterSearch, Confidence: 0.9},
	})
	if confident.Includes(stage.Enriching) {
		t.Error("confident filter search must skip enrichment")
	}

	exploratory := planFor(domain.Extraction{
		Entities: []domain.ExtractedEntity{{Text: "cms"}},
		Intent:   domain.IntentClassification{Label: intent.Exploration, Confidence: 0.4},
	})
	if !exploratory.Includes(stage.Enriching) {
		t.Error("exploratory intent with entities must enrich")
	}
	if !exploratory.Includes(stage.Searching) || !exploratory.Includes(stage.Fusing) {
		t.Error("searching and fusing always run")
	}
}
