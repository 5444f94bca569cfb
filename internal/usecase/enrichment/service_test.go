package enrichment

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/queryfuse/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	vec    []float32
	err    error
	spaces []string
}

func (m *mockEmbedder) Embed(_ context.Context, _, space string) (domain.EmbeddingResult, error) {
	m.spaces = append(m.spaces, space)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockSearcher struct {
	hitsBySpace map[string][]domain.VectorSearchResult
	errBySpace  map[string]error
	calls       int
}

func (m *mockSearcher) Search(
	_ context.Context, space string, _ []float32, _ int, _ float64,
) ([]domain.VectorSearchResult, error) {
	m.calls++
	if err := m.errBySpace[space]; err != nil {
		return nil, err
	}
	return m.hitsBySpace[space], nil
}

type mockItems struct {
	items  []domain.Item
	err    error
	byText map[string]domain.Item
}

func (m *mockItems) GetItemsByIDs(_ context.Context, _ []string) ([]domain.Item, error) {
	return m.items, m.err
}

func (m *mockItems) GetItemByText(_ context.Context, name string) (*domain.Item, error) {
	if item, ok := m.byText[name]; ok {
		return &item, nil
	}
	return nil, domain.ErrItemNotFound
}

type mockCache struct {
	stats map[string]domain.EntityStatistic
	puts  int
}

func (m *mockCache) Statistic(_ context.Context, entity string) (domain.EntityStatistic, bool) {
	s, ok := m.stats[entity]
	return s, ok
}

func (m *mockCache) PutStatistic(_ context.Context, stat domain.EntityStatistic) {
	m.puts++
	if m.stats == nil {
		m.stats = map[string]domain.EntityStatistic{}
	}
	m.stats[stat.Entity] = stat
}

func testConfig() Config {
	return Config{
		Spaces:                  []string{"semantic", "category"},
		MinScore:                0.6,
		ResultCap:               30,
		ConfidenceSampleDivisor: 10,
	}
}

func hits(space string, ids ...string) []domain.VectorSearchResult {
	out := make([]domain.VectorSearchResult, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.NewVectorSearchResult(id, 0.9, space, i+1))
	}
	return out
}

func entitiesOf(texts ...string) []domain.ExtractedEntity {
	out := make([]domain.ExtractedEntity, 0, len(texts))
	for _, tx := range texts {
		out = append(out, domain.ExtractedEntity{Text: tx, Type: domain.EntityCategory, Confidence: 0.9})
	}
	return out
}

// --- Tests ---

func TestEnrich_BuildsDistributions(t *testing.T) {
	searcher := &mockSearcher{hitsBySpace: map[string][]domain.VectorSearchResult{
		"semantic": hits("semantic", "a", "b", "c", "d"),
	}}
	items := &mockItems{items: []domain.Item{
		{ID: "a", Category: "ui-builder", Attributes: map[string]string{"pricing": "free"}},
		{ID: "b", Category: "ui-builder", Attributes: map[string]string{"pricing": "free"}},
		{ID: "c", Category: "ui-builder", Attributes: map[string]string{"pricing": "paid"}},
		{ID: "d", Category: "cms", Attributes: map[string]string{"pricing": "free"}},
	}}
	svc := New(&mockEmbedder{vec: []float32{0.1}}, searcher, items, nil, testConfig(), zap.NewNop())

	out := svc.Enrich(context.Background(), entitiesOf("ui builder"))
	if !out.IsOK() {
		t.Fatalf("status = %q", out.Status())
	}

	stat := out.Value()["ui builder"]
	if stat.SampleSize != 4 {
		t.Fatalf("sample size = %d", stat.SampleSize)
	}
	if stat.Confidence != 0.4 {
		t.Errorf("confidence = %f, want 0.4 (4/10)", stat.Confidence)
	}

	pricing := stat.Distributions["pricing"]
	if len(pricing) != 2 {
		t.Fatalf("pricing distribution = %+v", pricing)
	}
	if pricing[0].Value != "free" || pricing[0].Percentage != 75 {
		t.Errorf("top pricing = %+v, want free at 75%%", pricing[0])
	}
	if pricing[1].Value != "paid" || pricing[1].Percentage != 25 {
		t.Errorf("second pricing = %+v", pricing[1])
	}

	category := stat.Distributions["category"]
	if category[0].Value != "ui-builder" || category[0].Percentage != 75 {
		t.Errorf("category distribution = %+v", category)
	}

	if len(stat.ContributingSources) != 1 || stat.ContributingSources[0] != "semantic" {
		t.Errorf("sources = %v", stat.ContributingSources)
	}
}

func TestEnrich_ExactMatchSeedsProfile(t *testing.T) {
	searcher := &mockSearcher{hitsBySpace: map[string][]domain.VectorSearchResult{
		"semantic": hits("semantic", "b"),
	}}
	items := &mockItems{
		byText: map[string]domain.Item{"tooljet": {ID: "a", Name: "Tooljet", Category: "ui-builder"}},
		items: []domain.Item{
			{ID: "a", Category: "ui-builder"},
			{ID: "b", Category: "ui-builder"},
		},
	}
	svc := New(&mockEmbedder{vec: []float32{0.1}}, searcher, items, nil, testConfig(), zap.NewNop())

	out := svc.Enrich(context.Background(), entitiesOf("tooljet"))
	if !out.IsOK() {
		t.Fatalf("status = %q", out.Status())
	}

	stat := out.Value()["tooljet"]
	if stat.SampleSize != 2 {
		t.Fatalf("sample size = %d, want exact match plus one hit", stat.SampleSize)
	}
	if len(stat.ContributingSources) != 2 || stat.ContributingSources[0] != "catalog" {
		t.Errorf("sources = %v, want catalog first", stat.ContributingSources)
	}
}

func TestEnrich_ConfidenceCappedAtOne(t *testing.T) {
	ids := make([]string, 15)
	catalog := make([]domain.Item, 15)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		catalog[i] = domain.Item{ID: ids[i], Category: "x"}
	}
	searcher := &mockSearcher{hitsBySpace: map[string][]domain.VectorSearchResult{
		"semantic": hits("semantic", ids...),
	}}
	svc := New(&mockEmbedder{vec: []float32{0.1}}, searcher, &mockItems{items: catalog}, nil,
		testConfig(), zap.NewNop())

	out := svc.Enrich(context.Background(), entitiesOf("x"))
	if got := out.Value()["x"].Confidence; got != 1.0 {
		t.Errorf("confidence = %f, want capped at 1.0", got)
	}
}

func TestEnrich_ConfidenceMonotonicInSampleSize(t *testing.T) {
	svc := New(nil, nil, nil, nil, testConfig(), zap.NewNop())

	prev := -1.0
	for n := 0; n <= 20; n++ {
		c := svc.confidence(n)
		if c < prev {
			t.Fatalf("confidence decreased at sampleSize=%d: %f < %f", n, c, prev)
		}
		prev = c
	}
}

func TestEnrich_ZeroHitsYieldsMinimalStatistic(t *testing.T) {
	searcher := &mockSearcher{hitsBySpace: map[string][]domain.VectorSearchResult{}}
	svc := New(&mockEmbedder{vec: []float32{0.1}}, searcher, &mockItems{}, nil,
		testConfig(), zap.NewNop())

	out := svc.Enrich(context.Background(), entitiesOf("nonexistent"))
	if !out.IsOK() {
		t.Fatalf("zero hits is not a degradation, status = %q", out.Status())
	}
	stat := out.Value()["nonexistent"]
	if stat.SampleSize != 0 || stat.Confidence != 0 {
		t.Errorf("minimal statistic expected, got %+v", stat)
	}
	if len(stat.Distributions) != 0 {
		t.Errorf("distributions should be empty: %+v", stat.Distributions)
	}
}

func TestEnrich_BackendErrorDegrades(t *testing.T) {
	searcher := &mockSearcher{
		hitsBySpace: map[string][]domain.VectorSearchResult{},
		errBySpace: map[string]error{
			"semantic": errors.New("backend down"),
			"category": errors.New("backend down"),
		},
	}
	svc := New(&mockEmbedder{vec: []float32{0.1}}, searcher, &mockItems{}, nil,
		testConfig(), zap.NewNop())

	out := svc.Enrich(context.Background(), entitiesOf("ui builder"))
	if !out.IsDegraded() {
		t.Fatalf("status = %q, want degraded", out.Status())
	}
	stat := out.Value()["ui builder"]
	if stat.SampleSize != 0 {
		t.Errorf("expected minimal statistic, got %+v", stat)
	}
}

func TestEnrich_EmbeddingFailureDegrades(t *testing.T) {
	svc := New(&mockEmbedder{err: errors.New("provider down")}, &mockSearcher{}, &mockItems{}, nil,
		testConfig(), zap.NewNop())

	out := svc.Enrich(context.Background(), entitiesOf("ui builder"))
	if !out.IsDegraded() {
		t.Fatalf("status = %q, want degraded", out.Status())
	}
}

func TestEnrich_EmbedsPerSpace(t *testing.T) {
	embedder := &mockEmbedder{vec: []float32{0.1}}
	searcher := &mockSearcher{hitsBySpace: map[string][]domain.VectorSearchResult{
		"semantic": hits("semantic", "a"),
		"category": hits("category", "a"),
	}}
	svc := New(embedder, searcher, &mockItems{items: []domain.Item{{ID: "a", Category: "x"}}}, nil,
		testConfig(), zap.NewNop())

	_ = svc.Enrich(context.Background(), entitiesOf("ui builder"))

	// Indexes hold instruction-prefixed vectors, so each space needs its
	// own embedding rather than a reused semantic one.
	if len(embedder.spaces) != 2 || embedder.spaces[0] != "semantic" || embedder.spaces[1] != "category" {
		t.Errorf("embedded spaces = %v, want one embedding per configured space", embedder.spaces)
	}
}

func TestEnrich_CacheHitSkipsBackend(t *testing.T) {
	cache := &mockCache{stats: map[string]domain.EntityStatistic{
		"ui builder": {Entity: "ui builder", SampleSize: 8, Confidence: 0.8},
	}}
	searcher := &mockSearcher{}
	svc := New(&mockEmbedder{vec: []float32{0.1}}, searcher, &mockItems{}, cache,
		testConfig(), zap.NewNop())

	out := svc.Enrich(context.Background(), entitiesOf("ui builder"))
	if !out.IsOK() {
		t.Fatalf("status = %q", out.Status())
	}
	if searcher.calls != 0 {
		t.Error("cache hit must not touch the backend")
	}
	if out.Value()["ui builder"].SampleSize != 8 {
		t.Errorf("got %+v", out.Value()["ui builder"])
	}
}

func TestEnrich_ComputedStatisticIsCached(t *testing.T) {
	cache := &mockCache{}
	searcher := &mockSearcher{hitsBySpace: map[string][]domain.VectorSearchResult{
		"semantic": hits("semantic", "a"),
	}}
	svc := New(&mockEmbedder{vec: []float32{0.1}}, searcher,
		&mockItems{items: []domain.Item{{ID: "a", Category: "x"}}}, cache,
		testConfig(), zap.NewNop())

	_ = svc.Enrich(context.Background(), entitiesOf("ui builder"))
	if cache.puts != 1 {
		t.Errorf("cache puts = %d, want 1", cache.puts)
	}
}

func TestEnrich_DuplicateEntitiesComputedOnce(t *testing.T) {
	searcher := &mockSearcher{hitsBySpace: map[string][]domain.VectorSearchResult{
		"semantic": hits("semantic", "a"),
	}}
	svc := New(&mockEmbedder{vec: []float32{0.1}}, searcher,
		&mockItems{items: []domain.Item{{ID: "a", Category: "x"}}}, nil,
		testConfig(), zap.NewNop())

	out := svc.Enrich(context.Background(), entitiesOf("free", "free"))
	if len(out.Value()) != 1 {
		t.Errorf("expected one statistic, got %d", len(out.Value()))
	}
}
