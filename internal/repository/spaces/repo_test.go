package spaces

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/queryfuse/internal/db"
	"github.com/kailas-cloud/queryfuse/internal/domain"
)

type mockSearcher struct {
	result    *db.SearchResult
	err       error
	lastQuery *db.KNNQuery
}

func (m *mockSearcher) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastQuery = q
	return m.result, m.err
}

func TestSearch_MapsEntriesToResults(t *testing.T) {
	ms := &mockSearcher{result: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{Key: "doc:1", Score: 0.9, Fields: map[string]string{"item_id": "item-1"}},
			{Key: "doc:2", Score: 0.7, Fields: map[string]string{}},
		},
	}}
	repo := New(ms, "queryfuse:")

	results, err := repo.Search(context.Background(), "semantic", []float32{0.1}, 10, 0.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ms.lastQuery.IndexName != "queryfuse:space:semantic" {
		t.Errorf("index = %q", ms.lastQuery.IndexName)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ItemID() != "item-1" {
		t.Errorf("item id = %q, want item_id field value", results[0].ItemID())
	}
	if results[1].ItemID() != "doc:2" {
		t.Errorf("item id = %q, want key fallback", results[1].ItemID())
	}
	if results[0].Rank() != 1 || results[1].Rank() != 2 {
		t.Errorf("ranks = %d, %d; want 1-based sequence", results[0].Rank(), results[1].Rank())
	}
	if results[0].Space() != "semantic" {
		t.Errorf("space = %q", results[0].Space())
	}
}

func TestSearch_FiltersByMinScore(t *testing.T) {
	ms := &mockSearcher{result: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{Key: "a", Score: 0.9},
			{Key: "b", Score: 0.3},
		},
	}}
	repo := New(ms, "")

	results, err := repo.Search(context.Background(), "semantic", []float32{0.1}, 10, 0.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result above min score, got %d", len(results))
	}
	var _ domain.VectorSearchResult = results[0]
}

func TestSearch_PropagatesError(t *testing.T) {
	ms := &mockSearcher{err: errors.New("index gone")}
	repo := New(ms, "")

	if _, err := repo.Search(context.Background(), "alias", []float32{0.1}, 10, 0); err == nil {
		t.Fatal("expected error")
	}
}
