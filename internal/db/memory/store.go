// Package memory implements db.Store in process memory. It backs local
// development and tests where no Redis is available; KNN search is a
// brute-force cosine scan, which is fine at dev-catalog sizes.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/queryfuse/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type kvEntry struct {
	value     []byte
	expiresAt time.Time
}

type document struct {
	key    string
	vector []float32
	fields map[string]string
}

// Store is an in-memory db.Store.
type Store struct {
	mu      sync.RWMutex
	kv      map[string]kvEntry
	indices map[string][]document
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		kv:      make(map[string]kvEntry),
		indices: make(map[string][]document),
	}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Get retrieves a value by key. Expired entries behave as missing.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.kv[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, db.ErrKeyNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// SetWithTTL stores a value with an expiration. Insert-or-replace.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = kvEntry{value: v, expiresAt: time.Now().Add(ttl)}
	return nil
}

// AddDocument registers a document under an index for KNN search.
func (s *Store) AddDocument(index, key string, vector []float32, fields map[string]string) {
	v := make([]float32, len(vector))
	copy(v, vector)
	f := make(map[string]string, len(fields))
	for k, val := range fields {
		f[k] = val
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.indices[index] = append(s.indices[index], document{key: key, vector: v, fields: f})
}

// SearchKNN runs a brute-force cosine similarity scan over the index.
func (s *Store) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	s.mu.RLock()
	docs, ok := s.indices[q.IndexName]
	s.mu.RUnlock()
	if !ok {
		return nil, db.ErrIndexNotFound
	}

	entries := make([]db.SearchEntry, 0, len(docs))
	for _, d := range docs {
		score := cosine(q.Vector, d.vector)
		fields := make(map[string]string, len(d.fields))
		for k, v := range d.fields {
			fields[k] = v
		}
		entries = append(entries, db.SearchEntry{Key: d.key, Score: score, Fields: fields})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	if len(entries) > q.K {
		entries = entries[:q.K]
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
