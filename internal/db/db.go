// Package db defines the storage contracts consumed by repositories.
// Consumers depend on the narrow sub-interfaces, not on Store.
package db

import (
	"context"
	"time"
)

// Store is the database facade combining all sub-interfaces.
type Store interface {
	Pinger
	KVStore
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides key-value operations for the embedding and result caches.
// Set is insert-or-replace; entries are never mutated in place.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// KNNQuery is the input for vector similarity search against one index.
type KNNQuery struct {
	IndexName string
	Vector    []float32
	K         int
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult is the output of a search operation. Entry order is the
// rank order assigned by the index.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// Searcher runs KNN vector search against named indices.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
