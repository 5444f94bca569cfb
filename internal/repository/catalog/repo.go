// Package catalog reads item metadata from the key-value store. Items are
// stored as JSON at <prefix>item:<id> by the ingestion tooling (out of
// scope here), with a name index at <prefix>item_name:<normalized name>
// mapping to the item ID; this repo only hydrates candidates and feeds
// attribute distributions.
package catalog

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/queryfuse/internal/db"
	"github.com/kailas-cloud/queryfuse/internal/domain"
)

// store is the consumer interface for the catalog reader (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Repo reads catalog items.
type Repo struct {
	store      store
	keyPrefix  string
	namePrefix string
	logger     *zap.Logger
}

// New creates a catalog item reader.
func New(s store, keyPrefix string, logger *zap.Logger) *Repo {
	return &Repo{
		store:      s,
		keyPrefix:  keyPrefix + "item:",
		namePrefix: keyPrefix + "item_name:",
		logger:     logger,
	}
}

// GetItemsByIDs returns the items that exist among ids, preserving input
// order. Missing or malformed records are skipped with a warning; a
// partial catalog never fails hydration.
func (r *Repo) GetItemsByIDs(ctx context.Context, ids []string) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		data, err := r.store.Get(ctx, r.keyPrefix+id)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue
			}
			return items, err
		}

		var item domain.Item
		if err := json.Unmarshal(data, &item); err != nil {
			r.logger.Warn("Malformed catalog item skipped", zap.String("id", id), zap.Error(err))
			continue
		}
		if item.ID == "" {
			item.ID = id
		}
		items = append(items, item)
	}
	return items, nil
}

// GetItemByText resolves an exact name match through the name index.
// Returns domain.ErrItemNotFound when the name is unknown or the indexed
// item record is missing.
func (r *Repo) GetItemByText(ctx context.Context, name string) (*domain.Item, error) {
	idBytes, err := r.store.Get(ctx, r.namePrefix+domain.NormalizeText(name))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}

	data, err := r.store.Get(ctx, r.keyPrefix+string(idBytes))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}

	var item domain.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = string(idBytes)
	}
	return &item, nil
}
