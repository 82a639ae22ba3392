package transcripts

import (
	"context"
	"fmt"

	"lectern/internal/kvstore"
)

// Repository persists a Collection as one JSON record under a fixed key.
type Repository struct {
	store kvstore.Store
	key   string
}

// NewRepository binds the collection record to key.
func NewRepository(store kvstore.Store, key string) *Repository {
	if key == "" {
		key = "transcriptData"
	}
	return &Repository{store: store, key: key}
}

// Key returns the storage key of the collection record.
func (r *Repository) Key() string {
	return r.key
}

// Load reads the persisted collection. A missing record yields an empty collection.
func (r *Repository) Load(ctx context.Context) (Collection, error) {
	collection := Collection{}
	if _, err := kvstore.GetJSON(ctx, r.store, r.key, &collection); err != nil {
		return nil, fmt.Errorf("load transcripts: %w", err)
	}
	if collection == nil {
		collection = Collection{}
	}
	return collection, nil
}

// Save replaces the persisted collection.
func (r *Repository) Save(ctx context.Context, collection Collection) error {
	if collection == nil {
		collection = Collection{}
	}
	if err := kvstore.PutJSON(ctx, r.store, r.key, collection); err != nil {
		return fmt.Errorf("save transcripts: %w", err)
	}
	return nil
}

// Merge re-reads the persisted collection, sets one lecture entry and writes
// the result back. The merged collection is returned so callers can refresh
// their in-memory copy.
func (r *Repository) Merge(ctx context.Context, section, lecture string, lines []string) (Collection, error) {
	current, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	current.Set(section, lecture, lines)
	if err := r.Save(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Clear stores an empty collection.
func (r *Repository) Clear(ctx context.Context) error {
	return r.Save(ctx, Collection{})
}
