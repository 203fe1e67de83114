package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"glasswire/config"
	"glasswire/types"
)

const globalIndexKey = "index:all"

// RecencyIndex keeps a bounded, newest-first list of article IDs per source
// plus one global list, stored as JSON arrays in the KV store with a TTL.
//
// Updates are read-modify-write without locks; concurrent writers can race
// and one update can be lost. That is accepted: the index is a best-effort
// recency cache, and the blob store remains the source of truth.
type RecencyIndex struct {
	kv KV
}

// NewRecencyIndex creates an index over the given KV store.
func NewRecencyIndex(kv KV) *RecencyIndex {
	return &RecencyIndex{kv: kv}
}

func sourceIndexKey(source types.Source) string {
	return "index:" + string(source)
}

// Add prepends the ID to the per-source and global lists, deduplicating and
// truncating to their caps, and refreshes both TTLs.
func (i *RecencyIndex) Add(ctx context.Context, articleID string, source types.Source) error {
	if err := i.update(ctx, sourceIndexKey(source), articleID, config.MaxArticlesPerSource, true); err != nil {
		return fmt.Errorf("failed to update index for %s: %w", source, err)
	}
	if err := i.update(ctx, globalIndexKey, articleID, config.MaxArticlesGlobal, true); err != nil {
		return fmt.Errorf("failed to update global index: %w", err)
	}
	return nil
}

// Remove deletes the ID from both lists.
func (i *RecencyIndex) Remove(ctx context.Context, articleID string, source types.Source) error {
	if err := i.update(ctx, sourceIndexKey(source), articleID, config.MaxArticlesPerSource, false); err != nil {
		return err
	}
	return i.update(ctx, globalIndexKey, articleID, config.MaxArticlesGlobal, false)
}

func (i *RecencyIndex) update(ctx context.Context, key, articleID string, cap int, insert bool) error {
	existing, err := i.read(ctx, key)
	if err != nil {
		return err
	}

	updated := make([]string, 0, len(existing)+1)
	if insert {
		updated = append(updated, articleID)
	}
	for _, id := range existing {
		if id != articleID {
			updated = append(updated, id)
		}
	}
	if len(updated) > cap {
		updated = updated[:cap]
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return err
	}
	return i.kv.Set(ctx, key, string(data), config.IndexTTL)
}

// Get returns the ordered ID list for a source, or the global list when
// source is empty. A missing index reads as empty.
func (i *RecencyIndex) Get(ctx context.Context, source types.Source) ([]string, error) {
	key := globalIndexKey
	if source != "" {
		key = sourceIndexKey(source)
	}
	return i.read(ctx, key)
}

func (i *RecencyIndex) read(ctx context.Context, key string) ([]string, error) {
	raw, err := i.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		log.Printf("[Index] Corrupt index %s, treating as empty: %v", key, err)
		return []string{}, nil
	}
	return ids, nil
}

// ClearAll deletes the global key and every per-source key, returning the
// deleted key names for auditability. Articles in the blob store are
// untouched; this is a soft reset.
func (i *RecencyIndex) ClearAll(ctx context.Context) ([]string, error) {
	keys := []string{globalIndexKey}
	for _, source := range types.AllSources {
		keys = append(keys, sourceIndexKey(source))
	}
	if err := i.kv.Delete(ctx, keys...); err != nil {
		return nil, fmt.Errorf("failed to clear indexes: %w", err)
	}
	log.Printf("[Index] Cleared %d index keys", len(keys))
	return keys, nil
}
