package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"glasswire/config"
	"glasswire/types"
)

func TestIndexAddNewestFirst(t *testing.T) {
	index := NewRecencyIndex(NewMemoryKV())
	ctx := context.Background()

	for _, id := range []string{"hn-1", "hn-2", "hn-3"} {
		if err := index.Add(ctx, id, types.SourceHackerNews); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	ids, err := index.Get(ctx, types.SourceHackerNews)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 || ids[0] != "hn-3" || ids[2] != "hn-1" {
		t.Errorf("expected newest first, got %v", ids)
	}
}

func TestIndexAddDeduplicates(t *testing.T) {
	index := NewRecencyIndex(NewMemoryKV())
	ctx := context.Background()

	_ = index.Add(ctx, "hn-1", types.SourceHackerNews)
	_ = index.Add(ctx, "hn-2", types.SourceHackerNews)
	_ = index.Add(ctx, "hn-1", types.SourceHackerNews)

	ids, _ := index.Get(ctx, types.SourceHackerNews)
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
	if ids[0] != "hn-1" || ids[1] != "hn-2" {
		t.Errorf("re-added id should move to the front: %v", ids)
	}
}

func TestIndexEnforcesCaps(t *testing.T) {
	index := NewRecencyIndex(NewMemoryKV())
	ctx := context.Background()

	for i := 0; i < config.MaxArticlesPerSource+20; i++ {
		if err := index.Add(ctx, fmt.Sprintf("hn-%d", i), types.SourceHackerNews); err != nil {
			t.Fatal(err)
		}
	}

	ids, _ := index.Get(ctx, types.SourceHackerNews)
	if len(ids) != config.MaxArticlesPerSource {
		t.Errorf("per-source index should cap at %d, got %d", config.MaxArticlesPerSource, len(ids))
	}
	if ids[0] != fmt.Sprintf("hn-%d", config.MaxArticlesPerSource+19) {
		t.Errorf("newest entry should survive the cap: %s", ids[0])
	}

	global, _ := index.Get(ctx, "")
	if len(global) > config.MaxArticlesGlobal {
		t.Errorf("global index exceeds its cap: %d", len(global))
	}
}

func TestIndexGlobalAggregatesSources(t *testing.T) {
	index := NewRecencyIndex(NewMemoryKV())
	ctx := context.Background()

	_ = index.Add(ctx, "hn-1", types.SourceHackerNews)
	_ = index.Add(ctx, "reddit-1", types.SourceReddit)

	global, _ := index.Get(ctx, "")
	if len(global) != 2 || global[0] != "reddit-1" {
		t.Errorf("global index wrong: %v", global)
	}

	hn, _ := index.Get(ctx, types.SourceHackerNews)
	if len(hn) != 1 || hn[0] != "hn-1" {
		t.Errorf("per-source index leaked entries: %v", hn)
	}
}

func TestIndexMissingReadsEmpty(t *testing.T) {
	index := NewRecencyIndex(NewMemoryKV())
	ids, err := index.Get(context.Background(), types.SourceBBC)
	if err != nil {
		t.Fatalf("missing index must not error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty, got %v", ids)
	}
}

func TestIndexCorruptReadsEmpty(t *testing.T) {
	kv := NewMemoryKV()
	_ = kv.Set(context.Background(), "index:bbc", "{not json", 0)

	index := NewRecencyIndex(kv)
	ids, err := index.Get(context.Background(), types.SourceBBC)
	if err != nil {
		t.Fatalf("corrupt index must not error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty, got %v", ids)
	}
}

func TestIndexRemove(t *testing.T) {
	index := NewRecencyIndex(NewMemoryKV())
	ctx := context.Background()

	_ = index.Add(ctx, "hn-1", types.SourceHackerNews)
	_ = index.Add(ctx, "hn-2", types.SourceHackerNews)
	if err := index.Remove(ctx, "hn-1", types.SourceHackerNews); err != nil {
		t.Fatal(err)
	}

	ids, _ := index.Get(ctx, types.SourceHackerNews)
	if len(ids) != 1 || ids[0] != "hn-2" {
		t.Errorf("remove left %v", ids)
	}
	global, _ := index.Get(ctx, "")
	if len(global) != 1 || global[0] != "hn-2" {
		t.Errorf("remove did not touch the global list: %v", global)
	}
}

func TestIndexEntriesExpire(t *testing.T) {
	kv := NewMemoryKV()
	current := time.Now()
	kv.now = func() time.Time { return current }

	index := NewRecencyIndex(kv)
	ctx := context.Background()
	_ = index.Add(ctx, "hn-1", types.SourceHackerNews)

	current = current.Add(config.IndexTTL + time.Hour)
	ids, err := index.Get(ctx, types.SourceHackerNews)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("index should expire after its TTL, got %v", ids)
	}
}

func TestIndexClearAll(t *testing.T) {
	index := NewRecencyIndex(NewMemoryKV())
	ctx := context.Background()

	_ = index.Add(ctx, "hn-1", types.SourceHackerNews)
	_ = index.Add(ctx, "bbc-1", types.SourceBBC)

	keys, err := index.ClearAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Global plus one key per known source, cleared unconditionally.
	if len(keys) != len(types.AllSources)+1 {
		t.Errorf("expected %d cleared keys, got %d", len(types.AllSources)+1, len(keys))
	}

	ids, _ := index.Get(ctx, "")
	if len(ids) != 0 {
		t.Errorf("global index should be empty after clear: %v", ids)
	}
}
