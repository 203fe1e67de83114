package storage

import (
	"context"
	"strings"
	"testing"

	"glasswire/types"
)

func TestSubscriptionSaveIsUpsert(t *testing.T) {
	repo := NewSubscriptionRepo(NewMemoryKV())
	ctx := context.Background()

	sub := &types.Subscription{
		Endpoint: "https://push.example.com/ep",
		Keys:     types.SubscriptionKeys{P256dh: "p", Auth: "a"},
	}
	key1, err := repo.Save(ctx, sub)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(key1, "sub:") {
		t.Errorf("key missing prefix: %s", key1)
	}

	// Same endpoint, refreshed keys: still one record.
	sub.Keys.Auth = "rotated"
	key2, err := repo.Save(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	if key1 != key2 {
		t.Errorf("re-subscribe produced a new key: %s vs %s", key1, key2)
	}

	count, _ := repo.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 subscription, got %d", count)
	}

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if all[key1].Keys.Auth != "rotated" {
		t.Error("upsert did not refresh the stored keys")
	}
}

func TestSubscriptionSaveRejectsEmptyEndpoint(t *testing.T) {
	repo := NewSubscriptionRepo(NewMemoryKV())
	if _, err := repo.Save(context.Background(), &types.Subscription{}); err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestSubscriptionDelete(t *testing.T) {
	repo := NewSubscriptionRepo(NewMemoryKV())
	ctx := context.Background()

	key, _ := repo.Save(ctx, &types.Subscription{Endpoint: "https://push.example.com/ep"})
	if err := repo.Delete(ctx, key); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	count, _ := repo.Count(ctx)
	if count != 0 {
		t.Errorf("expected 0 subscriptions after delete, got %d", count)
	}
}

func TestSubscriptionFindAllSkipsCorruptRecords(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	_ = kv.Set(ctx, "sub:corrupt", "{oops", 0)

	repo := NewSubscriptionRepo(kv)
	_, _ = repo.Save(ctx, &types.Subscription{Endpoint: "https://push.example.com/ok"})

	all, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("expected the corrupt record skipped, got %d entries", len(all))
	}
}
