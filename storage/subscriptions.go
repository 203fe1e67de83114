package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"glasswire/types"
)

const subscriptionPrefix = "sub:"

// SubscriptionRepo stores one push subscription record per unique endpoint,
// keyed by a short hash of the endpoint URL. Re-subscribing the same
// endpoint overwrites; records carry no TTL and persist until delivery
// reports the endpoint gone.
type SubscriptionRepo struct {
	kv KV
}

// NewSubscriptionRepo creates a repository over the given KV store.
func NewSubscriptionRepo(kv KV) *SubscriptionRepo {
	return &SubscriptionRepo{kv: kv}
}

// Save upserts a subscription and returns its storage key.
func (r *SubscriptionRepo) Save(ctx context.Context, sub *types.Subscription) (string, error) {
	if sub.Endpoint == "" {
		return "", fmt.Errorf("subscription endpoint is required")
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("failed to marshal subscription: %w", err)
	}
	key := subscriptionPrefix + sub.Hash()
	if err := r.kv.Set(ctx, key, string(data), 0); err != nil {
		return "", fmt.Errorf("failed to save subscription: %w", err)
	}
	return key, nil
}

// FindAll returns every stored subscription along with its storage key.
// Unparsable records are skipped with a log line.
func (r *SubscriptionRepo) FindAll(ctx context.Context) (map[string]*types.Subscription, error) {
	keys, err := r.kv.Keys(ctx, subscriptionPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	subs := make(map[string]*types.Subscription, len(keys))
	for _, key := range keys {
		raw, err := r.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var sub types.Subscription
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			log.Printf("[SubscriptionRepo] Skipping unparsable record %s: %v", key, err)
			continue
		}
		subs[key] = &sub
	}
	return subs, nil
}

// Delete removes a subscription by its storage key.
func (r *SubscriptionRepo) Delete(ctx context.Context, key string) error {
	return r.kv.Delete(ctx, key)
}

// Count returns the number of stored subscriptions.
func (r *SubscriptionRepo) Count(ctx context.Context) (int, error) {
	keys, err := r.kv.Keys(ctx, subscriptionPrefix)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
