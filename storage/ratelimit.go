package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"
)

// RateLimitConfig describes one fixed-window limit.
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
	// Scope distinguishes limiter key namespaces, e.g. "admin", "transform".
	Scope string
}

// RateLimitResult reports the limiter's decision for one request.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type rateLimitWindow struct {
	Count   int   `json:"count"`
	ResetAt int64 `json:"resetAt"` // unix milliseconds
}

// RateLimiter is a fixed-window limiter stored in the shared KV store under
// ratelimit:<scope>:<clientId>. It is advisory: if the KV check itself
// errors the request is allowed (fail open).
type RateLimiter struct {
	kv  KV
	now func() time.Time
}

// NewRateLimiter creates a limiter over the given KV store.
func NewRateLimiter(kv KV) *RateLimiter {
	return &RateLimiter{kv: kv, now: time.Now}
}

// Allow records one request for clientID under cfg's scope and reports
// whether it is within the window's budget.
func (l *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig, clientID string) RateLimitResult {
	key := "ratelimit:" + cfg.Scope + ":" + clientID
	now := l.now()

	window := rateLimitWindow{ResetAt: now.Add(cfg.Window).UnixMilli()}
	raw, err := l.kv.Get(ctx, key)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal([]byte(raw), &window); jsonErr != nil {
			log.Printf("[RateLimit] Corrupt window %s, resetting: %v", key, jsonErr)
			window = rateLimitWindow{ResetAt: now.Add(cfg.Window).UnixMilli()}
		}
	case errors.Is(err, ErrNotFound):
		// first request in this window
	default:
		log.Printf("[RateLimit] Check failed for %s, failing open: %v", key, err)
		return RateLimitResult{Allowed: true, Remaining: cfg.MaxRequests, ResetAt: now.Add(cfg.Window)}
	}

	if now.UnixMilli() > window.ResetAt {
		window = rateLimitWindow{ResetAt: now.Add(cfg.Window).UnixMilli()}
	}

	resetAt := time.UnixMilli(window.ResetAt)
	if window.Count >= cfg.MaxRequests {
		return RateLimitResult{Allowed: false, Remaining: 0, ResetAt: resetAt}
	}

	window.Count++
	data, _ := json.Marshal(window)
	ttl := cfg.Window + 10*time.Second
	if err := l.kv.Set(ctx, key, string(data), ttl); err != nil {
		log.Printf("[RateLimit] Failed to persist window %s, failing open: %v", key, err)
		return RateLimitResult{Allowed: true, Remaining: cfg.MaxRequests - window.Count, ResetAt: resetAt}
	}

	return RateLimitResult{
		Allowed:   true,
		Remaining: cfg.MaxRequests - window.Count,
		ResetAt:   resetAt,
	}
}
