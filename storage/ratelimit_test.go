package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

// failingKV errors on every operation, for exercising the fail-open path.
type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, error) {
	return "", errors.New("kv unavailable")
}
func (failingKV) Set(context.Context, string, string, time.Duration) error {
	return errors.New("kv unavailable")
}
func (failingKV) Delete(context.Context, ...string) error  { return errors.New("kv unavailable") }
func (failingKV) Keys(context.Context, string) ([]string, error) {
	return nil, errors.New("kv unavailable")
}

var testLimit = RateLimitConfig{
	Window:      time.Minute,
	MaxRequests: 3,
	Scope:       "test",
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	limiter := NewRateLimiter(NewMemoryKV())
	ctx := context.Background()

	for i := 0; i < testLimit.MaxRequests; i++ {
		result := limiter.Allow(ctx, testLimit, "1.2.3.4")
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
		if result.Remaining != testLimit.MaxRequests-i-1 {
			t.Errorf("request %d: remaining = %d", i+1, result.Remaining)
		}
	}

	result := limiter.Allow(ctx, testLimit, "1.2.3.4")
	if result.Allowed {
		t.Error("request beyond the budget should be denied")
	}
	if result.Remaining != 0 {
		t.Errorf("denied request should report 0 remaining, got %d", result.Remaining)
	}
}

func TestRateLimiterIsolatesClientsAndScopes(t *testing.T) {
	limiter := NewRateLimiter(NewMemoryKV())
	ctx := context.Background()

	for i := 0; i < testLimit.MaxRequests; i++ {
		limiter.Allow(ctx, testLimit, "1.2.3.4")
	}

	if !limiter.Allow(ctx, testLimit, "5.6.7.8").Allowed {
		t.Error("a different client must have its own window")
	}

	other := testLimit
	other.Scope = "other"
	if !limiter.Allow(ctx, other, "1.2.3.4").Allowed {
		t.Error("a different scope must have its own window")
	}
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	kv := NewMemoryKV()
	limiter := NewRateLimiter(kv)
	current := time.Now()
	limiter.now = func() time.Time { return current }
	kv.now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < testLimit.MaxRequests; i++ {
		limiter.Allow(ctx, testLimit, "1.2.3.4")
	}
	if limiter.Allow(ctx, testLimit, "1.2.3.4").Allowed {
		t.Fatal("budget should be exhausted")
	}

	current = current.Add(testLimit.Window + time.Second)
	result := limiter.Allow(ctx, testLimit, "1.2.3.4")
	if !result.Allowed {
		t.Error("window expiry should reset the budget")
	}
	if result.Remaining != testLimit.MaxRequests-1 {
		t.Errorf("fresh window remaining = %d", result.Remaining)
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	limiter := NewRateLimiter(failingKV{})
	result := limiter.Allow(context.Background(), testLimit, "1.2.3.4")
	if !result.Allowed {
		t.Error("a broken KV store must not block requests")
	}
}
