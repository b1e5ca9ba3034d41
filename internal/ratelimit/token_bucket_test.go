package ratelimit

import (
	"context"
	"testing"
	"time"
)

func newTestBucket(t *testing.T, ratePerSecond float64, burst int) *TokenBucket {
	t.Helper()
	tb, err := NewTokenBucket(ratePerSecond, burst, nil)
	if err != nil {
		t.Fatalf("failed to create token bucket: %v", err)
	}
	return tb
}

func TestAllowUpToBurst(t *testing.T) {
	tb := newTestBucket(t, 1, 3)
	now := time.Now()
	tb.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		result, err := tb.Allow(ctx, "session:1", "", "/v1/orgs")
		if err != nil {
			t.Fatalf("failed to check limit: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("expected request %d allowed", i)
		}
	}

	result, err := tb.Allow(ctx, "session:1", "", "/v1/orgs")
	if err != nil {
		t.Fatalf("failed to check limit: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected request over burst denied")
	}
	if result.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", result.RetryAfter)
	}
}

func TestKeysAreIsolated(t *testing.T) {
	tb := newTestBucket(t, 1, 1)
	now := time.Now()
	tb.now = func() time.Time { return now }

	ctx := context.Background()
	if result, _ := tb.Allow(ctx, "session:1", "", "/v1/orgs"); !result.Allowed {
		t.Fatal("expected first key allowed")
	}
	if result, _ := tb.Allow(ctx, "session:1", "", "/v1/orgs"); result.Allowed {
		t.Fatal("expected first key exhausted")
	}
	if result, _ := tb.Allow(ctx, "session:2", "", "/v1/orgs"); !result.Allowed {
		t.Fatal("expected second key unaffected")
	}
}

func TestRefillOverTime(t *testing.T) {
	tb := newTestBucket(t, 10, 1)
	now := time.Now()
	tb.now = func() time.Time { return now }

	ctx := context.Background()
	if result, _ := tb.Allow(ctx, "session:1", "", "/v1/orgs"); !result.Allowed {
		t.Fatal("expected first request allowed")
	}
	if result, _ := tb.Allow(ctx, "session:1", "", "/v1/orgs"); result.Allowed {
		t.Fatal("expected bucket empty")
	}

	now = now.Add(200 * time.Millisecond)
	if result, _ := tb.Allow(ctx, "session:1", "", "/v1/orgs"); !result.Allowed {
		t.Fatal("expected bucket refilled")
	}
}

func TestIdleBucketsEvicted(t *testing.T) {
	tb := newTestBucket(t, 1, 1)
	now := time.Now()
	tb.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := tb.Allow(ctx, "session:old", "", "/v1/orgs"); err != nil {
		t.Fatalf("failed to check limit: %v", err)
	}

	now = now.Add(bucketIdleTTL + time.Minute)
	if _, err := tb.Allow(ctx, "session:new", "", "/v1/orgs"); err != nil {
		t.Fatalf("failed to check limit: %v", err)
	}

	tb.mu.Lock()
	_, stale := tb.buckets["session:old"]
	tb.mu.Unlock()
	if stale {
		t.Fatal("expected idle bucket evicted")
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := NewTokenBucket(0, 1, nil); err == nil {
		t.Fatal("expected error for zero rate")
	}
	if _, err := NewTokenBucket(1, 0, nil); err == nil {
		t.Fatal("expected error for zero burst")
	}
	tb := newTestBucket(t, 1, 1)
	if _, err := tb.Allow(context.Background(), "", "", "/v1/orgs"); err == nil {
		t.Fatal("expected error for empty key")
	}
}
