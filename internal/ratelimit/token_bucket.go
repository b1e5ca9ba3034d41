// Package ratelimit provides per-key token bucket rate limiting for the
// HTTP surface. Buckets live in process memory; a multi-instance
// deployment rate limits per instance.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	obsmetrics "github.com/smallbiznis/warung/internal/observability/metrics"
	"golang.org/x/time/rate"
)

const bucketIdleTTL = 10 * time.Minute

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenBucket keeps one limiter per key (session or client address) and
// evicts buckets that have been idle longer than bucketIdleTTL.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
	metrics *obsmetrics.Metrics
	now     func() time.Time
}

func NewTokenBucket(ratePerSecond float64, burst int, metrics *obsmetrics.Metrics) (*TokenBucket, error) {
	if ratePerSecond <= 0 {
		return nil, errors.New("rate limiter rate must be positive")
	}
	if burst <= 0 {
		return nil, errors.New("rate limiter burst must be positive")
	}
	return &TokenBucket{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(ratePerSecond),
		burst:   burst,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

func (t *TokenBucket) Allow(ctx context.Context, key, orgID, endpoint string) (*RateLimitResult, error) {
	if key == "" {
		return &RateLimitResult{Allowed: false}, errors.New("rate limiter key is empty")
	}

	t.mu.Lock()
	now := t.now()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.buckets[key] = b
		t.evictIdleLocked(now)
	}
	b.lastSeen = now
	t.mu.Unlock()

	reservation := b.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		t.metrics.RecordRateLimitDenied(ctx, orgID, endpoint, "token_bucket_empty")
		return &RateLimitResult{
			Allowed:    false,
			Limit:      t.burst,
			Remaining:  0,
			RetryAfter: delay,
		}, nil
	}

	t.metrics.RecordRateLimitAllowed(ctx, orgID, endpoint)
	return &RateLimitResult{
		Allowed:   true,
		Limit:     t.burst,
		Remaining: int(b.limiter.TokensAt(now)),
	}, nil
}

func (t *TokenBucket) evictIdleLocked(now time.Time) {
	for key, b := range t.buckets {
		if now.Sub(b.lastSeen) > bucketIdleTTL {
			delete(t.buckets, key)
		}
	}
}
