package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// unlimited stands in for rate.Inf, which reports odd token counts.
const unlimited = 1_000_000_000

// KeyedLimiter keeps one token bucket per key (an owner, in practice), so a
// busy owner cannot starve the others.
//
// Buckets are created lazily on first use and share the same rate and burst.
// Buckets idle for longer than the configured TTL are dropped by Prune.
//
// Thread safety:
// All methods are safe for concurrent use.
type KeyedLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	buckets  map[string]*bucket
	disabled bool
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a KeyedLimiter allowing requestsPerSecond per key with the
// given burst.
//
// Special cases:
//   - requestsPerSecond = 0: No rate limiting (Allow always succeeds)
//   - burst = 0: burst defaults to requestsPerSecond
//
// Example:
//
//	// 50 req/s per owner, bursts of 100
//	limiter := New(50, 100)
func New(requestsPerSecond, burst uint) *KeyedLimiter {
	k := &KeyedLimiter{buckets: make(map[string]*bucket)}
	if requestsPerSecond == 0 {
		k.disabled = true
		requestsPerSecond = unlimited
		burst = unlimited
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	k.limit = rate.Limit(requestsPerSecond)
	k.burst = int(burst)
	return k
}

// Enabled reports whether the limiter enforces a rate.
func (k *KeyedLimiter) Enabled() bool {
	return !k.disabled
}

func (k *KeyedLimiter) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	b, ok := k.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

// Allow reports whether one request for key may proceed now, consuming a
// token if so.
func (k *KeyedLimiter) Allow(key string) bool {
	if k.disabled {
		return true
	}
	return k.get(key).Allow()
}

// Wait blocks until key has a token or ctx is done.
func (k *KeyedLimiter) Wait(ctx context.Context, key string) error {
	if k.disabled {
		return ctx.Err()
	}
	return k.get(key).Wait(ctx)
}

// Tokens returns the tokens currently available to key. Unknown keys report
// a full bucket.
func (k *KeyedLimiter) Tokens(key string) float64 {
	k.mu.Lock()
	b, ok := k.buckets[key]
	k.mu.Unlock()
	if !ok {
		return float64(k.burst)
	}
	return b.limiter.Tokens()
}

// SetLimit changes the rate of every existing and future bucket.
func (k *KeyedLimiter) SetLimit(requestsPerSecond uint) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
	}
	k.limit = rate.Limit(requestsPerSecond)
	for _, b := range k.buckets {
		b.limiter.SetLimit(k.limit)
	}
}

// Prune drops buckets unused for longer than idle and returns how many were
// removed.
func (k *KeyedLimiter) Prune(idle time.Duration) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	removed := 0
	for key, b := range k.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(k.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

// RunPruner calls Prune every interval until ctx is done.
func (k *KeyedLimiter) RunPruner(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Prune(idle)
		}
	}
}
