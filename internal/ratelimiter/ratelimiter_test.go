package ratelimiter

import (
	"context"
	"testing"
	"time"
)

// TestNew verifies limiter creation with different parameters.
func TestNew(t *testing.T) {
	tests := []struct {
		name              string
		requestsPerSecond uint
		burst             uint
		enabled           bool
	}{
		{name: "standard rate", requestsPerSecond: 100, burst: 200, enabled: true},
		{name: "default burst", requestsPerSecond: 5, burst: 0, enabled: true},
		{name: "unlimited (zero rate)", requestsPerSecond: 0, burst: 0, enabled: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.requestsPerSecond, tt.burst)
			if limiter == nil {
				t.Fatal("New() returned nil")
			}
			if limiter.Enabled() != tt.enabled {
				t.Fatalf("Enabled() = %v, want %v", limiter.Enabled(), tt.enabled)
			}
			if limiter.burst <= 0 {
				t.Fatalf("burst should be positive, got %d", limiter.burst)
			}
		})
	}
}

// TestAllowPerKey verifies that each key has its own bucket.
func TestAllowPerKey(t *testing.T) {
	limiter := New(10, 10)

	for i := 0; i < 10; i++ {
		if !limiter.Allow("alice") {
			t.Fatalf("request %d should be allowed (within burst)", i)
		}
	}
	if limiter.Allow("alice") {
		t.Fatal("alice should be rate-limited after burst exhausted")
	}

	// bob is unaffected by alice's usage
	if !limiter.Allow("bob") {
		t.Fatal("bob should have a full bucket")
	}

	// Wait for token replenishment (100ms for 10 req/s = 1 token)
	time.Sleep(110 * time.Millisecond)
	if !limiter.Allow("alice") {
		t.Fatal("alice should be allowed after token replenishment")
	}
}

// TestWaitContextCancellation verifies that Wait() respects context cancellation.
func TestWaitContextCancellation(t *testing.T) {
	limiter := New(1, 1)

	if !limiter.Allow("alice") {
		t.Fatal("first request should be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "alice"); err == nil {
		t.Fatal("Wait() should return error when context is cancelled")
	}
}

// TestTokens verifies that Tokens() reflects consumption per key.
func TestTokens(t *testing.T) {
	limiter := New(10, 10)

	if tokens := limiter.Tokens("unknown"); tokens != 10 {
		t.Fatalf("unknown key should report full bucket, got %f", tokens)
	}

	for i := 0; i < 5; i++ {
		limiter.Allow("alice")
	}

	remaining := limiter.Tokens("alice")
	if remaining < 4 || remaining > 6 {
		t.Fatalf("remaining tokens %f outside expected range 4-6", remaining)
	}
}

// TestSetLimit verifies that existing buckets pick up the new rate.
func TestSetLimit(t *testing.T) {
	limiter := New(10, 10)

	for i := 0; i < 10; i++ {
		limiter.Allow("alice")
	}
	if limiter.Allow("alice") {
		t.Fatal("bucket should be empty after exhausting burst")
	}

	limiter.SetLimit(1000)
	time.Sleep(50 * time.Millisecond)

	if !limiter.Allow("alice") {
		t.Fatal("request should be allowed at the higher rate")
	}
}

// TestPrune verifies that idle buckets are dropped.
func TestPrune(t *testing.T) {
	limiter := New(10, 10)
	limiter.Allow("alice")
	limiter.Allow("bob")

	if n := limiter.Prune(time.Hour); n != 0 {
		t.Fatalf("no bucket should be idle for an hour, pruned %d", n)
	}

	time.Sleep(20 * time.Millisecond)
	limiter.Allow("bob")

	if n := limiter.Prune(10 * time.Millisecond); n != 1 {
		t.Fatalf("expected 1 pruned bucket, got %d", n)
	}
	if limiter.Len() != 1 {
		t.Fatalf("expected 1 remaining bucket, got %d", limiter.Len())
	}
}

// TestUnlimitedRate verifies that zero rate never rejects.
func TestUnlimitedRate(t *testing.T) {
	limiter := New(0, 0)

	for i := 0; i < 1000; i++ {
		if !limiter.Allow("alice") {
			t.Fatalf("unlimited limiter should allow request %d", i)
		}
	}
	if limiter.Len() != 0 {
		t.Fatalf("unlimited limiter should not track keys, got %d", limiter.Len())
	}
}

// BenchmarkAllowParallel measures concurrent Allow() performance across keys.
func BenchmarkAllowParallel(b *testing.B) {
	limiter := New(1_000_000, 1_000_000)
	keys := []string{"alice", "bob", "carol", "dave"}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			limiter.Allow(keys[i%len(keys)])
			i++
		}
	})
}
