package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiterBurstThenBlock(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetBudget("finnhub", 2.0, 2)

	if !limiter.Allow("finnhub") {
		t.Error("first request should be allowed")
	}
	if !limiter.Allow("finnhub") {
		t.Error("second request should be allowed")
	}
	if limiter.Allow("finnhub") {
		t.Error("third request should be blocked after burst is spent")
	}
}

func TestLimiterIndependentProviders(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetBudget("finnhub", 1.0, 1)
	limiter.SetBudget("polygon", 1.0, 1)

	if !limiter.Allow("finnhub") {
		t.Error("first finnhub request should be allowed")
	}
	if !limiter.Allow("polygon") {
		t.Error("first polygon request should be allowed")
	}
	if limiter.Allow("finnhub") {
		t.Error("second finnhub request should be blocked")
	}
}

func TestLimiterUnregisteredProviderPasses(t *testing.T) {
	limiter := NewLimiter()

	if !limiter.Allow("unknown") {
		t.Error("unregistered provider should never be throttled")
	}
	if err := limiter.Wait(context.Background(), "unknown"); err != nil {
		t.Errorf("Wait on unregistered provider should not error: %v", err)
	}
}

func TestLimiterWaitHonorsCancellation(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetBudget("finnhub", 0.1, 1)

	// Drain the single token.
	if err := limiter.Wait(context.Background(), "finnhub"); err != nil {
		t.Fatalf("first Wait should pass immediately: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "finnhub"); err == nil {
		t.Error("Wait should fail when the context expires before the next token")
	}
}

func TestLimiterStats(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetBudget("finnhub", 5.0, 3)

	stats := limiter.Stats()
	s, ok := stats["finnhub"]
	if !ok {
		t.Fatal("expected stats entry for finnhub")
	}
	if s.RPS != 5.0 {
		t.Errorf("RPS = %v, want 5.0", s.RPS)
	}
	if s.Burst != 3 {
		t.Errorf("Burst = %d, want 3", s.Burst)
	}
}
