package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound market data requests per provider using a
// token bucket. A provider without a registered budget is never throttled.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
}

func NewLimiter() *Limiter {
	return &Limiter{buckets: make(map[string]*rate.Limiter)}
}

// SetBudget registers or replaces the request budget for a provider.
func (l *Limiter) SetBudget(provider string, rps float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[provider] = rate.NewLimiter(rate.Limit(rps), burst)
}

func (l *Limiter) bucket(provider string) *rate.Limiter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buckets[provider]
}

// Wait blocks until the provider's bucket grants a token or the context
// is cancelled.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	bucket := l.bucket(provider)
	if bucket == nil {
		return ctx.Err()
	}
	return bucket.Wait(ctx)
}

// Allow reports whether a request may proceed immediately.
func (l *Limiter) Allow(provider string) bool {
	bucket := l.bucket(provider)
	if bucket == nil {
		return true
	}
	return bucket.Allow()
}

// Stats snapshots every registered bucket, mainly for the health endpoint.
func (l *Limiter) Stats() map[string]BucketStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]BucketStats, len(l.buckets))
	now := time.Now()
	for provider, bucket := range l.buckets {
		reservation := bucket.Reserve()
		delay := reservation.Delay()
		reservation.Cancel()

		stats[provider] = BucketStats{
			Provider:        provider,
			RPS:             float64(bucket.Limit()),
			Burst:           bucket.Burst(),
			TokensAvailable: bucket.Tokens(),
			NextAllowedAt:   now.Add(delay),
		}
	}
	return stats
}

// BucketStats describes the current state of one provider's bucket.
type BucketStats struct {
	Provider        string    `json:"provider"`
	RPS             float64   `json:"rps"`
	Burst           int       `json:"burst"`
	TokensAvailable float64   `json:"tokens_available"`
	NextAllowedAt   time.Time `json:"next_allowed_at"`
}
