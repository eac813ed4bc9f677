package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/earnscan/earnscan/internal/domain"
	"github.com/earnscan/earnscan/internal/metrics"
)

const fundamentalsKeyPrefix = "earnscan:fundamentals:"

// FundamentalsCache is a read-through redis cache in front of a
// FundamentalsProvider. Cache failures degrade to the upstream provider
// rather than failing the lookup.
type FundamentalsCache struct {
	upstream FundamentalsProvider
	client   redis.UniversalClient
	ttl      time.Duration
	registry *metrics.Registry // optional
}

func NewFundamentalsCache(upstream FundamentalsProvider, client redis.UniversalClient, ttl time.Duration, registry *metrics.Registry) *FundamentalsCache {
	return &FundamentalsCache{upstream: upstream, client: client, ttl: ttl, registry: registry}
}

// Fundamentals returns the cached record when present, otherwise fetches
// from the upstream provider and stores the result.
func (c *FundamentalsCache) Fundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	key := fundamentalsKey(ticker)

	payload, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var f domain.Fundamentals
		if jsonErr := json.Unmarshal([]byte(payload), &f); jsonErr == nil {
			c.countHit()
			return f, nil
		}
		log.Warn().Str("ticker", ticker).Msg("discarding undecodable cached fundamentals")
	} else if err != redis.Nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("fundamentals cache read failed")
	}
	c.countMiss()

	f, err := c.upstream.Fundamentals(ctx, ticker)
	if err != nil {
		return domain.Fundamentals{}, err
	}

	encoded, err := json.Marshal(f)
	if err != nil {
		return f, nil
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("fundamentals cache write failed")
	}
	return f, nil
}

func (c *FundamentalsCache) countHit() {
	if c.registry != nil {
		c.registry.CacheHits.Inc()
	}
}

func (c *FundamentalsCache) countMiss() {
	if c.registry != nil {
		c.registry.CacheMisses.Inc()
	}
}

func fundamentalsKey(ticker string) string {
	return fmt.Sprintf("%s%s", fundamentalsKeyPrefix, strings.ToUpper(ticker))
}

var _ FundamentalsProvider = (*FundamentalsCache)(nil)

type cachedProvider struct {
	Provider
	cache *FundamentalsCache
}

func (p *cachedProvider) Fundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	return p.cache.Fundamentals(ctx, ticker)
}

// WithFundamentalsCache routes a provider's fundamentals lookups through
// the redis cache, leaving the other endpoints untouched.
func WithFundamentalsCache(upstream Provider, client redis.UniversalClient, ttl time.Duration, registry *metrics.Registry) Provider {
	return &cachedProvider{
		Provider: upstream,
		cache:    NewFundamentalsCache(upstream, client, ttl, registry),
	}
}
