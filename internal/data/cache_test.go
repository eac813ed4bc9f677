package data

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscan/earnscan/internal/domain"
	"github.com/earnscan/earnscan/internal/metrics"
)

type stubFundamentals struct {
	record domain.Fundamentals
	err    error
	calls  int
}

func (s *stubFundamentals) Fundamentals(_ context.Context, _ string) (domain.Fundamentals, error) {
	s.calls++
	return s.record, s.err
}

func sampleFundamentals() domain.Fundamentals {
	est, act := 1.10, 1.25
	return domain.Fundamentals{
		Ticker: "NVDA",
		Earnings: []domain.EarningsEvent{
			{Ticker: "NVDA", ReportDate: time.Date(2024, 5, 22, 0, 0, 0, 0, time.UTC), EstimatedEPS: &est, ActualEPS: &act},
		},
		RevenuePerShare: []domain.RevenuePoint{
			{Period: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), Value: 10.5},
			{Period: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Value: 9.8},
		},
	}
}

func TestFundamentalsCacheMissFetchesAndStores(t *testing.T) {
	client, mock := redismock.NewClientMock()
	upstream := &stubFundamentals{record: sampleFundamentals()}
	cache := NewFundamentalsCache(upstream, client, time.Hour, nil)

	encoded, err := json.Marshal(upstream.record)
	require.NoError(t, err)

	mock.ExpectGet("earnscan:fundamentals:NVDA").RedisNil()
	mock.ExpectSet("earnscan:fundamentals:NVDA", encoded, time.Hour).SetVal("OK")

	got, err := cache.Fundamentals(context.Background(), "nvda")
	require.NoError(t, err)
	assert.Equal(t, upstream.record, got)
	assert.Equal(t, 1, upstream.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFundamentalsCacheHitSkipsUpstream(t *testing.T) {
	client, mock := redismock.NewClientMock()
	record := sampleFundamentals()
	upstream := &stubFundamentals{record: record}
	cache := NewFundamentalsCache(upstream, client, time.Hour, nil)

	encoded, err := json.Marshal(record)
	require.NoError(t, err)
	mock.ExpectGet("earnscan:fundamentals:NVDA").SetVal(string(encoded))

	got, err := cache.Fundamentals(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, record.Ticker, got.Ticker)
	require.Len(t, got.Earnings, 1)
	assert.Equal(t, 0, upstream.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFundamentalsCacheReadErrorFallsThrough(t *testing.T) {
	client, mock := redismock.NewClientMock()
	upstream := &stubFundamentals{record: sampleFundamentals()}
	cache := NewFundamentalsCache(upstream, client, time.Hour, nil)

	encoded, err := json.Marshal(upstream.record)
	require.NoError(t, err)

	mock.ExpectGet("earnscan:fundamentals:NVDA").SetErr(errors.New("connection refused"))
	mock.ExpectSet("earnscan:fundamentals:NVDA", encoded, time.Hour).SetVal("OK")

	got, err := cache.Fundamentals(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, upstream.record, got)
	assert.Equal(t, 1, upstream.calls)
}

func TestFundamentalsCacheCountsHitsAndMisses(t *testing.T) {
	client, mock := redismock.NewClientMock()
	record := sampleFundamentals()
	upstream := &stubFundamentals{record: record}
	registry := metrics.NewRegistry()
	cache := NewFundamentalsCache(upstream, client, time.Hour, registry)

	encoded, err := json.Marshal(record)
	require.NoError(t, err)

	mock.ExpectGet("earnscan:fundamentals:NVDA").RedisNil()
	mock.ExpectSet("earnscan:fundamentals:NVDA", encoded, time.Hour).SetVal("OK")
	_, err = cache.Fundamentals(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, testutil.ToFloat64(registry.CacheHits), 1e-12)
	assert.InDelta(t, 1.0, testutil.ToFloat64(registry.CacheMisses), 1e-12)

	mock.ExpectGet("earnscan:fundamentals:NVDA").SetVal(string(encoded))
	_, err = cache.Fundamentals(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, testutil.ToFloat64(registry.CacheHits), 1e-12)
	assert.InDelta(t, 1.0, testutil.ToFloat64(registry.CacheMisses), 1e-12)
}

func TestFundamentalsCacheUpstreamErrorPropagates(t *testing.T) {
	client, mock := redismock.NewClientMock()
	upstream := &stubFundamentals{err: errors.New("provider down")}
	cache := NewFundamentalsCache(upstream, client, time.Hour, nil)

	mock.ExpectGet("earnscan:fundamentals:NVDA").RedisNil()

	_, err := cache.Fundamentals(context.Background(), "NVDA")
	assert.Error(t, err)
}
