package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/domain"
)

func f64(v float64) *float64 { return &v }

func quarter(actual, estimate float64) domain.EarningsEvent {
	return domain.EarningsEvent{ActualEPS: f64(actual), EstimatedEPS: f64(estimate)}
}

func TestFundamentalMetrics_EPSBeatRateAndSurprise(t *testing.T) {
	fs := NewFundamentalScorer(config.Default().Weights)

	f := domain.Fundamentals{
		Ticker: "ACME",
		Earnings: []domain.EarningsEvent{
			quarter(1.10, 1.00), // beat, +10%
			quarter(0.90, 1.00), // miss, -10%
			quarter(1.00, 1.00), // meeting estimate counts as a beat
			quarter(2.00, -1.00), // negative estimate: |estimate| denominator
		},
	}

	m := fs.Metrics(f)
	assert.InDelta(t, 0.75, m.EPSBeatRate, 1e-12)
	// Surprises: +0.10, -0.10, 0.0, (2-(-1))/1 = +3.0 => mean 0.75.
	assert.InDelta(t, 0.75, m.EPSSurpriseAvg, 1e-12)
	assert.False(t, m.WasDefaulted(domain.InputEPSHistory))
}

func TestFundamentalMetrics_SkipsQuartersWithoutBothEPS(t *testing.T) {
	fs := NewFundamentalScorer(config.Default().Weights)

	f := domain.Fundamentals{
		Earnings: []domain.EarningsEvent{
			quarter(1.20, 1.00),
			{ActualEPS: f64(1.0)},                     // no estimate
			{EstimatedEPS: f64(1.0)},                  // no actual
			{ActualEPS: f64(1.0), EstimatedEPS: f64(0)}, // zero estimate unusable
		},
	}

	m := fs.Metrics(f)
	assert.InDelta(t, 1.0, m.EPSBeatRate, 1e-12)
	assert.InDelta(t, 0.20, m.EPSSurpriseAvg, 1e-12)
}

func TestFundamentalMetrics_TrailingEightQuartersOnly(t *testing.T) {
	fs := NewFundamentalScorer(config.Default().Weights)

	// Eight beats followed by older misses; the misses must not count.
	var events []domain.EarningsEvent
	for i := 0; i < 8; i++ {
		events = append(events, quarter(1.10, 1.00))
	}
	for i := 0; i < 4; i++ {
		events = append(events, quarter(0.50, 1.00))
	}

	m := fs.Metrics(domain.Fundamentals{Earnings: events})
	assert.InDelta(t, 1.0, m.EPSBeatRate, 1e-12)
}

func TestFundamentalMetrics_MissingInputsDefaultNeutral(t *testing.T) {
	fs := NewFundamentalScorer(config.Default().Weights)

	m := fs.Metrics(domain.Fundamentals{Ticker: "GHOST"})
	assert.Equal(t, 0.5, m.EPSBeatRate)
	assert.Equal(t, 0.0, m.EPSSurpriseAvg)
	assert.Equal(t, 0.0, m.RevenueGrowthTrend)
	assert.Equal(t, 0.5, m.AnalystRating)

	for _, input := range []string{
		domain.InputEPSHistory, domain.InputEPSSurprise,
		domain.InputRevenueTrend, domain.InputAnalystRating,
	} {
		assert.True(t, m.WasDefaulted(input), "expected %s marked defaulted", input)
	}

	// Missing inputs still yield a usable neutral score, never an error.
	score := fs.Score(m)
	assert.InDelta(t, 0.5, score, 1e-12)
}

func TestFundamentalMetrics_RevenueGrowthLatestQoQ(t *testing.T) {
	fs := NewFundamentalScorer(config.Default().Weights)

	f := domain.Fundamentals{
		RevenuePerShare: []domain.RevenuePoint{
			{Period: day(2024, 9, 30), Value: 11.0},
			{Period: day(2024, 6, 30), Value: 10.0},
			{Period: day(2024, 3, 31), Value: 2.0}, // older quarters ignored
		},
	}

	m := fs.Metrics(f)
	assert.InDelta(t, 0.10, m.RevenueGrowthTrend, 1e-12)
	assert.False(t, m.WasDefaulted(domain.InputRevenueTrend))

	// A single point gives no trend.
	single := fs.Metrics(domain.Fundamentals{
		RevenuePerShare: []domain.RevenuePoint{{Value: 10.0}},
	})
	assert.True(t, single.WasDefaulted(domain.InputRevenueTrend))
}

func TestFundamentalMetrics_AnalystRatingWeighted(t *testing.T) {
	fs := NewFundamentalScorer(config.Default().Weights)

	f := domain.Fundamentals{
		Recommendations: &domain.RecommendationCounts{
			StrongBuy: 4, Buy: 2, Hold: 2, Sell: 1, StrongSell: 1,
		},
	}

	m := fs.Metrics(f)
	// (4*1.0 + 2*0.75 + 2*0.5 + 1*0.25 + 1*0.0) / 10 = 0.675
	assert.InDelta(t, 0.675, m.AnalystRating, 1e-12)

	empty := fs.Metrics(domain.Fundamentals{Recommendations: &domain.RecommendationCounts{}})
	assert.Equal(t, 0.5, empty.AnalystRating)
	assert.True(t, empty.WasDefaulted(domain.InputAnalystRating))
}

func TestFundamentalScore_ReferenceScenario(t *testing.T) {
	fs := NewFundamentalScorer(config.Default().Weights)

	m := domain.FundamentalMetrics{
		EPSBeatRate:        0.85,
		EPSSurpriseAvg:     0.146, // normalizes to 0.865
		AnalystRating:      0.90,
		RevenueGrowthTrend: 0.02, // normalizes to 0.55
	}

	require.InDelta(t, 0.865, NormalizeSurprise(m.EPSSurpriseAvg), 1e-9)

	got := fs.Score(m)
	want := 0.85*0.5 + 0.865*0.3 + 0.90*0.15 + 0.55*0.05
	assert.InDelta(t, want, got, 1e-9)
}
