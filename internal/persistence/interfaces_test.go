package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/earnscan/earnscan/internal/domain"
)

func TestNewAnalysisRecord(t *testing.T) {
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	score := domain.CompositeScore{
		Ticker:           "NVDA",
		PriceScore:       0.071,
		FundamentalScore: 0.847,
		FinalScore:       0.304,
		Technical: domain.TechnicalMetrics{
			WinRate: 0.745, AvgGain: 0.0956, AvgDrawdown: -0.032, SampleSize: 12,
		},
		Fundamental: domain.FundamentalMetrics{
			EPSBeatRate: 0.85, EPSSurpriseAvg: 0.073, RevenueGrowthTrend: 0.11, AnalystRating: 0.68,
		},
	}

	record := NewAnalysisRecord(score, day)

	assert.Equal(t, "NVDA", record.Ticker)
	assert.Equal(t, day, record.AnalysisDate)
	assert.Equal(t, score.FinalScore, record.FinalScore)
	assert.Equal(t, score.Technical.WinRate, record.WinRate)
	assert.Equal(t, score.Technical.SampleSize, record.SampleSize)
	assert.Equal(t, score.Fundamental.EPSBeatRate, record.EPSBeatRate)
	assert.Equal(t, score.Fundamental.RevenueGrowthTrend, record.RevenueGrowth)
}

func TestNewTradeRecord(t *testing.T) {
	trade := domain.SimulatedTrade{
		ID:               "4f6c5e2a-0000-0000-0000-000000000001",
		Ticker:           "NVDA",
		State:            domain.TradeClosed,
		EntryDate:        time.Date(2024, 5, 22, 0, 0, 0, 0, time.UTC),
		EntryPrice:       100.0,
		ExitDate:         time.Date(2024, 5, 24, 0, 0, 0, 0, time.UTC),
		ExitPrice:        110.0,
		ExitReason:       domain.ExitTakeProfit,
		PnL:              850.0,
		PnLPct:           0.10,
		PositionFraction: 0.85,
		PositionSize:     8_500.0,
		StopLossPrice:    92.0,
		TakeProfitPrice:  110.0,
	}

	record := NewTradeRecord(trade)

	assert.Equal(t, trade.ID, record.ID)
	assert.Equal(t, string(domain.ExitTakeProfit), record.ExitReason)
	assert.Equal(t, trade.PnL, record.PnL)
	assert.Equal(t, trade.PositionSize, record.PositionSize)
	assert.Equal(t, trade.StopLossPrice, record.StopLossPrice)
}
