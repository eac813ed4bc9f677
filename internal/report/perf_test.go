package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscan/earnscan/internal/domain"
)

func closed(ticker string, exitDay int, pnl, pnlPct float64) domain.SimulatedTrade {
	return domain.SimulatedTrade{
		Ticker:     ticker,
		State:      domain.TradeClosed,
		EntryDate:  time.Date(2024, 5, exitDay-3, 0, 0, 0, 0, time.UTC),
		ExitDate:   time.Date(2024, 5, exitDay, 0, 0, 0, 0, time.UTC),
		ExitReason: domain.ExitTimeExit,
		PnL:        pnl,
		PnLPct:     pnlPct,
	}
}

func TestSummarize_CoreStatistics(t *testing.T) {
	agg := NewAggregator(10_000)

	trades := []domain.SimulatedTrade{
		closed("ACME", 6, 500, 0.05),
		closed("ACME", 10, -200, -0.02),
		closed("BOLT", 14, 300, 0.03),
		closed("BOLT", 18, -100, -0.01),
	}

	s := agg.Summarize(trades)
	assert.Equal(t, 4, s.TotalTrades)
	assert.Equal(t, 2, s.WinningTrades)
	assert.Equal(t, 2, s.LosingTrades)
	assert.InDelta(t, 0.5, s.WinRate, 1e-12)
	assert.InDelta(t, 500.0, s.TotalPnL, 1e-9)
	assert.InDelta(t, 800.0/300.0, s.ProfitFactor, 1e-9)
	assert.True(t, s.ProfitFactorDefined)

	require.NotNil(t, s.BestTrade)
	require.NotNil(t, s.WorstTrade)
	assert.InDelta(t, 0.05, s.BestTrade.PnLPct, 1e-12)
	assert.InDelta(t, -0.02, s.WorstTrade.PnLPct, 1e-12)

	acme := s.ByTicker["ACME"]
	assert.Equal(t, 2, acme.Trades)
	assert.InDelta(t, 0.5, acme.WinRate, 1e-12)
	assert.InDelta(t, 150.0, acme.MeanPnL, 1e-9)
}

func TestSummarize_NoLossesProfitFactorExplicit(t *testing.T) {
	agg := NewAggregator(10_000)
	s := agg.Summarize([]domain.SimulatedTrade{closed("ACME", 6, 500, 0.05)})

	assert.False(t, s.ProfitFactorDefined)
	assert.Zero(t, s.ProfitFactor)
}

func TestSummarize_NoLossesEncodesAsJSON(t *testing.T) {
	agg := NewAggregator(10_000)
	s := agg.Summarize([]domain.SimulatedTrade{closed("ACME", 6, 500, 0.05)})

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"profit_factor":0`)
	assert.Contains(t, string(out), `"profit_factor_defined":false`)
}

func TestSummarize_Empty(t *testing.T) {
	agg := NewAggregator(10_000)
	s := agg.Summarize(nil)
	assert.Zero(t, s.TotalTrades)
	assert.Nil(t, s.BestTrade)
	assert.Zero(t, s.MaxDrawdown)
}

func TestSummarize_DoesNotMutateInput(t *testing.T) {
	agg := NewAggregator(10_000)
	trades := []domain.SimulatedTrade{
		closed("ZZZ", 20, -100, -0.01),
		closed("AAA", 6, 500, 0.05),
	}
	first, second := trades[0], trades[1]

	agg.Summarize(trades)
	assert.Equal(t, first, trades[0], "input order must be preserved")
	assert.Equal(t, second, trades[1])
}

func TestEquityCurve_ChronologicalAndOrderIndependent(t *testing.T) {
	agg := NewAggregator(10_000)

	trades := []domain.SimulatedTrade{
		closed("LATE", 20, 400, 0.04),
		closed("EARLY", 6, -1_000, -0.10),
		closed("MID", 12, 200, 0.02),
	}

	curve := agg.EquityCurve(trades)
	require.Len(t, curve, 3)
	assert.InDelta(t, 9_000.0, curve[0].Equity, 1e-9)
	assert.InDelta(t, 9_200.0, curve[1].Equity, 1e-9)
	assert.InDelta(t, 9_600.0, curve[2].Equity, 1e-9)

	// Shuffling input leaves the merged curve identical.
	shuffled := []domain.SimulatedTrade{trades[2], trades[0], trades[1]}
	assert.Equal(t, curve, agg.EquityCurve(shuffled))
}

func TestSummarize_MaxDrawdownOfEquityCurve(t *testing.T) {
	agg := NewAggregator(10_000)

	// 10000 -> 11000 -> 9900 -> 10400: worst decline 1100 from the 11000
	// peak.
	trades := []domain.SimulatedTrade{
		closed("A", 6, 1_000, 0.10),
		closed("B", 10, -1_100, -0.11),
		closed("C", 14, 500, 0.05),
	}

	s := agg.Summarize(trades)
	assert.InDelta(t, 1_100.0/11_000.0, s.MaxDrawdown, 1e-9)
}

func TestWriteCSV_FlatRows(t *testing.T) {
	rows := []Row{
		{
			Ticker:     "ACME",
			EntryDate:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			ExitDate:   time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
			ExitReason: domain.ExitTakeProfit,
			PnL:        850,
			PnLPct:     0.1,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	assert.Contains(t, lines[1], "ACME,2024-05-01,2024-05-06,TAKE_PROFIT,850,0.1")
}
