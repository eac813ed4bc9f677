// Package report rolls completed trades up into summary statistics and
// exportable report rows.
package report

import (
	"sort"
	"time"

	"github.com/earnscan/earnscan/internal/domain"
)

// Summary is the aggregate view over a sequence of closed trades.
type Summary struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"` // [0,1]

	TotalPnL     float64 `json:"total_pnl"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"` // absolute value
	ProfitFactor float64 `json:"profit_factor"`
	// ProfitFactorDefined is false when there are no losing trades; the
	// factor is then reported as 0 and meaningless for comparison.
	ProfitFactorDefined bool `json:"profit_factor_defined"`

	MaxDrawdown float64 `json:"max_drawdown"` // of the equity curve, [0,1]

	BestTrade  *domain.SimulatedTrade `json:"best_trade,omitempty"`  // by pnl_pct
	WorstTrade *domain.SimulatedTrade `json:"worst_trade,omitempty"` // by pnl_pct

	ByTicker map[string]TickerStats `json:"by_ticker"`
}

// TickerStats is the per-ticker breakdown.
type TickerStats struct {
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
	MeanPnL float64 `json:"mean_pnl"`
}

// EquityPoint is one step of the cumulative equity curve.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// Aggregator computes summary statistics over closed trades. It never
// mutates its inputs.
type Aggregator struct {
	initialEquity float64
}

// NewAggregator creates an aggregator anchored at the given starting
// equity for the drawdown calculation.
func NewAggregator(initialEquity float64) *Aggregator {
	return &Aggregator{initialEquity: initialEquity}
}

// Summarize aggregates the trades. The equity curve merges trades in exit
// date order regardless of input order, so the drawdown is deterministic
// even when simulations completed concurrently.
func (a *Aggregator) Summarize(trades []domain.SimulatedTrade) Summary {
	s := Summary{
		TotalTrades: len(trades),
		ByTicker:    make(map[string]TickerStats),
	}
	if len(trades) == 0 {
		return s
	}

	perTicker := make(map[string]*struct {
		trades int
		wins   int
		pnlSum float64
	})

	var bestIdx, worstIdx int
	for i, t := range trades {
		s.TotalPnL += t.PnL
		if t.PnL > 0 {
			s.WinningTrades++
			s.GrossProfit += t.PnL
		} else {
			s.LosingTrades++
			s.GrossLoss += -t.PnL
		}

		if t.PnLPct > trades[bestIdx].PnLPct {
			bestIdx = i
		}
		if t.PnLPct < trades[worstIdx].PnLPct {
			worstIdx = i
		}

		agg := perTicker[t.Ticker]
		if agg == nil {
			agg = &struct {
				trades int
				wins   int
				pnlSum float64
			}{}
			perTicker[t.Ticker] = agg
		}
		agg.trades++
		if t.PnL > 0 {
			agg.wins++
		}
		agg.pnlSum += t.PnL
	}

	s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)

	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
		s.ProfitFactorDefined = true
	} else {
		s.ProfitFactor = 0
		s.ProfitFactorDefined = false
	}

	best, worst := trades[bestIdx], trades[worstIdx]
	s.BestTrade, s.WorstTrade = &best, &worst

	for ticker, agg := range perTicker {
		s.ByTicker[ticker] = TickerStats{
			Trades:  agg.trades,
			Wins:    agg.wins,
			WinRate: float64(agg.wins) / float64(agg.trades),
			MeanPnL: agg.pnlSum / float64(agg.trades),
		}
	}

	s.MaxDrawdown = maxDrawdown(a.initialEquity, a.EquityCurve(trades))
	return s
}

// EquityCurve builds the cumulative equity curve from the initial equity,
// one point per trade in chronological exit order.
func (a *Aggregator) EquityCurve(trades []domain.SimulatedTrade) []EquityPoint {
	ordered := make([]domain.SimulatedTrade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].ExitDate.Equal(ordered[j].ExitDate) {
			return ordered[i].ExitDate.Before(ordered[j].ExitDate)
		}
		return ordered[i].Ticker < ordered[j].Ticker
	})

	curve := make([]EquityPoint, 0, len(ordered))
	equity := a.initialEquity
	for _, t := range ordered {
		equity += t.PnL
		curve = append(curve, EquityPoint{Date: t.ExitDate, Equity: equity})
	}
	return curve
}

// maxDrawdown is the largest peak-to-trough decline of the curve as a
// fraction of the peak, with the starting equity as the first peak.
func maxDrawdown(initial float64, curve []EquityPoint) float64 {
	peak := initial
	var maxDD float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
