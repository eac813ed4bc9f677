// Package domain holds the data records exchanged between the analysis
// pipeline, the risk gate and the trade simulator. Everything here is a
// plain value type: records are built fresh on each run and never mutated
// in place.
package domain

import (
	"time"
)

// PriceBar is a single daily OHLCV bar. Bars are immutable and ordered by
// date within a history slice.
type PriceBar struct {
	Date   time.Time `json:"date" db:"date"`
	Open   float64   `json:"open" db:"open"`
	High   float64   `json:"high" db:"high"`
	Low    float64   `json:"low" db:"low"`
	Close  float64   `json:"close" db:"close"`
	Volume int64     `json:"volume" db:"volume"`
}

// EarningsEvent is one historical quarterly report. EPS fields are pointers
// because either side can be missing from the provider; quarters without
// both values are skipped by the scorers, never treated as zero.
type EarningsEvent struct {
	Ticker       string    `json:"ticker"`
	ReportDate   time.Time `json:"report_date"`
	EstimatedEPS *float64  `json:"estimated_eps,omitempty"`
	ActualEPS    *float64  `json:"actual_eps,omitempty"`
}

// HasBothEPS reports whether the quarter carries both an estimate and an
// actual, with a non-zero estimate usable as a surprise denominator.
func (e EarningsEvent) HasBothEPS() bool {
	return e.EstimatedEPS != nil && e.ActualEPS != nil && *e.EstimatedEPS != 0
}

// PostEarningsWindow is the fixed 5-trading-day interval following one
// earnings report. It is only constructed when all window bars exist.
type PostEarningsWindow struct {
	Ticker         string    `json:"ticker"`
	ReportDate     time.Time `json:"report_date"`
	EntryClose     float64   `json:"entry_close"`
	MaxGainPct     float64   `json:"max_gain_pct"`     // highest high vs entry close
	MaxDrawdownPct float64   `json:"max_drawdown_pct"` // lowest low vs entry close
}

// TechnicalMetrics aggregates PostEarningsWindows for one ticker.
type TechnicalMetrics struct {
	WinRate     float64 `json:"win_rate"`     // fraction of windows above the win threshold
	AvgGain     float64 `json:"avg_gain"`     // mean max gain over all windows
	AvgDrawdown float64 `json:"avg_drawdown"` // mean max drawdown over all windows, <= 0
	SampleSize  int     `json:"sample_size"`
}

// Fundamentals is the raw consumed record for one ticker. Absent inputs stay
// nil/empty here; the scorer resolves them to neutral so that "missing" and
// "genuinely neutral" remain distinguishable upstream.
type Fundamentals struct {
	Ticker          string                `json:"ticker"`
	Earnings        []EarningsEvent       `json:"earnings,omitempty"`         // trailing quarters, most recent first
	RevenuePerShare []RevenuePoint        `json:"revenue_per_share,omitempty"` // most recent first
	Recommendations *RecommendationCounts `json:"recommendations,omitempty"`
}

// RevenuePoint is one quarter of revenue per share.
type RevenuePoint struct {
	Period time.Time `json:"period"`
	Value  float64   `json:"value"`
}

// RecommendationCounts holds the latest analyst recommendation breakdown.
type RecommendationCounts struct {
	StrongBuy  int `json:"strong_buy"`
	Buy        int `json:"buy"`
	Hold       int `json:"hold"`
	Sell       int `json:"sell"`
	StrongSell int `json:"strong_sell"`
}

// Total returns the number of analysts in the breakdown.
func (r RecommendationCounts) Total() int {
	return r.StrongBuy + r.Buy + r.Hold + r.Sell + r.StrongSell
}

// Fundamental input names used in FundamentalMetrics.Defaulted.
const (
	InputEPSHistory    = "eps_history"
	InputEPSSurprise   = "eps_surprise"
	InputRevenueTrend  = "revenue_trend"
	InputAnalystRating = "analyst_rating"
)

// FundamentalMetrics is the resolved fundamentals record for one ticker.
// Defaulted lists the inputs that were unavailable and fell back to their
// neutral midpoint.
type FundamentalMetrics struct {
	EPSBeatRate        float64  `json:"eps_beat_rate"`        // [0,1]
	EPSSurpriseAvg     float64  `json:"eps_surprise_avg"`     // mean surprise %, raw
	RevenueGrowthTrend float64  `json:"revenue_growth_trend"` // latest QoQ growth, raw
	AnalystRating      float64  `json:"analyst_rating"`       // [0,1]
	Defaulted          []string `json:"defaulted,omitempty"`
}

// WasDefaulted reports whether the named input fell back to neutral.
func (m FundamentalMetrics) WasDefaulted(input string) bool {
	for _, d := range m.Defaulted {
		if d == input {
			return true
		}
	}
	return false
}

// CompositeScore is the final per-ticker score record emitted by a scan.
type CompositeScore struct {
	Ticker           string             `json:"ticker"`
	PriceScore       float64            `json:"price_score"`
	FundamentalScore float64            `json:"fundamental_score"`
	FinalScore       float64            `json:"final_score"`
	Technical        TechnicalMetrics   `json:"technical"`
	Fundamental      FundamentalMetrics `json:"fundamental"`
}

// RiskDecision is the risk gate's verdict for a selected candidate.
type RiskDecision struct {
	Approved         bool    `json:"approved"`
	Reason           string  `json:"reason"`
	PositionFraction float64 `json:"position_fraction"` // fraction of account equity, [0,1]
	StopLossPct      float64 `json:"stop_loss_pct"`     // negative
	TakeProfitPct    float64 `json:"take_profit_pct"`   // positive
}

// TradeState tracks a trade through its lifecycle. A trade is created
// PENDING at selection, becomes OPEN once the risk gate approves, and ends
// in exactly one terminal exit; it never reopens.
type TradeState string

const (
	TradePending TradeState = "PENDING"
	TradeOpen    TradeState = "OPEN"
	TradeClosed  TradeState = "CLOSED"
)

// ExitReason is the terminal classification of a closed trade.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTimeExit   ExitReason = "TIME_EXIT"
)

// SimulatedTrade is one replayed (or live-closed) trade.
type SimulatedTrade struct {
	ID               string     `json:"id"`
	Ticker           string     `json:"ticker"`
	State            TradeState `json:"state"`
	EntryDate        time.Time  `json:"entry_date"`
	EntryPrice       float64    `json:"entry_price"`
	ExitDate         time.Time  `json:"exit_date"`
	ExitPrice        float64    `json:"exit_price"`
	ExitReason       ExitReason `json:"exit_reason"`
	PnL              float64    `json:"pnl"`     // dollar P&L at the sized position
	PnLPct           float64    `json:"pnl_pct"` // (exit - entry) / entry
	PositionFraction float64    `json:"position_fraction"`
	PositionSize     float64    `json:"position_size"` // dollars committed at entry
	StopLossPrice    float64    `json:"stop_loss_price"`
	TakeProfitPrice  float64    `json:"take_profit_price"`
}
