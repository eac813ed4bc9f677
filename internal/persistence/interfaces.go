// Package persistence defines the storage contracts for scan results and
// simulated trades.
package persistence

import (
	"context"
	"time"

	"github.com/earnscan/earnscan/internal/domain"
)

// TimeRange bounds a history query, inclusive on both ends.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// AnalysisRecord is one persisted composite score.
type AnalysisRecord struct {
	ID               int64     `json:"id" db:"id"`
	Ticker           string    `json:"ticker" db:"ticker"`
	AnalysisDate     time.Time `json:"analysis_date" db:"analysis_date"`
	PriceScore       float64   `json:"price_score" db:"price_score"`
	FundamentalScore float64   `json:"fundamental_score" db:"fundamental_score"`
	FinalScore       float64   `json:"final_score" db:"final_score"`
	WinRate          float64   `json:"win_rate" db:"win_rate"`
	AvgGain          float64   `json:"avg_gain" db:"avg_gain"`
	AvgDrawdown      float64   `json:"avg_drawdown" db:"avg_drawdown"`
	SampleSize       int       `json:"sample_size" db:"sample_size"`
	EPSBeatRate      float64   `json:"eps_beat_rate" db:"eps_beat_rate"`
	EPSSurpriseAvg   float64   `json:"eps_surprise_avg" db:"eps_surprise_avg"`
	RevenueGrowth    float64   `json:"revenue_growth" db:"revenue_growth"`
	AnalystRating    float64   `json:"analyst_rating" db:"analyst_rating"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// NewAnalysisRecord flattens a composite score for storage.
func NewAnalysisRecord(s domain.CompositeScore, analysisDate time.Time) AnalysisRecord {
	return AnalysisRecord{
		Ticker:           s.Ticker,
		AnalysisDate:     analysisDate,
		PriceScore:       s.PriceScore,
		FundamentalScore: s.FundamentalScore,
		FinalScore:       s.FinalScore,
		WinRate:          s.Technical.WinRate,
		AvgGain:          s.Technical.AvgGain,
		AvgDrawdown:      s.Technical.AvgDrawdown,
		SampleSize:       s.Technical.SampleSize,
		EPSBeatRate:      s.Fundamental.EPSBeatRate,
		EPSSurpriseAvg:   s.Fundamental.EPSSurpriseAvg,
		RevenueGrowth:    s.Fundamental.RevenueGrowthTrend,
		AnalystRating:    s.Fundamental.AnalystRating,
	}
}

// TradeRecord is one persisted simulated trade.
type TradeRecord struct {
	ID               string    `json:"id" db:"id"`
	Ticker           string    `json:"ticker" db:"ticker"`
	EntryDate        time.Time `json:"entry_date" db:"entry_date"`
	EntryPrice       float64   `json:"entry_price" db:"entry_price"`
	ExitDate         time.Time `json:"exit_date" db:"exit_date"`
	ExitPrice        float64   `json:"exit_price" db:"exit_price"`
	ExitReason       string    `json:"exit_reason" db:"exit_reason"`
	PnL              float64   `json:"pnl" db:"pnl"`
	PnLPct           float64   `json:"pnl_pct" db:"pnl_pct"`
	PositionFraction float64   `json:"position_fraction" db:"position_fraction"`
	PositionSize     float64   `json:"position_size" db:"position_size"`
	StopLossPrice    float64   `json:"stop_loss_price" db:"stop_loss_price"`
	TakeProfitPrice  float64   `json:"take_profit_price" db:"take_profit_price"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// NewTradeRecord flattens a closed simulated trade for storage.
func NewTradeRecord(t domain.SimulatedTrade) TradeRecord {
	return TradeRecord{
		ID:               t.ID,
		Ticker:           t.Ticker,
		EntryDate:        t.EntryDate,
		EntryPrice:       t.EntryPrice,
		ExitDate:         t.ExitDate,
		ExitPrice:        t.ExitPrice,
		ExitReason:       string(t.ExitReason),
		PnL:              t.PnL,
		PnLPct:           t.PnLPct,
		PositionFraction: t.PositionFraction,
		PositionSize:     t.PositionSize,
		StopLossPrice:    t.StopLossPrice,
		TakeProfitPrice:  t.TakeProfitPrice,
	}
}

// AnalysisRepo stores scan outputs, upserted per ticker and day.
type AnalysisRepo interface {
	// Upsert inserts or replaces the record for (ticker, analysis_date).
	Upsert(ctx context.Context, record AnalysisRecord) error

	// UpsertBatch processes one scan's records atomically.
	UpsertBatch(ctx context.Context, records []AnalysisRecord) error

	// ListByTicker retrieves a ticker's score history, newest first.
	ListByTicker(ctx context.Context, ticker string, tr TimeRange, limit int) ([]AnalysisRecord, error)

	// TopByDate retrieves the best-scored records for one analysis day.
	TopByDate(ctx context.Context, day time.Time, limit int) ([]AnalysisRecord, error)
}

// TradesRepo stores simulated trades.
type TradesRepo interface {
	Insert(ctx context.Context, record TradeRecord) error

	// InsertBatch adds a backtest's trades atomically.
	InsertBatch(ctx context.Context, records []TradeRecord) error

	// ListByTicker retrieves a ticker's trades, newest entry first.
	ListByTicker(ctx context.Context, ticker string, tr TimeRange, limit int) ([]TradeRecord, error)

	// ListRange retrieves all trades entered within the range.
	ListRange(ctx context.Context, tr TimeRange) ([]TradeRecord, error)
}

// Repository aggregates the storage interfaces.
type Repository struct {
	Analysis AnalysisRepo
	Trades   TradesRepo
}
