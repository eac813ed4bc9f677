// Package data defines the consumed-record interfaces the analysis engine
// reads from external collaborators, and the provider implementations.
package data

import (
	"context"
	"time"

	"github.com/earnscan/earnscan/internal/domain"
)

// Quote is the current market snapshot for one ticker.
type Quote struct {
	Ticker      string  `json:"ticker"`
	Price       float64 `json:"price"`
	DailyVolume int64   `json:"daily_volume"`
}

// PriceProvider serves daily bar history, ordered by date ascending.
type PriceProvider interface {
	PriceHistory(ctx context.Context, ticker string, from, to time.Time) ([]domain.PriceBar, error)
}

// EarningsProvider serves historical earnings events and the forward
// calendar.
type EarningsProvider interface {
	// EarningsHistory returns the ticker's past events, most recent first.
	EarningsHistory(ctx context.Context, ticker string) ([]domain.EarningsEvent, error)
	// EarningsCalendar returns the tickers reporting on the given day.
	EarningsCalendar(ctx context.Context, day time.Time) ([]string, error)
}

// FundamentalsProvider serves the raw fundamentals record. Providers return
// partial records freely; absent inputs stay nil/empty and are resolved to
// neutral by the scorer.
type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error)
}

// QuoteProvider serves the current price/volume snapshot used by the risk
// gate.
type QuoteProvider interface {
	Quote(ctx context.Context, ticker string) (Quote, error)
}

// Provider bundles every consumed record source.
type Provider interface {
	PriceProvider
	EarningsProvider
	FundamentalsProvider
	QuoteProvider
}
