// Package gates enforces the hard risk requirements a selected candidate
// must clear before any position is opened, and derives the exit levels for
// an approved trade.
package gates

import (
	"fmt"

	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/domain"
)

// Stop-loss derivation bounds: the stop is 110% of the historical average
// drawdown, with its magnitude clamped between 8% and 20%.
const (
	StopLossMultiplier = 1.10
	StopLossFloor      = -0.08 // minimum magnitude
	StopLossCap        = -0.20 // maximum magnitude
)

// Candidate is the market snapshot of the selected ticker at decision time.
type Candidate struct {
	Ticker      string  `json:"ticker"`
	Price       float64 `json:"price"`
	DailyVolume int64   `json:"daily_volume"`
}

// AccountState carries the balances the loss and drawdown checks run
// against. Peak is the high-water equity since tracking began; DailyStart
// is the equity at the session open.
type AccountState struct {
	Equity     float64 `json:"equity"`
	DailyStart float64 `json:"daily_start"`
	Peak       float64 `json:"peak"`
}

// DailyLossPercent is the session loss relative to the day's starting
// balance, positive when losing.
func (a AccountState) DailyLossPercent() float64 {
	if a.DailyStart <= 0 {
		return 0
	}
	return (a.DailyStart - a.Equity) / a.DailyStart * 100
}

// DrawdownPercent is the decline from peak equity, positive when below
// peak.
func (a AccountState) DrawdownPercent() float64 {
	if a.Peak <= 0 {
		return 0
	}
	return (a.Peak - a.Equity) / a.Peak * 100
}

// Check records a single gate evaluation.
type Check struct {
	Name        string  `json:"name"`
	Passed      bool    `json:"passed"`
	Value       float64 `json:"value"`
	Threshold   float64 `json:"threshold"`
	Description string  `json:"description"`
}

// Result is the full gate evaluation: the decision plus every check that
// ran, in evaluation order.
type Result struct {
	Ticker   string              `json:"ticker"`
	Decision domain.RiskDecision `json:"decision"`
	Checks   []Check             `json:"checks"`
}

// RiskGate validates candidates against the configured risk constraints.
type RiskGate struct {
	cfg config.RiskConfig
}

// NewRiskGate creates a gate with the given risk configuration.
func NewRiskGate(cfg config.RiskConfig) *RiskGate {
	return &RiskGate{cfg: cfg}
}

// Evaluate runs the checks in order: price band, volume, daily loss,
// drawdown. The first failure rejects with that check's reason; there is no
// partial approval. On approval the decision carries the position fraction
// and the stop/target levels derived from the candidate's technical
// metrics.
func (g *RiskGate) Evaluate(c Candidate, account AccountState, technical domain.TechnicalMetrics) Result {
	result := Result{Ticker: c.Ticker}

	checks := []Check{
		{
			Name:        "price_min",
			Passed:      c.Price >= g.cfg.MinStockPrice,
			Value:       c.Price,
			Threshold:   g.cfg.MinStockPrice,
			Description: fmt.Sprintf("price $%.2f below minimum $%.2f", c.Price, g.cfg.MinStockPrice),
		},
		{
			Name:        "price_max",
			Passed:      c.Price <= g.cfg.MaxStockPrice,
			Value:       c.Price,
			Threshold:   g.cfg.MaxStockPrice,
			Description: fmt.Sprintf("price $%.2f above maximum $%.2f", c.Price, g.cfg.MaxStockPrice),
		},
		{
			Name:        "volume",
			Passed:      c.DailyVolume >= g.cfg.MinDailyVolume,
			Value:       float64(c.DailyVolume),
			Threshold:   float64(g.cfg.MinDailyVolume),
			Description: fmt.Sprintf("volume %d below minimum %d", c.DailyVolume, g.cfg.MinDailyVolume),
		},
		{
			Name:        "daily_loss",
			Passed:      account.DailyLossPercent() < g.cfg.MaxDailyLossPercent,
			Value:       account.DailyLossPercent(),
			Threshold:   g.cfg.MaxDailyLossPercent,
			Description: fmt.Sprintf("daily loss %.2f%% at limit %.2f%%", account.DailyLossPercent(), g.cfg.MaxDailyLossPercent),
		},
		{
			Name:        "drawdown",
			Passed:      account.DrawdownPercent() < g.cfg.MaxDrawdownPercent,
			Value:       account.DrawdownPercent(),
			Threshold:   g.cfg.MaxDrawdownPercent,
			Description: fmt.Sprintf("drawdown %.2f%% at limit %.2f%%", account.DrawdownPercent(), g.cfg.MaxDrawdownPercent),
		},
	}

	for _, check := range checks {
		result.Checks = append(result.Checks, check)
		if !check.Passed {
			result.Decision = domain.RiskDecision{
				Approved: false,
				Reason:   fmt.Sprintf("%s: %s", check.Name, check.Description),
			}
			return result
		}
	}

	result.Decision = domain.RiskDecision{
		Approved:         true,
		Reason:           "all risk checks passed",
		PositionFraction: clamp01(g.cfg.MaxPositionSizePercent / 100),
		StopLossPct:      StopLossPct(technical.AvgDrawdown),
		TakeProfitPct:    technical.AvgGain,
	}
	return result
}

// StopLossPct derives the stop level from the historical average drawdown:
// 110% of the average, magnitude clamped to [8%, 20%].
func StopLossPct(avgDrawdown float64) float64 {
	stop := avgDrawdown * StopLossMultiplier
	if stop > StopLossFloor {
		stop = StopLossFloor
	}
	if stop < StopLossCap {
		stop = StopLossCap
	}
	return stop
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
