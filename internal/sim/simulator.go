// Package sim replays a trade's subsequent price path against its stop and
// target levels to determine the realized exit. The same replay serves the
// backtester and live position monitoring.
package sim

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/earnscan/earnscan/internal/domain"
)

// DefaultHoldDays is the maximum holding window, matching the analysis
// window length.
const DefaultHoldDays = 5

// Position is a trade in flight through the PENDING -> OPEN -> terminal
// lifecycle. It is an explicit value passed through the pipeline, never a
// shared singleton, so concurrent simulations and live runs coexist.
type Position struct {
	trade domain.SimulatedTrade
}

// NewPosition creates a PENDING position for the selected candidate.
func NewPosition(ticker string, entryDate time.Time, entryPrice float64) *Position {
	return &Position{trade: domain.SimulatedTrade{
		ID:         uuid.NewString(),
		Ticker:     ticker,
		State:      domain.TradePending,
		EntryDate:  entryDate,
		EntryPrice: entryPrice,
	}}
}

// Open transitions the position to OPEN with the approved risk decision's
// sizing and exit levels. Only a PENDING position can open.
func (p *Position) Open(decision domain.RiskDecision, accountEquity float64) error {
	if p.trade.State != domain.TradePending {
		return fmt.Errorf("cannot open position in state %s", p.trade.State)
	}
	if !decision.Approved {
		return fmt.Errorf("cannot open position: risk gate rejected: %s", decision.Reason)
	}

	p.trade.State = domain.TradeOpen
	p.trade.PositionFraction = decision.PositionFraction
	p.trade.PositionSize = decision.PositionFraction * accountEquity
	p.trade.StopLossPrice = round2(p.trade.EntryPrice * (1 + decision.StopLossPct))
	p.trade.TakeProfitPrice = round2(p.trade.EntryPrice * (1 + decision.TakeProfitPct))
	return nil
}

// Trade returns a copy of the underlying trade record.
func (p *Position) Trade() domain.SimulatedTrade {
	return p.trade
}

func (p *Position) close(date time.Time, price float64, reason domain.ExitReason) {
	p.trade.State = domain.TradeClosed
	p.trade.ExitDate = date
	p.trade.ExitPrice = price
	p.trade.ExitReason = reason
	p.trade.PnLPct = (price - p.trade.EntryPrice) / p.trade.EntryPrice
	p.trade.PnL = p.trade.PnLPct * p.trade.PositionSize
}

// Simulator walks an open position over its holding window.
type Simulator struct {
	holdDays int
}

// NewSimulator creates a simulator with the given maximum holding window in
// trading days.
func NewSimulator(holdDays int) *Simulator {
	if holdDays <= 0 {
		holdDays = DefaultHoldDays
	}
	return &Simulator{holdDays: holdDays}
}

// Run replays the bars strictly after the entry date, in chronological
// order, for at most the holding window:
//
//   - a bar whose low reaches the stop exits STOP_LOSS at the stop price;
//     on a bar where both levels trigger the stop wins, the conservative
//     worse-for-the-trader resolution;
//   - otherwise a bar whose high reaches the target exits TAKE_PROFIT at
//     the target price;
//   - if neither fires, the trade exits TIME_EXIT at the final day's close.
//
// A missing session (halt, data gap) carries the last known close forward
// and never aborts the replay.
func (s *Simulator) Run(p *Position, bars []domain.PriceBar) (domain.SimulatedTrade, error) {
	if p.trade.State != domain.TradeOpen {
		return domain.SimulatedTrade{}, fmt.Errorf("cannot simulate position in state %s", p.trade.State)
	}

	future := barsAfter(bars, p.trade.EntryDate)
	if len(future) == 0 {
		return domain.SimulatedTrade{}, fmt.Errorf("no trading days after entry %s for %s",
			p.trade.EntryDate.Format("2006-01-02"), p.trade.Ticker)
	}
	if len(future) > s.holdDays {
		future = future[:s.holdDays]
	}

	lastClose := p.trade.EntryPrice
	lastDate := p.trade.EntryDate
	for _, bar := range future {
		if bar.High == 0 && bar.Low == 0 && bar.Close == 0 {
			// Gap session: carry the last known close forward.
			continue
		}
		lastClose = bar.Close
		lastDate = bar.Date

		if bar.Low <= p.trade.StopLossPrice {
			p.close(bar.Date, p.trade.StopLossPrice, domain.ExitStopLoss)
			return p.trade, nil
		}
		if bar.High >= p.trade.TakeProfitPrice {
			p.close(bar.Date, p.trade.TakeProfitPrice, domain.ExitTakeProfit)
			return p.trade, nil
		}
	}

	p.close(lastDate, lastClose, domain.ExitTimeExit)
	return p.trade, nil
}

// barsAfter returns the bars strictly after the entry date.
func barsAfter(bars []domain.PriceBar, entry time.Time) []domain.PriceBar {
	for i, b := range bars {
		if b.Date.After(entry) {
			return bars[i:]
		}
	}
	return nil
}

func round2(v float64) float64 {
	if v >= 0 {
		return float64(int64(v*100+0.5)) / 100
	}
	return float64(int64(v*100-0.5)) / 100
}
