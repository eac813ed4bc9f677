package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscan/earnscan/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func bar(d int, high, low, close float64) domain.PriceBar {
	return domain.PriceBar{Date: day(d), Open: close, High: high, Low: low, Close: close, Volume: 1_000_000}
}

func approvedDecision() domain.RiskDecision {
	return domain.RiskDecision{
		Approved:         true,
		PositionFraction: 0.85,
		StopLossPct:      -0.08,
		TakeProfitPct:    0.10,
	}
}

// openPosition returns an OPEN position entered at 100.00 on day 1:
// stop 92.00, target 110.00, position size 8500.
func openPosition(t *testing.T) *Position {
	t.Helper()
	p := NewPosition("ACME", day(1), 100.0)
	require.NoError(t, p.Open(approvedDecision(), 10_000))
	return p
}

func TestPosition_Lifecycle(t *testing.T) {
	p := NewPosition("ACME", day(1), 100.0)
	assert.Equal(t, domain.TradePending, p.Trade().State)
	assert.NotEmpty(t, p.Trade().ID)

	require.NoError(t, p.Open(approvedDecision(), 10_000))
	tr := p.Trade()
	assert.Equal(t, domain.TradeOpen, tr.State)
	assert.Equal(t, 92.0, tr.StopLossPrice)
	assert.Equal(t, 110.0, tr.TakeProfitPrice)
	assert.InDelta(t, 8_500.0, tr.PositionSize, 1e-9)

	// A second open is rejected; the state machine never goes backwards.
	assert.Error(t, p.Open(approvedDecision(), 10_000))
}

func TestPosition_OpenRequiresApproval(t *testing.T) {
	p := NewPosition("ACME", day(1), 100.0)
	err := p.Open(domain.RiskDecision{Approved: false, Reason: "volume: too thin"}, 10_000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too thin")
	assert.Equal(t, domain.TradePending, p.Trade().State)
}

func TestRun_TakeProfit(t *testing.T) {
	s := NewSimulator(DefaultHoldDays)
	p := openPosition(t)

	trade, err := s.Run(p, []domain.PriceBar{
		bar(2, 103, 99, 102),
		bar(3, 111, 101, 108), // high crosses the 110 target
		bar(4, 110, 90, 95),   // never reached
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ExitTakeProfit, trade.ExitReason)
	assert.Equal(t, day(3), trade.ExitDate)
	assert.Equal(t, 110.0, trade.ExitPrice)
	assert.InDelta(t, 0.10, trade.PnLPct, 1e-9, "pnl pct tracks the take-profit pct")
	assert.InDelta(t, 850.0, trade.PnL, 1e-6)
	assert.Equal(t, domain.TradeClosed, trade.State)
}

func TestRun_StopLoss(t *testing.T) {
	s := NewSimulator(DefaultHoldDays)
	p := openPosition(t)

	trade, err := s.Run(p, []domain.PriceBar{
		bar(2, 104, 97, 98),
		bar(3, 99, 91, 93), // low crosses the 92 stop
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ExitStopLoss, trade.ExitReason)
	assert.Equal(t, 92.0, trade.ExitPrice)
	assert.InDelta(t, -0.08, trade.PnLPct, 1e-9)
	assert.InDelta(t, -680.0, trade.PnL, 1e-6)
}

func TestRun_SameBarCollisionStopWins(t *testing.T) {
	s := NewSimulator(DefaultHoldDays)
	p := openPosition(t)

	// One violent bar touches both levels: the conservative resolution is
	// the stop.
	trade, err := s.Run(p, []domain.PriceBar{bar(2, 115, 90, 100)})
	require.NoError(t, err)
	assert.Equal(t, domain.ExitStopLoss, trade.ExitReason)
	assert.Equal(t, 92.0, trade.ExitPrice)
}

func TestRun_TimeExitAtFifthClose(t *testing.T) {
	s := NewSimulator(DefaultHoldDays)
	p := openPosition(t)

	bars := []domain.PriceBar{
		bar(2, 102, 98, 101),
		bar(3, 103, 99, 100),
		bar(4, 104, 98, 102),
		bar(5, 105, 99, 103),
		bar(6, 106, 100, 104), // fifth and final holding day
		bar(7, 150, 50, 100),  // beyond the window, must be ignored
	}

	trade, err := s.Run(p, bars)
	require.NoError(t, err)
	assert.Equal(t, domain.ExitTimeExit, trade.ExitReason)
	assert.Equal(t, day(6), trade.ExitDate)
	assert.Equal(t, 104.0, trade.ExitPrice)
	assert.InDelta(t, 0.04, trade.PnLPct, 1e-9)
}

func TestRun_GapSessionCarriesForward(t *testing.T) {
	s := NewSimulator(DefaultHoldDays)
	p := openPosition(t)

	bars := []domain.PriceBar{
		bar(2, 102, 98, 101),
		{Date: day(3)}, // halted session, empty bar
		bar(4, 103, 99, 102),
	}

	trade, err := s.Run(p, bars)
	require.NoError(t, err)
	assert.Equal(t, domain.ExitTimeExit, trade.ExitReason)
	assert.Equal(t, day(4), trade.ExitDate)
	assert.Equal(t, 102.0, trade.ExitPrice, "gap carries the last known close forward")
}

func TestRun_RequiresOpenState(t *testing.T) {
	s := NewSimulator(DefaultHoldDays)

	pending := NewPosition("ACME", day(1), 100.0)
	_, err := s.Run(pending, []domain.PriceBar{bar(2, 102, 98, 101)})
	assert.Error(t, err)
}

func TestRun_NoFutureBars(t *testing.T) {
	s := NewSimulator(DefaultHoldDays)
	p := openPosition(t)

	_, err := s.Run(p, []domain.PriceBar{bar(1, 102, 98, 101)}) // entry day only
	assert.Error(t, err)
}
