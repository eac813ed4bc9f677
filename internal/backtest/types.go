package backtest

import (
	"time"

	"github.com/earnscan/earnscan/internal/domain"
	"github.com/earnscan/earnscan/internal/report"
)

// Config controls the historical replay.
type Config struct {
	Start          time.Time
	End            time.Time
	InitialCapital float64
	HoldDays       int
	OutputDir      string
}

// DefaultConfig replays the trailing year on the documented starting
// capital.
func DefaultConfig() Config {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	return Config{
		Start:          end.AddDate(-1, 0, 0),
		End:            end,
		InitialCapital: 10_000.0,
		HoldDays:       5,
		OutputDir:      "./artifacts/backtest",
	}
}

// DayResult records what happened on one replay day that produced a
// candidate.
type DayResult struct {
	Day       time.Time              `json:"day"`
	Reporters []string               `json:"reporters"`
	Candidate *domain.CompositeScore `json:"candidate,omitempty"`
	Decision  *domain.RiskDecision   `json:"decision,omitempty"`
	Trade     *domain.SimulatedTrade `json:"trade,omitempty"`
	Equity    float64                `json:"equity"` // after the day settles
}

// Results is the full backtest output.
type Results struct {
	Start          time.Time               `json:"start"`
	End            time.Time               `json:"end"`
	InitialCapital float64                 `json:"initial_capital"`
	FinalEquity    float64                 `json:"final_equity"`
	Days           []DayResult             `json:"days"`
	Trades         []domain.SimulatedTrade `json:"trades"`
	Rejected       int                     `json:"rejected"`
	Summary        report.Summary          `json:"summary"`
	EquityCurve    []report.EquityPoint    `json:"equity_curve"`
}
