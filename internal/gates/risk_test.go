package gates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/domain"
)

func healthyAccount() AccountState {
	return AccountState{Equity: 10_000, DailyStart: 10_000, Peak: 10_000}
}

func goodCandidate() Candidate {
	return Candidate{Ticker: "ACME", Price: 42.50, DailyVolume: 3_000_000}
}

func goodTechnical() domain.TechnicalMetrics {
	return domain.TechnicalMetrics{WinRate: 0.7, AvgGain: 0.09, AvgDrawdown: -0.10, SampleSize: 10}
}

func TestEvaluate_Approval(t *testing.T) {
	g := NewRiskGate(config.Default().Risk)

	res := g.Evaluate(goodCandidate(), healthyAccount(), goodTechnical())
	require.True(t, res.Decision.Approved)
	assert.Equal(t, "all risk checks passed", res.Decision.Reason)
	assert.InDelta(t, 0.85, res.Decision.PositionFraction, 1e-12)
	assert.InDelta(t, -0.11, res.Decision.StopLossPct, 1e-12)
	assert.InDelta(t, 0.09, res.Decision.TakeProfitPct, 1e-12)
	assert.Len(t, res.Checks, 5)
}

func TestEvaluate_Rejections(t *testing.T) {
	g := NewRiskGate(config.Default().Risk)

	tests := []struct {
		name       string
		candidate  Candidate
		account    AccountState
		wantReason string
	}{
		{
			name:       "price below band",
			candidate:  Candidate{Ticker: "PENNY", Price: 2.00, DailyVolume: 5_000_000},
			account:    healthyAccount(),
			wantReason: "price_min",
		},
		{
			name:       "price above band",
			candidate:  Candidate{Ticker: "RICH", Price: 900.00, DailyVolume: 5_000_000},
			account:    healthyAccount(),
			wantReason: "price_max",
		},
		{
			name:       "thin volume",
			candidate:  Candidate{Ticker: "THIN", Price: 50.00, DailyVolume: 50_000},
			account:    healthyAccount(),
			wantReason: "volume",
		},
		{
			name:       "daily loss limit",
			candidate:  goodCandidate(),
			account:    AccountState{Equity: 9_400, DailyStart: 10_000, Peak: 10_000},
			wantReason: "daily_loss",
		},
		{
			name:       "drawdown limit",
			candidate:  goodCandidate(),
			account:    AccountState{Equity: 8_900, DailyStart: 9_000, Peak: 10_000},
			wantReason: "drawdown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := g.Evaluate(tt.candidate, tt.account, goodTechnical())
			require.False(t, res.Decision.Approved)
			assert.True(t, strings.HasPrefix(res.Decision.Reason, tt.wantReason),
				"reason %q should name the failed check %q", res.Decision.Reason, tt.wantReason)
			assert.Zero(t, res.Decision.PositionFraction, "no partial approval")
		})
	}
}

func TestStopLossPct_MagnitudeClamped(t *testing.T) {
	tests := []struct {
		name        string
		avgDrawdown float64
		want        float64
	}{
		{"interior value scales by 1.10", -0.10, -0.11},
		{"small drawdown floors at 8%", -0.02, -0.08},
		{"zero drawdown floors at 8%", 0.0, -0.08},
		{"positive input still floors", 0.05, -0.08},
		{"large drawdown caps at 20%", -0.30, -0.20},
		{"boundary at the cap", -0.20, -0.20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StopLossPct(tt.avgDrawdown)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, -0.20)
			assert.LessOrEqual(t, got, -0.08)
		})
	}
}

func TestAccountState_Percentages(t *testing.T) {
	a := AccountState{Equity: 9_500, DailyStart: 10_000, Peak: 12_000}
	assert.InDelta(t, 5.0, a.DailyLossPercent(), 1e-12)
	assert.InDelta(t, 100*2_500.0/12_000.0, a.DrawdownPercent(), 1e-9)

	// Unset balances never divide by zero.
	empty := AccountState{Equity: 100}
	assert.Zero(t, empty.DailyLossPercent())
	assert.Zero(t, empty.DrawdownPercent())
}
