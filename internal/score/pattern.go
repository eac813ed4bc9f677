package score

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/domain"
)

// PatternAnalyzer computes the technical score for a ticker from its
// historical post-earnings price windows.
type PatternAnalyzer struct {
	cfg config.AnalysisConfig
}

// NewPatternAnalyzer creates a pattern analyzer for the given analysis
// configuration.
func NewPatternAnalyzer(cfg config.AnalysisConfig) *PatternAnalyzer {
	return &PatternAnalyzer{cfg: cfg}
}

// BuildWindow constructs the post-earnings window following the report
// date: entry at the close on (or the last session before) the report date,
// then the next WindowDays trading days. Returns ok=false when the history
// does not contain the full window.
func (pa *PatternAnalyzer) BuildWindow(ticker string, bars []domain.PriceBar, reportDate time.Time) (domain.PostEarningsWindow, bool) {
	// Index of the entry bar: last bar with date <= reportDate.
	idx := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(reportDate)
	}) - 1
	if idx < 0 {
		return domain.PostEarningsWindow{}, false
	}
	if idx+pa.cfg.WindowDays >= len(bars) {
		// Window runs past the available history.
		return domain.PostEarningsWindow{}, false
	}

	entryClose := bars[idx].Close
	if entryClose <= 0 {
		return domain.PostEarningsWindow{}, false
	}

	window := bars[idx+1 : idx+1+pa.cfg.WindowDays]
	maxHigh := window[0].High
	minLow := window[0].Low
	for _, b := range window[1:] {
		if b.High > maxHigh {
			maxHigh = b.High
		}
		if b.Low < minLow {
			minLow = b.Low
		}
	}

	return domain.PostEarningsWindow{
		Ticker:         ticker,
		ReportDate:     reportDate,
		EntryClose:     entryClose,
		MaxGainPct:     (maxHigh - entryClose) / entryClose,
		MaxDrawdownPct: (minLow - entryClose) / entryClose,
	}, true
}

// Analyze aggregates the post-earnings windows within the lookback horizon
// into TechnicalMetrics. Returns ok=false when fewer than the configured
// minimum number of complete windows exist; such tickers are excluded
// upstream rather than scored with a default.
func (pa *PatternAnalyzer) Analyze(ticker string, bars []domain.PriceBar, events []domain.EarningsEvent, asOf time.Time) (domain.TechnicalMetrics, bool) {
	cutoff := asOf.AddDate(-pa.cfg.HistoryYears, 0, 0)

	var windows []domain.PostEarningsWindow
	for _, ev := range events {
		if ev.ReportDate.Before(cutoff) || ev.ReportDate.After(asOf) {
			continue
		}
		w, ok := pa.BuildWindow(ticker, bars, ev.ReportDate)
		if !ok {
			continue
		}
		windows = append(windows, w)
	}

	if len(windows) < pa.cfg.MinEarningsEvents {
		log.Debug().Str("ticker", ticker).
			Int("windows", len(windows)).
			Int("required", pa.cfg.MinEarningsEvents).
			Msg("insufficient earnings history, ticker excluded")
		return domain.TechnicalMetrics{}, false
	}

	wins := 0
	var gainSum, drawdownSum float64
	for _, w := range windows {
		if w.MaxGainPct > pa.cfg.WinThresholdPct {
			wins++
		}
		gainSum += w.MaxGainPct
		drawdownSum += w.MaxDrawdownPct
	}

	n := float64(len(windows))
	return domain.TechnicalMetrics{
		WinRate:     float64(wins) / n,
		AvgGain:     gainSum / n,
		AvgDrawdown: drawdownSum / n,
		SampleSize:  len(windows),
	}, true
}

// PriceScore is the technical component of the composite score.
func PriceScore(m domain.TechnicalMetrics) float64 {
	return m.WinRate * m.AvgGain
}
