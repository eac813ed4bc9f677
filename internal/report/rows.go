package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/earnscan/earnscan/internal/domain"
)

// Row is the flat exportable record for one completed trade, joining the
// trade outcome with the scores that selected it.
type Row struct {
	Ticker           string            `json:"ticker"`
	EntryDate        time.Time         `json:"entry_date"`
	ExitDate         time.Time         `json:"exit_date"`
	ExitReason       domain.ExitReason `json:"exit_reason"`
	PnL              float64           `json:"pnl"`
	PnLPct           float64           `json:"pnl_pct"`
	PriceScore       float64           `json:"price_score"`
	FundamentalScore float64           `json:"fundamental_score"`
	EPSBeatRate      float64           `json:"eps_beat_rate"`
	EPSSurpriseAvg   float64           `json:"eps_surprise_avg"`
	AnalystRating    float64           `json:"analyst_rating"`
}

// NewRow joins a closed trade with the score record that produced it.
func NewRow(trade domain.SimulatedTrade, s domain.CompositeScore) Row {
	return Row{
		Ticker:           trade.Ticker,
		EntryDate:        trade.EntryDate,
		ExitDate:         trade.ExitDate,
		ExitReason:       trade.ExitReason,
		PnL:              trade.PnL,
		PnLPct:           trade.PnLPct,
		PriceScore:       s.PriceScore,
		FundamentalScore: s.FundamentalScore,
		EPSBeatRate:      s.Fundamental.EPSBeatRate,
		EPSSurpriseAvg:   s.Fundamental.EPSSurpriseAvg,
		AnalystRating:    s.Fundamental.AnalystRating,
	}
}

var csvHeader = []string{
	"ticker", "entry_date", "exit_date", "exit_reason",
	"pnl", "pnl_pct", "price_score", "fundamental_score",
	"eps_beat_rate", "eps_surprise_avg", "analyst_rating",
}

// WriteCSV writes the rows as a flat CSV table.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Ticker,
			r.EntryDate.Format("2006-01-02"),
			r.ExitDate.Format("2006-01-02"),
			string(r.ExitReason),
			formatFloat(r.PnL),
			formatFloat(r.PnLPct),
			formatFloat(r.PriceScore),
			formatFloat(r.FundamentalScore),
			formatFloat(r.EPSBeatRate),
			formatFloat(r.EPSSurpriseAvg),
			formatFloat(r.AnalystRating),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", r.Ticker, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
