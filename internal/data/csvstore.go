package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/earnscan/earnscan/internal/domain"
)

// CSVStore serves the provider interfaces from on-disk fixtures, used by
// offline backtests and tests. Layout:
//
//	<dir>/bars/<TICKER>.csv      date,open,high,low,close,volume
//	<dir>/earnings.csv           ticker,report_date,estimated_eps,actual_eps
//
// Empty EPS cells mean the datum is missing, not zero.
type CSVStore struct {
	dir      string
	earnings map[string][]domain.EarningsEvent // ticker -> events, most recent first
	calendar map[string][]string               // YYYY-MM-DD -> tickers
}

// NewCSVStore loads the earnings fixture eagerly; bar files are read on
// demand.
func NewCSVStore(dir string) (*CSVStore, error) {
	s := &CSVStore{
		dir:      dir,
		earnings: make(map[string][]domain.EarningsEvent),
		calendar: make(map[string][]string),
	}
	if err := s.loadEarnings(filepath.Join(dir, "earnings.csv")); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSVStore) loadEarnings(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open earnings fixture: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read earnings fixture: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(record) < 4 {
			return fmt.Errorf("earnings fixture row too short: %v", record)
		}

		ticker := strings.ToUpper(strings.TrimSpace(record[0]))
		reportDate, err := time.Parse("2006-01-02", record[1])
		if err != nil {
			return fmt.Errorf("bad report_date %q: %w", record[1], err)
		}

		ev := domain.EarningsEvent{Ticker: ticker, ReportDate: reportDate}
		if v, ok := parseOptionalFloat(record[2]); ok {
			ev.EstimatedEPS = &v
		}
		if v, ok := parseOptionalFloat(record[3]); ok {
			ev.ActualEPS = &v
		}

		s.earnings[ticker] = append(s.earnings[ticker], ev)
		day := reportDate.Format("2006-01-02")
		s.calendar[day] = append(s.calendar[day], ticker)
	}

	for ticker := range s.earnings {
		events := s.earnings[ticker]
		sort.Slice(events, func(i, j int) bool { return events[i].ReportDate.After(events[j].ReportDate) })
	}
	for day := range s.calendar {
		sort.Strings(s.calendar[day])
	}
	return nil
}

// PriceHistory reads the ticker's bar file, filtered to [from, to].
func (s *CSVStore) PriceHistory(_ context.Context, ticker string, from, to time.Time) ([]domain.PriceBar, error) {
	path := filepath.Join(s.dir, "bars", strings.ToUpper(ticker)+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("no bar fixture for %s: %w", ticker, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	var bars []domain.PriceBar
	header := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read bars for %s: %w", ticker, err)
		}
		if header {
			header = false
			continue
		}
		if len(record) < 6 {
			return nil, fmt.Errorf("bar row too short for %s: %v", ticker, record)
		}

		date, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			return nil, fmt.Errorf("bad bar date %q for %s: %w", record[0], ticker, err)
		}
		if date.Before(from) || date.After(to) {
			continue
		}

		var vals [4]float64
		for i := 0; i < 4; i++ {
			vals[i], err = strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("bad bar value %q for %s: %w", record[i+1], ticker, err)
			}
		}
		volume, err := strconv.ParseInt(record[5], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad bar volume %q for %s: %w", record[5], ticker, err)
		}

		bars = append(bars, domain.PriceBar{
			Date: date, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// EarningsHistory returns the fixture events for the ticker.
func (s *CSVStore) EarningsHistory(_ context.Context, ticker string) ([]domain.EarningsEvent, error) {
	events, ok := s.earnings[strings.ToUpper(ticker)]
	if !ok {
		return nil, fmt.Errorf("no earnings fixture for %s", ticker)
	}
	out := make([]domain.EarningsEvent, len(events))
	copy(out, events)
	return out, nil
}

// EarningsCalendar returns the tickers reporting on the given day.
func (s *CSVStore) EarningsCalendar(_ context.Context, day time.Time) ([]string, error) {
	tickers := s.calendar[day.Format("2006-01-02")]
	out := make([]string, len(tickers))
	copy(out, tickers)
	return out, nil
}

// Fundamentals builds the record from the earnings fixture alone; revenue
// and recommendations stay absent, which the scorer resolves to neutral.
func (s *CSVStore) Fundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	events, err := s.EarningsHistory(ctx, ticker)
	if err != nil {
		return domain.Fundamentals{Ticker: ticker}, nil
	}
	return domain.Fundamentals{Ticker: ticker, Earnings: events}, nil
}

// Quote derives a snapshot from the latest fixture bar.
func (s *CSVStore) Quote(ctx context.Context, ticker string) (Quote, error) {
	bars, err := s.PriceHistory(ctx, ticker, time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return Quote{}, err
	}
	if len(bars) == 0 {
		return Quote{}, fmt.Errorf("no bars for %s", ticker)
	}
	last := bars[len(bars)-1]
	return Quote{Ticker: strings.ToUpper(ticker), Price: last.Close, DailyVolume: last.Volume}, nil
}

// QuoteAt derives the snapshot as of a historical day, for backtest entry
// decisions: the close and volume of the last session at or before the day.
func (s *CSVStore) QuoteAt(ctx context.Context, ticker string, day time.Time) (Quote, error) {
	bars, err := s.PriceHistory(ctx, ticker, time.Time{}, day)
	if err != nil {
		return Quote{}, err
	}
	if len(bars) == 0 {
		return Quote{}, fmt.Errorf("no bars for %s at %s", ticker, day.Format("2006-01-02"))
	}
	last := bars[len(bars)-1]
	return Quote{Ticker: strings.ToUpper(ticker), Price: last.Close, DailyVolume: last.Volume}, nil
}

func parseOptionalFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var _ Provider = (*CSVStore)(nil)
