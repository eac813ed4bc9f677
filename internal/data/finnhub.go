package data

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/domain"
)

// FinnhubClient implements the provider interfaces against the Finnhub
// REST API. Every call runs through a circuit breaker so a degraded
// upstream trips fast instead of stalling the scan.
type FinnhubClient struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	apiKey  string
}

// NewFinnhubClient creates a client from the provider configuration.
func NewFinnhubClient(cfg config.ProvidersConfig) *FinnhubClient {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.RequestTimeout)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "finnhub",
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("provider circuit breaker state change")
		},
	})

	return &FinnhubClient{
		client:  client,
		breaker: breaker,
		apiKey:  cfg.APIKey,
	}
}

// get performs one breaker-guarded GET and decodes the JSON body into out.
func (fc *FinnhubClient) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	_, err := fc.breaker.Execute(func() (interface{}, error) {
		req := fc.client.R().SetContext(ctx).SetQueryParam("token", fc.apiKey)
		for k, v := range params {
			req.SetQueryParam(k, v)
		}
		resp, err := req.Get(path)
		if err != nil {
			return nil, fmt.Errorf("request %s failed: %w", path, err)
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("API error %d from %s: %s", resp.StatusCode(), path, resp.String())
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return nil, fmt.Errorf("failed to parse %s response: %w", path, err)
		}
		return nil, nil
	})
	return err
}

type candleResponse struct {
	Status string    `json:"s"`
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
	Volume []int64   `json:"v"`
	Time   []int64   `json:"t"`
}

// PriceHistory fetches daily candles for the span, ascending by date.
func (fc *FinnhubClient) PriceHistory(ctx context.Context, ticker string, from, to time.Time) ([]domain.PriceBar, error) {
	var resp candleResponse
	err := fc.get(ctx, "/stock/candle", map[string]string{
		"symbol":     ticker,
		"resolution": "D",
		"from":       fmt.Sprintf("%d", from.Unix()),
		"to":         fmt.Sprintf("%d", to.Unix()),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("no price history for %s (status %q)", ticker, resp.Status)
	}

	bars := make([]domain.PriceBar, 0, len(resp.Time))
	for i := range resp.Time {
		bars = append(bars, domain.PriceBar{
			Date:   time.Unix(resp.Time[i], 0).UTC().Truncate(24 * time.Hour),
			Open:   resp.Open[i],
			High:   resp.High[i],
			Low:    resp.Low[i],
			Close:  resp.Close[i],
			Volume: resp.Volume[i],
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

type earningsEntry struct {
	Actual   *float64 `json:"actual"`
	Estimate *float64 `json:"estimate"`
	Period   string   `json:"period"`
	Symbol   string   `json:"symbol"`
}

// EarningsHistory fetches past quarterly reports, most recent first.
func (fc *FinnhubClient) EarningsHistory(ctx context.Context, ticker string) ([]domain.EarningsEvent, error) {
	var entries []earningsEntry
	if err := fc.get(ctx, "/stock/earnings", map[string]string{"symbol": ticker}, &entries); err != nil {
		return nil, err
	}

	events := make([]domain.EarningsEvent, 0, len(entries))
	for _, e := range entries {
		reportDate, err := time.Parse("2006-01-02", e.Period)
		if err != nil {
			log.Debug().Str("ticker", ticker).Str("period", e.Period).Msg("skipping earnings entry with bad period")
			continue
		}
		events = append(events, domain.EarningsEvent{
			Ticker:       ticker,
			ReportDate:   reportDate,
			EstimatedEPS: e.Estimate,
			ActualEPS:    e.Actual,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ReportDate.After(events[j].ReportDate) })
	return events, nil
}

type calendarResponse struct {
	EarningsCalendar []struct {
		Symbol string `json:"symbol"`
		Date   string `json:"date"`
	} `json:"earningsCalendar"`
}

// EarningsCalendar fetches the tickers reporting on the given day.
func (fc *FinnhubClient) EarningsCalendar(ctx context.Context, day time.Time) ([]string, error) {
	date := day.Format("2006-01-02")
	var resp calendarResponse
	err := fc.get(ctx, "/calendar/earnings", map[string]string{
		"from": date,
		"to":   date,
	}, &resp)
	if err != nil {
		return nil, err
	}

	tickers := make([]string, 0, len(resp.EarningsCalendar))
	for _, e := range resp.EarningsCalendar {
		tickers = append(tickers, e.Symbol)
	}
	sort.Strings(tickers)
	return tickers, nil
}

type metricsResponse struct {
	Series struct {
		Quarterly struct {
			RevenuePerShare []struct {
				Period string  `json:"period"`
				Value  float64 `json:"v"`
			} `json:"revenuePerShare"`
		} `json:"quarterly"`
	} `json:"series"`
}

type recommendationEntry struct {
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
	Period     string `json:"period"`
}

// Fundamentals assembles the raw fundamentals record from the earnings,
// financials and recommendation endpoints. Each source fails independently:
// a missing piece leaves its field empty rather than failing the record.
func (fc *FinnhubClient) Fundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	f := domain.Fundamentals{Ticker: ticker}

	earnings, err := fc.EarningsHistory(ctx, ticker)
	if err != nil {
		log.Debug().Err(err).Str("ticker", ticker).Msg("no earnings history")
	} else {
		f.Earnings = earnings
	}

	var metrics metricsResponse
	if err := fc.get(ctx, "/stock/metric", map[string]string{"symbol": ticker, "metric": "all"}, &metrics); err != nil {
		log.Debug().Err(err).Str("ticker", ticker).Msg("no financial metrics")
	} else {
		series := metrics.Series.Quarterly.RevenuePerShare
		points := make([]domain.RevenuePoint, 0, len(series))
		for _, p := range series {
			period, err := time.Parse("2006-01-02", p.Period)
			if err != nil {
				continue
			}
			points = append(points, domain.RevenuePoint{Period: period, Value: p.Value})
		}
		sort.Slice(points, func(i, j int) bool { return points[i].Period.After(points[j].Period) })
		f.RevenuePerShare = points
	}

	var recs []recommendationEntry
	if err := fc.get(ctx, "/stock/recommendation", map[string]string{"symbol": ticker}, &recs); err != nil {
		log.Debug().Err(err).Str("ticker", ticker).Msg("no recommendation trends")
	} else if len(recs) > 0 {
		latest := recs[0]
		f.Recommendations = &domain.RecommendationCounts{
			StrongBuy:  latest.StrongBuy,
			Buy:        latest.Buy,
			Hold:       latest.Hold,
			Sell:       latest.Sell,
			StrongSell: latest.StrongSell,
		}
	}

	return f, nil
}

type quoteResponse struct {
	Current float64 `json:"c"`
}

// Quote fetches the current price and pairs it with the latest daily
// volume.
func (fc *FinnhubClient) Quote(ctx context.Context, ticker string) (Quote, error) {
	var resp quoteResponse
	if err := fc.get(ctx, "/quote", map[string]string{"symbol": ticker}, &resp); err != nil {
		return Quote{}, err
	}
	if resp.Current <= 0 {
		return Quote{}, fmt.Errorf("no quote for %s", ticker)
	}

	q := Quote{Ticker: ticker, Price: resp.Current}

	// Latest session volume from the most recent daily bar.
	now := time.Now().UTC()
	bars, err := fc.PriceHistory(ctx, ticker, now.AddDate(0, 0, -10), now)
	if err == nil && len(bars) > 0 {
		q.DailyVolume = bars[len(bars)-1].Volume
	}
	return q, nil
}

var _ Provider = (*FinnhubClient)(nil)
