// Package config loads and validates the analysis, risk and scoring
// configuration from YAML, with environment overrides for secrets.
package config

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Config aggregates every configuration section.
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Risk      RiskConfig      `yaml:"risk"`
	Weights   WeightsConfig   `yaml:"weights"`
	Providers ProvidersConfig `yaml:"providers"`
	Backtest  BacktestConfig  `yaml:"backtest"`
	Server    ServerConfig    `yaml:"server"`
}

// AnalysisConfig controls the scoring pipeline.
type AnalysisConfig struct {
	HistoryYears       int     `yaml:"history_years"`         // lookback horizon for earnings events
	MinEarningsEvents  int     `yaml:"min_earnings_events"`   // fewer complete windows => ticker excluded
	WindowDays         int     `yaml:"window_days"`           // post-earnings window length in trading days
	WinThresholdPct    float64 `yaml:"win_threshold_pct"`     // gain counting as a win, e.g. 0.01
	MaxStocksToAnalyze int     `yaml:"max_stocks_to_analyze"`
	MinScoreThreshold  float64 `yaml:"min_score_threshold"`
	MinAvgGainPercent  float64 `yaml:"min_avg_gain_percent"` // floor on avg gain, in percent
}

// RiskConfig controls the risk gate.
type RiskConfig struct {
	MaxPositionSizePercent float64 `yaml:"max_position_size_percent"`
	MaxDailyLossPercent    float64 `yaml:"max_daily_loss_percent"`
	MaxDrawdownPercent     float64 `yaml:"max_drawdown_percent"`
	MinStockPrice          float64 `yaml:"min_stock_price"`
	MaxStockPrice          float64 `yaml:"max_stock_price"`
	MinDailyVolume         int64   `yaml:"min_daily_volume"`
}

// WeightsConfig holds the two weight vectors of the composite score. Both
// vectors are injected rather than hardcoded and must sum to 1; the
// fundamental split defaults to the 0.5/0.3/0.15/0.05 scheme.
type WeightsConfig struct {
	Price       float64 `yaml:"price"`
	Fundamental float64 `yaml:"fundamental"`

	EPSBeatRate   float64 `yaml:"eps_beat_rate"`
	EPSSurprise   float64 `yaml:"eps_surprise"`
	AnalystRating float64 `yaml:"analyst_rating"`
	RevenueGrowth float64 `yaml:"revenue_growth"`
}

// ProvidersConfig configures the external data collaborators.
type ProvidersConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"` // overridden by EARNSCAN_API_KEY
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateRPS        float64       `yaml:"rate_rps"` // fetch pacing between tickers
	RateBurst      int           `yaml:"rate_burst"`
	UniverseFile   string        `yaml:"universe_file"`
	RedisAddr      string        `yaml:"redis_addr"`   // empty disables the fundamentals cache
	PostgresDSN    string        `yaml:"postgres_dsn"` // empty disables persistence
}

// BacktestConfig controls the historical replay.
type BacktestConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
	Start          string  `yaml:"start"` // YYYY-MM-DD
	End            string  `yaml:"end"`
	OutputDir      string  `yaml:"output_dir"`
}

// ServerConfig configures the metrics/health HTTP listener.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the production defaults, matching the documented strategy
// parameters.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			HistoryYears:       4,
			MinEarningsEvents:  4,
			WindowDays:         5,
			WinThresholdPct:    0.01,
			MaxStocksToAnalyze: 100,
			MinScoreThreshold:  0.0,
			MinAvgGainPercent:  1.0,
		},
		Risk: RiskConfig{
			MaxPositionSizePercent: 85.0,
			MaxDailyLossPercent:    5.0,
			MaxDrawdownPercent:     10.0,
			MinStockPrice:          5.0,
			MaxStockPrice:          500.0,
			MinDailyVolume:         1_000_000,
		},
		Weights: WeightsConfig{
			Price:         0.7,
			Fundamental:   0.3,
			EPSBeatRate:   0.5,
			EPSSurprise:   0.3,
			AnalystRating: 0.15,
			RevenueGrowth: 0.05,
		},
		Providers: ProvidersConfig{
			BaseURL:        "https://finnhub.io/api/v1",
			RequestTimeout: 10 * time.Second,
			RateRPS:        1.0,
			RateBurst:      1,
			UniverseFile:   "stocks.txt",
		},
		Backtest: BacktestConfig{
			InitialCapital: 10_000.0,
			OutputDir:      "./artifacts/backtest",
		},
		Server: ServerConfig{
			ListenAddr: ":8090",
		},
	}
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. A missing path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, cfg.Validate()
			}
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if key := os.Getenv("EARNSCAN_API_KEY"); key != "" {
		cfg.Providers.APIKey = key
	}
	if dsn := os.Getenv("EARNSCAN_POSTGRES_DSN"); dsn != "" {
		cfg.Providers.PostgresDSN = dsn
	}
	if addr := os.Getenv("EARNSCAN_REDIS_ADDR"); addr != "" {
		cfg.Providers.RedisAddr = addr
	}

	return cfg, cfg.Validate()
}

const weightTolerance = 1e-9

// Validate checks ranges and that both weight vectors sum to 1.
func (c Config) Validate() error {
	a := c.Analysis
	if a.HistoryYears <= 0 {
		return fmt.Errorf("analysis.history_years must be positive, got %d", a.HistoryYears)
	}
	if a.MinEarningsEvents <= 0 {
		return fmt.Errorf("analysis.min_earnings_events must be positive, got %d", a.MinEarningsEvents)
	}
	if a.WindowDays <= 0 {
		return fmt.Errorf("analysis.window_days must be positive, got %d", a.WindowDays)
	}
	if a.MaxStocksToAnalyze <= 0 {
		return fmt.Errorf("analysis.max_stocks_to_analyze must be positive, got %d", a.MaxStocksToAnalyze)
	}

	r := c.Risk
	if r.MaxPositionSizePercent <= 0 || r.MaxPositionSizePercent > 100 {
		return fmt.Errorf("risk.max_position_size_percent must be in (0,100], got %.2f", r.MaxPositionSizePercent)
	}
	if r.MaxDailyLossPercent <= 0 || r.MaxDailyLossPercent > 100 {
		return fmt.Errorf("risk.max_daily_loss_percent must be in (0,100], got %.2f", r.MaxDailyLossPercent)
	}
	if r.MaxDrawdownPercent <= 0 || r.MaxDrawdownPercent > 100 {
		return fmt.Errorf("risk.max_drawdown_percent must be in (0,100], got %.2f", r.MaxDrawdownPercent)
	}
	if r.MinStockPrice <= 0 {
		return fmt.Errorf("risk.min_stock_price must be positive, got %.2f", r.MinStockPrice)
	}
	if r.MaxStockPrice <= r.MinStockPrice {
		return fmt.Errorf("risk.max_stock_price %.2f must exceed min_stock_price %.2f", r.MaxStockPrice, r.MinStockPrice)
	}
	if r.MinDailyVolume <= 0 {
		return fmt.Errorf("risk.min_daily_volume must be positive, got %d", r.MinDailyVolume)
	}

	w := c.Weights
	if sum := w.Price + w.Fundamental; math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("weights: price+fundamental must sum to 1, got %.6f", sum)
	}
	if sum := w.EPSBeatRate + w.EPSSurprise + w.AnalystRating + w.RevenueGrowth; math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("weights: fundamental split must sum to 1, got %.6f", sum)
	}
	for name, v := range map[string]float64{
		"price": w.Price, "fundamental": w.Fundamental,
		"eps_beat_rate": w.EPSBeatRate, "eps_surprise": w.EPSSurprise,
		"analyst_rating": w.AnalystRating, "revenue_growth": w.RevenueGrowth,
	} {
		if v < 0 {
			return fmt.Errorf("weights.%s must be non-negative, got %.4f", name, v)
		}
	}

	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive, got %.2f", c.Backtest.InitialCapital)
	}

	return nil
}

// LoadUniverse reads the tradable-symbol file: one symbol per line, blank
// lines and '#' comments skipped. Symbols are returned sorted and deduped so
// scan order is stable.
func LoadUniverse(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open universe file: %w", err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seen[strings.ToUpper(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}

	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}
