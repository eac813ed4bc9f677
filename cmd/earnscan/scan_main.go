package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/data"
	"github.com/earnscan/earnscan/internal/gates"
	"github.com/earnscan/earnscan/internal/metrics"
	"github.com/earnscan/earnscan/internal/net/ratelimit"
	"github.com/earnscan/earnscan/internal/persistence"
	"github.com/earnscan/earnscan/internal/persistence/postgres"
	"github.com/earnscan/earnscan/internal/scan"
)

const fundamentalsTTL = 6 * time.Hour

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Score the ticker universe and rank candidates",
		Long:  "Fetches earnings and price history for every universe ticker, scores the post-earnings pattern and fundamentals, and prints the ranked survivors.",
		RunE:  runScan,
	}

	cmd.Flags().String("universe", "", "Universe file (overrides config)")
	cmd.Flags().Int("top", 10, "Number of ranked candidates to print")
	cmd.Flags().Int("workers", 1, "Concurrent ticker fetches")
	cmd.Flags().String("as-of", "", "Analysis date (YYYY-MM-DD), defaults to today")
	cmd.Flags().Duration("timeout", 30*time.Minute, "Overall scan deadline")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	universePath, _ := cmd.Flags().GetString("universe")
	if universePath == "" {
		universePath = cfg.Providers.UniverseFile
	}
	universe, err := config.LoadUniverse(universePath)
	if err != nil {
		return err
	}

	asOf := time.Now().UTC()
	if arg, _ := cmd.Flags().GetString("as-of"); arg != "" {
		asOf, err = time.Parse("2006-01-02", arg)
		if err != nil {
			return fmt.Errorf("bad --as-of date: %w", err)
		}
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	registry := metrics.NewRegistry()
	provider, err := buildProvider(cfg, registry)
	if err != nil {
		return err
	}

	limiter := ratelimit.NewLimiter()
	limiter.SetBudget(scan.ProviderName, cfg.Providers.RateRPS, cfg.Providers.RateBurst)

	scanner := scan.NewScanner(cfg, provider, limiter, registry)
	scanner.Workers, _ = cmd.Flags().GetInt("workers")

	log.Info().Int("universe", len(universe)).Time("as_of", asOf).Msg("starting scan")

	result, err := scanner.ScanUniverse(ctx, universe, asOf)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if cfg.Providers.PostgresDSN != "" {
		if err := persistScan(ctx, cfg, result); err != nil {
			log.Warn().Err(err).Msg("failed to persist scan results")
		}
	}

	top, _ := cmd.Flags().GetInt("top")
	printRanked(result, top)

	equity := cfg.Backtest.InitialCapital
	account := gates.AccountState{Equity: equity, DailyStart: equity, Peak: equity}
	gate, ok, err := scanner.Preview(ctx, result, account)
	if err != nil {
		log.Warn().Err(err).Msg("risk gate preview failed")
		return nil
	}
	printGatePreview(gate, ok, equity)
	return nil
}

func printGatePreview(gate gates.Result, ok bool, equity float64) {
	if !ok {
		fmt.Println("\nNo candidate cleared the selection floors.")
		return
	}
	if !gate.Decision.Approved {
		fmt.Printf("\nRisk gate: %s REJECTED (%s)\n", gate.Ticker, gate.Decision.Reason)
		return
	}
	fmt.Printf("\nRisk gate: %s APPROVED\n", gate.Ticker)
	fmt.Printf("  Position: %.0f%% of equity ($%.2f)\n",
		gate.Decision.PositionFraction*100, gate.Decision.PositionFraction*equity)
	fmt.Printf("  Stop loss: %.1f%%  Take profit: %.1f%%\n",
		gate.Decision.StopLossPct*100, gate.Decision.TakeProfitPct*100)
}

// buildProvider assembles the market data stack: the HTTP client, wrapped
// in the redis fundamentals cache when an address is configured.
func buildProvider(cfg config.Config, registry *metrics.Registry) (data.Provider, error) {
	if cfg.Providers.APIKey == "" {
		return nil, fmt.Errorf("no API key configured (set EARNSCAN_API_KEY or providers.api_key)")
	}

	var provider data.Provider = data.NewFinnhubClient(cfg.Providers)
	if cfg.Providers.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Providers.RedisAddr})
		provider = data.WithFundamentalsCache(provider, client, fundamentalsTTL, registry)
		log.Info().Str("addr", cfg.Providers.RedisAddr).Msg("fundamentals cache enabled")
	}
	return provider, nil
}

func persistScan(ctx context.Context, cfg config.Config, result scan.Result) error {
	db, err := postgres.Connect(ctx, cfg.Providers.PostgresDSN, cfg.Providers.RequestTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := postgres.NewAnalysisRepo(db, cfg.Providers.RequestTimeout)
	records := make([]persistence.AnalysisRecord, 0, len(result.Ranked))
	for _, s := range result.Ranked {
		records = append(records, persistence.NewAnalysisRecord(s, result.AsOf))
	}
	return repo.UpsertBatch(ctx, records)
}

func printRanked(result scan.Result, top int) {
	ranked := result.Ranked
	if len(ranked) > top {
		ranked = ranked[:top]
	}

	fmt.Printf("Scan as of %s: %d scored, %d excluded, %d errors\n\n",
		result.AsOf.Format("2006-01-02"), result.Scored, result.Excluded, result.Errors)
	if len(ranked) == 0 {
		fmt.Println("No candidates survived the filters.")
		return
	}

	w := os.Stdout
	fmt.Fprintf(w, "%-6s %8s %8s %8s %9s %9s %9s\n",
		"TICKER", "FINAL", "PRICE", "FUND", "WIN_RATE", "AVG_GAIN", "BEAT_RATE")
	for _, s := range ranked {
		fmt.Fprintf(w, "%-6s %8.4f %8.4f %8.4f %8.1f%% %8.2f%% %8.1f%%\n",
			s.Ticker, s.FinalScore, s.PriceScore, s.FundamentalScore,
			s.Technical.WinRate*100, s.Technical.AvgGain*100,
			s.Fundamental.EPSBeatRate*100)
	}
}
