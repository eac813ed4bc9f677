package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/earnscan/earnscan/internal/backtest"
	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/data"
	"github.com/earnscan/earnscan/internal/metrics"
	"github.com/earnscan/earnscan/internal/persistence"
	"github.com/earnscan/earnscan/internal/persistence/postgres"
)

func newBacktestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the earnings calendar against historical fixtures",
		Long:  "Walks day by day through the period, scores each session's reporters, gates and simulates the best candidate, and writes results.json plus trades.csv.",
		RunE:  runBacktest,
	}

	cmd.Flags().String("data-dir", "./testdata/fixtures", "Fixture directory (bars/ and earnings.csv)")
	cmd.Flags().String("start", "", "Replay start (YYYY-MM-DD, overrides config)")
	cmd.Flags().String("end", "", "Replay end (YYYY-MM-DD, overrides config)")
	cmd.Flags().Float64("capital", 0, "Initial capital (overrides config)")
	cmd.Flags().String("output", "", "Output directory (overrides config)")
	cmd.Flags().Int("hold-days", 5, "Maximum holding window in trading days")
	return cmd
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	runCfg := backtest.DefaultConfig()
	runCfg.InitialCapital = cfg.Backtest.InitialCapital
	runCfg.OutputDir = cfg.Backtest.OutputDir
	if cfg.Backtest.Start != "" {
		if runCfg.Start, err = time.Parse("2006-01-02", cfg.Backtest.Start); err != nil {
			return fmt.Errorf("bad backtest.start: %w", err)
		}
	}
	if cfg.Backtest.End != "" {
		if runCfg.End, err = time.Parse("2006-01-02", cfg.Backtest.End); err != nil {
			return fmt.Errorf("bad backtest.end: %w", err)
		}
	}

	if arg, _ := cmd.Flags().GetString("start"); arg != "" {
		if runCfg.Start, err = time.Parse("2006-01-02", arg); err != nil {
			return fmt.Errorf("bad --start date: %w", err)
		}
	}
	if arg, _ := cmd.Flags().GetString("end"); arg != "" {
		if runCfg.End, err = time.Parse("2006-01-02", arg); err != nil {
			return fmt.Errorf("bad --end date: %w", err)
		}
	}
	if capital, _ := cmd.Flags().GetFloat64("capital"); capital > 0 {
		runCfg.InitialCapital = capital
	}
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		runCfg.OutputDir = out
	}
	runCfg.HoldDays, _ = cmd.Flags().GetInt("hold-days")

	dataDir, _ := cmd.Flags().GetString("data-dir")
	store, err := data.NewCSVStore(dataDir)
	if err != nil {
		return err
	}

	registry := metrics.NewRegistry()
	runner := backtest.NewRunner(runCfg, cfg, store, registry)

	log.Info().
		Str("start", runCfg.Start.Format("2006-01-02")).
		Str("end", runCfg.End.Format("2006-01-02")).
		Float64("capital", runCfg.InitialCapital).
		Msg("starting backtest")

	results, err := runner.Run(context.Background())
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	if cfg.Providers.PostgresDSN != "" {
		if err := persistTrades(context.Background(), cfg, results); err != nil {
			log.Warn().Err(err).Msg("failed to persist trades")
		}
	}

	printSummary(results)
	return nil
}

func persistTrades(ctx context.Context, cfg config.Config, results *backtest.Results) error {
	db, err := postgres.Connect(ctx, cfg.Providers.PostgresDSN, cfg.Providers.RequestTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := postgres.NewTradesRepo(db, cfg.Providers.RequestTimeout)
	records := make([]persistence.TradeRecord, 0, len(results.Trades))
	for _, t := range results.Trades {
		records = append(records, persistence.NewTradeRecord(t))
	}
	return repo.InsertBatch(ctx, records)
}

func printSummary(results *backtest.Results) {
	s := results.Summary
	fmt.Printf("\nBacktest %s to %s\n",
		results.Start.Format("2006-01-02"), results.End.Format("2006-01-02"))
	fmt.Printf("  Trades:        %d (%d rejected by risk gate)\n", s.TotalTrades, results.Rejected)
	fmt.Printf("  Win rate:      %.1f%%\n", s.WinRate*100)
	if s.ProfitFactorDefined {
		fmt.Printf("  Profit factor: %.2f\n", s.ProfitFactor)
	} else {
		fmt.Printf("  Profit factor: n/a (no losing trades)\n")
	}
	fmt.Printf("  Max drawdown:  %.1f%%\n", s.MaxDrawdown*100)
	fmt.Printf("  Equity:        %.2f -> %.2f\n", results.InitialCapital, results.FinalEquity)
}
