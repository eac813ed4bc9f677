package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/earnscan/earnscan/internal/backtest"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a backtest results file",
		Long:  "Reads a results.json produced by the backtest command and prints the performance summary, equity curve and per-ticker breakdown.",
		RunE:  runReport,
	}

	cmd.Flags().String("input", "", "Path to results.json (required)")
	cmd.Flags().Bool("curve", false, "Print the full equity curve")
	cmd.MarkFlagRequired("input")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")

	payload, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}
	var results backtest.Results
	if err := json.Unmarshal(payload, &results); err != nil {
		return fmt.Errorf("failed to parse results: %w", err)
	}

	printSummary(&results)

	if len(results.Summary.ByTicker) > 0 {
		tickers := make([]string, 0, len(results.Summary.ByTicker))
		for ticker := range results.Summary.ByTicker {
			tickers = append(tickers, ticker)
		}
		sort.Strings(tickers)

		fmt.Printf("\n%-6s %7s %7s %9s %10s\n", "TICKER", "TRADES", "WINS", "WIN_RATE", "MEAN_PNL")
		for _, ticker := range tickers {
			stats := results.Summary.ByTicker[ticker]
			fmt.Printf("%-6s %7d %7d %8.1f%% %10.2f\n",
				ticker, stats.Trades, stats.Wins, stats.WinRate*100, stats.MeanPnL)
		}
	}

	if curve, _ := cmd.Flags().GetBool("curve"); curve {
		fmt.Println()
		for _, p := range results.EquityCurve {
			fmt.Printf("%s  %.2f\n", p.Date.Format("2006-01-02"), p.Equity)
		}
	}

	if best := results.Summary.BestTrade; best != nil {
		fmt.Printf("\nBest:  %s %+.2f%% (%s)\n", best.Ticker, best.PnLPct*100, best.ExitReason)
	}
	if worst := results.Summary.WorstTrade; worst != nil {
		fmt.Printf("Worst: %s %+.2f%% (%s)\n", worst.Ticker, worst.PnLPct*100, worst.ExitReason)
	}
	return nil
}
