// Package backtest replays the earnings calendar day by day, scoring each
// session's reporters and simulating the trades the pipeline would have
// taken.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/data"
	"github.com/earnscan/earnscan/internal/domain"
	"github.com/earnscan/earnscan/internal/gates"
	"github.com/earnscan/earnscan/internal/metrics"
	"github.com/earnscan/earnscan/internal/report"
	"github.com/earnscan/earnscan/internal/score"
	"github.com/earnscan/earnscan/internal/sim"
)

// forwardMargin is how far past a replay day the simulator may look for
// exit bars. Generous against weekends and market holidays.
const forwardMargin = 45 * 24 * time.Hour

// Runner executes the historical replay.
type Runner struct {
	cfg      Config
	app      config.Config
	provider data.Provider
	analyzer *score.PatternAnalyzer
	scorer   *score.CompositeScorer
	selector *score.CandidateSelector
	gate     *gates.RiskGate
	sim      *sim.Simulator
	registry *metrics.Registry
	writer   *Writer
}

func NewRunner(cfg Config, app config.Config, provider data.Provider, registry *metrics.Registry) *Runner {
	return &Runner{
		cfg:      cfg,
		app:      app,
		provider: provider,
		analyzer: score.NewPatternAnalyzer(app.Analysis),
		scorer:   score.NewCompositeScorer(app.Weights),
		selector: score.NewCandidateSelector(app.Analysis),
		gate:     gates.NewRiskGate(app.Risk),
		sim:      sim.NewSimulator(cfg.HoldDays),
		registry: registry,
		writer:   NewWriter(cfg.OutputDir),
	}
}

// Run replays every calendar day in [Start, End]. Each day's reporters are
// scored as of that day, the best surviving candidate passes through the
// risk gate, and approved entries are simulated forward. Equity compounds
// trade by trade.
func (r *Runner) Run(ctx context.Context) (*Results, error) {
	if !r.cfg.Start.Before(r.cfg.End) {
		return nil, fmt.Errorf("backtest start %s must precede end %s",
			r.cfg.Start.Format("2006-01-02"), r.cfg.End.Format("2006-01-02"))
	}

	results := &Results{
		Start:          r.cfg.Start,
		End:            r.cfg.End,
		InitialCapital: r.cfg.InitialCapital,
	}

	equity := r.cfg.InitialCapital
	peak := equity

	for day := r.cfg.Start; !day.After(r.cfg.End); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reporters, err := r.provider.EarningsCalendar(ctx, day)
		if err != nil {
			log.Warn().Err(err).Time("day", day).Msg("calendar lookup failed, skipping day")
			continue
		}
		if len(reporters) == 0 {
			continue
		}

		dailyStart := equity
		dayResult := DayResult{Day: day, Reporters: reporters}

		best, ok := r.selectCandidate(ctx, reporters, day)
		if !ok {
			dayResult.Equity = equity
			results.Days = append(results.Days, dayResult)
			continue
		}
		dayResult.Candidate = &best

		entryBar, ok := r.entryBar(ctx, best.Ticker, day)
		if !ok {
			dayResult.Equity = equity
			results.Days = append(results.Days, dayResult)
			continue
		}

		gateResult := r.gate.Evaluate(
			gates.Candidate{Ticker: best.Ticker, Price: entryBar.Close, DailyVolume: entryBar.Volume},
			gates.AccountState{Equity: equity, DailyStart: dailyStart, Peak: peak},
			best.Technical,
		)
		decision := gateResult.Decision
		dayResult.Decision = &decision

		if !decision.Approved {
			results.Rejected++
			dayResult.Equity = equity
			results.Days = append(results.Days, dayResult)
			log.Debug().Str("ticker", best.Ticker).Str("reason", decision.Reason).Msg("candidate rejected")
			continue
		}

		trade, err := r.simulate(ctx, best, decision, entryBar, equity)
		if err != nil {
			log.Warn().Err(err).Str("ticker", best.Ticker).Msg("simulation failed, skipping entry")
			dayResult.Equity = equity
			results.Days = append(results.Days, dayResult)
			continue
		}

		equity += trade.PnL
		if equity > peak {
			peak = equity
		}
		if r.registry != nil {
			r.registry.TradesSimulated.WithLabelValues(string(trade.ExitReason)).Inc()
		}

		dayResult.Trade = &trade
		dayResult.Equity = equity
		results.Days = append(results.Days, dayResult)
		results.Trades = append(results.Trades, trade)
	}

	results.FinalEquity = equity

	aggregator := report.NewAggregator(r.cfg.InitialCapital)
	results.Summary = aggregator.Summarize(results.Trades)
	results.EquityCurve = aggregator.EquityCurve(results.Trades)

	if err := r.writer.Write(results); err != nil {
		return nil, err
	}

	log.Info().
		Int("trades", len(results.Trades)).
		Int("rejected", results.Rejected).
		Float64("final_equity", equity).
		Msg("backtest complete")

	return results, nil
}

// selectCandidate scores the day's reporters and applies the quality
// filter, ranking and selection floors. Per-ticker failures are skipped.
func (r *Runner) selectCandidate(ctx context.Context, reporters []string, day time.Time) (domain.CompositeScore, bool) {
	var scores []domain.CompositeScore
	for _, ticker := range reporters {
		sc, err := r.scoreTicker(ctx, ticker, day)
		if err != nil {
			log.Debug().Err(err).Str("ticker", ticker).Msg("skipping reporter")
			continue
		}
		if sc != nil {
			scores = append(scores, *sc)
		}
	}
	return r.selector.Select(scores)
}

func (r *Runner) scoreTicker(ctx context.Context, ticker string, day time.Time) (*domain.CompositeScore, error) {
	events, err := r.provider.EarningsHistory(ctx, ticker)
	if err != nil {
		return nil, err
	}

	from := day.AddDate(-r.app.Analysis.HistoryYears, -1, 0)
	bars, err := r.provider.PriceHistory(ctx, ticker, from, day)
	if err != nil {
		return nil, err
	}

	technical, ok := r.analyzer.Analyze(ticker, bars, events, day)
	if !ok {
		return nil, nil
	}

	fundamentals, err := r.provider.Fundamentals(ctx, ticker)
	if err != nil {
		return nil, err
	}

	composite := r.scorer.Score(ticker, technical, fundamentals)
	return &composite, nil
}

// entryBar is the last session at or before the replay day.
func (r *Runner) entryBar(ctx context.Context, ticker string, day time.Time) (domain.PriceBar, bool) {
	bars, err := r.provider.PriceHistory(ctx, ticker, day.AddDate(0, 0, -14), day)
	if err != nil || len(bars) == 0 {
		return domain.PriceBar{}, false
	}
	return bars[len(bars)-1], true
}

func (r *Runner) simulate(ctx context.Context, best domain.CompositeScore, decision domain.RiskDecision, entryBar domain.PriceBar, equity float64) (domain.SimulatedTrade, error) {
	position := sim.NewPosition(best.Ticker, entryBar.Date, entryBar.Close)
	if err := position.Open(decision, equity); err != nil {
		return domain.SimulatedTrade{}, err
	}

	forward, err := r.provider.PriceHistory(ctx, best.Ticker, entryBar.Date, entryBar.Date.Add(forwardMargin))
	if err != nil {
		return domain.SimulatedTrade{}, err
	}
	return r.sim.Run(position, forward)
}
