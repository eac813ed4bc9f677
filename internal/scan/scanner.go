// Package scan walks the ticker universe and produces ranked earnings
// candidates.
package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/data"
	"github.com/earnscan/earnscan/internal/domain"
	"github.com/earnscan/earnscan/internal/gates"
	"github.com/earnscan/earnscan/internal/metrics"
	"github.com/earnscan/earnscan/internal/net/ratelimit"
	"github.com/earnscan/earnscan/internal/score"
)

// ProviderName keys the outbound rate limiter bucket.
const ProviderName = "finnhub"

// Scanner scores every ticker in a universe and returns the survivors
// ranked best first. Failures on individual tickers are logged and
// skipped; only context cancellation aborts the scan.
type Scanner struct {
	cfg      config.AnalysisConfig
	provider data.Provider
	limiter  *ratelimit.Limiter
	analyzer *score.PatternAnalyzer
	scorer   *score.CompositeScorer
	selector *score.CandidateSelector
	gate     *gates.RiskGate
	registry *metrics.Registry

	// Workers bounds concurrent ticker fetches. Zero or one means
	// sequential.
	Workers int
}

func NewScanner(cfg config.Config, provider data.Provider, limiter *ratelimit.Limiter, registry *metrics.Registry) *Scanner {
	return &Scanner{
		cfg:      cfg.Analysis,
		provider: provider,
		limiter:  limiter,
		analyzer: score.NewPatternAnalyzer(cfg.Analysis),
		scorer:   score.NewCompositeScorer(cfg.Weights),
		selector: score.NewCandidateSelector(cfg.Analysis),
		gate:     gates.NewRiskGate(cfg.Risk),
		registry: registry,
	}
}

// Result summarizes one universe scan.
type Result struct {
	AsOf     time.Time               `json:"as_of"`
	Ranked   []domain.CompositeScore `json:"ranked"`
	Scored   int                     `json:"scored"`
	Excluded int                     `json:"excluded"`
	Errors   int                     `json:"errors"`
}

// ScanUniverse scores up to MaxStocksToAnalyze tickers as of the given
// day. Ranking is deterministic regardless of worker count.
func (s *Scanner) ScanUniverse(ctx context.Context, universe []string, asOf time.Time) (Result, error) {
	timer := s.registry.StartScanTimer()

	if len(universe) > s.cfg.MaxStocksToAnalyze {
		universe = universe[:s.cfg.MaxStocksToAnalyze]
	}

	scores := make([]*domain.CompositeScore, len(universe))
	var errCount, excluded int

	if s.Workers > 1 {
		err := s.scanParallel(ctx, universe, asOf, scores, &errCount, &excluded)
		if err != nil {
			return Result{}, err
		}
	} else {
		for i, ticker := range universe {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			sc, err := s.scanTicker(ctx, ticker, asOf)
			switch {
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return Result{}, err
			case err != nil:
				errCount++
				s.registry.TickersAnalyzed.WithLabelValues("error").Inc()
				log.Warn().Err(err).Str("ticker", ticker).Msg("skipping ticker")
			case sc == nil:
				excluded++
				s.registry.TickersAnalyzed.WithLabelValues("excluded").Inc()
			default:
				scores[i] = sc
				s.registry.TickersAnalyzed.WithLabelValues("scored").Inc()
			}
		}
	}

	collected := make([]domain.CompositeScore, 0, len(scores))
	for _, sc := range scores {
		if sc != nil {
			collected = append(collected, *sc)
		}
	}

	ranked := s.selector.Rank(score.FilterQuality(collected))
	timer.Stop(len(ranked))

	log.Info().
		Int("universe", len(universe)).
		Int("scored", len(collected)).
		Int("excluded", excluded).
		Int("errors", errCount).
		Int("ranked", len(ranked)).
		Msg("universe scan complete")

	return Result{
		AsOf:     asOf,
		Ranked:   ranked,
		Scored:   len(collected),
		Excluded: excluded,
		Errors:   errCount,
	}, nil
}

func (s *Scanner) scanParallel(ctx context.Context, universe []string, asOf time.Time, scores []*domain.CompositeScore, errCount, excluded *int) error {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, s.Workers)
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i, ticker := range universe {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, ticker string) {
			defer wg.Done()
			defer func() { <-sem }()

			sc, err := s.scanTicker(ctx, ticker, asOf)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				// The outer ctx.Err check reports the abort.
			case err != nil:
				*errCount++
				s.registry.TickersAnalyzed.WithLabelValues("error").Inc()
				log.Warn().Err(err).Str("ticker", ticker).Msg("skipping ticker")
			case sc == nil:
				*excluded++
				s.registry.TickersAnalyzed.WithLabelValues("excluded").Inc()
			default:
				scores[i] = sc
				s.registry.TickersAnalyzed.WithLabelValues("scored").Inc()
			}
		}(i, ticker)
	}
	wg.Wait()
	return ctx.Err()
}

// scanTicker fetches one ticker's data and scores it. A nil score with
// nil error means the ticker was excluded for insufficient history.
func (s *Scanner) scanTicker(ctx context.Context, ticker string, asOf time.Time) (*domain.CompositeScore, error) {
	if err := s.limiter.Wait(ctx, ProviderName); err != nil {
		return nil, err
	}
	events, err := s.provider.EarningsHistory(ctx, ticker)
	if err != nil {
		s.registry.ProviderErrors.WithLabelValues("earnings").Inc()
		return nil, err
	}

	from := asOf.AddDate(-s.cfg.HistoryYears, -1, 0)
	if err := s.limiter.Wait(ctx, ProviderName); err != nil {
		return nil, err
	}
	bars, err := s.provider.PriceHistory(ctx, ticker, from, asOf)
	if err != nil {
		s.registry.ProviderErrors.WithLabelValues("candles").Inc()
		return nil, err
	}

	technical, ok := s.analyzer.Analyze(ticker, bars, events, asOf)
	if !ok {
		return nil, nil
	}

	if err := s.limiter.Wait(ctx, ProviderName); err != nil {
		return nil, err
	}
	fundamentals, err := s.provider.Fundamentals(ctx, ticker)
	if err != nil {
		s.registry.ProviderErrors.WithLabelValues("fundamentals").Inc()
		return nil, err
	}

	composite := s.scorer.Score(ticker, technical, fundamentals)
	return &composite, nil
}

// Best applies the selection floors to a ranked scan result.
func (s *Scanner) Best(result Result) (domain.CompositeScore, bool) {
	return s.selector.Select(result.Ranked)
}

// Preview evaluates the risk gate for the top-ranked candidate against its
// current market quote. ok=false means no candidate cleared the selection
// floors; a quote fetch failure is an error since the gate cannot run
// without a live price.
func (s *Scanner) Preview(ctx context.Context, result Result, account gates.AccountState) (gates.Result, bool, error) {
	best, ok := s.Best(result)
	if !ok {
		return gates.Result{}, false, nil
	}

	if err := s.limiter.Wait(ctx, ProviderName); err != nil {
		return gates.Result{}, false, err
	}
	quote, err := s.provider.Quote(ctx, best.Ticker)
	if err != nil {
		s.registry.ProviderErrors.WithLabelValues("quote").Inc()
		return gates.Result{}, false, err
	}

	candidate := gates.Candidate{
		Ticker:      best.Ticker,
		Price:       quote.Price,
		DailyVolume: quote.DailyVolume,
	}
	return s.gate.Evaluate(candidate, account, best.Technical), true, nil
}
