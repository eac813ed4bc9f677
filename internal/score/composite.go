package score

import (
	"github.com/rs/zerolog/log"

	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/domain"
)

// MinEPSBeatRate is the hard fundamentals filter: tickers beating estimates
// in fewer than 30% of trailing quarters are excluded from the candidate
// set regardless of final score.
const MinEPSBeatRate = 0.30

// CompositeScorer blends the technical and fundamental scores and applies
// the hard fundamentals filter.
type CompositeScorer struct {
	weights     config.WeightsConfig
	fundamental *FundamentalScorer
}

// NewCompositeScorer creates a composite scorer from the validated weight
// configuration.
func NewCompositeScorer(weights config.WeightsConfig) *CompositeScorer {
	return &CompositeScorer{
		weights:     weights,
		fundamental: NewFundamentalScorer(weights),
	}
}

// Score builds the full per-ticker score record.
func (cs *CompositeScorer) Score(ticker string, technical domain.TechnicalMetrics, fundamentals domain.Fundamentals) domain.CompositeScore {
	fm := cs.fundamental.Metrics(fundamentals)
	priceScore := PriceScore(technical)
	fundScore := cs.fundamental.Score(fm)

	return domain.CompositeScore{
		Ticker:           ticker,
		PriceScore:       priceScore,
		FundamentalScore: fundScore,
		FinalScore:       cs.weights.Price*priceScore + cs.weights.Fundamental*fundScore,
		Technical:        technical,
		Fundamental:      fm,
	}
}

// Recompute rebuilds the final score from the stored component scores; the
// result is identical to the stored final score for any record this scorer
// produced.
func (cs *CompositeScorer) Recompute(s domain.CompositeScore) float64 {
	return cs.weights.Price*s.PriceScore + cs.weights.Fundamental*s.FundamentalScore
}

// FilterQuality removes tickers failing the hard EPS-beat-rate filter. The
// filter runs before ranking so it never influences the relative ordering
// of survivors.
func FilterQuality(scores []domain.CompositeScore) []domain.CompositeScore {
	filtered := make([]domain.CompositeScore, 0, len(scores))
	for _, s := range scores {
		if s.Fundamental.EPSBeatRate < MinEPSBeatRate {
			log.Debug().Str("ticker", s.Ticker).
				Float64("eps_beat_rate", s.Fundamental.EPSBeatRate).
				Msg("filtered out by EPS beat rate")
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}
