package score

import (
	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/domain"
)

// Neutral defaults applied when a fundamental input is unavailable. Missing
// data is a first-class state: the resolved metric records which inputs
// were defaulted so callers can distinguish "neutral" from "unknown".
const (
	neutralRate     = 0.5
	neutralSurprise = 0.0
)

// Analyst recommendation weights: strong buy 1.0 down to strong sell 0.0.
var recommendationWeights = [5]float64{1.0, 0.75, 0.5, 0.25, 0.0}

// maxEPSQuarters caps the trailing EPS history considered for the beat rate
// and surprise average.
const maxEPSQuarters = 8

// FundamentalScorer computes the fundamentals score from EPS history,
// revenue trend and analyst sentiment. Partial data always yields a usable
// score; no missing input is ever fatal.
type FundamentalScorer struct {
	weights config.WeightsConfig
}

// NewFundamentalScorer creates a scorer with the given (validated) weight
// configuration.
func NewFundamentalScorer(weights config.WeightsConfig) *FundamentalScorer {
	return &FundamentalScorer{weights: weights}
}

// Metrics resolves the raw fundamentals record into FundamentalMetrics,
// defaulting each unavailable input independently to its neutral midpoint.
func (fs *FundamentalScorer) Metrics(f domain.Fundamentals) domain.FundamentalMetrics {
	m := domain.FundamentalMetrics{
		EPSBeatRate:        neutralRate,
		EPSSurpriseAvg:     neutralSurprise,
		RevenueGrowthTrend: neutralSurprise,
		AnalystRating:      neutralRate,
	}

	quarters := f.Earnings
	if len(quarters) > maxEPSQuarters {
		quarters = quarters[:maxEPSQuarters]
	}

	beats := 0
	usable := 0
	var surpriseSum float64
	for _, q := range quarters {
		if !q.HasBothEPS() {
			continue
		}
		usable++
		actual, estimate := *q.ActualEPS, *q.EstimatedEPS
		if actual >= estimate {
			beats++
		}
		surpriseSum += (actual - estimate) / abs(estimate)
	}

	if usable > 0 {
		m.EPSBeatRate = float64(beats) / float64(usable)
		m.EPSSurpriseAvg = surpriseSum / float64(usable)
	} else {
		m.Defaulted = append(m.Defaulted, domain.InputEPSHistory, domain.InputEPSSurprise)
	}

	if growth, ok := latestRevenueGrowth(f.RevenuePerShare); ok {
		m.RevenueGrowthTrend = growth
	} else {
		m.Defaulted = append(m.Defaulted, domain.InputRevenueTrend)
	}

	if rating, ok := analystRating(f.Recommendations); ok {
		m.AnalystRating = rating
	} else {
		m.Defaulted = append(m.Defaulted, domain.InputAnalystRating)
	}

	return m
}

// Score blends the resolved metrics into the fundamentals score. Surprise
// and revenue trend are normalized onto [0,1] before weighting, so the
// score itself is bounded to [0,1].
func (fs *FundamentalScorer) Score(m domain.FundamentalMetrics) float64 {
	w := fs.weights
	return w.EPSBeatRate*m.EPSBeatRate +
		w.EPSSurprise*NormalizeSurprise(m.EPSSurpriseAvg) +
		w.AnalystRating*m.AnalystRating +
		w.RevenueGrowth*NormalizeRevenueGrowth(m.RevenueGrowthTrend)
}

// latestRevenueGrowth computes the most recent quarter-over-quarter revenue
// growth. The series is expected most-recent-first; fewer than two points
// or a zero prior quarter yields no trend.
func latestRevenueGrowth(series []domain.RevenuePoint) (float64, bool) {
	if len(series) < 2 {
		return 0, false
	}
	latest, prior := series[0].Value, series[1].Value
	if prior == 0 {
		return 0, false
	}
	return (latest - prior) / abs(prior), true
}

// analystRating converts the recommendation breakdown into a [0,1] score.
func analystRating(r *domain.RecommendationCounts) (float64, bool) {
	if r == nil || r.Total() == 0 {
		return 0, false
	}
	counts := [5]int{r.StrongBuy, r.Buy, r.Hold, r.Sell, r.StrongSell}
	var weighted float64
	for i, c := range counts {
		weighted += float64(c) * recommendationWeights[i]
	}
	return weighted / float64(r.Total()), true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
