package score

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/earnscan/earnscan/internal/config"
	"github.com/earnscan/earnscan/internal/domain"
)

// CandidateSelector ranks filtered, scored tickers and picks the day's
// trade target.
type CandidateSelector struct {
	cfg config.AnalysisConfig
}

// NewCandidateSelector creates a selector with the configured score and
// gain floors.
func NewCandidateSelector(cfg config.AnalysisConfig) *CandidateSelector {
	return &CandidateSelector{cfg: cfg}
}

// Rank sorts candidates descending by final score. Ties break to the higher
// average gain, then to the lexicographically smaller ticker, so the
// ordering is deterministic regardless of input or completion order.
func (sel *CandidateSelector) Rank(scores []domain.CompositeScore) []domain.CompositeScore {
	ranked := make([]domain.CompositeScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		if ranked[i].Technical.AvgGain != ranked[j].Technical.AvgGain {
			return ranked[i].Technical.AvgGain > ranked[j].Technical.AvgGain
		}
		return ranked[i].Ticker < ranked[j].Ticker
	})
	return ranked
}

// Select applies the quality filter and the configured floors, then returns
// the single top-ranked survivor. ok=false when no candidate clears every
// bar.
func (sel *CandidateSelector) Select(scores []domain.CompositeScore) (domain.CompositeScore, bool) {
	ranked := sel.Rank(FilterQuality(scores))
	if len(ranked) == 0 {
		return domain.CompositeScore{}, false
	}

	best := ranked[0]
	if best.FinalScore < sel.cfg.MinScoreThreshold {
		log.Info().Str("ticker", best.Ticker).
			Float64("score", best.FinalScore).
			Float64("threshold", sel.cfg.MinScoreThreshold).
			Msg("best candidate below score threshold")
		return domain.CompositeScore{}, false
	}
	if best.Technical.AvgGain < sel.cfg.MinAvgGainPercent/100 {
		log.Info().Str("ticker", best.Ticker).
			Float64("avg_gain", best.Technical.AvgGain).
			Float64("threshold_pct", sel.cfg.MinAvgGainPercent).
			Msg("best candidate below average gain threshold")
		return domain.CompositeScore{}, false
	}

	return best, true
}
