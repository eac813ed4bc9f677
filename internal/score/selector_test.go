package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscan/earnscan/internal/domain"
)

func candidate(ticker string, final, avgGain, beatRate float64) domain.CompositeScore {
	return domain.CompositeScore{
		Ticker:      ticker,
		FinalScore:  final,
		Technical:   domain.TechnicalMetrics{AvgGain: avgGain, SampleSize: 6},
		Fundamental: domain.FundamentalMetrics{EPSBeatRate: beatRate},
	}
}

func TestRank_DescendingWithDeterministicTieBreak(t *testing.T) {
	sel := NewCandidateSelector(testAnalysisConfig())

	scores := []domain.CompositeScore{
		candidate("BBB", 0.05, 0.08, 0.9),
		candidate("AAA", 0.05, 0.08, 0.9), // full tie: ticker decides
		candidate("CCC", 0.05, 0.12, 0.9), // score tie: higher avg gain wins
		candidate("DDD", 0.09, 0.02, 0.9),
	}

	ranked := sel.Rank(scores)
	got := make([]string, len(ranked))
	for i, s := range ranked {
		got[i] = s.Ticker
	}
	assert.Equal(t, []string{"DDD", "CCC", "AAA", "BBB"}, got)

	// Ranking is order-independent: a shuffled input ranks identically.
	shuffled := []domain.CompositeScore{scores[3], scores[2], scores[0], scores[1]}
	reranked := sel.Rank(shuffled)
	for i := range ranked {
		assert.Equal(t, ranked[i].Ticker, reranked[i].Ticker)
	}
}

func TestSelect_AppliesFloors(t *testing.T) {
	cfg := testAnalysisConfig()
	cfg.MinScoreThreshold = 0.04
	cfg.MinAvgGainPercent = 3.0
	sel := NewCandidateSelector(cfg)

	t.Run("picks top survivor", func(t *testing.T) {
		best, ok := sel.Select([]domain.CompositeScore{
			candidate("ACME", 0.06, 0.05, 0.8),
			candidate("ZZZZ", 0.05, 0.05, 0.8),
		})
		require.True(t, ok)
		assert.Equal(t, "ACME", best.Ticker)
	})

	t.Run("score floor drops the day", func(t *testing.T) {
		_, ok := sel.Select([]domain.CompositeScore{candidate("LOW", 0.01, 0.05, 0.8)})
		assert.False(t, ok)
	})

	t.Run("gain floor drops the day", func(t *testing.T) {
		_, ok := sel.Select([]domain.CompositeScore{candidate("THIN", 0.08, 0.02, 0.8)})
		assert.False(t, ok)
	})

	t.Run("quality filter runs before ranking", func(t *testing.T) {
		// The weak ticker outranks everyone but is filtered first, so the
		// lower-scored survivor is selected.
		best, ok := sel.Select([]domain.CompositeScore{
			candidate("WEAK", 0.50, 0.10, 0.10),
			candidate("OKAY", 0.06, 0.05, 0.80),
		})
		require.True(t, ok)
		assert.Equal(t, "OKAY", best.Ticker)
	})

	t.Run("empty input", func(t *testing.T) {
		_, ok := sel.Select(nil)
		assert.False(t, ok)
	})
}
