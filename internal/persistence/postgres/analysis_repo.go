package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/earnscan/earnscan/internal/persistence"
)

type analysisRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAnalysisRepo creates the PostgreSQL analysis results repository.
func NewAnalysisRepo(db *sqlx.DB, timeout time.Duration) persistence.AnalysisRepo {
	return &analysisRepo{db: db, timeout: timeout}
}

const upsertAnalysis = `
	INSERT INTO analysis_results (
		ticker, analysis_date, price_score, fundamental_score, final_score,
		win_rate, avg_gain, avg_drawdown, sample_size,
		eps_beat_rate, eps_surprise_avg, revenue_growth, analyst_rating
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (ticker, analysis_date) DO UPDATE SET
		price_score = EXCLUDED.price_score,
		fundamental_score = EXCLUDED.fundamental_score,
		final_score = EXCLUDED.final_score,
		win_rate = EXCLUDED.win_rate,
		avg_gain = EXCLUDED.avg_gain,
		avg_drawdown = EXCLUDED.avg_drawdown,
		sample_size = EXCLUDED.sample_size,
		eps_beat_rate = EXCLUDED.eps_beat_rate,
		eps_surprise_avg = EXCLUDED.eps_surprise_avg,
		revenue_growth = EXCLUDED.revenue_growth,
		analyst_rating = EXCLUDED.analyst_rating`

func (r *analysisRepo) Upsert(ctx context.Context, record persistence.AnalysisRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, upsertAnalysis,
		record.Ticker, record.AnalysisDate,
		record.PriceScore, record.FundamentalScore, record.FinalScore,
		record.WinRate, record.AvgGain, record.AvgDrawdown, record.SampleSize,
		record.EPSBeatRate, record.EPSSurpriseAvg, record.RevenueGrowth, record.AnalystRating)
	if err != nil {
		return fmt.Errorf("failed to upsert analysis for %s: %w", record.Ticker, err)
	}
	return nil
}

func (r *analysisRepo) UpsertBatch(ctx context.Context, records []persistence.AnalysisRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertAnalysis)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		_, err := stmt.ExecContext(ctx,
			record.Ticker, record.AnalysisDate,
			record.PriceScore, record.FundamentalScore, record.FinalScore,
			record.WinRate, record.AvgGain, record.AvgDrawdown, record.SampleSize,
			record.EPSBeatRate, record.EPSSurpriseAvg, record.RevenueGrowth, record.AnalystRating)
		if err != nil {
			return fmt.Errorf("failed to upsert analysis for %s in batch: %w", record.Ticker, err)
		}
	}
	return tx.Commit()
}

func (r *analysisRepo) ListByTicker(ctx context.Context, ticker string, tr persistence.TimeRange, limit int) ([]persistence.AnalysisRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT * FROM analysis_results
		WHERE ticker = $1 AND analysis_date >= $2 AND analysis_date <= $3
		ORDER BY analysis_date DESC
		LIMIT $4`

	var records []persistence.AnalysisRecord
	if err := r.db.SelectContext(ctx, &records, query, ticker, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("failed to list analysis for %s: %w", ticker, err)
	}
	return records, nil
}

func (r *analysisRepo) TopByDate(ctx context.Context, day time.Time, limit int) ([]persistence.AnalysisRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT * FROM analysis_results
		WHERE analysis_date = $1
		ORDER BY final_score DESC, avg_gain DESC, ticker ASC
		LIMIT $2`

	var records []persistence.AnalysisRecord
	if err := r.db.SelectContext(ctx, &records, query, day, limit); err != nil {
		return nil, fmt.Errorf("failed to list top analysis for %s: %w", day.Format("2006-01-02"), err)
	}
	return records, nil
}
