package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/earnscan/earnscan/internal/persistence"
)

type tradesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTradesRepo creates the PostgreSQL simulated trades repository.
func NewTradesRepo(db *sqlx.DB, timeout time.Duration) persistence.TradesRepo {
	return &tradesRepo{db: db, timeout: timeout}
}

const insertTrade = `
	INSERT INTO trades (
		id, ticker, entry_date, entry_price, exit_date, exit_price,
		exit_reason, pnl, pnl_pct, position_fraction, position_size,
		stop_loss_price, take_profit_price
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func (r *tradesRepo) Insert(ctx context.Context, record persistence.TradeRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, insertTrade,
		record.ID, record.Ticker,
		record.EntryDate, record.EntryPrice, record.ExitDate, record.ExitPrice,
		record.ExitReason, record.PnL, record.PnLPct,
		record.PositionFraction, record.PositionSize,
		record.StopLossPrice, record.TakeProfitPrice)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate trade %s: %w", record.ID, err)
		}
		return fmt.Errorf("failed to insert trade %s: %w", record.ID, err)
	}
	return nil
}

func (r *tradesRepo) InsertBatch(ctx context.Context, records []persistence.TradeRecord) error {
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

	stmt, err := tx.PrepareContext(ctx, insertTrade)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		_, err := stmt.ExecContext(ctx,
			record.ID, record.Ticker,
			record.EntryDate, record.EntryPrice, record.ExitDate, record.ExitPrice,
			record.ExitReason, record.PnL, record.PnLPct,
			record.PositionFraction, record.PositionSize,
			record.StopLossPrice, record.TakeProfitPrice)
		if err != nil {
			return fmt.Errorf("failed to insert trade %s in batch: %w", record.ID, err)
		}
	}
	return tx.Commit()
}

func (r *tradesRepo) ListByTicker(ctx context.Context, ticker string, tr persistence.TimeRange, limit int) ([]persistence.TradeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT * FROM trades
		WHERE ticker = $1 AND entry_date >= $2 AND entry_date <= $3
		ORDER BY entry_date DESC
		LIMIT $4`

	var records []persistence.TradeRecord
	if err := r.db.SelectContext(ctx, &records, query, ticker, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("failed to list trades for %s: %w", ticker, err)
	}
	return records, nil
}

func (r *tradesRepo) ListRange(ctx context.Context, tr persistence.TimeRange) ([]persistence.TradeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT * FROM trades
		WHERE entry_date >= $1 AND entry_date <= $2
		ORDER BY entry_date ASC, ticker ASC`

	var records []persistence.TradeRecord
	if err := r.db.SelectContext(ctx, &records, query, tr.From, tr.To); err != nil {
		return nil, fmt.Errorf("failed to list trades in range: %w", err)
	}
	return records, nil
}
