package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_results (
	id              BIGSERIAL PRIMARY KEY,
	ticker          TEXT NOT NULL,
	analysis_date   DATE NOT NULL,
	price_score     DOUBLE PRECISION NOT NULL,
	fundamental_score DOUBLE PRECISION NOT NULL,
	final_score     DOUBLE PRECISION NOT NULL,
	win_rate        DOUBLE PRECISION NOT NULL,
	avg_gain        DOUBLE PRECISION NOT NULL,
	avg_drawdown    DOUBLE PRECISION NOT NULL,
	sample_size     INTEGER NOT NULL,
	eps_beat_rate   DOUBLE PRECISION NOT NULL,
	eps_surprise_avg DOUBLE PRECISION NOT NULL,
	revenue_growth  DOUBLE PRECISION NOT NULL,
	analyst_rating  DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (ticker, analysis_date)
);

CREATE INDEX IF NOT EXISTS idx_analysis_date_score
	ON analysis_results (analysis_date, final_score DESC);

CREATE TABLE IF NOT EXISTS trades (
	id               UUID PRIMARY KEY,
	ticker           TEXT NOT NULL,
	entry_date       DATE NOT NULL,
	entry_price      DOUBLE PRECISION NOT NULL,
	exit_date        DATE NOT NULL,
	exit_price       DOUBLE PRECISION NOT NULL,
	exit_reason      TEXT NOT NULL,
	pnl              DOUBLE PRECISION NOT NULL,
	pnl_pct          DOUBLE PRECISION NOT NULL,
	position_fraction DOUBLE PRECISION NOT NULL,
	position_size    DOUBLE PRECISION NOT NULL,
	stop_loss_price  DOUBLE PRECISION NOT NULL,
	take_profit_price DOUBLE PRECISION NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_trades_ticker_entry
	ON trades (ticker, entry_date DESC);
`

// Connect opens the pool and ensures the schema exists.
func Connect(ctx context.Context, dsn string, timeout time.Duration) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}
