package postgres

import (
	"context"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"
)

type Repo struct {
	pool *pgxpool.Pool
}

// New 连接 Postgres 并建表；NUMERIC 列直接映射 decimal.Decimal
func New(ctx context.Context, dsn string) (*Repo, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	config.MaxConns = 10
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	r := &Repo{pool: pool}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS position_snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts TIMESTAMPTZ NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  qty NUMERIC NOT NULL,
  entry NUMERIC NOT NULL,
  price NUMERIC NOT NULL,
  day_pnl NUMERIC NOT NULL,
  pnl NUMERIC NOT NULL,
  overnight BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_position_snapshots_ts ON position_snapshots(ts);

CREATE TABLE IF NOT EXISTS order_snapshots (
  id BIGSERIAL PRIMARY KEY,
  ts TIMESTAMPTZ NOT NULL,
  order_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  order_type TEXT NOT NULL,
  qty NUMERIC NOT NULL,
  status TEXT NOT NULL,
  limit_price NUMERIC,
  stop_price NUMERIC
);
CREATE INDEX IF NOT EXISTS idx_order_snapshots_ts ON order_snapshots(ts);

CREATE TABLE IF NOT EXISTS cancellations (
  id UUID PRIMARY KEY,
  symbol TEXT NOT NULL,
  order_type TEXT NOT NULL,
  order_id TEXT NOT NULL,
  outcome TEXT NOT NULL,
  reason TEXT NOT NULL,
  ts_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cancellations_symbol ON cancellations(symbol, ts_ms DESC);
`)
	return err
}

func (r *Repo) SavePositions(ctx context.Context, ts time.Time, positions []model.Position) error {
	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(`
			INSERT INTO position_snapshots(ts, symbol, side, qty, entry, price, day_pnl, pnl, overnight)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, ts, p.Symbol, p.Side, p.Qty, p.Entry, p.Price, p.DayPnL, p.PnL, p.Overnight)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *Repo) SaveActiveOrders(ctx context.Context, ts time.Time, orders []model.ActiveOrder) error {
	batch := &pgx.Batch{}
	for _, o := range orders {
		batch.Queue(`
			INSERT INTO order_snapshots(ts, order_id, symbol, side, order_type, qty, status, limit_price, stop_price)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, ts, o.OrderID, o.Symbol, o.SideText, o.TypeText, o.Qty, o.Status, o.Limit, o.Stop)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *Repo) SaveCancellation(ctx context.Context, rec model.CancelRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cancellations(id, symbol, order_type, order_id, outcome, reason, ts_ms)
		VALUES($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.Symbol, rec.OrderType, rec.OrderID, rec.Outcome, rec.Reason, rec.Ts)
	return err
}

func (r *Repo) ListCancellations(ctx context.Context, symbol string, limit int) ([]model.CancelRecord, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, symbol, order_type, order_id, outcome, reason, ts_ms
		FROM cancellations
		WHERE ($1 = '' OR symbol = $1)
		ORDER BY ts_ms DESC
		LIMIT $2
	`, symbol, lim)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CancelRecord, error) {
		var rec model.CancelRecord
		err := row.Scan(&rec.ID, &rec.Symbol, &rec.OrderType, &rec.OrderID, &rec.Outcome, &rec.Reason, &rec.Ts)
		return rec, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var _ port.Repository = (*Repo)(nil)
