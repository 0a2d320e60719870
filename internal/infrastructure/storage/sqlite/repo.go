package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS position_snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  qty TEXT NOT NULL,
  entry TEXT NOT NULL,
  price TEXT NOT NULL,
  day_pnl TEXT NOT NULL,
  pnl TEXT NOT NULL,
  overnight INTEGER NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_position_snapshots_ts ON position_snapshots(ts_ms);
CREATE INDEX IF NOT EXISTS idx_position_snapshots_symbol ON position_snapshots(symbol);

CREATE TABLE IF NOT EXISTS order_snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  order_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  order_type TEXT NOT NULL,
  qty TEXT NOT NULL,
  status TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_snapshots_ts ON order_snapshots(ts_ms);
CREATE INDEX IF NOT EXISTS idx_order_snapshots_symbol ON order_snapshots(symbol);

CREATE TABLE IF NOT EXISTS cancellations (
  id TEXT PRIMARY KEY,
  symbol TEXT NOT NULL,
  order_type TEXT NOT NULL,
  order_id TEXT NOT NULL,
  outcome TEXT NOT NULL,
  reason TEXT NOT NULL,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cancellations_symbol ON cancellations(symbol);
CREATE INDEX IF NOT EXISTS idx_cancellations_ts ON cancellations(ts_ms);
`)
	return err
}

// SavePositions 写入一次持仓快照（同一事务）
func (r *Repo) SavePositions(ctx context.Context, ts time.Time, positions []model.Position) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, p := range positions {
		payload, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO position_snapshots(ts_ms, symbol, side, qty, entry, price, day_pnl, pnl, overnight, payload, created_at)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, ts.UnixMilli(), p.Symbol, p.Side, p.Qty.String(), p.Entry.String(), p.Price.String(),
			p.DayPnL.String(), p.PnL.String(), boolInt(p.Overnight), string(payload), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveActiveOrders 写入一次委托快照（同一事务）
func (r *Repo) SaveActiveOrders(ctx context.Context, ts time.Time, orders []model.ActiveOrder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for _, o := range orders {
		payload, err := json.Marshal(o)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_snapshots(ts_ms, order_id, symbol, side, order_type, qty, status, payload, created_at)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, ts.UnixMilli(), o.OrderID, o.Symbol, o.SideText, o.TypeText, o.Qty.String(), o.Status,
			string(payload), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LatestPositions 读取最近一次持仓快照
func (r *Repo) LatestPositions(ctx context.Context) ([]model.Position, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload FROM position_snapshots
		WHERE ts_ms = (SELECT MAX(ts_ms) FROM position_snapshots)
		ORDER BY symbol
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := make([]model.Position, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var p model.Position
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ port.Repository = (*Repo)(nil)
