package sqlite

import (
	"context"
	"time"

	"tzweb/internal/domain/model"
)

// SaveCancellation 保存一次撤单尝试
func (r *Repo) SaveCancellation(ctx context.Context, rec model.CancelRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cancellations(id, symbol, order_type, order_id, outcome, reason, ts_ms, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Symbol, rec.OrderType, rec.OrderID, rec.Outcome, rec.Reason, rec.Ts, time.Now().UnixMilli())
	return err
}

// ListCancellations 按时间倒序列出撤单记录；symbol 为空时列出全部
func (r *Repo) ListCancellations(ctx context.Context, symbol string, limit int) ([]model.CancelRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, symbol, order_type, order_id, outcome, reason, ts_ms
		FROM cancellations
		WHERE (? = '' OR symbol = ?)
		ORDER BY ts_ms DESC, created_at DESC
		LIMIT ?
	`, symbol, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CancelRecord, 0)
	for rows.Next() {
		var rec model.CancelRecord
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.OrderType, &rec.OrderID, &rec.Outcome, &rec.Reason, &rec.Ts); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
