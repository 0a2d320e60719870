package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

type Repo struct {
	rdb          *redis.Client
	prefix       string
	ttl          time.Duration
	keyPositions string // prefix + ":positions"
	keyOrders    string // prefix + ":orders"
	cancelStream string
	cancelChan   string
	streamMaxLen int64
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, cancelStream, cancelChan string) *Repo {
	if strings.TrimSpace(prefix) == "" {
		prefix = "tzweb"
	}
	if strings.TrimSpace(cancelStream) == "" {
		cancelStream = prefix + ":cancels"
	}
	if strings.TrimSpace(cancelChan) == "" {
		cancelChan = prefix + ":cancels:pub"
	}
	return &Repo{
		rdb:          rdb,
		prefix:       prefix,
		ttl:          ttl,
		keyPositions: prefix + ":positions",
		keyOrders:    prefix + ":orders",
		cancelStream: cancelStream,
		cancelChan:   cancelChan,
		streamMaxLen: 10000,
	}
}

// SavePositions 用最新快照替换 positions hash：field = symbol -> json
func (r *Repo) SavePositions(ctx context.Context, ts time.Time, positions []model.Position) error {
	fields := make(map[string]any, len(positions)+1)
	for _, p := range positions {
		b, err := json.Marshal(p)
		if err != nil {
			return err
		}
		fields[p.Symbol] = string(b)
	}
	return r.replaceHash(ctx, r.keyPositions, ts, fields)
}

// SaveActiveOrders 同上，field = order_id
func (r *Repo) SaveActiveOrders(ctx context.Context, ts time.Time, orders []model.ActiveOrder) error {
	fields := make(map[string]any, len(orders)+1)
	for _, o := range orders {
		b, err := json.Marshal(o)
		if err != nil {
			return err
		}
		fields[o.OrderID] = string(b)
	}
	return r.replaceHash(ctx, r.keyOrders, ts, fields)
}

func (r *Repo) replaceHash(ctx context.Context, key string, ts time.Time, fields map[string]any) error {
	fields["_ts_ms"] = ts.UnixMilli()
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) SaveCancellation(ctx context.Context, rec model.CancelRecord) error {
	// 1) Stream: XADD <stream> MAXLEN ~ n * fields
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.cancelStream,
		MaxLen: r.streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"id":         rec.ID,
			"symbol":     rec.Symbol,
			"order_type": rec.OrderType,
			"order_id":   rec.OrderID,
			"outcome":    rec.Outcome,
			"reason":     rec.Reason,
			"ts_ms":      rec.Ts,
		},
	}).Result()
	if err != nil {
		return err
	}

	// 2) PubSub: PUBLISH <channel> json
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.cancelChan, string(b)).Err()
}

// ListCancellations 从 stream 尾部倒序读取
func (r *Repo) ListCancellations(ctx context.Context, symbol string, limit int) ([]model.CancelRecord, error) {
	msgs, err := r.rdb.XRevRange(ctx, r.cancelStream, "+", "-").Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.CancelRecord, 0)
	for _, m := range msgs {
		rec := recordFromValues(m.Values)
		if symbol != "" && rec.Symbol != symbol {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func recordFromValues(v map[string]any) model.CancelRecord {
	str := func(k string) string {
		s, _ := v[k].(string)
		return s
	}
	ts, _ := strconv.ParseInt(str("ts_ms"), 10, 64)
	return model.CancelRecord{
		ID:        str("id"),
		Symbol:    str("symbol"),
		OrderType: str("order_type"),
		OrderID:   str("order_id"),
		Outcome:   str("outcome"),
		Reason:    str("reason"),
		Ts:        ts,
	}
}

// Close 不关闭共享的 client，由 container 负责
func (r *Repo) Close() error { return nil }

var _ port.Repository = (*Repo)(nil)
