package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"
)

// PositionsSnapshot is one journaled read of the open-positions table.
type PositionsSnapshot struct {
	Ts        time.Time
	Positions []model.Position
}

// OrdersSnapshot is one journaled read of the active-orders table.
type OrdersSnapshot struct {
	Ts     time.Time
	Orders []model.ActiveOrder
}

// MemoryRepo is an in-process implementation used when no storage backend is
// enabled. Nothing survives the process.
type MemoryRepo struct {
	mu            sync.Mutex
	positions     []PositionsSnapshot
	orders        []OrdersSnapshot
	cancellations []model.CancelRecord
}

// NewMemoryRepo creates a new in-memory repository
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		positions:     make([]PositionsSnapshot, 0),
		orders:        make([]OrdersSnapshot, 0),
		cancellations: make([]model.CancelRecord, 0),
	}
}

func (r *MemoryRepo) SavePositions(ctx context.Context, ts time.Time, positions []model.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, PositionsSnapshot{Ts: ts, Positions: append([]model.Position(nil), positions...)})
	return nil
}

func (r *MemoryRepo) SaveActiveOrders(ctx context.Context, ts time.Time, orders []model.ActiveOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, OrdersSnapshot{Ts: ts, Orders: append([]model.ActiveOrder(nil), orders...)})
	return nil
}

func (r *MemoryRepo) SaveCancellation(ctx context.Context, rec model.CancelRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancellations = append(r.cancellations, rec)
	return nil
}

func (r *MemoryRepo) ListCancellations(ctx context.Context, symbol string, limit int) ([]model.CancelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.CancelRecord, 0)
	for _, c := range r.cancellations {
		if symbol == "" || c.Symbol == symbol {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ts > out[j].Ts })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LatestPositions returns the most recent positions snapshot.
func (r *MemoryRepo) LatestPositions() (PositionsSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.positions) == 0 {
		return PositionsSnapshot{}, false
	}
	return r.positions[len(r.positions)-1], true
}

// LatestOrders returns the most recent active-orders snapshot.
func (r *MemoryRepo) LatestOrders() (OrdersSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.orders) == 0 {
		return OrdersSnapshot{}, false
	}
	return r.orders[len(r.orders)-1], true
}

func (r *MemoryRepo) Close() error {
	return nil
}

var _ port.Repository = (*MemoryRepo)(nil)
