package storage

import (
	"context"
	"testing"
	"time"

	"tzweb/internal/domain/model"

	"github.com/shopspring/decimal"
)

func TestMemoryRepoKeepsLatestSnapshots(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	if _, ok := repo.LatestPositions(); ok {
		t.Fatalf("expected no snapshot yet")
	}
	t0 := time.UnixMilli(1700000000000)
	repo.SavePositions(ctx, t0, []model.Position{{Symbol: "AAPL", Qty: decimal.NewFromInt(10)}})
	repo.SavePositions(ctx, t0.Add(time.Minute), []model.Position{{Symbol: "AMD", Qty: decimal.NewFromInt(5)}})

	snap, ok := repo.LatestPositions()
	if !ok || len(snap.Positions) != 1 || snap.Positions[0].Symbol != "AMD" {
		t.Fatalf("unexpected latest snapshot: %+v", snap)
	}

	repo.SaveActiveOrders(ctx, t0, []model.ActiveOrder{{OrderID: "7", Symbol: "AAPL"}})
	orders, ok := repo.LatestOrders()
	if !ok || orders.Orders[0].OrderID != "7" {
		t.Errorf("unexpected latest orders: %+v", orders)
	}
}

func TestMemoryRepoListCancellations(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	repo.SaveCancellation(ctx, model.CancelRecord{ID: "a", Symbol: "AAPL", OrderID: "7", Ts: 1})
	repo.SaveCancellation(ctx, model.CancelRecord{ID: "b", Symbol: "AMD", OrderID: "9", Ts: 2})
	repo.SaveCancellation(ctx, model.CancelRecord{ID: "c", Symbol: "AAPL", OrderID: "8", Ts: 3})

	got, err := repo.ListCancellations(ctx, "AAPL", 0)
	if err != nil {
		t.Fatalf("ListCancellations failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("expected [c a], got %+v", got)
	}

	all, _ := repo.ListCancellations(ctx, "", 1)
	if len(all) != 1 || all[0].ID != "c" {
		t.Errorf("limit not applied: %+v", all)
	}
}
