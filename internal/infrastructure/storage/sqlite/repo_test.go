package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tzweb/internal/domain/model"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepoSavePositions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t0 := time.UnixMilli(1700000000000)
	old := []model.Position{{Symbol: "AMD", Side: "Long", Qty: decimal.NewFromInt(1)}}
	if err := repo.SavePositions(ctx, t0, old); err != nil {
		t.Fatalf("SavePositions failed: %v", err)
	}
	latest := []model.Position{
		{Symbol: "AAPL", Side: "Long", Qty: decimal.NewFromInt(100), Entry: decimal.RequireFromString("181.5")},
		{Symbol: "TSLA", Side: "Short", Qty: decimal.NewFromInt(-5), Overnight: true},
	}
	if err := repo.SavePositions(ctx, t0.Add(time.Minute), latest); err != nil {
		t.Fatalf("SavePositions failed: %v", err)
	}

	got, err := repo.LatestPositions(ctx)
	if err != nil {
		t.Fatalf("LatestPositions failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(got))
	}
	if got[0].Symbol != "AAPL" || !got[0].Entry.Equal(decimal.RequireFromString("181.5")) {
		t.Errorf("unexpected first position: %+v", got[0])
	}
	if !got[1].Overnight {
		t.Errorf("overnight flag lost")
	}
}

func TestSQLiteRepoSaveActiveOrders(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	orders := []model.ActiveOrder{
		{OrderID: "7", Symbol: "AAPL", SideText: "buy", TypeText: "LMT", Qty: decimal.NewFromInt(10), Status: "Accepted"},
	}
	if err := repo.SaveActiveOrders(ctx, time.Now(), orders); err != nil {
		t.Fatalf("SaveActiveOrders failed: %v", err)
	}

	var n int
	if err := repo.GetDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM order_snapshots WHERE order_id = '7'`).Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row, got %d", n)
	}
}

func TestSQLiteRepoCancellations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	recs := []model.CancelRecord{
		{ID: "a", Symbol: "AAPL", OrderType: "LMT", OrderID: "7", Outcome: model.CancelOutcomeClicked, Ts: 100},
		{ID: "b", Symbol: "AMD", OrderType: "", OrderID: "9", Outcome: model.CancelOutcomeSkipped, Reason: "not found", Ts: 200},
		{ID: "c", Symbol: "AAPL", OrderType: "LMT", OrderID: "8", Outcome: model.CancelOutcomeClicked, Ts: 300},
	}
	for _, rec := range recs {
		if err := repo.SaveCancellation(ctx, rec); err != nil {
			t.Fatalf("SaveCancellation failed: %v", err)
		}
	}

	got, err := repo.ListCancellations(ctx, "AAPL", 0)
	if err != nil {
		t.Fatalf("ListCancellations failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Fatalf("expected [c a], got %+v", got)
	}

	all, err := repo.ListCancellations(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListCancellations failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "c" || all[1].ID != "b" {
		t.Errorf("expected [c b], got %+v", all)
	}
	if all[1].Reason != "not found" {
		t.Errorf("reason lost: %+v", all[1])
	}
}
