package service

import (
	"context"
	"errors"
	"testing"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"
)

const (
	opTable = "opTable-1"
	cpTable = "cpTable-1"
)

func TestPositionsSentinelIsEmptyWithOneNotice(t *testing.T) {
	for _, text := range []string{"You have no open positions.", "YOU HAVE NO OPEN POSITIONS"} {
		buf := captureLog(t)
		page := newFakePage()
		page.tables[opTable] = []port.RawRow{{Cells: []string{text}}}
		svc := newTestPortfolio(page)

		snap, err := svc.Positions(context.Background())
		if err != nil {
			t.Fatalf("Positions failed: %v", err)
		}
		if !snap.Empty {
			t.Errorf("%q: expected Empty snapshot", text)
		}
		if n := notices(buf, "no open positions"); n != 1 {
			t.Errorf("%q: expected exactly one notice, got %d", text, n)
		}
	}
}

func TestPositionsMissingTableIsEmpty(t *testing.T) {
	svc := newTestPortfolio(newFakePage())

	snap, err := svc.Positions(context.Background())
	if err != nil {
		t.Fatalf("Positions failed: %v", err)
	}
	if !snap.Empty {
		t.Errorf("expected Empty snapshot for an unrendered table")
	}
}

func TestPositionsKeyedBySymbol(t *testing.T) {
	page := newFakePage()
	page.tables[opTable] = []port.RawRow{
		{Cells: []string{"Symbol", "Type"}, Header: true},
		positionRow("aapl", false),
		positionRow("AMD", true),
	}
	svc := newTestPortfolio(page)

	snap, err := svc.Positions(context.Background())
	if err != nil {
		t.Fatalf("Positions failed: %v", err)
	}
	if snap.Empty || len(snap.Positions) != 2 {
		t.Fatalf("expected 2 positions, got %+v", snap)
	}
	if _, ok := snap.Positions["AAPL"]; !ok {
		t.Errorf("symbols must be stored upper-case")
	}
}

func TestPositionsSchemaMismatchSurfaces(t *testing.T) {
	page := newFakePage()
	page.tables[opTable] = []port.RawRow{{Cells: []string{"AAPL", "Long", "100"}}}
	svc := newTestPortfolio(page)

	if _, err := svc.Positions(context.Background()); !errors.Is(err, model.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestIsInvested(t *testing.T) {
	page := newFakePage()
	page.tables[opTable] = []port.RawRow{positionRow("AAPL", false)}
	svc := newTestPortfolio(page)
	ctx := context.Background()

	for _, sym := range []string{"TSLA", "AAP", "AAPLX", ""} {
		if ok, err := svc.IsInvested(ctx, sym); err != nil || ok {
			t.Errorf("IsInvested(%q) = %v, %v; want false", sym, ok, err)
		}
	}
	if ok, _ := svc.IsInvested(ctx, "aapl"); !ok {
		t.Errorf("IsInvested(aapl) must be true")
	}

	page.tables[opTable] = []port.RawRow{{Cells: []string{"You have no open positions."}}}
	if ok, _ := svc.IsInvested(ctx, "AAPL"); ok {
		t.Errorf("IsInvested must be false on an Empty snapshot")
	}
}

func TestIntradayPositionsSubset(t *testing.T) {
	page := newFakePage()
	page.tables[opTable] = []port.RawRow{
		positionRow("AAPL", false),
		positionRow("AMD", true),
		positionRow("GM", false),
	}
	svc := newTestPortfolio(page)
	ctx := context.Background()

	snap, _ := svc.Positions(ctx)
	intraday, err := svc.IntradayPositions(ctx)
	if err != nil {
		t.Fatalf("IntradayPositions failed: %v", err)
	}
	if len(intraday) != 2 || len(intraday) > len(snap.Positions) {
		t.Fatalf("expected 2 intraday positions, got %d", len(intraday))
	}
	for _, p := range intraday {
		if p.Overnight || !snap.Has(p.Symbol) {
			t.Errorf("%s is not an intraday position of the snapshot", p.Symbol)
		}
	}
	if intraday[0].Symbol != "AAPL" || intraday[1].Symbol != "GM" {
		t.Errorf("expected symbol order, got %s, %s", intraday[0].Symbol, intraday[1].Symbol)
	}

	page.tables[opTable] = nil
	intraday, err = svc.IntradayPositions(ctx)
	if err != nil || intraday == nil || len(intraday) != 0 {
		t.Errorf("Empty snapshot must yield an empty non-nil slice, got %v (%v)", intraday, err)
	}
}

func TestSwitchTabTwice(t *testing.T) {
	page := newFakePage()
	page.withTabs()
	svc := newTestPortfolio(page)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.SwitchTab(ctx, model.TabActiveOrders); err != nil {
			t.Fatalf("SwitchTab #%d failed: %v", i+1, err)
		}
	}
	for _, c := range page.clicks {
		if c != "portfolio-tab-ao-1" {
			t.Errorf("unexpected click on %s", c)
		}
	}
	if err := svc.SwitchTab(ctx, model.Tab(0)); !errors.Is(err, model.ErrUnknownValue) {
		t.Errorf("expected ErrUnknownValue for the zero tab, got %v", err)
	}
}

func TestClosedPositionsSwitchesTab(t *testing.T) {
	page := newFakePage()
	page.withTabs()
	page.tables[cpTable] = []port.RawRow{
		{Cells: []string{"AAPL", "Long", "100", "180", "181", "183", "200", "200", "11-14 10:08:35", "11-14 11:00:01", "No"}},
		{Cells: []string{"AAPL", "Short", "50", "180", "183", "182", "50", "50", "11-14 11:30:00", "11-14 12:00:00", "No"}},
	}
	svc := newTestPortfolio(page)

	closed, err := svc.ClosedPositions(context.Background())
	if err != nil {
		t.Fatalf("ClosedPositions failed: %v", err)
	}
	if page.clickCount(model.TabClosedPositions.ElementID()) == 0 {
		t.Errorf("expected a click on the closed tab")
	}
	if len(closed) != 2 || closed[1].Side != "Short" {
		t.Errorf("expected both rows in order, got %+v", closed)
	}
}

func TestInventoryDropsActionColumn(t *testing.T) {
	page := newFakePage()
	page.tables["locate-inventory-table"] = []port.RawRow{
		{Cells: []string{"AAPL", "100", "0", "0", "Sell"}},
		{Cells: []string{"AMD", "40", "10", "0", "Sell"}},
	}
	svc := newTestPortfolio(page)

	inv, err := svc.Inventory(context.Background())
	if err != nil {
		t.Fatalf("Inventory failed: %v", err)
	}
	if len(inv) != 2 || inv[1].Unavailable.IntPart() != 10 {
		t.Fatalf("unexpected inventory: %+v", inv)
	}
	if inv[0].Available.IntPart() != 100 {
		t.Errorf("available = %s, want 100", inv[0].Available)
	}
}

func TestActiveOrdersFilter(t *testing.T) {
	buf := captureLog(t)
	page := newFakePage()
	page.withActiveOrders(
		activeOrderRow("7", "S.100", "AAPL", "buy", "LMT"),
		activeOrderRow("8", "S.101", "AAPL", "sell", "MKT"),
	)
	svc := newTestPortfolio(page)
	ctx := context.Background()

	got, err := svc.ActiveOrders(ctx, model.ActiveOrderFilter{Symbol: "AAPL", Type: model.OrderTypeLimit})
	if err != nil {
		t.Fatalf("ActiveOrders failed: %v", err)
	}
	if len(got) != 1 || got[0].OrderID != "7" {
		t.Fatalf("expected only order 7, got %+v", got)
	}

	got, _ = svc.ActiveOrders(ctx, model.ActiveOrderFilter{Symbol: "AAPL", Type: model.OrderTypeStop})
	if len(got) != 0 {
		t.Errorf("expected no stop orders, got %d", len(got))
	}
	if n := notices(buf, "no filtered active orders"); n != 1 {
		t.Errorf("expected one filtered notice, got %d", n)
	}

	all, _ := svc.ActiveOrders(ctx, model.ActiveOrderFilter{})
	if len(all) != 2 {
		t.Errorf("expected 2 orders unfiltered, got %d", len(all))
	}
}

func TestActiveOrdersWithoutOrderRows(t *testing.T) {
	buf := captureLog(t)
	page := newFakePage()
	page.tables[ActiveOrdersTable.Locator.Value] = []port.RawRow{{Cells: []string{"No active orders"}}}
	svc := newTestPortfolio(page)

	got, err := svc.ActiveOrders(context.Background(), model.ActiveOrderFilter{})
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v (%v)", got, err)
	}
	if notices(buf, "no active orders") != 1 || notices(buf, "no filtered active orders") != 0 {
		t.Errorf("expected only the no-active-orders notice, log: %s", buf.String())
	}
}

func TestActiveOrdersEmptyOrderID(t *testing.T) {
	page := newFakePage()
	page.withActiveOrders(activeOrderRow("", "S.100", "AAPL", "buy", "LMT"))
	svc := newTestPortfolio(page)

	if _, err := svc.ActiveOrders(context.Background(), model.ActiveOrderFilter{}); !errors.Is(err, model.ErrMissingOrderID) {
		t.Fatalf("expected ErrMissingOrderID, got %v", err)
	}
}

func TestActiveOrdersRowWithoutOrderID(t *testing.T) {
	page := newFakePage()
	unidentified := activeOrderRow("", "S.101", "AAPL", "sell", "LMT")
	unidentified.HasAttr = false
	page.withActiveOrders(activeOrderRow("7", "S.100", "AAPL", "buy", "LMT"), unidentified)
	svc := newTestPortfolio(page)

	got, err := svc.ActiveOrders(context.Background(), model.ActiveOrderFilter{Symbol: "AAPL", Type: model.OrderTypeLimit})
	if !errors.Is(err, model.ErrMissingOrderID) {
		t.Fatalf("expected ErrMissingOrderID, got %v (%d orders)", err, len(got))
	}
}

func TestActiveOrdersSkipsPlaceholderRows(t *testing.T) {
	page := newFakePage()
	page.withActiveOrders(
		activeOrderRow("7", "S.100", "AAPL", "buy", "LMT"),
		port.RawRow{Cells: []string{"", "Loading..."}},
	)
	svc := newTestPortfolio(page)

	got, err := svc.ActiveOrders(context.Background(), model.ActiveOrderFilter{})
	if err != nil {
		t.Fatalf("ActiveOrders failed: %v", err)
	}
	if len(got) != 1 || got[0].OrderID != "7" {
		t.Errorf("expected only order 7, got %+v", got)
	}
}

func TestActiveOrdersInvalidFilter(t *testing.T) {
	svc := newTestPortfolio(newFakePage())
	_, err := svc.ActiveOrders(context.Background(), model.ActiveOrderFilter{Type: model.OrderType(99)})
	if !errors.Is(err, model.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestSymbolPresentInActiveOrders(t *testing.T) {
	page := newFakePage()
	page.withActiveOrders(activeOrderRow("7", "S.100", "AAPL", "buy", "LMT"))
	svc := newTestPortfolio(page)
	ctx := context.Background()

	if ok, err := svc.SymbolPresentInActiveOrders(ctx, "aapl"); err != nil || !ok {
		t.Errorf("expected AAPL present, got %v (%v)", ok, err)
	}
	if ok, _ := svc.SymbolPresentInActiveOrders(ctx, "AMD"); ok {
		t.Errorf("AMD must not be present")
	}
}
