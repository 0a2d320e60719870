package service

import (
	"context"
	"errors"
	"testing"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"

	"github.com/shopspring/decimal"
)

func newTestLocate(page *fakePage) *LocateService {
	clicks := NewClickDriver(page, testClickOptions())
	portfolio := NewPortfolioService(clicks, NewTableExtractor(page), model.SchemaAuto)
	return NewLocateService(page, clicks, portfolio, LocateOptions{PollInterval: 0, StatusPolls: 3, OfferPolls: 3})
}

func locatePage(status string) *fakePage {
	page := newFakePage()
	page.present["locate-tab-1"] = true
	page.present["short-list-button-locate"] = true
	page.texts["short-list-locate-status"] = status
	return page
}

func TestLocateEasyToBorrow(t *testing.T) {
	page := locatePage("Easy to borrow")
	svc := newTestLocate(page)

	offer, err := svc.Locate(context.Background(), "tsla", 200)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if !offer.EasyToBorrow || !offer.Total.IsZero() || offer.Symbol != "TSLA" {
		t.Errorf("unexpected offer: %+v", offer)
	}
	if page.values["short-list-input-symbol"] != "TSLA" || page.values["short-list-input-shares"] != "200" {
		t.Errorf("unexpected inputs: %v", page.values)
	}
	if page.clickCount("short-list-button-locate") != 0 {
		t.Errorf("easy-to-borrow symbols must not request a locate")
	}
}

func TestLocateReadsOffer(t *testing.T) {
	page := locatePage("Hard to borrow")
	page.onClick["short-list-button-locate"] = func() {
		page.texts["oitem-l-GME-cell-2"] = "0.05"
		page.texts["oitem-l-GME-cell-6"] = "5.00"
	}
	svc := newTestLocate(page)

	offer, err := svc.Locate(context.Background(), "gme", 100)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if !offer.PricePerShare.Equal(decimal.RequireFromString("0.05")) || !offer.Total.Equal(decimal.NewFromInt(5)) {
		t.Errorf("unexpected offer: %+v", offer)
	}
	if offer.EasyToBorrow || offer.Status != "locate available at $5.00" {
		t.Errorf("unexpected status: %+v", offer)
	}
	if n := page.clickCount("short-list-button-locate"); n != 1 {
		t.Errorf("locate must be requested once, got %d", n)
	}
}

func TestLocateWithoutOffer(t *testing.T) {
	page := locatePage("Hard to borrow")
	svc := newTestLocate(page)

	if _, err := svc.Locate(context.Background(), "GME", 100); !errors.Is(err, ErrNoLocateOffer) {
		t.Fatalf("expected ErrNoLocateOffer, got %v", err)
	}
}

func TestLocateRejectsOddLots(t *testing.T) {
	page := locatePage("Easy to borrow")
	svc := newTestLocate(page)

	for _, qty := range []int64{0, 150, -100} {
		if _, err := svc.Locate(context.Background(), "GME", qty); !errors.Is(err, model.ErrInvalidLocate) {
			t.Errorf("qty %d: expected ErrInvalidLocate, got %v", qty, err)
		}
	}
	if len(page.clicks) != 0 {
		t.Errorf("nothing must be clicked, got %v", page.clicks)
	}
}

func TestAcceptAndDeclineOffer(t *testing.T) {
	page := newFakePage()
	accept := OfferDecisionLocator("GME", 1).Value
	page.present[accept] = true
	svc := newTestLocate(page)
	ctx := context.Background()

	if err := svc.Accept(ctx, "gme"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if page.clickCount(accept) != 1 {
		t.Errorf("accept control must be clicked once")
	}

	err := svc.Decline(ctx, "gme")
	if !errors.Is(err, ErrNoLocateOffer) || !errors.Is(err, port.ErrElementNotFound) {
		t.Fatalf("expected a not-found offer, got %v", err)
	}
}

func TestCreditLocates(t *testing.T) {
	page := newFakePage()
	page.tables["locate-inventory-table"] = []port.RawRow{
		{Cells: []string{"AAPL", "100", "0", "0", "Sell"}},
	}
	credit := CreditLocator("AAPL").Value
	page.present[credit] = true
	svc := newTestLocate(page)
	ctx := context.Background()

	if err := svc.Credit(ctx, "amd", 100); !errors.Is(err, ErrNotLocated) {
		t.Errorf("expected ErrNotLocated, got %v", err)
	}
	if err := svc.Credit(ctx, "aapl", 200); !errors.Is(err, model.ErrInvalidLocate) {
		t.Errorf("expected ErrInvalidLocate above the located shares, got %v", err)
	}
	if err := svc.Credit(ctx, "aapl", 50); !errors.Is(err, model.ErrInvalidLocate) {
		t.Errorf("expected ErrInvalidLocate for an odd lot, got %v", err)
	}
	if page.clickCount(credit) != 0 {
		t.Fatalf("rejected credits must not click")
	}

	if err := svc.Credit(ctx, "aapl", 100); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if page.values["inv-AAPL-sell-qty"] != "100" || page.clickCount(credit) != 1 {
		t.Errorf("expected quantity 100 and one click, got %v / %d", page.values, page.clickCount(credit))
	}

	// 0 credits everything without touching the quantity input
	delete(page.values, "inv-AAPL-sell-qty")
	if err := svc.Credit(ctx, "AAPL", 0); err != nil {
		t.Fatalf("Credit all failed: %v", err)
	}
	if _, ok := page.values["inv-AAPL-sell-qty"]; ok || page.clickCount(credit) != 2 {
		t.Errorf("credit all must only click the button")
	}
}
