package service

import (
	"context"
	"errors"
	"testing"

	"tzweb/internal/application/port"
)

func TestClickDriverStopsAfterBareSuccess(t *testing.T) {
	page := newFakePage()
	page.present["btn"] = true
	d := NewClickDriver(page, testClickOptions())

	if err := d.Click(context.Background(), port.ByID("btn")); err != nil {
		t.Fatalf("Click failed: %v", err)
	}
	// guarded click + first bare attempt, then stop
	if n := page.clickCount("btn"); n != 2 {
		t.Errorf("expected 2 clicks, got %d", n)
	}
}

func TestClickDriverAbsorbsInterception(t *testing.T) {
	page := newFakePage()
	page.present["btn"] = true
	page.intercept["btn"] = 100
	d := NewClickDriver(page, testClickOptions())

	if err := d.Click(context.Background(), port.ByID("btn")); err != nil {
		t.Fatalf("interception must not surface, got %v", err)
	}
	if page.tops == 0 {
		t.Errorf("expected scroll to top after interception")
	}
	// 2 guarded tries + 3 bare attempts
	if left := page.intercept["btn"]; left != 95 {
		t.Errorf("expected 5 attempts, %d interceptions left", left)
	}
}

func TestClickDriverRecoversAfterInterception(t *testing.T) {
	page := newFakePage()
	page.present["btn"] = true
	page.intercept["btn"] = 3
	d := NewClickDriver(page, testClickOptions())

	if err := d.Click(context.Background(), port.ByID("btn")); err != nil {
		t.Fatalf("Click failed: %v", err)
	}
	if n := page.clickCount("btn"); n != 1 {
		t.Errorf("expected exactly one landed click, got %d", n)
	}
}

func TestClickDriverIgnoresClickableTimeout(t *testing.T) {
	page := newFakePage()
	page.present["btn"] = true
	page.waitErr = port.ErrClickTimeout
	d := NewClickDriver(page, testClickOptions())

	if err := d.Click(context.Background(), port.ByID("btn")); err != nil {
		t.Fatalf("timeout must not surface, got %v", err)
	}
	if page.clickCount("btn") == 0 {
		t.Errorf("expected the click to be attempted after the timeout")
	}
}

func TestClickDriverMissingElement(t *testing.T) {
	page := newFakePage()
	d := NewClickDriver(page, testClickOptions())

	err := d.Click(context.Background(), port.ByID("gone"))
	if !errors.Is(err, port.ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
}

func TestClickDriverElementRemovedByClick(t *testing.T) {
	page := newFakePage()
	page.present["row"] = true
	page.onClick["row"] = func() { delete(page.present, "row") }
	d := NewClickDriver(page, testClickOptions())

	if err := d.Click(context.Background(), port.ByID("row")); err != nil {
		t.Fatalf("a click that removed its element is a success, got %v", err)
	}
	if n := page.clickCount("row"); n != 1 {
		t.Errorf("expected 1 click, got %d", n)
	}
}

func TestClickDriverRelocatesStaleElement(t *testing.T) {
	page := newFakePage()
	page.present["btn"] = true
	page.stale["btn"] = 2
	d := NewClickDriver(page, testClickOptions())

	if err := d.Click(context.Background(), port.ByID("btn")); err != nil {
		t.Fatalf("Click failed: %v", err)
	}
	if page.clickCount("btn") != 1 {
		t.Errorf("expected the click to land after re-locating, got %d", page.clickCount("btn"))
	}
}

func TestClickDriverAlwaysStale(t *testing.T) {
	page := newFakePage()
	page.present["btn"] = true
	page.stale["btn"] = 100
	d := NewClickDriver(page, testClickOptions())

	if err := d.Click(context.Background(), port.ByID("btn")); !errors.Is(err, port.ErrStaleElement) {
		t.Fatalf("expected ErrStaleElement, got %v", err)
	}
}

func TestClickOnceDoesNotRepeat(t *testing.T) {
	page := newFakePage()
	page.present["buy"] = true
	d := NewClickDriver(page, testClickOptions())

	if err := d.ClickOnce(context.Background(), port.ByID("buy")); err != nil {
		t.Fatalf("ClickOnce failed: %v", err)
	}
	if n := page.clickCount("buy"); n != 1 {
		t.Errorf("expected 1 click, got %d", n)
	}

	page.intercept["buy"] = 2
	if err := d.ClickOnce(context.Background(), port.ByID("buy")); !errors.Is(err, port.ErrClickIntercepted) {
		t.Errorf("expected ErrClickIntercepted, got %v", err)
	}
}

func TestClickDriverHonoursContext(t *testing.T) {
	page := newFakePage()
	page.present["btn"] = true
	d := NewClickDriver(page, testClickOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Click(ctx, port.ByID("btn")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(page.clicks) != 0 {
		t.Errorf("no click expected after cancellation")
	}
}
