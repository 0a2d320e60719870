package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// fakePage is an in-memory trading page. Elements are keyed by locator value.
type fakePage struct {
	tables    map[string][]port.RawRow
	present   map[string]bool
	intercept map[string]int
	stale     map[string]int
	onClick   map[string]func()
	onEnter   func()
	waitErr   error

	clicks   []string
	tops     int
	texts    map[string]string
	values   map[string]string
	selected map[string]string
}

func newFakePage() *fakePage {
	return &fakePage{
		tables:    make(map[string][]port.RawRow),
		present:   make(map[string]bool),
		intercept: make(map[string]int),
		stale:     make(map[string]int),
		onClick:   make(map[string]func()),
		texts:     make(map[string]string),
		values:    make(map[string]string),
		selected:  make(map[string]string),
	}
}

var _ port.Page = (*fakePage)(nil)

func (f *fakePage) WaitClickable(ctx context.Context, loc port.Locator, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !f.present[loc.Value] {
		return port.ErrClickTimeout
	}
	return f.waitErr
}

func (f *fakePage) ScrollIntoView(ctx context.Context, loc port.Locator) error {
	if !f.present[loc.Value] {
		return port.ErrElementNotFound
	}
	return nil
}

func (f *fakePage) Click(ctx context.Context, loc port.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !f.present[loc.Value] {
		return port.ErrElementNotFound
	}
	if f.stale[loc.Value] > 0 {
		f.stale[loc.Value]--
		return port.ErrStaleElement
	}
	if f.intercept[loc.Value] > 0 {
		f.intercept[loc.Value]--
		return port.ErrClickIntercepted
	}
	f.clicks = append(f.clicks, loc.Value)
	if fn := f.onClick[loc.Value]; fn != nil {
		fn()
	}
	return nil
}

func (f *fakePage) ScrollToTop(ctx context.Context) error {
	f.tops++
	return nil
}

func (f *fakePage) TableRows(ctx context.Context, table port.Locator, attr string) ([]port.RawRow, error) {
	rows, ok := f.tables[table.Value]
	if !ok {
		return nil, port.ErrElementNotFound
	}
	out := make([]port.RawRow, len(rows))
	copy(out, rows)
	return out, nil
}

func (f *fakePage) Text(ctx context.Context, loc port.Locator) (string, error) {
	t, ok := f.texts[loc.Value]
	if !ok {
		return "", port.ErrElementNotFound
	}
	return t, nil
}

func (f *fakePage) SetValue(ctx context.Context, loc port.Locator, value string) error {
	f.values[loc.Value] = value
	return nil
}

func (f *fakePage) Select(ctx context.Context, loc port.Locator, value string) error {
	f.selected[loc.Value] = value
	return nil
}

func (f *fakePage) PressEnter(ctx context.Context, loc port.Locator) error {
	if f.onEnter != nil {
		f.onEnter()
	}
	return nil
}

func (f *fakePage) clickCount(value string) int {
	n := 0
	for _, c := range f.clicks {
		if c == value {
			n++
		}
	}
	return n
}

// ========== fixtures ==========

func positionRow(symbol string, overnight bool) port.RawRow {
	flag := "No"
	if overnight {
		flag = "Yes"
	}
	return port.RawRow{Cells: []string{symbol, "Long", "100", "180.00", "181.50", "182.25", "+0.75", "0.41%", "75.00", "75.00", flag}}
}

func activeOrderRow(id, ref, symbol, side, typ string) port.RawRow {
	return port.RawRow{
		Cells:   []string{"CANCEL", ref, symbol, side, "10", typ, "Accepted", "DAY", "150.00", "", "09:31:00"},
		Attr:    id,
		HasAttr: true,
	}
}

// withActiveOrders renders rows and wires each CANCEL control to remove its row.
func (f *fakePage) withActiveOrders(rows ...port.RawRow) {
	f.tables[ActiveOrdersTable.Locator.Value] = rows
	for _, r := range rows {
		id := r.Attr
		v := CancelLocator(id).Value
		f.present[v] = true
		f.onClick[v] = func() { f.removeOrder(id) }
	}
}

func (f *fakePage) removeOrder(id string) {
	key := ActiveOrdersTable.Locator.Value
	kept := f.tables[key][:0:0]
	for _, r := range f.tables[key] {
		if r.Attr != id {
			kept = append(kept, r)
		}
	}
	f.tables[key] = kept
	delete(f.present, CancelLocator(id).Value)
}

func (f *fakePage) withTabs() {
	for _, tab := range []model.Tab{model.TabOpenPositions, model.TabClosedPositions, model.TabActiveOrders, model.TabInactiveOrders} {
		f.present[tab.ElementID()] = true
	}
}

func testClickOptions() ClickOptions {
	return ClickOptions{Timeout: time.Millisecond, BareAttempts: 3}
}

func newTestPortfolio(page *fakePage) *PortfolioService {
	return NewPortfolioService(NewClickDriver(page, testClickOptions()), NewTableExtractor(page), model.SchemaAuto)
}

// captureLog routes the global logger into a buffer for the duration of the test.
// Services capture the logger on construction, so build them afterwards.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := log.Logger
	log.Logger = zerolog.New(buf).Level(zerolog.WarnLevel)
	t.Cleanup(func() { log.Logger = prev })
	return buf
}

func notices(buf *bytes.Buffer, msg string) int {
	return strings.Count(buf.String(), `"message":"`+msg+`"`)
}
