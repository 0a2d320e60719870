package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMissingOrderID means an active-order row carried an empty order-id attribute.
var ErrMissingOrderID = errors.New("active order row has no order-id")

// NormalizeSymbol is the stored form of a symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ========== Open positions ==========

// Greeks are only rendered by the options layout.
type Greeks struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Theta decimal.Decimal `json:"theta"`
	Vega  decimal.Decimal `json:"vega"`
	Rho   decimal.Decimal `json:"rho"`
	IV    decimal.Decimal `json:"iv"`
}

// Position is one row of the open-positions table.
type Position struct {
	Symbol    string          `json:"symbol"`
	Side      string          `json:"type"` // Long / Short as rendered
	Qty       decimal.Decimal `json:"qty"`
	PrevClose decimal.Decimal `json:"p_close"`
	Entry     decimal.Decimal `json:"entry"`
	Price     decimal.Decimal `json:"price"`
	Change    decimal.Decimal `json:"change"`
	ChangePct decimal.Decimal `json:"change_pct"`
	DayPnL    decimal.Decimal `json:"day_pnl"`
	PnL       decimal.Decimal `json:"pnl"`
	Greeks    *Greeks         `json:"greeks,omitempty"`
	Overnight bool            `json:"overnight"`
}

// PositionFromCells binds one rendered row.
func PositionFromCells(s Schema, cells []string) (Position, error) {
	c, err := s.Bind(cells)
	if err != nil {
		return Position{}, err
	}
	p := Position{
		Symbol:    NormalizeSymbol(c.Text(ColSymbol)),
		Side:      c.Text(ColType),
		Overnight: c.Flag(ColOvernight),
	}
	if p.Symbol == "" {
		return Position{}, fmt.Errorf("%w: open position without symbol", ErrBadCell)
	}
	if err := decimals(c, map[string]*decimal.Decimal{
		ColQty:       &p.Qty,
		ColPrevClose: &p.PrevClose,
		ColEntry:     &p.Entry,
		ColPrice:     &p.Price,
		ColChange:    &p.Change,
		ColChangePct: &p.ChangePct,
		ColDayPnL:    &p.DayPnL,
		ColPnL:       &p.PnL,
	}); err != nil {
		return Position{}, err
	}
	if c.Has(ColDelta) {
		g := &Greeks{}
		if err := decimals(c, map[string]*decimal.Decimal{
			ColDelta: &g.Delta,
			ColGamma: &g.Gamma,
			ColTheta: &g.Theta,
			ColVega:  &g.Vega,
			ColRho:   &g.Rho,
			ColIV:    &g.IV,
		}); err != nil {
			return Position{}, err
		}
		p.Greeks = g
	}
	return p, nil
}

func decimals(c Cells, dst map[string]*decimal.Decimal) error {
	for col, ptr := range dst {
		d, err := c.Decimal(col)
		if err != nil {
			return err
		}
		*ptr = d
	}
	return nil
}

func (p Position) Key() string { return p.Symbol }

func (p Position) Columns() []string {
	cols := []string{ColType, ColQty, ColPrevClose, ColEntry, ColPrice, ColChange, ColChangePct, ColDayPnL, ColPnL}
	if p.Greeks != nil {
		cols = append(cols, ColDelta, ColGamma, ColTheta, ColVega, ColRho, ColIV)
	}
	return append(cols, ColOvernight)
}

func (p Position) Values() []string {
	vals := []string{p.Side, p.Qty.String(), p.PrevClose.String(), p.Entry.String(), p.Price.String(),
		p.Change.String(), p.ChangePct.String(), p.DayPnL.String(), p.PnL.String()}
	if g := p.Greeks; g != nil {
		vals = append(vals, g.Delta.String(), g.Gamma.String(), g.Theta.String(), g.Vega.String(),
			g.Rho.String(), g.IV.String())
	}
	return append(vals, yesNo(p.Overnight))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// PortfolioSnapshot is the open-positions table keyed by symbol. An Empty
// snapshot means the UI reported that there are no open positions, which is
// different from a snapshot that was filtered down to nothing.
type PortfolioSnapshot struct {
	Positions map[string]Position
	Empty     bool
}

// EmptySnapshot is the "no open positions" state.
func EmptySnapshot() PortfolioSnapshot {
	return PortfolioSnapshot{Empty: true}
}

// Has reports whether the snapshot holds the symbol (normalized).
func (s PortfolioSnapshot) Has(symbol string) bool {
	if s.Empty {
		return false
	}
	_, ok := s.Positions[NormalizeSymbol(symbol)]
	return ok
}

// Sorted returns the positions ordered by symbol.
func (s PortfolioSnapshot) Sorted() []Position {
	out := make([]Position, 0, len(s.Positions))
	for _, p := range s.Positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ========== Closed positions ==========

type ClosedPosition struct {
	Symbol    string          `json:"symbol"`
	Side      string          `json:"type"`
	Qty       decimal.Decimal `json:"qty"`
	PrevClose decimal.Decimal `json:"p_close"`
	Entry     decimal.Decimal `json:"entry"`
	Close     decimal.Decimal `json:"close"`
	PnL       decimal.Decimal `json:"pnl"`
	DayPnL    decimal.Decimal `json:"day_pnl"`
	Opened    string          `json:"opened"` // "11-14 10:08:35" as rendered, no year
	Closed    string          `json:"closed"`
	Overnight bool            `json:"overnight"`
}

func ClosedPositionFromCells(s Schema, cells []string) (ClosedPosition, error) {
	c, err := s.Bind(cells)
	if err != nil {
		return ClosedPosition{}, err
	}
	p := ClosedPosition{
		Symbol:    NormalizeSymbol(c.Text(ColSymbol)),
		Side:      c.Text(ColType),
		Opened:    c.Text(ColOpened),
		Closed:    c.Text(ColClosed),
		Overnight: c.Flag(ColOvernight),
	}
	if err := decimals(c, map[string]*decimal.Decimal{
		ColQty:       &p.Qty,
		ColPrevClose: &p.PrevClose,
		ColEntry:     &p.Entry,
		ColClose:     &p.Close,
		ColPnL:       &p.PnL,
		ColDayPnL:    &p.DayPnL,
	}); err != nil {
		return ClosedPosition{}, err
	}
	return p, nil
}

// Key is empty: closed positions are not unique per symbol and are indexed by row.
func (p ClosedPosition) Key() string { return "" }

func (p ClosedPosition) Columns() []string {
	return []string{ColSymbol, ColType, ColQty, ColPrevClose, ColEntry, ColClose, ColPnL, ColDayPnL,
		ColOpened, ColClosed, ColOvernight}
}

func (p ClosedPosition) Values() []string {
	return []string{p.Symbol, p.Side, p.Qty.String(), p.PrevClose.String(), p.Entry.String(),
		p.Close.String(), p.PnL.String(), p.DayPnL.String(), p.Opened, p.Closed, yesNo(p.Overnight)}
}

// ========== Locate inventory ==========

type InventoryRow struct {
	Symbol      string          `json:"symbol"`
	Type        string          `json:"type,omitempty"`
	Available   decimal.Decimal `json:"available"`
	Unavailable decimal.Decimal `json:"unavailable"`
	PreBorrow   decimal.Decimal `json:"pre_borrow"`
}

func InventoryRowFromCells(s Schema, cells []string) (InventoryRow, error) {
	c, err := s.Bind(cells)
	if err != nil {
		return InventoryRow{}, err
	}
	r := InventoryRow{
		Symbol: NormalizeSymbol(c.Text(ColSymbol)),
		Type:   c.Text(ColType),
	}
	if err := decimals(c, map[string]*decimal.Decimal{
		ColAvailable:   &r.Available,
		ColUnavailable: &r.Unavailable,
		ColPreBorrow:   &r.PreBorrow,
	}); err != nil {
		return InventoryRow{}, err
	}
	return r, nil
}

func (r InventoryRow) Key() string { return "" }

func (r InventoryRow) Columns() []string {
	return []string{ColSymbol, ColType, ColAvailable, ColUnavailable, ColPreBorrow}
}

func (r InventoryRow) Values() []string {
	return []string{r.Symbol, r.Type, r.Available.String(), r.Unavailable.String(), r.PreBorrow.String()}
}

// ========== Active orders ==========

// ActiveOrder is one pending order. OrderID comes from the row's order-id
// attribute and is the only safe cancellation key; RefNumber is display text
// and is not unique.
type ActiveOrder struct {
	OrderID   string              `json:"order_id"`
	RefNumber string              `json:"ref_number"`
	Symbol    string              `json:"symbol"`
	Side      Side                `json:"-"`
	SideText  string              `json:"side"`
	Qty       decimal.Decimal     `json:"qty"`
	Type      OrderType           `json:"-"`
	TypeText  string              `json:"type"`
	Status    string              `json:"status"`
	TIF       string              `json:"tif"`
	Limit     decimal.NullDecimal `json:"limit"`
	Stop      decimal.NullDecimal `json:"stop"`
	Placed    string              `json:"placed"`
	Opened    string              `json:"opened,omitempty"`
	Executed  string              `json:"executed,omitempty"`
}

// ActiveOrderFromCells binds one rendered row. orderID is the row attribute.
func ActiveOrderFromCells(s Schema, orderID string, cells []string) (ActiveOrder, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return ActiveOrder{}, ErrMissingOrderID
	}
	c, err := s.Bind(cells)
	if err != nil {
		return ActiveOrder{}, err
	}
	o := ActiveOrder{
		OrderID:   orderID,
		RefNumber: c.Text(ColRefNumber),
		Symbol:    NormalizeSymbol(c.Text(ColSymbol)),
		SideText:  c.Text(ColSide),
		TypeText:  c.Text(ColType),
		Status:    c.Text(ColStatus),
		TIF:       c.Text(ColTIF),
		Placed:    c.Text(ColPlaced),
		Opened:    c.Text(ColOpened),
		Executed:  c.Text(ColExecuted),
	}
	o.Side, _ = ParseSide(o.SideText)
	o.Type = orderTypeFromUI(o.TypeText)
	if o.Qty, err = c.Decimal(ColQty); err != nil {
		return ActiveOrder{}, err
	}
	if o.Limit, err = c.NullDecimal(ColLimit); err != nil {
		return ActiveOrder{}, err
	}
	if o.Stop, err = c.NullDecimal(ColStop); err != nil {
		return ActiveOrder{}, err
	}
	return o, nil
}

// CancelKey is the order-id used to locate the row's cancel control. A
// reference-number form ("S.100") is reduced to the bare id.
func (o ActiveOrder) CancelKey() string {
	return strings.TrimPrefix(o.OrderID, "S.")
}

func (o ActiveOrder) Key() string { return o.OrderID }

func (o ActiveOrder) Columns() []string {
	cols := []string{ColRefNumber, ColSymbol, ColSide, ColQty, ColType, ColStatus, ColTIF, ColLimit, ColStop, ColPlaced}
	if o.Opened != "" || o.Executed != "" {
		cols = append(cols, ColOpened, ColExecuted)
	}
	return cols
}

func (o ActiveOrder) Values() []string {
	vals := []string{o.RefNumber, o.Symbol, o.SideText, o.Qty.String(), o.TypeText, o.Status, o.TIF,
		nullString(o.Limit), nullString(o.Stop), o.Placed}
	if o.Opened != "" || o.Executed != "" {
		vals = append(vals, o.Opened, o.Executed)
	}
	return vals
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// ActiveOrderFilter selects active orders. Symbol is matched exactly against
// the stored upper-case form; callers normalize before filtering. Both fields
// empty means no filter.
type ActiveOrderFilter struct {
	Symbol string
	Type   OrderType
}

// ErrInvalidFilter is returned for filters that can never be satisfied by construction.
var ErrInvalidFilter = errors.New("invalid active order filter")

func (f ActiveOrderFilter) Validate() error {
	if f.Type != OrderTypeAny && !f.Type.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidFilter, f.Type)
	}
	if f.Symbol != strings.TrimSpace(f.Symbol) {
		return fmt.Errorf("%w: symbol %q has surrounding whitespace", ErrInvalidFilter, f.Symbol)
	}
	return nil
}

// Active reports whether the filter restricts anything.
func (f ActiveOrderFilter) Active() bool {
	return f.Symbol != "" || f.Type != OrderTypeAny
}

func (f ActiveOrderFilter) Match(o ActiveOrder) bool {
	if f.Symbol != "" && o.Symbol != f.Symbol {
		return false
	}
	if f.Type != OrderTypeAny && o.Type != f.Type {
		return false
	}
	return true
}
