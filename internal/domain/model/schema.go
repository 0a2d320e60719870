package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrSchemaMismatch means a rendered row does not have the cell count of the
	// schema it is bound to. Binding anyway would shift every column.
	ErrSchemaMismatch = errors.New("table schema mismatch")
	// ErrBadCell means a cell that must hold a number or flag could not be parsed.
	ErrBadCell = errors.New("unparseable cell")
)

// SchemaVariant selects between the two observed layouts of the portfolio tables.
type SchemaVariant uint8

const (
	// SchemaAuto probes the live table and picks the matching variant.
	SchemaAuto SchemaVariant = iota
	// SchemaStandard is the equities-only layout.
	SchemaStandard
	// SchemaOptions adds option greeks to open positions, a type column to the
	// locate inventory and open/exec timestamps to active orders.
	SchemaOptions
)

func (v SchemaVariant) String() string {
	switch v {
	case SchemaAuto:
		return "auto"
	case SchemaStandard:
		return "standard"
	case SchemaOptions:
		return "options"
	}
	return fmt.Sprintf("SchemaVariant(%d)", uint8(v))
}

func ParseSchemaVariant(s string) (SchemaVariant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return SchemaAuto, nil
	case "standard":
		return SchemaStandard, nil
	case "options":
		return SchemaOptions, nil
	}
	return SchemaAuto, fmt.Errorf("%w: schema %q", ErrUnknownValue, s)
}

// Column names shared by the schemas below.
const (
	ColSymbol      = "symbol"
	ColType        = "type"
	ColQty         = "qty"
	ColPrevClose   = "p_close"
	ColEntry       = "entry"
	ColPrice       = "price"
	ColChange      = "change"
	ColChangePct   = "%change"
	ColDayPnL      = "day_pnl"
	ColPnL         = "pnl"
	ColOvernight   = "overnight"
	ColDelta       = "delta"
	ColGamma       = "gamma"
	ColTheta       = "theta"
	ColVega        = "vega"
	ColRho         = "rho"
	ColIV          = "iv"
	ColClose       = "close"
	ColOpened      = "opened"
	ColClosed      = "closed"
	ColAvailable   = "available"
	ColUnavailable = "unavailable"
	ColPreBorrow   = "pre_borrow"
	ColRefNumber   = "ref_number"
	ColSide        = "side"
	ColStatus      = "status"
	ColTIF         = "tif"
	ColLimit       = "limit"
	ColStop        = "stop"
	ColPlaced      = "placed"
	ColExecuted    = "executed"
)

// Schema is a fixed positional column list. Columns are bound by index only;
// header text is never consulted.
type Schema struct {
	Name    string
	Variant SchemaVariant
	Columns []string
}

// Width is the number of cells a row must have to bind.
func (s Schema) Width() int { return len(s.Columns) }

// Bind pairs cells with columns. The row must have exactly Width cells.
func (s Schema) Bind(cells []string) (Cells, error) {
	if len(cells) != len(s.Columns) {
		return Cells{}, fmt.Errorf("%w: %s (%s) expects %d cells, got %d",
			ErrSchemaMismatch, s.Name, s.Variant, len(s.Columns), len(cells))
	}
	idx := make(map[string]int, len(s.Columns))
	for i, c := range s.Columns {
		idx[c] = i
	}
	return Cells{schema: s.Name, idx: idx, values: cells}, nil
}

// Cells is a row bound to a schema.
type Cells struct {
	schema string
	idx    map[string]int
	values []string
}

// Has reports whether the bound schema has the column.
func (c Cells) Has(col string) bool {
	_, ok := c.idx[col]
	return ok
}

// Text returns the trimmed cell text, or "" when the schema lacks the column.
func (c Cells) Text(col string) string {
	i, ok := c.idx[col]
	if !ok {
		return ""
	}
	return strings.TrimSpace(c.values[i])
}

// Decimal parses a numeric cell. Blank cells are zero.
func (c Cells) Decimal(col string) (decimal.Decimal, error) {
	d, err := ParseDecimal(c.Text(col))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s.%s: %w", c.schema, col, err)
	}
	return d, nil
}

// NullDecimal parses an optional numeric cell; blank cells are invalid (unset).
func (c Cells) NullDecimal(col string) (decimal.NullDecimal, error) {
	text := c.Text(col)
	if isBlank(text) {
		return decimal.NullDecimal{}, nil
	}
	d, err := ParseDecimal(text)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%s.%s: %w", c.schema, col, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// Flag reads a Yes/No cell.
func (c Cells) Flag(col string) bool {
	return strings.EqualFold(c.Text(col), "yes")
}

func isBlank(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "-", "--", "N/A", "n/a":
		return true
	}
	return false
}

// ParseDecimal parses rendered numbers such as "1,234.50", "$12.00", "-4.000",
// "+1.25%" or "(3.10)". Blank placeholders parse to zero.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if isBlank(s) {
		return decimal.Zero, nil
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer(",", "", "$", "", "%", "", " ", "").Replace(s)
	s = strings.TrimPrefix(s, "+")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrBadCell, s)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// SchemaFamily groups the variants of one table.
type SchemaFamily struct {
	Standard Schema
	Options  Schema
	// Probe picks a variant from the raw cells of a data row when the widths of
	// both variants are equal.
	Probe func(cells []string) SchemaVariant
}

// Select returns the schema for v. SchemaAuto detects the variant from the cell
// count of a sample row, falling back to Probe when the widths are ambiguous.
func (f SchemaFamily) Select(v SchemaVariant, sample []string) (Schema, error) {
	switch v {
	case SchemaStandard:
		return f.Standard, nil
	case SchemaOptions:
		return f.Options, nil
	}
	n := len(sample)
	std, opt := n == f.Standard.Width(), n == f.Options.Width()
	switch {
	case std && opt:
		if f.Probe != nil && f.Probe(sample) == SchemaOptions {
			return f.Options, nil
		}
		return f.Standard, nil
	case std:
		return f.Standard, nil
	case opt:
		return f.Options, nil
	}
	return Schema{}, fmt.Errorf("%w: %s has %d cells, known widths %d (standard) and %d (options)",
		ErrSchemaMismatch, f.Standard.Name, n, f.Standard.Width(), f.Options.Width())
}

// OpenPositionsSchemas binds the open-positions table (symbol first).
var OpenPositionsSchemas = SchemaFamily{
	Standard: Schema{
		Name:    "open_positions",
		Variant: SchemaStandard,
		Columns: []string{ColSymbol, ColType, ColQty, ColPrevClose, ColEntry, ColPrice, ColChange,
			ColChangePct, ColDayPnL, ColPnL, ColOvernight},
	},
	Options: Schema{
		Name:    "open_positions",
		Variant: SchemaOptions,
		Columns: []string{ColSymbol, ColType, ColQty, ColPrevClose, ColEntry, ColPrice, ColChange,
			ColChangePct, ColDayPnL, ColPnL, ColDelta, ColGamma, ColTheta, ColVega, ColRho, ColIV,
			ColOvernight},
	},
}

// ClosedPositionsSchemas has a single layout in both variants.
var ClosedPositionsSchemas = func() SchemaFamily {
	cols := []string{ColSymbol, ColType, ColQty, ColPrevClose, ColEntry, ColClose, ColPnL, ColDayPnL,
		ColOpened, ColClosed, ColOvernight}
	return SchemaFamily{
		Standard: Schema{Name: "closed_positions", Variant: SchemaStandard, Columns: cols},
		Options:  Schema{Name: "closed_positions", Variant: SchemaOptions, Columns: cols},
	}
}()

// InventoryActionColumn is the raw index of the locate/borrow button column.
const InventoryActionColumn = 4

// InventorySchemas binds the locate inventory after the action column is dropped.
// Both variants are four cells wide; the options layout carries a text type in
// the second cell where the standard layout has a quantity.
var InventorySchemas = SchemaFamily{
	Standard: Schema{
		Name:    "locate_inventory",
		Variant: SchemaStandard,
		Columns: []string{ColSymbol, ColAvailable, ColUnavailable, ColPreBorrow},
	},
	Options: Schema{
		Name:    "locate_inventory",
		Variant: SchemaOptions,
		Columns: []string{ColSymbol, ColType, ColAvailable, ColUnavailable},
	},
	Probe: func(cells []string) SchemaVariant {
		if len(cells) < 2 {
			return SchemaStandard
		}
		if _, err := ParseDecimal(cells[1]); err != nil {
			return SchemaOptions
		}
		return SchemaStandard
	},
}

// ActiveOrdersButtonColumn is the raw index of the CANCEL button column.
const ActiveOrdersButtonColumn = 0

// ActiveOrdersSchemas binds the active-orders table after the button column is dropped.
var ActiveOrdersSchemas = SchemaFamily{
	Standard: Schema{
		Name:    "active_orders",
		Variant: SchemaStandard,
		Columns: []string{ColRefNumber, ColSymbol, ColSide, ColQty, ColType, ColStatus, ColTIF,
			ColLimit, ColStop, ColPlaced},
	},
	Options: Schema{
		Name:    "active_orders",
		Variant: SchemaOptions,
		Columns: []string{ColRefNumber, ColSymbol, ColSide, ColQty, ColType, ColStatus, ColTIF,
			ColLimit, ColStop, ColPlaced, ColOpened, ColExecuted},
	},
}
