package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Rendered tables of the portfolio panel.
var (
	OpenPositionsTable   = Table{Locator: port.ByID("opTable-1")}
	ClosedPositionsTable = Table{Locator: port.ByID("cpTable-1")}
	InventoryTable       = Table{Locator: port.ByID("locate-inventory-table")}
	ActiveOrdersTable    = Table{Locator: port.ByID("aoTable-1"), RowAttr: "order-id"}
)

// NoOpenPositionsText is what the open-positions table renders instead of rows.
const NoOpenPositionsText = "you have no open positions"

// PortfolioService 组合表格抽取与点击，提供持仓、委托等只读视图。
// 每次查询都重新读取页面，不做缓存。
type PortfolioService struct {
	clicks *ClickDriver
	tables *TableExtractor
	schema model.SchemaVariant
	logger zerolog.Logger
}

func NewPortfolioService(clicks *ClickDriver, tables *TableExtractor, schema model.SchemaVariant) *PortfolioService {
	return &PortfolioService{
		clicks: clicks,
		tables: tables,
		schema: schema,
		logger: log.Logger.With().Str("component", "portfolio").Logger(),
	}
}

// SwitchTab selects a portfolio tab. Selecting the current tab again is a no-op in the UI.
func (s *PortfolioService) SwitchTab(ctx context.Context, tab model.Tab) error {
	if !tab.Valid() {
		return fmt.Errorf("switch tab: %w: %s", model.ErrUnknownValue, tab)
	}
	if err := s.clicks.Click(ctx, port.ByID(tab.ElementID())); err != nil {
		return fmt.Errorf("switch tab %s: %w", tab, err)
	}
	return nil
}

// Positions reads the open-positions table. The "no open positions" state is
// returned as an Empty snapshot, not as an error.
func (s *PortfolioService) Positions(ctx context.Context) (model.PortfolioSnapshot, error) {
	rows, err := s.read(ctx, OpenPositionsTable, ExtractOptions{})
	if err != nil {
		return model.PortfolioSnapshot{}, err
	}
	if len(rows) == 0 || isNoPositions(rows[0].Cells) {
		s.logger.Warn().Msg("no open positions")
		return model.EmptySnapshot(), nil
	}

	schema, err := model.OpenPositionsSchemas.Select(s.schema, rows[0].Cells)
	if err != nil {
		return model.PortfolioSnapshot{}, err
	}
	positions := make(map[string]model.Position, len(rows))
	for i, r := range rows {
		p, err := model.PositionFromCells(schema, r.Cells)
		if err != nil {
			return model.PortfolioSnapshot{}, fmt.Errorf("open positions row %d: %w", i, err)
		}
		positions[p.Symbol] = p
	}
	return model.PortfolioSnapshot{Positions: positions}, nil
}

func isNoPositions(cells []string) bool {
	if len(cells) == 0 {
		return false
	}
	first := strings.TrimRight(strings.TrimSpace(cells[0]), ".!")
	return strings.EqualFold(first, NoOpenPositionsText)
}

// IntradayPositions are the open positions not held overnight, by symbol.
// It is never nil, also when the snapshot is Empty.
func (s *PortfolioService) IntradayPositions(ctx context.Context) ([]model.Position, error) {
	snap, err := s.Positions(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Position{}
	for _, p := range snap.Sorted() {
		if !p.Overnight {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *PortfolioService) IsInvested(ctx context.Context, symbol string) (bool, error) {
	snap, err := s.Positions(ctx)
	if err != nil {
		return false, err
	}
	return snap.Has(symbol), nil
}

// ClosedPositions switches to the closed tab and reads its history in row order.
func (s *PortfolioService) ClosedPositions(ctx context.Context) ([]model.ClosedPosition, error) {
	if err := s.SwitchTab(ctx, model.TabClosedPositions); err != nil {
		return nil, err
	}
	rows, err := s.read(ctx, ClosedPositionsTable, ExtractOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]model.ClosedPosition, 0, len(rows))
	if len(rows) == 0 {
		s.logger.Warn().Msg("no closed positions")
		return out, nil
	}
	schema, err := model.ClosedPositionsSchemas.Select(s.schema, rows[0].Cells)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		p, err := model.ClosedPositionFromCells(schema, r.Cells)
		if err != nil {
			return nil, fmt.Errorf("closed positions row %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Inventory reads the locate inventory without its action column.
func (s *PortfolioService) Inventory(ctx context.Context) ([]model.InventoryRow, error) {
	rows, err := s.read(ctx, InventoryTable, ExtractOptions{DropColumns: []int{model.InventoryActionColumn}})
	if err != nil {
		return nil, err
	}
	out := make([]model.InventoryRow, 0, len(rows))
	if len(rows) == 0 {
		s.logger.Warn().Msg("no locate inventory")
		return out, nil
	}
	schema, err := model.InventorySchemas.Select(s.schema, rows[0].Cells)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		inv, err := model.InventoryRowFromCells(schema, r.Cells)
		if err != nil {
			return nil, fmt.Errorf("inventory row %d: %w", i, err)
		}
		out = append(out, inv)
	}
	return out, nil
}

// ActiveOrders reads rows carrying an order-id and applies the filter. Both
// "no active orders" and "no filtered active orders" are notices with an
// empty result. A full-width order row without an order-id is
// model.ErrMissingOrderID; narrower placeholder rows are skipped.
func (s *PortfolioService) ActiveOrders(ctx context.Context, filter model.ActiveOrderFilter) ([]model.ActiveOrder, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.read(ctx, ActiveOrdersTable, ExtractOptions{
		DropColumns: []int{model.ActiveOrdersButtonColumn},
	})
	if err != nil {
		return nil, err
	}
	out := []model.ActiveOrder{}
	first := -1
	for i, r := range rows {
		if r.HasAttr {
			first = i
			break
		}
	}
	if first < 0 {
		s.logger.Warn().Msg("no active orders")
		return out, nil
	}

	schema, err := model.ActiveOrdersSchemas.Select(s.schema, rows[first].Cells)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if !r.HasAttr {
			if len(r.Cells) < schema.Width() {
				s.logger.Debug().Int("row", i).Int("cells", len(r.Cells)).Msg("skip placeholder row")
				continue
			}
			return nil, fmt.Errorf("active orders row %d (%s): %w",
				i, strings.Join(r.Cells, " "), model.ErrMissingOrderID)
		}
		o, err := model.ActiveOrderFromCells(schema, r.Attr, r.Cells)
		if err != nil {
			return nil, fmt.Errorf("active orders row %d: %w", i, err)
		}
		if filter.Match(o) {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		s.logger.Warn().
			Str("symbol", filter.Symbol).
			Str("type", filter.Type.String()).
			Msg("no filtered active orders")
	}
	return out, nil
}

func (s *PortfolioService) SymbolPresentInActiveOrders(ctx context.Context, symbol string) (bool, error) {
	orders, err := s.ActiveOrders(ctx, model.ActiveOrderFilter{})
	if err != nil {
		return false, err
	}
	symbol = model.NormalizeSymbol(symbol)
	for _, o := range orders {
		if o.Symbol == symbol {
			return true, nil
		}
	}
	return false, nil
}

// read treats a table that is not rendered at all as having no rows.
func (s *PortfolioService) read(ctx context.Context, t Table, opts ExtractOptions) ([]Row, error) {
	rows, err := s.tables.Extract(ctx, t, opts)
	if errors.Is(err, port.ErrElementNotFound) {
		s.logger.Debug().Str("table", t.String()).Msg("table not rendered")
		return nil, nil
	}
	return rows, err
}
