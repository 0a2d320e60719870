package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ErrOutsideMarketHours is returned for order types the broker only accepts
// during regular trading hours.
var ErrOutsideMarketHours = errors.New("order type not accepted outside market hours")

var (
	orderTypeSelect = port.ByID("trading-order-select-type")
	tifSelect       = port.ByID("trading-order-select-time")
	quantityInput   = port.ByID("trading-order-input-quantity")
	limitInput      = port.ByID("trading-order-input-price")
	stopInput       = port.ByID("trading-order-input-sprice")
)

// SideButton is the submit button for a side.
func SideButton(side model.Side) port.Locator {
	return port.ByID("trading-order-button-" + side.UIValue())
}

type formStep struct {
	name string
	do   func() error
}

// OrderEntryService 填写下单面板并提交
type OrderEntryService struct {
	page   port.FormDriver
	quotes *QuoteService
	clicks *ClickDriver
	clock  func() time.Time
	market *time.Location
	logger zerolog.Logger
}

func NewOrderEntryService(page port.FormDriver, quotes *QuoteService, clicks *ClickDriver) *OrderEntryService {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &OrderEntryService{
		page:   page,
		quotes: quotes,
		clicks: clicks,
		clock:  time.Now,
		market: loc,
		logger: log.Logger.With().Str("component", "order").Logger(),
	}
}

// RegularHours reports whether t falls in 09:30-16:00 New York time on a weekday.
func (s *OrderEntryService) RegularHours(t time.Time) bool {
	t = t.In(s.market)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	return m >= 9*60+30 && m < 16*60
}

// OrderQuantity is how many whole shares of symbol buyingPower buys at the
// last price.
func (s *OrderEntryService) OrderQuantity(ctx context.Context, symbol string, buyingPower decimal.Decimal) (int64, error) {
	if buyingPower.IsNegative() {
		return 0, fmt.Errorf("%w: buying power %s", model.ErrInvalidTicket, buyingPower)
	}
	q, err := s.quotes.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if !q.Last.IsPositive() {
		return 0, fmt.Errorf("%w: %s has no last price", ErrSymbolNotLoaded, q.Symbol)
	}
	return buyingPower.Div(q.Last).Floor().IntPart(), nil
}

// Place fills the order panel from the ticket and clicks the side button once.
func (s *OrderEntryService) Place(ctx context.Context, t model.OrderTicket) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if (t.Type == model.OrderTypeMarket || t.Type == model.OrderTypeStop) && !s.RegularHours(s.clock()) {
		return fmt.Errorf("%w: %s at %s", ErrOutsideMarketHours, t.Type, s.clock().In(s.market).Format("15:04:05"))
	}

	symbol := model.NormalizeSymbol(t.Symbol)
	if err := s.quotes.LoadSymbol(ctx, symbol); err != nil {
		return err
	}

	steps := []formStep{
		{"order type", func() error { return s.page.Select(ctx, orderTypeSelect, t.Type.UIValue()) }},
		{"time in force", func() error { return s.page.Select(ctx, tifSelect, t.TIF.UIValue()) }},
		{"quantity", func() error { return s.page.SetValue(ctx, quantityInput, fmt.Sprint(t.Qty)) }},
	}
	if t.Type.NeedsLimitPrice() {
		steps = append(steps, formStep{"limit price", func() error { return s.page.SetValue(ctx, limitInput, t.Limit.String()) }})
	}
	if t.Type.NeedsStopPrice() {
		steps = append(steps, formStep{"stop price", func() error { return s.page.SetValue(ctx, stopInput, t.Stop.String()) }})
	}
	for _, st := range steps {
		if err := st.do(); err != nil {
			return fmt.Errorf("order %s %s: %s: %w", t.Side, symbol, st.name, err)
		}
	}

	if err := s.clicks.ClickOnce(ctx, SideButton(t.Side)); err != nil {
		return fmt.Errorf("order %s %s: submit: %w", t.Side, symbol, err)
	}
	s.logger.Info().
		Str("side", t.Side.String()).
		Str("symbol", symbol).
		Int64("qty", t.Qty).
		Str("type", t.Type.UIValue()).
		Str("tif", t.TIF.UIValue()).
		Str("limit", t.Limit.String()).
		Str("stop", t.Stop.String()).
		Msg("order submitted")
	return nil
}
