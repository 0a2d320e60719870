package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	// ErrNoLocateOffer means the panel produced no offer, or the offer row is gone.
	ErrNoLocateOffer = errors.New("no locate offer")
	// ErrNotLocated means the symbol is not in the locate inventory.
	ErrNotLocated = errors.New("symbol not in locate inventory")
)

// Short-locate panel elements.
var (
	locateTab         = port.ByID("locate-tab-1")
	locateSymbolInput = port.ByID("short-list-input-symbol")
	locateSharesInput = port.ByID("short-list-input-shares")
	locateStatus      = port.ByID("short-list-locate-status")
	locateButton      = port.ByID("short-list-button-locate")
)

// offerCell is a cell of the symbol's pending offer row: 2 is price per share, 6 the total.
func offerCell(symbol string, n int) port.Locator {
	return port.ByID(fmt.Sprintf("oitem-l-%s-cell-%d", symbol, n))
}

// OfferDecisionLocator is the accept (1) or decline (2) control of an offer.
func OfferDecisionLocator(symbol string, span int) port.Locator {
	return port.ByXPath(fmt.Sprintf(`//*[@id="oitem-l-%s-cell-8"]/span[%d]`, symbol, span))
}

func creditQtyInput(symbol string) port.Locator {
	return port.ByID("inv-" + symbol + "-sell-qty")
}

// CreditLocator is the button that sells located shares back.
func CreditLocator(symbol string) port.Locator {
	return port.ByXPath(fmt.Sprintf(`//*[@id="inv-%s-sell"]/button`, symbol))
}

// LocateOptions 定位轮询参数
type LocateOptions struct {
	PollInterval time.Duration
	StatusPolls  int // 等待 locate 状态文本
	OfferPolls   int // 点击 locate 后等待报价
}

func DefaultLocateOptions() LocateOptions {
	return LocateOptions{PollInterval: 150 * time.Millisecond, StatusPolls: 100, OfferPolls: 10}
}

// LocateService requests short locates, answers offers and credits located
// shares back through the locate panel.
type LocateService struct {
	page      port.FormDriver
	clicks    *ClickDriver
	portfolio *PortfolioService
	opts      LocateOptions
	logger    zerolog.Logger
}

func NewLocateService(page port.FormDriver, clicks *ClickDriver, portfolio *PortfolioService, opts LocateOptions) *LocateService {
	if opts.StatusPolls <= 0 {
		opts.StatusPolls = 1
	}
	if opts.OfferPolls <= 0 {
		opts.OfferPolls = 1
	}
	return &LocateService{
		page:      page,
		clicks:    clicks,
		portfolio: portfolio,
		opts:      opts,
		logger:    log.Logger.With().Str("component", "locate").Logger(),
	}
}

// Locate asks for a borrow quote on qty shares of symbol. Easy-to-borrow
// symbols return immediately without requesting a locate.
func (s *LocateService) Locate(ctx context.Context, symbol string, qty int64) (model.LocateOffer, error) {
	symbol = model.NormalizeSymbol(symbol)
	offer := model.LocateOffer{Symbol: symbol, Shares: qty}
	if symbol == "" {
		return offer, fmt.Errorf("%w: symbol is required", model.ErrInvalidLocate)
	}
	if err := model.ValidateLocateShares(qty); err != nil {
		return offer, err
	}

	if err := s.clicks.Click(ctx, locateTab); err != nil {
		return offer, fmt.Errorf("locate %s: open tab: %w", symbol, err)
	}
	steps := []formStep{
		{"symbol", func() error { return s.page.SetValue(ctx, locateSymbolInput, symbol) }},
		{"symbol enter", func() error { return s.page.PressEnter(ctx, locateSymbolInput) }},
		{"shares", func() error { return s.page.SetValue(ctx, locateSharesInput, strconv.FormatInt(qty, 10)) }},
	}
	for _, st := range steps {
		if err := st.do(); err != nil {
			return offer, fmt.Errorf("locate %s: %s: %w", symbol, st.name, err)
		}
	}

	status, err := s.waitStatus(ctx)
	if err != nil {
		return offer, fmt.Errorf("locate %s: %w", symbol, err)
	}
	offer.Status = status
	if strings.EqualFold(status, model.LocateStatusEasyToBorrow) {
		offer.EasyToBorrow = true
		s.logger.Info().Str("symbol", symbol).Msg("easy to borrow")
		return offer, nil
	}

	// 重复点击会再次请求报价
	if err := s.clicks.ClickOnce(ctx, locateButton); err != nil {
		return offer, fmt.Errorf("locate %s: request: %w", symbol, err)
	}
	for i := 0; i < s.opts.OfferPolls; i++ {
		pps, ok1 := s.number(ctx, offerCell(symbol, 2))
		total, ok2 := s.number(ctx, offerCell(symbol, 6))
		if ok1 && ok2 {
			offer.PricePerShare, offer.Total = pps, total
			offer.Status = "locate available at $" + total.StringFixed(2)
			s.logger.Info().
				Str("symbol", symbol).
				Int64("shares", qty).
				Str("pps", pps.String()).
				Str("total", total.String()).
				Msg("locate offer")
			return offer, nil
		}
		if err := sleepCtx(ctx, s.opts.PollInterval); err != nil {
			return offer, err
		}
	}
	return offer, fmt.Errorf("%w: %s (status %q)", ErrNoLocateOffer, symbol, status)
}

func (s *LocateService) waitStatus(ctx context.Context) (string, error) {
	for i := 0; i < s.opts.StatusPolls; i++ {
		text, err := s.page.Text(ctx, locateStatus)
		if err == nil && text != "" {
			return text, nil
		}
		if err := sleepCtx(ctx, s.opts.PollInterval); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: no locate status", ErrNoLocateOffer)
}

// number reads a cell that is still rendering as not ready.
func (s *LocateService) number(ctx context.Context, loc port.Locator) (decimal.Decimal, bool) {
	text, err := s.page.Text(ctx, loc)
	if err != nil || strings.TrimSpace(text) == "" {
		return decimal.Zero, false
	}
	d, err := model.ParseDecimal(text)
	return d, err == nil
}

// Accept takes the pending offer for symbol.
func (s *LocateService) Accept(ctx context.Context, symbol string) error {
	return s.decide(ctx, symbol, 1, "accepted")
}

// Decline rejects the pending offer for symbol.
func (s *LocateService) Decline(ctx context.Context, symbol string) error {
	return s.decide(ctx, symbol, 2, "declined")
}

func (s *LocateService) decide(ctx context.Context, symbol string, span int, verb string) error {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", model.ErrInvalidLocate)
	}
	err := s.clicks.ClickOnce(ctx, OfferDecisionLocator(symbol, span))
	switch {
	case err == nil:
		s.logger.Info().Str("symbol", symbol).Msg("locate offer " + verb)
		return nil
	case errors.Is(err, port.ErrElementNotFound), errors.Is(err, port.ErrStaleElement):
		return fmt.Errorf("%w: %s not found or already processed: %w", ErrNoLocateOffer, symbol, err)
	}
	return fmt.Errorf("locate %s: %w", symbol, err)
}

// Credit sells qty located shares of symbol back; qty 0 credits all of them.
func (s *LocateService) Credit(ctx context.Context, symbol string, qty int64) error {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", model.ErrInvalidLocate)
	}
	if qty != 0 {
		if err := model.ValidateLocateShares(qty); err != nil {
			return err
		}
	}

	inv, err := s.portfolio.Inventory(ctx)
	if err != nil {
		return err
	}
	var row *model.InventoryRow
	for i := range inv {
		if inv[i].Symbol == symbol {
			row = &inv[i]
			break
		}
	}
	if row == nil {
		return fmt.Errorf("%w: %s", ErrNotLocated, symbol)
	}

	if qty != 0 {
		if decimal.NewFromInt(qty).GreaterThan(row.Available) {
			return fmt.Errorf("%w: credit %d exceeds %s located shares of %s",
				model.ErrInvalidLocate, qty, row.Available, symbol)
		}
		if err := s.page.SetValue(ctx, creditQtyInput(symbol), strconv.FormatInt(qty, 10)); err != nil {
			return fmt.Errorf("credit %s: quantity: %w", symbol, err)
		}
	}
	if err := s.clicks.ClickOnce(ctx, CreditLocator(symbol)); err != nil {
		return fmt.Errorf("credit %s: %w", symbol, err)
	}
	s.logger.Info().Str("symbol", symbol).Int64("qty", qty).Msg("locates credited")
	return nil
}
