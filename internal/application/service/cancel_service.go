package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tzweb/internal/application/port"
	"tzweb/internal/domain/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ActiveOrdersPanelID contains the active-orders table and its CANCEL controls.
const ActiveOrdersPanelID = "portfolio-content-tab-ao-1"

// CancelLocator finds the row-scoped CANCEL control of one order.
func CancelLocator(key string) port.Locator {
	return port.ByXPath(fmt.Sprintf(`//div[@id="%s"]//*[@order-id="%s"]/td[@class="red"]`, ActiveOrdersPanelID, key))
}

// CancelService cancels the active orders that match a symbol and order type.
type CancelService struct {
	portfolio *PortfolioService
	clicks    *ClickDriver
	journal   *JournalService // optional
	settle    time.Duration
	logger    zerolog.Logger
}

func NewCancelService(portfolio *PortfolioService, clicks *ClickDriver, journal *JournalService, settle time.Duration) *CancelService {
	return &CancelService{
		portfolio: portfolio,
		clicks:    clicks,
		journal:   journal,
		settle:    settle,
		logger:    log.Logger.With().Str("component", "cancel").Logger(),
	}
}

// CancelActiveOrders clicks CANCEL on every active order of symbol whose type
// matches orderType (OrderTypeAny matches all). Orders that vanish or go stale
// before their click are skipped. Calling it again after the UI has settled
// finds nothing to do.
func (s *CancelService) CancelActiveOrders(ctx context.Context, symbol string, orderType model.OrderType) (model.CancelReport, error) {
	symbol = model.NormalizeSymbol(symbol)
	report := model.CancelReport{Symbol: symbol, Type: orderType}
	if symbol == "" {
		return report, fmt.Errorf("%w: symbol is required", model.ErrInvalidFilter)
	}

	if err := s.portfolio.SwitchTab(ctx, model.TabActiveOrders); err != nil {
		return report, err
	}
	orders, err := s.portfolio.ActiveOrders(ctx, model.ActiveOrderFilter{Symbol: symbol, Type: orderType})
	if err != nil {
		return report, err
	}
	if len(orders) == 0 {
		return report, nil
	}
	report.Matched = orders

	for _, o := range orders {
		key := o.CancelKey()
		err := s.cancelOne(ctx, key)
		switch {
		case err == nil:
			report.Clicked = append(report.Clicked, key)
			s.logger.Info().Str("symbol", symbol).Str("order_id", key).Msg("cancel clicked")
			s.record(ctx, o, key, model.CancelOutcomeClicked, "")
		case ctx.Err() != nil:
			return report, ctx.Err()
		default:
			reason := skipReason(err)
			report.Skipped = append(report.Skipped, model.SkippedCancel{Key: key, Reason: reason})
			s.logger.Warn().Err(err).Str("symbol", symbol).Str("order_id", key).Msg("cancel target skipped")
			s.record(ctx, o, key, model.CancelOutcomeSkipped, reason)
		}
	}

	if err := sleepCtx(ctx, s.settle); err != nil {
		return report, err
	}
	return report, nil
}

func (s *CancelService) cancelOne(ctx context.Context, key string) error {
	if key == "" || strings.ContainsAny(key, `"'`) {
		return fmt.Errorf("%w: unusable cancel key %q", port.ErrElementNotFound, key)
	}
	return s.clicks.Click(ctx, CancelLocator(key))
}

func (s *CancelService) record(ctx context.Context, o model.ActiveOrder, key, outcome, reason string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordCancel(ctx, o.Symbol, o.Type, key, outcome, reason); err != nil {
		s.logger.Error().Err(err).Str("order_id", key).Msg("journal cancel failed")
	}
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, port.ErrElementNotFound):
		return "not found"
	case errors.Is(err, port.ErrStaleElement):
		return "stale"
	}
	return err.Error()
}
