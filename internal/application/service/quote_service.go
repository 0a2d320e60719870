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
	"github.com/shopspring/decimal"
)

// ErrSymbolNotLoaded means the order panel never showed a price for the symbol.
var ErrSymbolNotLoaded = errors.New("symbol did not load")

// Order panel elements.
var (
	symbolInput   = port.ByID("trading-order-input-symbol")
	currentSymbol = port.ByID("trading-order-symbol")
	askField      = port.ByID("trading-order-ask")
)

// quoteFields 与 model.Quote 字段顺序一致
var quoteFields = []string{
	"trading-order-open",
	"trading-order-high",
	"trading-order-low",
	"trading-order-close",
	"trading-order-vol",
	"trading-order-p",
	"trading-order-ask",
	"trading-order-bid",
}

type QuoteOptions struct {
	PollInterval time.Duration
	PollAttempts int
}

func DefaultQuoteOptions() QuoteOptions {
	return QuoteOptions{PollInterval: 10 * time.Millisecond, PollAttempts: 300}
}

// QuoteService loads symbols into the order panel and reads its level-1 fields.
type QuoteService struct {
	page   port.FormDriver
	opts   QuoteOptions
	logger zerolog.Logger
}

func NewQuoteService(page port.FormDriver, opts QuoteOptions) *QuoteService {
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = 1
	}
	return &QuoteService{
		page:   page,
		opts:   opts,
		logger: log.Logger.With().Str("component", "quote").Logger(),
	}
}

// LoadSymbol makes symbol the panel's current symbol and waits for its ask.
func (s *QuoteService) LoadSymbol(ctx context.Context, symbol string) error {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrSymbolNotLoaded)
	}

	if cur, err := s.page.Text(ctx, currentSymbol); err == nil && normalizeCurrent(cur) == symbol {
		if s.askReady(ctx) {
			return nil
		}
	}

	if err := s.page.SetValue(ctx, symbolInput, strings.ToLower(symbol)); err != nil {
		return fmt.Errorf("load %s: %w", symbol, err)
	}
	if err := s.page.PressEnter(ctx, symbolInput); err != nil {
		return fmt.Errorf("load %s: %w", symbol, err)
	}

	for i := 0; i < s.opts.PollAttempts; i++ {
		if s.askReady(ctx) {
			s.logger.Debug().Str("symbol", symbol).Int("polls", i+1).Msg("symbol loaded")
			return nil
		}
		if err := sleepCtx(ctx, s.opts.PollInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrSymbolNotLoaded, symbol)
}

func normalizeCurrent(s string) string {
	return model.NormalizeSymbol(strings.ReplaceAll(s, "(USD)", ""))
}

func (s *QuoteService) askReady(ctx context.Context) bool {
	text, err := s.page.Text(ctx, askField)
	if err != nil || !strings.ContainsAny(text, "0123456789") {
		return false
	}
	_, err = model.ParseDecimal(text)
	return err == nil
}

// Quote loads symbol and reads open/high/low/close/volume/last/ask/bid.
func (s *QuoteService) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	if err := s.LoadSymbol(ctx, symbol); err != nil {
		return model.Quote{}, err
	}
	q := model.Quote{Symbol: model.NormalizeSymbol(symbol)}
	dst := []*decimal.Decimal{&q.Open, &q.High, &q.Low, &q.Close, &q.Volume, &q.Last, &q.Ask, &q.Bid}
	for i, id := range quoteFields {
		text, err := s.page.Text(ctx, port.ByID(id))
		if err != nil {
			return model.Quote{}, fmt.Errorf("quote %s: %s: %w", q.Symbol, id, err)
		}
		d, err := model.ParseDecimal(text)
		if err != nil {
			return model.Quote{}, fmt.Errorf("quote %s: %s: %w", q.Symbol, id, err)
		}
		*dst[i] = d
	}
	return q, nil
}
