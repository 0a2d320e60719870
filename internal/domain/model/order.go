package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidTicket is returned when an order ticket is incomplete for its type.
var ErrInvalidTicket = errors.New("invalid order ticket")

// OrderTicket is what the order-entry panel is filled with.
type OrderTicket struct {
	Symbol string
	Side   Side
	Qty    int64
	Type   OrderType
	TIF    TIF
	Limit  decimal.Decimal
	Stop   decimal.Decimal
}

func (t OrderTicket) Validate() error {
	switch {
	case NormalizeSymbol(t.Symbol) == "":
		return fmt.Errorf("%w: symbol is empty", ErrInvalidTicket)
	case !t.Side.Valid():
		return fmt.Errorf("%w: side is not set", ErrInvalidTicket)
	case t.Qty <= 0:
		return fmt.Errorf("%w: quantity %d", ErrInvalidTicket, t.Qty)
	case !t.Type.Valid():
		return fmt.Errorf("%w: order type is not set", ErrInvalidTicket)
	case t.Type == OrderTypeRange:
		return fmt.Errorf("%w: %s orders are not supported by the ticket", ErrInvalidTicket, t.Type)
	case !t.TIF.Valid():
		return fmt.Errorf("%w: time in force is not set", ErrInvalidTicket)
	case t.Type.NeedsLimitPrice() && !t.Limit.IsPositive():
		return fmt.Errorf("%w: %s needs a positive limit price", ErrInvalidTicket, t.Type)
	case t.Type.NeedsStopPrice() && !t.Stop.IsPositive():
		return fmt.Errorf("%w: %s needs a positive stop price", ErrInvalidTicket, t.Type)
	}
	return nil
}

// Quote is the level-1 panel for the loaded symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
	Last   decimal.Decimal `json:"last"`
	Ask    decimal.Decimal `json:"ask"`
	Bid    decimal.Decimal `json:"bid"`
}

// CancelReport summarizes one cancellation pass.
type CancelReport struct {
	Symbol  string
	Type    OrderType
	Matched []ActiveOrder
	Clicked []string
	Skipped []SkippedCancel
}

// SkippedCancel is a cancel target that disappeared or went stale.
type SkippedCancel struct {
	Key    string
	Reason string
}

// Cancel outcomes as persisted by the journal.
const (
	CancelOutcomeClicked = "clicked"
	CancelOutcomeSkipped = "skipped"
)

// CancelRecord is one journaled cancel attempt.
type CancelRecord struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	OrderType string `json:"order_type"`
	OrderID   string `json:"order_id"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
	Ts        int64  `json:"ts_ms"`
}

// LocateStatusEasyToBorrow is the status shown when no locate is needed.
const LocateStatusEasyToBorrow = "Easy to borrow"

// LocateShareLot is the granularity of locate and credit quantities.
const LocateShareLot = 100

// ErrInvalidLocate is returned for locate or credit requests the panel would refuse.
var ErrInvalidLocate = errors.New("invalid locate request")

// LocateOffer is the borrow quote for shorting a symbol. Easy-to-borrow
// symbols have no offer and zero cost.
type LocateOffer struct {
	Symbol        string          `json:"symbol"`
	Shares        int64           `json:"shares"`
	PricePerShare decimal.Decimal `json:"price_per_share"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	EasyToBorrow  bool            `json:"easy_to_borrow"`
}

// ValidateLocateShares checks a locate or credit quantity.
func ValidateLocateShares(qty int64) error {
	if qty <= 0 || qty%LocateShareLot != 0 {
		return fmt.Errorf("%w: %d shares is not a positive multiple of %d", ErrInvalidLocate, qty, LocateShareLot)
	}
	return nil
}
