package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownValue is returned when text does not name a member of a vocabulary.
var ErrUnknownValue = errors.New("unknown vocabulary value")

// ========== Order type ==========

// OrderType is one entry of the order-type drop-down. The zero value means "any"
// when used as a filter and is never rendered by the UI.
type OrderType uint8

const (
	OrderTypeAny OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStop
	OrderTypeStopLimit
	OrderTypeMarketOnClose
	OrderTypeLimitOnClose
	OrderTypeRange
	orderTypeEnd
)

var orderTypeUI = [...]string{
	OrderTypeAny:           "",
	OrderTypeMarket:        "MKT",
	OrderTypeLimit:         "LMT",
	OrderTypeStop:          "Stop-MKT",
	OrderTypeStopLimit:     "Stop-LMT",
	OrderTypeMarketOnClose: "MKT-Close",
	OrderTypeLimitOnClose:  "LMT-Close",
	OrderTypeRange:         "RANGE",
}

var orderTypeNames = [...]string{
	OrderTypeAny:           "any",
	OrderTypeMarket:        "market",
	OrderTypeLimit:         "limit",
	OrderTypeStop:          "stop",
	OrderTypeStopLimit:     "stop-limit",
	OrderTypeMarketOnClose: "market-on-close",
	OrderTypeLimitOnClose:  "limit-on-close",
	OrderTypeRange:         "range",
}

// Valid reports whether t is a concrete order type (OrderTypeAny excluded).
func (t OrderType) Valid() bool { return t > OrderTypeAny && t < orderTypeEnd }

// UIValue is the value used by the drop-down and rendered in the orders table.
func (t OrderType) UIValue() string {
	if t >= orderTypeEnd {
		return ""
	}
	return orderTypeUI[t]
}

func (t OrderType) String() string {
	if t >= orderTypeEnd {
		return fmt.Sprintf("OrderType(%d)", uint8(t))
	}
	return orderTypeNames[t]
}

// NeedsLimitPrice reports whether a ticket of this type carries a limit price.
func (t OrderType) NeedsLimitPrice() bool {
	return t == OrderTypeLimit || t == OrderTypeStopLimit || t == OrderTypeLimitOnClose
}

// NeedsStopPrice reports whether a ticket of this type carries a stop price.
func (t OrderType) NeedsStopPrice() bool {
	return t == OrderTypeStop || t == OrderTypeStopLimit
}

// ParseOrderType accepts either the UI value ("LMT") or the name ("limit"),
// case-insensitively.
func ParseOrderType(s string) (OrderType, error) {
	s = strings.TrimSpace(s)
	for t := OrderTypeMarket; t < orderTypeEnd; t++ {
		if strings.EqualFold(s, orderTypeUI[t]) || strings.EqualFold(s, orderTypeNames[t]) {
			return t, nil
		}
	}
	return OrderTypeAny, fmt.Errorf("%w: order type %q", ErrUnknownValue, s)
}

// orderTypeFromUI maps rendered table text to an order type. Unknown text maps
// to OrderTypeAny so that it never matches a concrete filter.
func orderTypeFromUI(s string) OrderType {
	s = strings.TrimSpace(s)
	for t := OrderTypeMarket; t < orderTypeEnd; t++ {
		if strings.EqualFold(s, orderTypeUI[t]) {
			return t
		}
	}
	return OrderTypeAny
}

// ========== Time in force ==========

type TIF uint8

const (
	TIFUnknown TIF = iota
	TIFDay
	TIFGoodTillCancel
	TIFGoodTillExtended
	tifEnd
)

var tifUI = [...]string{
	TIFUnknown:          "",
	TIFDay:              "DAY",
	TIFGoodTillCancel:   "GTC",
	TIFGoodTillExtended: "GTX",
}

func (t TIF) Valid() bool { return t > TIFUnknown && t < tifEnd }

func (t TIF) UIValue() string {
	if t >= tifEnd {
		return ""
	}
	return tifUI[t]
}

func (t TIF) String() string { return t.UIValue() }

func ParseTIF(s string) (TIF, error) {
	s = strings.TrimSpace(s)
	for t := TIFDay; t < tifEnd; t++ {
		if strings.EqualFold(s, tifUI[t]) {
			return t, nil
		}
	}
	return TIFUnknown, fmt.Errorf("%w: time in force %q", ErrUnknownValue, s)
}

// ========== Side ==========

type Side uint8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
	SideShort
	SideCover
	sideEnd
)

var sideUI = [...]string{
	SideUnknown: "",
	SideBuy:     "buy",
	SideSell:    "sell",
	SideShort:   "short",
	SideCover:   "cover",
}

func (s Side) Valid() bool { return s > SideUnknown && s < sideEnd }

// UIValue is the suffix of the ticket button id, e.g. trading-order-button-buy.
func (s Side) UIValue() string {
	if s >= sideEnd {
		return ""
	}
	return sideUI[s]
}

func (s Side) String() string { return s.UIValue() }

func ParseSide(v string) (Side, error) {
	v = strings.TrimSpace(v)
	for s := SideBuy; s < sideEnd; s++ {
		if strings.EqualFold(v, sideUI[s]) {
			return s, nil
		}
	}
	return SideUnknown, fmt.Errorf("%w: side %q", ErrUnknownValue, v)
}

// ========== Portfolio tab ==========

// Tab selects one pane of the portfolio widget.
type Tab uint8

const (
	TabOpenPositions Tab = iota + 1
	TabClosedPositions
	TabActiveOrders
	TabInactiveOrders
	tabEnd
)

var tabIDs = [...]string{
	TabOpenPositions:   "portfolio-tab-op-1",
	TabClosedPositions: "portfolio-tab-cp-1",
	TabActiveOrders:    "portfolio-tab-ao-1",
	TabInactiveOrders:  "portfolio-tab-io-1",
}

var tabNames = [...]string{
	TabOpenPositions:   "open",
	TabClosedPositions: "closed",
	TabActiveOrders:    "active",
	TabInactiveOrders:  "inactive",
}

func (t Tab) Valid() bool { return t >= TabOpenPositions && t < tabEnd }

// ElementID is the DOM id of the tab selector.
func (t Tab) ElementID() string {
	if !t.Valid() {
		return ""
	}
	return tabIDs[t]
}

func (t Tab) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tab(%d)", uint8(t))
	}
	return tabNames[t]
}

func ParseTab(s string) (Tab, error) {
	s = strings.TrimSpace(s)
	for t := TabOpenPositions; t < tabEnd; t++ {
		if strings.EqualFold(s, tabNames[t]) || s == tabIDs[t] {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: tab %q", ErrUnknownValue, s)
}
