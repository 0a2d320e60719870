package port

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Conditions reported by a browser session. Callers test them with errors.Is.
var (
	ErrElementNotFound  = errors.New("element not found")
	ErrStaleElement     = errors.New("stale element")
	ErrClickIntercepted = errors.New("click intercepted")
	ErrClickTimeout     = errors.New("element not clickable before timeout")
)

// Strategy is how a Locator is resolved.
type Strategy uint8

const (
	StrategyID Strategy = iota + 1
	StrategyXPath
	StrategyCSS
)

func (s Strategy) String() string {
	switch s {
	case StrategyID:
		return "id"
	case StrategyXPath:
		return "xpath"
	case StrategyCSS:
		return "css"
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// Locator describes how to find an element on demand. Sessions resolve it
// again on every call; no element handle ever crosses this interface.
type Locator struct {
	By    Strategy
	Value string
}

func ByID(id string) Locator { return Locator{By: StrategyID, Value: id} }

func ByXPath(expr string) Locator { return Locator{By: StrategyXPath, Value: expr} }

func ByCSS(selector string) Locator { return Locator{By: StrategyCSS, Value: selector} }

func (l Locator) String() string { return l.By.String() + "=" + l.Value }

// Automation is the element-level action surface of a browser session.
type Automation interface {
	// WaitClickable blocks until the element is present, visible and enabled,
	// or returns ErrClickTimeout.
	WaitClickable(ctx context.Context, loc Locator, timeout time.Duration) error
	ScrollIntoView(ctx context.Context, loc Locator) error
	// Click resolves the element and clicks its center. It returns
	// ErrClickIntercepted when another element covers that point.
	Click(ctx context.Context, loc Locator) error
	ScrollToTop(ctx context.Context) error
}

// RawRow is one <tr> as rendered.
type RawRow struct {
	Cells []string
	// Header is set for rows that only contain <th> cells.
	Header bool
	// Attr is the value of the requested row attribute; HasAttr tells an
	// absent attribute from an empty one.
	Attr    string
	HasAttr bool
}

// RowSource reads table rows in document order. A missing table is
// ErrElementNotFound.
type RowSource interface {
	TableRows(ctx context.Context, table Locator, attr string) ([]RawRow, error)
}

// FormDriver reads and fills form controls of the order-entry panel.
type FormDriver interface {
	Text(ctx context.Context, loc Locator) (string, error)
	SetValue(ctx context.Context, loc Locator, value string) error
	Select(ctx context.Context, loc Locator, value string) error
	PressEnter(ctx context.Context, loc Locator) error
}

// Page is everything a logged-in trading page offers.
type Page interface {
	Automation
	RowSource
	FormDriver
}
