package browser

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"tzweb/internal/application/port"

	"github.com/chromedp/cdproto/target"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// transientHints are causes worth one reconnect and retry.
var transientHints = []string{
	"target closed",
	"session closed",
	"websocket",
	"connection reset",
	"broken pipe",
	"eof",
	"connection refused",
	"connection closed",
	"no session with given id",
}

type evalEnvelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// Page drives one logged-in trading tab of an already running browser over
// the DevTools protocol. It implements port.Page.
type Page struct {
	cdpURL       string
	tabFilter    string
	evalTimeout  time.Duration
	pollInterval time.Duration

	mu        sync.Mutex
	cdp       *cdpConn
	targetID  target.ID
	sessionID string

	logger zerolog.Logger
}

var _ port.Page = (*Page)(nil)

func NewPage(cdpURL, tabFilter string, evalTimeout time.Duration) *Page {
	if evalTimeout <= 0 {
		evalTimeout = 5 * time.Second
	}
	return &Page{
		cdpURL:       cdpURL,
		tabFilter:    strings.ToLower(strings.TrimSpace(tabFilter)),
		evalTimeout:  evalTimeout,
		pollInterval: 100 * time.Millisecond,
		logger:       log.Logger.With().Str("component", "browser").Logger(),
	}
}

func (p *Page) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked(ctx)
}

func (p *Page) connectLocked(ctx context.Context) error {
	if p.cdpURL == "" {
		return newError(CodeCDPUnavailable, "missing CDP URL", nil)
	}
	p.cleanupLocked()

	p.logger.Info().Str("cdp_url", p.cdpURL).Msg("cdp connecting")
	conn, err := dialCDP(ctx, p.cdpURL)
	if err != nil {
		return newError(CodeCDPUnavailable, "connect to CDP failed", err)
	}
	p.cdp = conn

	targets, err := conn.listTargets(ctx)
	if err != nil {
		p.cleanupLocked()
		return newError(CodeCDPUnavailable, "list targets failed", err)
	}
	var picked *target.Info
	for _, t := range targets {
		if t == nil || t.Type != "page" {
			continue
		}
		if p.tabFilter != "" && !strings.Contains(strings.ToLower(t.URL), p.tabFilter) {
			continue
		}
		picked = t
		break
	}
	if picked == nil {
		p.cleanupLocked()
		return newError(CodePageNotFound, "no page matches tab filter "+jsString(p.tabFilter), nil)
	}

	sid, err := conn.attachToTarget(ctx, picked.TargetID)
	if err != nil {
		p.cleanupLocked()
		return newError(CodeCDPUnavailable, "attach to target failed", err)
	}
	p.targetID, p.sessionID = picked.TargetID, sid
	p.logger.Info().Str("target_id", string(picked.TargetID)).Str("url", picked.URL).Msg("cdp page attached")
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanupLocked()
	return nil
}

func (p *Page) cleanupLocked() {
	if p.cdp == nil {
		return
	}
	if p.sessionID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = p.cdp.detachFromTarget(ctx, p.sessionID)
		cancel()
	}
	p.cdp.close()
	p.cdp, p.sessionID, p.targetID = nil, "", ""
}

func (p *Page) session(ctx context.Context) (*cdpConn, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cdp == nil || p.sessionID == "" {
		if err := p.connectLocked(ctx); err != nil {
			return nil, "", err
		}
	}
	return p.cdp, p.sessionID, nil
}

func (p *Page) shouldRetry(err error) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	if coded.Code == CodeCDPUnavailable {
		return true
	}
	if coded.Code != CodeEvalFailure || coded.Cause == nil {
		return false
	}
	cause := strings.ToLower(coded.Cause.Error())
	for _, h := range transientHints {
		if strings.Contains(cause, h) {
			return true
		}
	}
	return false
}

// eval runs a script built by the js* helpers and decodes the envelope data
// into out. One reconnect is attempted on transport failures.
func (p *Page) eval(ctx context.Context, js string, out any) error {
	err := p.evalOnce(ctx, js, out)
	if err == nil || ctx.Err() != nil || !p.shouldRetry(err) {
		return err
	}
	p.logger.Warn().Err(err).Msg("cdp eval retry after transient failure")
	p.mu.Lock()
	p.cleanupLocked()
	p.mu.Unlock()
	return p.evalOnce(ctx, js, out)
}

func (p *Page) evalOnce(ctx context.Context, js string, out any) error {
	conn, sid, err := p.session(ctx)
	if err != nil {
		return err
	}
	evalCtx, cancel := context.WithTimeout(ctx, p.evalTimeout)
	defer cancel()

	raw, err := conn.evaluate(evalCtx, sid, js)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return newError(CodeEvalTimeout, "evaluation timed out", err)
		}
		if errors.Is(err, errConnClosed) {
			return newError(CodeCDPUnavailable, "evaluation failed", err)
		}
		return classify("evaluation failed", err)
	}

	var env evalEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation envelope", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = CodeEvalFailure
		}
		return newError(code, env.ErrorMessage, nil)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return newError(CodeEvalFailure, "invalid evaluation data", err)
	}
	return nil
}

// ========== port.Automation ==========

func (p *Page) WaitClickable(ctx context.Context, loc port.Locator, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var last error
	for {
		var out struct {
			Clickable bool `json:"clickable"`
		}
		err := p.eval(wctx, jsClickable(loc), &out)
		if err == nil && out.Clickable {
			return nil
		}
		if err != nil && !errors.Is(err, port.ErrElementNotFound) && !errors.Is(err, port.ErrStaleElement) &&
			!errors.Is(err, context.DeadlineExceeded) && !asCode(err, CodeEvalTimeout) {
			return err
		}
		if err != nil {
			last = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wctx.Done():
			return newError(CodeNotClickable, loc.String()+" not clickable after "+timeout.String(), last)
		case <-time.After(p.pollInterval):
		}
	}
}

func (p *Page) ScrollIntoView(ctx context.Context, loc port.Locator) error {
	return p.eval(ctx, jsScrollIntoView(loc), nil)
}

func (p *Page) Click(ctx context.Context, loc port.Locator) error {
	var pt struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := p.eval(ctx, jsClickPoint(loc), &pt); err != nil {
		return err
	}
	conn, sid, err := p.session(ctx)
	if err != nil {
		return err
	}
	if err := conn.click(ctx, sid, pt.X, pt.Y); err != nil {
		return classify("dispatch click failed", err)
	}
	return nil
}

func (p *Page) ScrollToTop(ctx context.Context) error {
	return p.eval(ctx, jsScrollToTop(), nil)
}

// ========== port.RowSource ==========

func (p *Page) TableRows(ctx context.Context, table port.Locator, attr string) ([]port.RawRow, error) {
	var out struct {
		Rows []struct {
			Cells   []string `json:"cells"`
			Header  bool     `json:"header"`
			Attr    string   `json:"attr"`
			HasAttr bool     `json:"has_attr"`
		} `json:"rows"`
	}
	if err := p.eval(ctx, jsTableRows(table, attr), &out); err != nil {
		return nil, err
	}
	rows := make([]port.RawRow, 0, len(out.Rows))
	for _, r := range out.Rows {
		rows = append(rows, port.RawRow{Cells: r.Cells, Header: r.Header, Attr: r.Attr, HasAttr: r.HasAttr})
	}
	return rows, nil
}

// ========== port.FormDriver ==========

func (p *Page) Text(ctx context.Context, loc port.Locator) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := p.eval(ctx, jsText(loc), &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (p *Page) SetValue(ctx context.Context, loc port.Locator, value string) error {
	return p.eval(ctx, jsSetValue(loc, value), nil)
}

func (p *Page) Select(ctx context.Context, loc port.Locator, value string) error {
	return p.eval(ctx, jsSelect(loc, value), nil)
}

func (p *Page) PressEnter(ctx context.Context, loc port.Locator) error {
	if err := p.eval(ctx, jsFocus(loc), nil); err != nil {
		return err
	}
	conn, sid, err := p.session(ctx)
	if err != nil {
		return err
	}
	if err := conn.pressEnter(ctx, sid); err != nil {
		return classify("dispatch key failed", err)
	}
	return nil
}
