package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var errConnClosed = errors.New("cdp connection closed")

type cdpRequest struct {
	ID        int64  `json:"id"`
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type cdpMessage struct {
	ID        int64           `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *cdpError       `json:"error,omitempty"`
}

type cdpError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string { return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message) }

// cdpConn is one browser-level DevTools websocket. Requests are matched to
// responses by id; events are dropped.
type cdpConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan cdpMessage
	err     error
	done    chan struct{}
}

// resolveWebSocketURL accepts either a ws:// debugger URL or the http://
// DevTools endpoint, in which case /json/version is asked for the browser URL.
func resolveWebSocketURL(ctx context.Context, cdpURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(cdpURL))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws", "wss":
		return u.String(), nil
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported CDP URL scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/json/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	var v struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return "", err
	}
	if v.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("GET %s: no webSocketDebuggerUrl", u)
	}
	return v.WebSocketDebuggerURL, nil
}

func dialCDP(ctx context.Context, cdpURL string) (*cdpConn, error) {
	wsURL, err := resolveWebSocketURL(ctx, cdpURL)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ws, _, err := websocket.DefaultDialer.DialContext(cctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	ws.SetReadLimit(64 << 20)

	c := &cdpConn{
		ws:      ws,
		pending: make(map[int64]chan cdpMessage),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *cdpConn) readLoop() {
	var err error
	defer func() {
		c.mu.Lock()
		c.err = err
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
		close(c.done)
	}()

	for {
		var b []byte
		if _, b, err = c.ws.ReadMessage(); err != nil {
			return
		}
		var msg cdpMessage
		if e := json.Unmarshal(b, &msg); e != nil {
			log.Error().Err(e).Msg("cdp message unmarshal failed")
			continue
		}
		if msg.ID == 0 {
			continue // event
		}
		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

// call sends method and decodes the result into out (if non-nil).
func (c *cdpConn) call(ctx context.Context, sessionID, method string, params, out any) error {
	ch := make(chan cdpMessage, 1)

	c.mu.Lock()
	if c.err != nil || isClosed(c.done) {
		c.mu.Unlock()
		return errConnClosed
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	b, err := json.Marshal(cdpRequest{ID: id, Method: method, Params: params, SessionID: sessionID})
	if err != nil {
		c.forget(id)
		return err
	}
	c.writeMu.Lock()
	err = c.ws.WriteMessage(websocket.TextMessage, b)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return err
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	case msg, ok := <-ch:
		if !ok {
			return errConnClosed
		}
		if msg.Error != nil {
			return msg.Error
		}
		if out == nil || len(msg.Result) == 0 {
			return nil
		}
		return json.Unmarshal(msg.Result, out)
	}
}

func (c *cdpConn) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (c *cdpConn) close() {
	c.writeMu.Lock()
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	_ = c.ws.Close()
	<-c.done
}

func (c *cdpConn) listTargets(ctx context.Context) ([]*target.Info, error) {
	var out struct {
		TargetInfos []*target.Info `json:"targetInfos"`
	}
	if err := c.call(ctx, "", "Target.getTargets", struct{}{}, &out); err != nil {
		return nil, err
	}
	return out.TargetInfos, nil
}

func (c *cdpConn) attachToTarget(ctx context.Context, id target.ID) (string, error) {
	var out struct {
		SessionID string `json:"sessionId"`
	}
	params := target.AttachToTarget(id).WithFlatten(true)
	if err := c.call(ctx, "", "Target.attachToTarget", params, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

func (c *cdpConn) detachFromTarget(ctx context.Context, sessionID string) error {
	return c.call(ctx, "", "Target.detachFromTarget", map[string]string{"sessionId": sessionID}, nil)
}

// evaluate runs expression and returns its string value.
func (c *cdpConn) evaluate(ctx context.Context, sessionID, expression string) (string, error) {
	var out struct {
		Result           *runtime.RemoteObject     `json:"result"`
		ExceptionDetails *runtime.ExceptionDetails `json:"exceptionDetails"`
	}
	params := runtime.Evaluate(expression).WithReturnByValue(true).WithAwaitPromise(true)
	if err := c.call(ctx, sessionID, "Runtime.evaluate", params, &out); err != nil {
		return "", err
	}
	if out.ExceptionDetails != nil {
		return "", fmt.Errorf("javascript exception: %s", out.ExceptionDetails.Text)
	}
	if out.Result == nil || len(out.Result.Value) == 0 {
		return "", errors.New("evaluation returned no value")
	}
	var s string
	if err := json.Unmarshal(out.Result.Value, &s); err != nil {
		return "", fmt.Errorf("evaluation returned non-string value: %w", err)
	}
	return s, nil
}

// click dispatches a trusted left click at viewport coordinates.
func (c *cdpConn) click(ctx context.Context, sessionID string, x, y float64) error {
	for _, typ := range []input.MouseType{input.MousePressed, input.MouseReleased} {
		params := input.DispatchMouseEvent(typ, x, y).WithButton(input.Left).WithClickCount(1)
		if err := c.call(ctx, sessionID, "Input.dispatchMouseEvent", params, nil); err != nil {
			return err
		}
	}
	return nil
}

// pressEnter sends Enter to the focused element.
func (c *cdpConn) pressEnter(ctx context.Context, sessionID string) error {
	down := input.DispatchKeyEvent(input.KeyDown).
		WithKey("Enter").WithCode("Enter").WithWindowsVirtualKeyCode(13).WithText("\r")
	if err := c.call(ctx, sessionID, "Input.dispatchKeyEvent", down, nil); err != nil {
		return err
	}
	up := input.DispatchKeyEvent(input.KeyUp).
		WithKey("Enter").WithCode("Enter").WithWindowsVirtualKeyCode(13)
	return c.call(ctx, sessionID, "Input.dispatchKeyEvent", up, nil)
}
