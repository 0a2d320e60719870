package service

import (
	"context"
	"errors"
	"time"

	"tzweb/internal/application/port"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ClickOptions 点击重试参数
type ClickOptions struct {
	Timeout        time.Duration // 等待可点击
	InterceptPause time.Duration // 被遮挡后回到页面顶部再等待
	BareAttempts   int           // 额外的重新定位点击次数
}

func DefaultClickOptions() ClickOptions {
	return ClickOptions{
		Timeout:        10 * time.Second,
		InterceptPause: time.Second,
		BareAttempts:   3,
	}
}

// ClickDriver is the only component that clicks through the automation port.
// Every attempt resolves the element from its locator again.
type ClickDriver struct {
	page   port.Automation
	opts   ClickOptions
	logger zerolog.Logger
}

func NewClickDriver(page port.Automation, opts ClickOptions) *ClickDriver {
	if opts.BareAttempts < 0 {
		opts.BareAttempts = 0
	}
	return &ClickDriver{
		page:   page,
		opts:   opts,
		logger: log.Logger.With().Str("component", "click").Logger(),
	}
}

// clickState tracks what the attempts so far achieved.
type clickState struct {
	clicked bool  // at least one click landed
	reached bool  // at least one attempt hit the element but was intercepted
	lastErr error // last locate/protocol failure
}

// Click clicks loc on a best-effort basis. Interception and clickability
// timeouts are absorbed. It returns ctx.Err() when the context ends, and
// port.ErrElementNotFound or port.ErrStaleElement only when no attempt ever
// reached the element.
func (d *ClickDriver) Click(ctx context.Context, loc port.Locator) error {
	st := d.guarded(ctx, loc)
	if err := ctx.Err(); err != nil {
		return err
	}

attempts:
	for i := 0; i < d.opts.BareAttempts; i++ {
		err := d.page.Click(ctx, loc)
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, port.ErrClickIntercepted):
			st.reached = true
			d.logger.Debug().Str("locator", loc.String()).Int("attempt", i+1).Msg("click intercepted")
			if err := d.backOff(ctx); err != nil {
				return err
			}
		case errors.Is(err, port.ErrElementNotFound), errors.Is(err, port.ErrStaleElement):
			// 之前已点中，元素消失说明点击已生效
			if st.clicked {
				return nil
			}
			st.lastErr = err
			if errors.Is(err, port.ErrElementNotFound) {
				break attempts
			}
		default:
			st.lastErr = err
			d.logger.Warn().Err(err).Str("locator", loc.String()).Int("attempt", i+1).Msg("click failed")
		}
	}

	if st.clicked || st.reached {
		if !st.clicked {
			d.logger.Warn().Str("locator", loc.String()).Msg("click retries exhausted")
		}
		return nil
	}
	return st.lastErr
}

// ClickOnce runs the guarded click without the bare retry loop, for controls
// where a second click would repeat an action. Unlike Click it reports
// interception.
func (d *ClickDriver) ClickOnce(ctx context.Context, loc port.Locator) error {
	st := d.guarded(ctx, loc)
	if err := ctx.Err(); err != nil {
		return err
	}
	if st.clicked {
		return nil
	}
	if st.lastErr != nil {
		return st.lastErr
	}
	return port.ErrClickIntercepted
}

// guarded: wait clickable, scroll into view, click, one retry after interception.
func (d *ClickDriver) guarded(ctx context.Context, loc port.Locator) clickState {
	var st clickState

	if err := d.page.WaitClickable(ctx, loc, d.opts.Timeout); err != nil {
		if ctx.Err() != nil {
			return st
		}
		d.logger.Warn().Err(err).Str("locator", loc.String()).Dur("timeout", d.opts.Timeout).Msg("click timeout")
	}

	if err := d.page.ScrollIntoView(ctx, loc); err != nil {
		st.lastErr = err
		return st
	}

	for try := 0; try < 2; try++ {
		err := d.page.Click(ctx, loc)
		switch {
		case err == nil:
			st.clicked = true
			return st
		case errors.Is(err, port.ErrClickIntercepted):
			st.reached = true
			d.logger.Debug().Str("locator", loc.String()).Msg("click intercepted, scrolling to top")
			if d.backOff(ctx) != nil {
				return st
			}
		default:
			st.lastErr = err
			return st
		}
	}
	return st
}

func (d *ClickDriver) backOff(ctx context.Context) error {
	if err := d.page.ScrollToTop(ctx); err != nil && ctx.Err() == nil {
		d.logger.Debug().Err(err).Msg("scroll to top failed")
	}
	return sleepCtx(ctx, d.opts.InterceptPause)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
