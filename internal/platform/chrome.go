package platform

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/cockroachdb/errors"
	"pkt.systems/pslog"

	"github.com/sweeney/keyboard-sensor/internal/logic"
)

// ChromeOptions configures the browser the Chrome platform attaches to.
type ChromeOptions struct {
	// RemoteURL is a DevTools websocket URL (e.g. a phone forwarded with
	// adb). Empty launches a local browser.
	RemoteURL string
	// URL is navigated to after attaching. Empty keeps the current page.
	URL string
	// Family forces the strategy family; "" or "auto" detects it from the
	// user agent.
	Family string
	// Headless applies to locally launched browsers only.
	Headless bool
	// EmulateWidth and EmulateHeight enable mobile viewport emulation on a
	// locally launched browser when both are positive.
	EmulateWidth  int64
	EmulateHeight int64
}

// snapshot is the page state sent by the shim with every event.
type snapshot struct {
	Kind           string  `json:"kind"`
	InnerWidth     int     `json:"innerWidth"`
	InnerHeight    int     `json:"innerHeight"`
	AvailHeight    int     `json:"availHeight"`
	Orientation    string  `json:"orientation"`
	Visibility     string  `json:"visibility"`
	Focused        bool    `json:"focused"`
	HasViewport    bool    `json:"hasViewport"`
	ViewportHeight float64 `json:"viewportHeight"`
	ViewportFamily bool    `json:"viewportFamily"`
}

// Chrome is a Platform backed by a browser tab over the DevTools protocol.
// Queries are answered from the latest snapshot. Listener registration and
// queries must happen on the loop goroutine that post feeds. post must not
// block; it reports false when the event had to be dropped.
type Chrome struct {
	ctx    context.Context
	cancel context.CancelFunc
	post   func(func()) bool
	log    pslog.Logger
	family string

	snap snapshot

	focusIn     listeners[func()]
	focusOut    listeners[func()]
	resize      listeners[func(int, int)]
	orientation listeners[func()]
	viewport    listeners[func(float64)]

	closeOnce sync.Once
}

// NewChrome attaches to a browser tab, installs the page shim and reads the
// initial snapshot. Events are handed to post for execution on the loop.
func NewChrome(ctx context.Context, post func(func()) bool, opts ChromeOptions, logger pslog.Logger) (*Chrome, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execOpts...)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		post:   post,
		log:    logger.With("component", "chrome"),
		family: opts.Family,
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if called, ok := ev.(*runtime.EventBindingCalled); ok && called.Name == bindingName {
			c.handlePayload(called.Payload)
		}
	})

	var actions []chromedp.Action
	if opts.RemoteURL == "" && opts.EmulateWidth > 0 && opts.EmulateHeight > 0 {
		actions = append(actions, chromedp.EmulateViewport(opts.EmulateWidth, opts.EmulateHeight, chromedp.EmulateMobile, chromedp.EmulateTouch))
	}
	actions = append(actions,
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(shimJS).Do(ctx)
			return err
		}),
	)
	if opts.URL != "" {
		actions = append(actions, chromedp.Navigate(opts.URL))
	}
	var raw string
	actions = append(actions,
		chromedp.Evaluate(shimJS, nil),
		chromedp.Evaluate(snapshotJS, &raw),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		c.Close()
		return nil, errors.Wrap(err, "attach browser")
	}
	if err := json.Unmarshal([]byte(raw), &c.snap); err != nil {
		c.Close()
		return nil, errors.Wrap(err, "decode initial snapshot")
	}

	c.log.Info("chrome attached", "family", c.Probe().Family, "width", c.snap.InnerWidth, "height", c.snap.InnerHeight)
	return c, nil
}

// handlePayload decodes a shim message off the loop and dispatches it on the loop.
func (c *Chrome) handlePayload(payload string) {
	var s snapshot
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		c.log.Warn("chrome payload rejected", "err", err)
		return
	}
	if !c.post(func() { c.dispatch(s) }) {
		c.log.Warn("chrome event dropped, loop busy", "kind", s.Kind)
	}
}

func (c *Chrome) dispatch(s snapshot) {
	switch s.Kind {
	case "focusin", "focusout", "resize", "orientation", "viewport", "visibility":
		c.snap = s
	default:
		c.log.Debug("chrome event ignored", "kind", s.Kind)
		return
	}
	switch s.Kind {
	case "focusin":
		c.focusIn.each(func(fn func()) { fn() })
	case "focusout":
		c.focusOut.each(func(fn func()) { fn() })
	case "resize":
		c.resize.each(func(fn func(int, int)) { fn(s.InnerWidth, s.InnerHeight) })
	case "orientation":
		c.orientation.each(func(fn func()) { fn() })
	case "viewport":
		c.viewport.each(func(fn func(float64)) { fn(s.ViewportHeight) })
	case "visibility":
		// Cached only; the detector queries visibility when it needs it.
	}
}

// Probe reports the family (forced or detected) and visual viewport support.
func (c *Chrome) Probe() Capabilities {
	caps := Capabilities{Family: FamilyHeuristic, HasVisualViewport: c.snap.HasViewport}
	switch Family(c.family) {
	case FamilyViewport, FamilyHeuristic:
		caps.Family = Family(c.family)
	default:
		if c.snap.ViewportFamily {
			caps.Family = FamilyViewport
		}
	}
	return caps
}

func (c *Chrome) InnerWidth() int  { return c.snap.InnerWidth }
func (c *Chrome) InnerHeight() int { return c.snap.InnerHeight }
func (c *Chrome) AvailHeight() int { return c.snap.AvailHeight }
func (c *Chrome) HasFocus() bool   { return c.snap.Focused }

func (c *Chrome) Orientation() logic.Orientation {
	if c.snap.Orientation == string(logic.Landscape) {
		return logic.Landscape
	}
	return logic.Portrait
}

func (c *Chrome) Visibility() logic.Visibility {
	if c.snap.Visibility == string(logic.DocumentHidden) {
		return logic.DocumentHidden
	}
	return logic.DocumentVisible
}

func (c *Chrome) OnFocusIn(fn func()) Detach  { return c.focusIn.add(fn) }
func (c *Chrome) OnFocusOut(fn func()) Detach { return c.focusOut.add(fn) }
func (c *Chrome) OnResize(fn func(width, height int)) Detach {
	return c.resize.add(fn)
}
func (c *Chrome) OnOrientationChange(fn func()) Detach { return c.orientation.add(fn) }
func (c *Chrome) OnViewportResize(fn func(height float64)) Detach {
	return c.viewport.add(fn)
}

// Done is closed when the tab or browser goes away.
func (c *Chrome) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close detaches from the browser. A launched browser is shut down.
func (c *Chrome) Close() error {
	c.closeOnce.Do(c.cancel)
	return nil
}

// Compile-time check that Chrome implements Platform.
var _ Platform = (*Chrome)(nil)
