// Package keyboard infers whether an on-screen keyboard is showing from
// viewport, focus, orientation and page-visibility signals.
//
// Two strategies exist. Devices that report the keyboard through the visual
// viewport are classified directly from the share of the window it hides.
// Other devices are classified heuristically from layout resizes measured
// against a learned keyboard-free height per orientation.
//
// A Detector and its subscriptions are not safe for concurrent use: the
// platform listeners, the clock callbacks and Unsubscribe must all run on the
// goroutine that drives the host event loop.
package keyboard

import (
	"io"

	"github.com/cockroachdb/errors"
	"pkt.systems/pslog"

	"github.com/sweeney/keyboard-sensor/internal/clock"
	"github.com/sweeney/keyboard-sensor/internal/logic"
	"github.com/sweeney/keyboard-sensor/internal/platform"
)

// ErrUnsupported is reported by Check when the device needs the visual
// viewport signal and the platform does not provide it.
var ErrUnsupported = errors.New("keyboard detection unsupported")

// Strategy names.
const (
	StrategyViewport    = "viewport"
	StrategyHeuristic   = "heuristic"
	StrategyUnsupported = "unsupported"
)

// Unsubscribe stops a subscription. It is idempotent.
type Unsubscribe func()

// Detector selects a strategy for its platform and starts subscriptions.
type Detector struct {
	p          platform.Platform
	clk        clock.Clock
	tuning     logic.Tuning
	log        pslog.Logger
	onBaseline func(logic.Orientation, int)
}

// Option configures a Detector.
type Option func(*Detector)

// WithTuning overrides thresholds and delays. Zero fields keep their defaults.
func WithTuning(t logic.Tuning) Option {
	return func(d *Detector) {
		d.tuning = t.WithDefaults()
	}
}

// WithLogger sets the logger.
func WithLogger(l pslog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// WithBaselineListener is called whenever a heuristic subscription records a
// keyboard-free height.
func WithBaselineListener(fn func(logic.Orientation, int)) Option {
	return func(d *Detector) {
		d.onBaseline = fn
	}
}

// New creates a Detector for p.
func New(p platform.Platform, clk clock.Clock, opts ...Option) *Detector {
	d := &Detector{
		p:      p,
		clk:    clk,
		tuning: logic.DefaultTuning(),
		log:    pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With("component", "keyboard")
	return d
}

// Strategy reports which strategy Subscribe would use.
func (d *Detector) Strategy() string {
	caps := d.p.Probe()
	if caps.Family == platform.FamilyViewport {
		if !caps.HasVisualViewport {
			return StrategyUnsupported
		}
		return StrategyViewport
	}
	return StrategyHeuristic
}

// IsSupported reports whether keyboard detection can work on this platform.
// It has no side effects.
func (d *Detector) IsSupported() bool {
	return d.Strategy() != StrategyUnsupported
}

// Check returns ErrUnsupported with details when IsSupported is false.
func (d *Detector) Check() error {
	if d.IsSupported() {
		return nil
	}
	return errors.Wrapf(ErrUnsupported, "family %s without visual viewport", d.p.Probe().Family)
}

// Subscribe starts detection and calls cb with every state change. On an
// unsupported platform it logs a warning, never calls cb and returns a no-op.
func (d *Detector) Subscribe(cb func(logic.State)) Unsubscribe {
	strategy := d.Strategy()
	base := session{
		p:     d.p,
		sched: newScheduler(d.clk),
		cb:    cb,
		log:   d.log.With("strategy", strategy),
	}

	switch strategy {
	case StrategyViewport:
		s := &viewportSession{session: base, tuning: d.tuning}
		s.start()
		base.log.Debug("subscribed")
		return s.close
	case StrategyHeuristic:
		s := &heuristicSession{session: base, tuning: d.tuning}
		s.start(d.onBaseline)
		base.log.Debug("subscribed")
		return s.close
	default:
		d.log.Warn("keyboard detection unsupported", "err", d.Check())
		return func() {}
	}
}
