package keyboard

import (
	"time"

	"pkt.systems/pslog"

	"github.com/sweeney/keyboard-sensor/internal/logic"
	"github.com/sweeney/keyboard-sensor/internal/platform"
)

// baselineTracker learns the keyboard-free window height per orientation.
// Heights are only taken when no keyboard can be showing: after a confirmed
// focus loss, or once an orientation change has settled. When both
// orientations are known the map is frozen for the session.
type baselineTracker struct {
	p       platform.Platform
	gate    *gate
	focus   *focusTracker
	settle  slot
	delay   time.Duration
	toolbar int
	heights logic.Baselines
	log     pslog.Logger

	onRecord          func(logic.Orientation, int)
	detachOrientation platform.Detach
}

func (b *baselineTracker) get(o logic.Orientation) (int, bool) {
	return b.heights.Get(o)
}

// unfocused takes the current height after a confirmed focus loss.
func (b *baselineTracker) unfocused() {
	if b.heights.Complete() {
		return
	}
	b.gate.pass("unfocus baseline", func() {
		b.record(b.p.Orientation(), b.p.InnerHeight(), "unfocus")
	})
}

// orientationChanged samples the new orientation once rotation has settled.
func (b *baselineTracker) orientationChanged() {
	if b.heights.Complete() {
		return
	}
	before := b.p.InnerHeight()
	b.settle.set(b.delay, func() {
		b.gate.pass("orientation baseline", func() {
			o := b.p.Orientation()
			h := b.p.InnerHeight()
			if b.focus.Unfocused() || h == before {
				b.record(o, h, "orientation")
				return
			}
			// A keyboard may be up: estimate from the screen instead.
			b.record(o, b.p.AvailHeight()-b.toolbar, "estimate")
		})
	})
}

func (b *baselineTracker) record(o logic.Orientation, height int, source string) {
	if b.heights.Complete() {
		return
	}
	if !b.heights.Record(o, height) {
		b.log.Debug("baseline rejected", "orientation", o, "height", height, "source", source)
		return
	}
	b.log.Debug("baseline recorded", "orientation", o, "height", height, "source", source)
	if b.onRecord != nil {
		b.onRecord(o, height)
	}
	if b.heights.Complete() {
		b.log.Debug("baselines complete")
		b.settle.cancel()
		if b.detachOrientation != nil {
			b.detachOrientation()
		}
	}
}
