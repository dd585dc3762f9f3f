package keyboard

import (
	"time"

	"github.com/sweeney/keyboard-sensor/internal/clock"
)

// scheduler tracks every timer a session has pending so Unsubscribe can
// cancel them all. Loop goroutine only.
type scheduler struct {
	clk     clock.Clock
	pending map[clock.Timer]struct{}
	closed  bool
}

func newScheduler(clk clock.Clock) *scheduler {
	return &scheduler{clk: clk, pending: make(map[clock.Timer]struct{})}
}

func (s *scheduler) after(d time.Duration, fn func()) clock.Timer {
	if s.closed {
		return nil
	}
	var t clock.Timer
	t = s.clk.AfterFunc(d, func() {
		delete(s.pending, t)
		if s.closed {
			return
		}
		fn()
	})
	s.pending[t] = struct{}{}
	return t
}

func (s *scheduler) cancel(t clock.Timer) {
	if t == nil {
		return
	}
	t.Stop()
	delete(s.pending, t)
}

func (s *scheduler) stopAll() {
	s.closed = true
	for t := range s.pending {
		t.Stop()
	}
	clear(s.pending)
}

// slot is a single cancellable delayed action: setting it again replaces
// whatever was pending.
type slot struct {
	sched *scheduler
	t     clock.Timer
}

func (sl *slot) set(d time.Duration, fn func()) {
	sl.cancel()
	sl.t = sl.sched.after(d, func() {
		sl.t = nil
		fn()
	})
}

func (sl *slot) cancel() {
	sl.sched.cancel(sl.t)
	sl.t = nil
}
