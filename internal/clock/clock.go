// Package clock provides timers that fire on the host event loop.
// The real implementation wraps time.AfterFunc.
// The fake implementation allows testing without waiting.
package clock

import "time"

// Timer is a pending delayed call.
type Timer interface {
	// Stop prevents the call from running. Returns false if the call
	// already ran or was already stopped.
	Stop() bool
}

// Clock schedules delayed calls.
type Clock interface {
	Now() time.Time

	// AfterFunc calls fn after d. Implementations guarantee fn runs on the
	// goroutine that drives the engine.
	AfterFunc(d time.Duration, fn func()) Timer
}

// loopClock runs timer callbacks through post so they execute on the loop goroutine.
type loopClock struct {
	post func(func())
}

// NewLoop returns a real-time Clock whose callbacks are handed to post.
func NewLoop(post func(func())) Clock {
	return &loopClock{post: post}
}

func (c *loopClock) Now() time.Time {
	return time.Now()
}

func (c *loopClock) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		c.post(func() {
			// Stop may have been called on the loop after the wall-clock
			// timer fired but before this task ran.
			if t.stopped {
				return
			}
			t.fired = true
			fn()
		})
	})
	return t
}

// loopTimer state is only touched on the loop goroutine.
type loopTimer struct {
	timer   *time.Timer
	stopped bool
	fired   bool
}

func (t *loopTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}
