package keyboard

import "time"

// focusTracker debounces focus loss. Focus-in is reported at once; focus-out
// is confirmed only after the grace period passes without a focus-in.
type focusTracker struct {
	grace     time.Duration
	pending   slot
	unfocused bool
	onChange  func(unfocused bool)
}

func newFocusTracker(sched *scheduler, grace time.Duration, unfocused bool, onChange func(bool)) *focusTracker {
	return &focusTracker{
		grace:     grace,
		pending:   slot{sched: sched},
		unfocused: unfocused,
		onChange:  onChange,
	}
}

func (f *focusTracker) focusIn() {
	f.pending.cancel()
	f.set(false)
}

func (f *focusTracker) focusOut() {
	f.pending.set(f.grace, func() { f.set(true) })
}

func (f *focusTracker) set(unfocused bool) {
	if unfocused == f.unfocused {
		return
	}
	f.unfocused = unfocused
	f.onChange(unfocused)
}

// Unfocused is the debounced value.
func (f *focusTracker) Unfocused() bool {
	return f.unfocused
}
