// Package platform abstracts the browser environment the detector observes.
// The real implementation drives a browser tab over the DevTools protocol.
// The fake implementation allows testing without a browser.
package platform

import "github.com/sweeney/keyboard-sensor/internal/logic"

// Family selects the detection strategy a device needs.
type Family string

const (
	// FamilyViewport devices report the keyboard through a visual-viewport
	// resize and need it to be detected at all.
	FamilyViewport Family = "viewport"
	// FamilyHeuristic devices resize the layout viewport instead.
	FamilyHeuristic Family = "heuristic"
)

// Capabilities is the result of the platform capability probe.
type Capabilities struct {
	Family            Family
	HasVisualViewport bool
}

// Detach removes a listener. Calling it more than once is harmless.
type Detach func()

// Platform exposes the queries and event subscriptions the detector consumes.
// Listeners are invoked on the host event loop goroutine.
type Platform interface {
	Probe() Capabilities

	InnerWidth() int
	InnerHeight() int
	AvailHeight() int
	Orientation() logic.Orientation
	Visibility() logic.Visibility
	// HasFocus reports whether any element currently has focus.
	HasFocus() bool

	OnFocusIn(fn func()) Detach
	OnFocusOut(fn func()) Detach
	OnResize(fn func(width, height int)) Detach
	OnOrientationChange(fn func()) Detach
	OnViewportResize(fn func(height float64)) Detach
}

// listeners is an ordered listener list. Not safe for concurrent use.
type listeners[F any] struct {
	entries []*listener[F]
}

type listener[F any] struct {
	fn      F
	removed bool
}

func (l *listeners[F]) add(fn F) Detach {
	e := &listener[F]{fn: fn}
	l.entries = append(l.entries, e)
	return func() {
		if e.removed {
			return
		}
		e.removed = true
		for i, x := range l.entries {
			if x == e {
				l.entries = append(l.entries[:i], l.entries[i+1:]...)
				return
			}
		}
	}
}

// each calls call for every listener registered when each started.
// Listeners detached during dispatch are skipped.
func (l *listeners[F]) each(call func(F)) {
	snapshot := append([]*listener[F](nil), l.entries...)
	for _, e := range snapshot {
		if e.removed {
			continue
		}
		call(e.fn)
	}
}

func (l *listeners[F]) len() int {
	return len(l.entries)
}
