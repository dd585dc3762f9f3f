// Package logic contains the pure decision rules for on-screen keyboard detection.
// This package has NO external dependencies (no browser, MQTT, OS, or timers).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State is the externally observable keyboard state.
type State string

const (
	StateVisible State = "visible"
	StateHidden  State = "hidden"
)

// Orientation of the screen as reported by the platform.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Visibility is the page-visibility state of the document.
type Visibility string

const (
	DocumentVisible Visibility = "visible"
	DocumentHidden  Visibility = "hidden"
)

// EventType represents a keyboard transition to be published.
type EventType string

const (
	EventShown  EventType = "KEYBOARD_SHOWN"
	EventHidden EventType = "KEYBOARD_HIDDEN"
)

// EventTypeFor maps a state to the transition that produced it.
func EventTypeFor(s State) EventType {
	if s == StateVisible {
		return EventShown
	}
	return EventHidden
}

// Event represents a keyboard state change to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State
}

// ResizeSample holds the window dimensions before and after a resize.
type ResizeSample struct {
	PrevWidth  int
	PrevHeight int
	Width      int
	Height     int
}

// WidthUnchanged reports whether only the height changed.
func (s ResizeSample) WidthUnchanged() bool {
	return s.PrevWidth == s.Width
}

// HeightDelta is the signed height change; negative means the window shrank.
func (s ResizeSample) HeightDelta() int {
	return s.Height - s.PrevHeight
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Shown  int
	Hidden int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
