package logic

import "time"

// Recorder turns emitted keyboard states into published events and keeps
// counts for heartbeats. Not safe for concurrent use.
type Recorder struct {
	current       State
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewRecorder creates a Recorder. The startTime is used for calculating
// uptime in heartbeat events.
func NewRecorder(startTime time.Time) *Recorder {
	return &Recorder{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Record converts a state emitted by the detector into an event.
// Returns nil if s repeats the current state.
func (r *Recorder) Record(s State, now time.Time) *Event {
	if s == r.current {
		return nil
	}
	r.current = s

	e := &Event{Timestamp: now, Type: EventTypeFor(s), State: s}
	switch e.Type {
	case EventShown:
		r.eventCounts.Shown++
	case EventHidden:
		r.eventCounts.Hidden++
	}
	return e
}

// CurrentState returns the last recorded state, or "" before the first one.
func (r *Recorder) CurrentState() State {
	return r.current
}

// EventCountsSnapshot returns a copy of the event counts.
func (r *Recorder) EventCountsSnapshot() EventCounts {
	return r.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (r *Recorder) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(r.lastHeartbeat) < interval {
		return nil
	}

	r.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(r.startTime),
		Counts:    r.eventCounts,
	}
}
