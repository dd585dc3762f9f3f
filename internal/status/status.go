// Package status provides a thread-safe status tracker for the keyboard-sensor
// daemon. It is read by the HTTP handlers and the heartbeat.
package status

import (
	"maps"
	"sync"
	"time"

	"github.com/sweeney/keyboard-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
	Target      string // Page or remote debugging endpoint being watched
	Family      string // Forced device family, empty for auto
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Strategy      string
	Supported     bool
	Baselines     map[logic.Orientation]int
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Baselines: map[logic.Orientation]int{},
		},
		now: time.Now,
	}
}

// SetDetector records the strategy chosen for the attached page. Baselines
// learned by a previous subscription are discarded.
func (t *Tracker) SetDetector(strategy string, supported bool) {
	t.mu.Lock()
	t.snap.Strategy = strategy
	t.snap.Supported = supported
	t.snap.Baselines = map[logic.Orientation]int{}
	t.mu.Unlock()
}

// Update sets the keyboard state and event counts.
func (t *Tracker) Update(state logic.State, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetBaseline records a learned keyboard-free height.
func (t *Tracker) SetBaseline(o logic.Orientation, height int) {
	t.mu.Lock()
	t.snap.Baselines[o] = height
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SetConfig replaces the displayed configuration after a reload.
func (t *Tracker) SetConfig(cfg Config) {
	t.mu.Lock()
	t.snap.Config = cfg
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Baselines = maps.Clone(t.snap.Baselines)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
