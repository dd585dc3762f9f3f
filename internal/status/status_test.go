package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/keyboard-sensor/internal/logic"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewTracker(t *testing.T) {
	cfg := Config{HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPPort: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	assert.True(t, snap.StartTime.Equal(start))
	assert.Equal(t, cfg, snap.Config)
	assert.Empty(t, snap.State)
	assert.Empty(t, snap.Baselines)
	assert.False(t, snap.MQTTConnected)
	assert.Nil(t, snap.Network)
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetDetector("heuristic", true)
	tr.Update(logic.StateVisible, logic.EventCounts{Shown: 3, Hidden: 2})
	tr.SetBaseline(logic.Portrait, 700)

	snap := tr.Snapshot()
	assert.Equal(t, logic.StateVisible, snap.State)
	assert.Equal(t, "heuristic", snap.Strategy)
	assert.True(t, snap.Supported)
	assert.Equal(t, logic.EventCounts{Shown: 3, Hidden: 2}, snap.Counts)
	assert.Equal(t, map[logic.Orientation]int{logic.Portrait: 700}, snap.Baselines)
}

func TestSetDetectorClearsBaselines(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.SetBaseline(logic.Portrait, 700)
	tr.SetDetector("viewport", true)
	assert.Empty(t, tr.Snapshot().Baselines)
}

func TestSetMQTTConnectedAndNetwork(t *testing.T) {
	tr := NewTracker(start, Config{})

	tr.SetMQTTConnected(true)
	assert.True(t, tr.Snapshot().MQTTConnected)
	tr.SetMQTTConnected(false)
	assert.False(t, tr.Snapshot().MQTTConnected)

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})
	snap := tr.Snapshot()
	require.NotNil(t, snap.Network)
	assert.Equal(t, "192.168.1.42", snap.Network.IP)
}

func TestSetConfig(t *testing.T) {
	tr := NewTracker(start, Config{Broker: "tcp://a:1883"})
	tr.SetConfig(Config{Broker: "tcp://b:1883", Family: "heuristic"})
	assert.Equal(t, "tcp://b:1883", tr.Snapshot().Config.Broker)
	assert.Equal(t, "heuristic", tr.Snapshot().Config.Family)
}

func TestSnapshotUptimeAndNow(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(15 * time.Minute)}
	assert.Equal(t, 15*time.Minute, snap.Uptime())

	tr := NewTracker(start, Config{})
	tr.now = func() time.Time { return start.Add(time.Hour) }
	assert.Equal(t, time.Hour, tr.Snapshot().Uptime())
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(start, Config{})
	tr.Update(logic.StateVisible, logic.EventCounts{Shown: 1})
	tr.SetBaseline(logic.Portrait, 700)

	snap1 := tr.Snapshot()
	snap1.Baselines[logic.Landscape] = 1

	tr.Update(logic.StateHidden, logic.EventCounts{Shown: 1, Hidden: 1})
	tr.SetBaseline(logic.Portrait, 650)

	assert.Equal(t, logic.StateVisible, snap1.State)
	assert.Equal(t, 700, snap1.Baselines[logic.Portrait])
	_, ok := tr.Snapshot().Baselines[logic.Landscape]
	assert.False(t, ok, "mutating a snapshot must not leak into the tracker")
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		State:         logic.StateVisible,
		Strategy:      "heuristic",
		Supported:     true,
		Baselines:     map[logic.Orientation]int{logic.Portrait: 700},
		Counts:        logic.EventCounts{Shown: 5, Hidden: 4},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPPort: ":80"},
	}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))

	s := parsed.Status
	assert.Equal(t, "visible", s.Keyboard)
	assert.Equal(t, "heuristic", s.Strategy)
	assert.True(t, s.Supported)
	require.NotNil(t, s.Baselines.Portrait)
	assert.Equal(t, 700, *s.Baselines.Portrait)
	assert.Nil(t, s.Baselines.Landscape)
	assert.Equal(t, int64(900), s.UptimeSeconds)
	assert.True(t, s.MQTT.Connected)
	assert.Equal(t, 5, s.Counts.Shown)
	assert.Equal(t, 4, s.Counts.Hidden)
	assert.Empty(t, s.Event)
	assert.Empty(t, s.Reason)
}

func TestFormatJSONUnknownState(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))
	assert.Equal(t, "UNKNOWN", parsed.Status.Keyboard)
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		State:     logic.StateHidden,
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"), &parsed))
	assert.Equal(t, "SHUTDOWN", parsed.Status.Event)
	assert.Equal(t, "SIGTERM", parsed.Status.Reason)
	assert.Equal(t, "hidden", parsed.Status.Keyboard)
	assert.Equal(t, int64(1800), parsed.Status.UptimeSeconds)
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{StartTime: start, Now: start.Add(time.Second)}

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(FormatStatusEvent(snap, "STARTUP", ""), &raw))
	assert.NotContains(t, raw["status"], "reason")
	assert.NotContains(t, raw["status"], "network")
	assert.Equal(t, "STARTUP", raw["status"]["event"])
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(time.Minute),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
	}

	var parsed StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &parsed))
	require.NotNil(t, parsed.Status.Network)
	assert.Equal(t, "192.168.1.42", parsed.Status.Network.IP)
	assert.Equal(t, "MyNet", parsed.Status.Network.SSID)
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(start, Config{})
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.StateVisible, logic.EventCounts{Shown: i})
			tr.SetBaseline(logic.Portrait, i+1)
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()
	wg.Wait()
}
