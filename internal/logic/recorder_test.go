package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecorder(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecorder(startTime)
	require.NotNil(t, r)
	assert.Equal(t, State(""), r.CurrentState())
	assert.True(t, r.lastHeartbeat.Equal(startTime))
}

func TestRecordTransitions(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecorder(now)

	e := r.Record(StateHidden, now)
	require.NotNil(t, e)
	assert.Equal(t, EventHidden, e.Type)
	assert.Equal(t, StateHidden, e.State)
	assert.True(t, e.Timestamp.Equal(now))

	assert.Nil(t, r.Record(StateHidden, now.Add(time.Second)), "repeated state must not produce an event")

	e = r.Record(StateVisible, now.Add(2*time.Second))
	require.NotNil(t, e)
	assert.Equal(t, EventShown, e.Type)
	assert.Equal(t, StateVisible, r.CurrentState())

	assert.Equal(t, EventCounts{Shown: 1, Hidden: 1}, r.EventCountsSnapshot())
}

func TestCheckHeartbeatDisabledWithZeroInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecorder(startTime)

	assert.Nil(t, r.CheckHeartbeat(startTime.Add(15*time.Minute), 0))
	assert.Nil(t, r.CheckHeartbeat(startTime.Add(15*time.Minute), -time.Minute))
}

func TestCheckHeartbeatBeforeInterval(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecorder(startTime)

	assert.Nil(t, r.CheckHeartbeat(startTime.Add(14*time.Minute), 15*time.Minute))
}

func TestCheckHeartbeatFiresAndResets(t *testing.T) {
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRecorder(startTime)
	r.Record(StateVisible, startTime.Add(time.Minute))
	r.Record(StateHidden, startTime.Add(2*time.Minute))

	hb := r.CheckHeartbeat(startTime.Add(15*time.Minute), 15*time.Minute)
	require.NotNil(t, hb)
	assert.Equal(t, 15*time.Minute, hb.Uptime)
	assert.Equal(t, EventCounts{Shown: 1, Hidden: 1}, hb.Counts)

	assert.Nil(t, r.CheckHeartbeat(startTime.Add(20*time.Minute), 15*time.Minute), "interval restarts after a heartbeat")

	hb = r.CheckHeartbeat(startTime.Add(30*time.Minute), 15*time.Minute)
	require.NotNil(t, hb)
	assert.Equal(t, 30*time.Minute, hb.Uptime)
}
