package logic

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuningValid(t *testing.T) {
	require.NoError(t, DefaultTuning().Validate())
}

func TestTuningWithDefaults(t *testing.T) {
	got := Tuning{FocusGrace: 200 * time.Millisecond}.WithDefaults()

	want := DefaultTuning()
	want.FocusGrace = 200 * time.Millisecond
	assert.Equal(t, want, got)
}

func TestTuningValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tuning)
	}{
		{"viewport ratio", func(t *Tuning) { t.ViewportRatioThreshold = 1 }},
		{"fallback ratio", func(t *Tuning) { t.FallbackDeltaRatio = 1.5 }},
		{"baseline ratio", func(t *Tuning) { t.BaselineRatio = 1 }},
		{"settle not above grace", func(t *Tuning) { t.OrientationSettle = t.FocusGrace }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuning := DefaultTuning()
			tt.mutate(&tuning)
			err := tuning.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTuning))
		})
	}
}
