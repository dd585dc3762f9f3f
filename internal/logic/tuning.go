package logic

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ErrInvalidTuning is returned by Tuning.Validate.
var ErrInvalidTuning = errors.New("invalid tuning")

// Tuning holds the empirically chosen thresholds and delays of the detector.
type Tuning struct {
	// ViewportRatioThreshold is the share of the window hidden by the visual
	// viewport above which the keyboard counts as visible. Absorbs browser
	// chrome such as a predictive-text bar.
	ViewportRatioThreshold float64

	// FallbackDeltaRatio is the share of the available screen height a
	// width-preserving resize must exceed when no baseline is known.
	FallbackDeltaRatio float64

	// BaselineRatio: a height below BaselineRatio*baseline means visible.
	BaselineRatio float64

	// FocusGrace delays the "unfocused" confirmation so focus can jump
	// between inputs of the same form.
	FocusGrace time.Duration

	// OrientationSettle is the wait after an orientation change before the
	// new baseline is sampled. Must exceed FocusGrace.
	OrientationSettle time.Duration

	// ResizeQuiet is the quiet period that collapses bursts of resize events.
	ResizeQuiet time.Duration

	// ResizeSettle is the wait between a settled resize and its classification.
	ResizeSettle time.Duration

	// VisibilityLag lets a late visibilitychange catch up before the gate check.
	VisibilityLag time.Duration
}

// DefaultTuning returns the stock thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		ViewportRatioThreshold: 0.1,
		FallbackDeltaRatio:     0.1,
		BaselineRatio:          0.9,
		FocusGrace:             300 * time.Millisecond,
		OrientationSettle:      time.Second,
		ResizeQuiet:            100 * time.Millisecond,
		ResizeSettle:           500 * time.Millisecond,
		VisibilityLag:          50 * time.Millisecond,
	}
}

// WithDefaults fills in zero-valued fields with defaults.
func (t Tuning) WithDefaults() Tuning {
	d := DefaultTuning()
	if t.ViewportRatioThreshold <= 0 {
		t.ViewportRatioThreshold = d.ViewportRatioThreshold
	}
	if t.FallbackDeltaRatio <= 0 {
		t.FallbackDeltaRatio = d.FallbackDeltaRatio
	}
	if t.BaselineRatio <= 0 {
		t.BaselineRatio = d.BaselineRatio
	}
	if t.FocusGrace <= 0 {
		t.FocusGrace = d.FocusGrace
	}
	if t.OrientationSettle <= 0 {
		t.OrientationSettle = d.OrientationSettle
	}
	if t.ResizeQuiet <= 0 {
		t.ResizeQuiet = d.ResizeQuiet
	}
	if t.ResizeSettle <= 0 {
		t.ResizeSettle = d.ResizeSettle
	}
	if t.VisibilityLag <= 0 {
		t.VisibilityLag = d.VisibilityLag
	}
	return t
}

// Validate checks ratio ranges and delay ordering.
func (t Tuning) Validate() error {
	if t.ViewportRatioThreshold >= 1 {
		return errors.Wrapf(ErrInvalidTuning, "viewport ratio threshold %v must be below 1", t.ViewportRatioThreshold)
	}
	if t.FallbackDeltaRatio >= 1 {
		return errors.Wrapf(ErrInvalidTuning, "fallback delta ratio %v must be below 1", t.FallbackDeltaRatio)
	}
	if t.BaselineRatio >= 1 {
		return errors.Wrapf(ErrInvalidTuning, "baseline ratio %v must be below 1", t.BaselineRatio)
	}
	if t.OrientationSettle <= t.FocusGrace {
		return errors.Wrapf(ErrInvalidTuning, "orientation settle %v must exceed focus grace %v", t.OrientationSettle, t.FocusGrace)
	}
	return nil
}
