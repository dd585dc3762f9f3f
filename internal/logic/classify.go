package logic

// ClassifyViewport applies the direct viewport ratio rule.
// The boolean is false when no classification is possible.
func ClassifyViewport(innerHeight int, viewportHeight float64, t Tuning) (State, bool) {
	if innerHeight <= 0 {
		return "", false
	}
	ratio := (float64(innerHeight) - viewportHeight) / float64(innerHeight)
	if ratio > t.ViewportRatioThreshold {
		return StateVisible, true
	}
	return StateHidden, true
}

// ClassifyResize classifies a width-preserving resize against the keyboard-free
// baseline of the current orientation. Without a baseline it falls back to
// comparing the height delta with a share of the available screen height.
// The boolean is false when the transition is ambiguous and the caller
// keeps its prior state.
func ClassifyResize(s ResizeSample, baseline int, hasBaseline bool, availHeight int, t Tuning) (State, bool) {
	if !s.WidthUnchanged() {
		return "", false
	}
	delta := s.HeightDelta()

	if !hasBaseline {
		limit := t.FallbackDeltaRatio * float64(availHeight)
		switch {
		case float64(-delta) > limit:
			return StateVisible, true
		case float64(delta) > limit:
			return StateHidden, true
		}
		return "", false
	}

	switch {
	case float64(s.Height) < t.BaselineRatio*float64(baseline) && delta < 0:
		return StateVisible, true
	case s.Height == baseline && delta > 0:
		return StateHidden, true
	}
	return "", false
}
