package keyboard

import "github.com/sweeney/keyboard-sensor/internal/logic"

// heuristicSession infers the keyboard from layout resizes, comparing the
// window height with the learned keyboard-free baseline. A confirmed focus
// loss always reports hidden.
type heuristicSession struct {
	session
	tuning    logic.Tuning
	gate      *gate
	focus     *focusTracker
	baselines *baselineTracker

	quiet  slot
	settle slot

	// Dimensions of the last processed resize and of the latest event.
	prevWidth, prevHeight     int
	latestWidth, latestHeight int
}

func (s *heuristicSession) start(onBaseline func(logic.Orientation, int)) {
	s.prevWidth, s.prevHeight = s.p.InnerWidth(), s.p.InnerHeight()
	s.latestWidth, s.latestHeight = s.prevWidth, s.prevHeight
	s.quiet = slot{sched: s.sched}
	s.settle = slot{sched: s.sched}

	s.gate = &gate{sched: s.sched, p: s.p, lag: s.tuning.VisibilityLag, log: s.log}
	s.focus = newFocusTracker(s.sched, s.tuning.FocusGrace, !s.p.HasFocus(), s.onFocusChange)
	s.baselines = &baselineTracker{
		p:      s.p,
		gate:   s.gate,
		focus:  s.focus,
		settle: slot{sched: s.sched},
		delay:  s.tuning.OrientationSettle,
		// Assumes no keyboard is showing at startup.
		toolbar:  s.p.AvailHeight() - s.prevHeight,
		log:      s.log,
		onRecord: onBaseline,
	}

	s.listen(s.p.OnFocusIn(s.focus.focusIn))
	s.listen(s.p.OnFocusOut(s.focus.focusOut))
	s.listen(s.p.OnResize(s.onResize))
	s.baselines.detachOrientation = s.listen(s.p.OnOrientationChange(s.baselines.orientationChanged))

	if s.focus.Unfocused() {
		s.baselines.unfocused()
	}
}

func (s *heuristicSession) onFocusChange(unfocused bool) {
	if !unfocused {
		return
	}
	s.baselines.unfocused()
	s.emit(logic.StateHidden)
}

func (s *heuristicSession) onResize(width, height int) {
	s.latestWidth, s.latestHeight = width, height
	s.quiet.set(s.tuning.ResizeQuiet, func() {
		s.settle.set(s.tuning.ResizeSettle, s.onResizeSettled)
	})
}

func (s *heuristicSession) onResizeSettled() {
	sample := logic.ResizeSample{
		PrevWidth:  s.prevWidth,
		PrevHeight: s.prevHeight,
		Width:      s.latestWidth,
		Height:     s.latestHeight,
	}
	s.prevWidth, s.prevHeight = s.latestWidth, s.latestHeight
	s.gate.pass("resize", func() { s.classify(sample) })
}

func (s *heuristicSession) classify(sample logic.ResizeSample) {
	if !sample.WidthUnchanged() {
		return
	}
	base, ok := s.baselines.get(s.p.Orientation())
	if st, ok := logic.ClassifyResize(sample, base, ok, s.p.AvailHeight(), s.tuning); ok {
		s.emit(st)
	}
}
