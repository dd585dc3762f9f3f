package keyboard

import "github.com/sweeney/keyboard-sensor/internal/logic"

// viewportSession classifies every visual-viewport resize by how much of the
// window it hides.
type viewportSession struct {
	session
	tuning logic.Tuning
}

func (s *viewportSession) start() {
	s.listen(s.p.OnViewportResize(s.onViewportResize))
}

func (s *viewportSession) onViewportResize(height float64) {
	if st, ok := logic.ClassifyViewport(s.p.InnerHeight(), height, s.tuning); ok {
		s.emit(st)
	}
}
