package platform

import "github.com/sweeney/keyboard-sensor/internal/logic"

// Fake is a scripted Platform test double. Events fire synchronously on the
// calling goroutine.
type Fake struct {
	Caps    Capabilities
	Width   int
	Height  int
	Avail   int
	Orient  logic.Orientation
	Vis     logic.Visibility
	Focused bool

	focusIn     listeners[func()]
	focusOut    listeners[func()]
	resize      listeners[func(int, int)]
	orientation listeners[func()]
	viewport    listeners[func(float64)]
}

// NewFake creates a visible, unfocused portrait window of the given size.
func NewFake(caps Capabilities, width, height, availHeight int) *Fake {
	return &Fake{
		Caps:   caps,
		Width:  width,
		Height: height,
		Avail:  availHeight,
		Orient: logic.Portrait,
		Vis:    logic.DocumentVisible,
	}
}

func (f *Fake) Probe() Capabilities            { return f.Caps }
func (f *Fake) InnerWidth() int                { return f.Width }
func (f *Fake) InnerHeight() int               { return f.Height }
func (f *Fake) AvailHeight() int               { return f.Avail }
func (f *Fake) Orientation() logic.Orientation { return f.Orient }
func (f *Fake) Visibility() logic.Visibility   { return f.Vis }
func (f *Fake) HasFocus() bool                 { return f.Focused }

func (f *Fake) OnFocusIn(fn func()) Detach  { return f.focusIn.add(fn) }
func (f *Fake) OnFocusOut(fn func()) Detach { return f.focusOut.add(fn) }
func (f *Fake) OnResize(fn func(width, height int)) Detach {
	return f.resize.add(fn)
}
func (f *Fake) OnOrientationChange(fn func()) Detach { return f.orientation.add(fn) }
func (f *Fake) OnViewportResize(fn func(height float64)) Detach {
	return f.viewport.add(fn)
}

// FocusIn focuses an element.
func (f *Fake) FocusIn() {
	f.Focused = true
	f.focusIn.each(func(fn func()) { fn() })
}

// FocusOut blurs the focused element.
func (f *Fake) FocusOut() {
	f.Focused = false
	f.focusOut.each(func(fn func()) { fn() })
}

// Resize changes the window size and fires a resize event.
func (f *Fake) Resize(width, height int) {
	f.Width = width
	f.Height = height
	f.resize.each(func(fn func(int, int)) { fn(width, height) })
}

// Rotate changes the orientation and fires an orientation change. The
// window size is left alone; follow with Resize as a browser would.
func (f *Fake) Rotate(o logic.Orientation) {
	f.Orient = o
	f.orientation.each(func(fn func()) { fn() })
}

// ViewportResize fires a visual-viewport resize with the given height.
func (f *Fake) ViewportResize(height float64) {
	f.viewport.each(func(fn func(float64)) { fn(height) })
}

// SetVisibility changes the document visibility.
func (f *Fake) SetVisibility(v logic.Visibility) {
	f.Vis = v
}

// ListenerCount returns the number of attached listeners of all kinds.
func (f *Fake) ListenerCount() int {
	return f.focusIn.len() + f.focusOut.len() + f.resize.len() + f.orientation.len() + f.viewport.len()
}

// Compile-time check that Fake implements Platform.
var _ Platform = (*Fake)(nil)
