package logic

// Baselines remembers the keyboard-free layout height per orientation.
// The zero value is ready to use. Not safe for concurrent use.
type Baselines struct {
	heights map[Orientation]int
}

// Record stores height for o. Non-positive heights are ignored.
// Returns whether the value was stored.
func (b *Baselines) Record(o Orientation, height int) bool {
	if height <= 0 {
		return false
	}
	if b.heights == nil {
		b.heights = make(map[Orientation]int, 2)
	}
	b.heights[o] = height
	return true
}

// Get returns the baseline for o, if any.
func (b *Baselines) Get(o Orientation) (int, bool) {
	h, ok := b.heights[o]
	return h, ok
}

// Complete reports whether both orientations have a baseline.
func (b *Baselines) Complete() bool {
	_, p := b.heights[Portrait]
	_, l := b.heights[Landscape]
	return p && l
}

// Snapshot returns a copy of the recorded baselines.
func (b *Baselines) Snapshot() map[Orientation]int {
	out := make(map[Orientation]int, len(b.heights))
	for o, h := range b.heights {
		out[o] = h
	}
	return out
}
