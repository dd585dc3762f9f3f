package logic

// Deduper forwards a state only when it differs from the last forwarded one.
type Deduper struct {
	last State
}

// Next reports whether s should be forwarded and remembers it if so.
func (d *Deduper) Next(s State) bool {
	if s == d.last {
		return false
	}
	d.last = s
	return true
}

// Last returns the last forwarded state, or "" if none.
func (d *Deduper) Last() State {
	return d.last
}
