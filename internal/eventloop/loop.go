// Package eventloop serializes engine work onto a single goroutine.
package eventloop

import "sync"

// Loop is a task queue drained by exactly one goroutine (the daemon's run loop).
type Loop struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Loop with the given queue capacity.
func New(capacity int) *Loop {
	return &Loop{
		tasks: make(chan func(), capacity),
		done:  make(chan struct{}),
	}
}

// Post queues fn. Safe from any goroutine. Blocks while the queue is full
// and returns false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// TryPost queues fn without blocking. It returns false when the queue is
// full or the loop is closed.
func (l *Loop) TryPost(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	default:
		return false
	}
}

// Tasks is the channel the owning goroutine receives from.
func (l *Loop) Tasks() <-chan func() {
	return l.tasks
}

// Done is closed by Close.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Close stops accepting tasks. Queued tasks are abandoned.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}
