package keyboard

import (
	"pkt.systems/pslog"

	"github.com/sweeney/keyboard-sensor/internal/logic"
	"github.com/sweeney/keyboard-sensor/internal/platform"
)

// session is the state owned by one subscription.
type session struct {
	p        platform.Platform
	sched    *scheduler
	dedup    logic.Deduper
	cb       func(logic.State)
	detaches []platform.Detach
	closed   bool
	log      pslog.Logger
}

func (s *session) listen(d platform.Detach) platform.Detach {
	s.detaches = append(s.detaches, d)
	return d
}

// emit is the final stage of both strategies.
func (s *session) emit(st logic.State) {
	if s.closed || !s.dedup.Next(st) {
		return
	}
	s.log.Debug("keyboard state", "state", st)
	s.cb(st)
}

func (s *session) close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, d := range s.detaches {
		d()
	}
	s.detaches = nil
	s.sched.stopAll()
	s.log.Debug("unsubscribed")
}
