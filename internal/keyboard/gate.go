package keyboard

import (
	"time"

	"pkt.systems/pslog"

	"github.com/sweeney/keyboard-sensor/internal/logic"
	"github.com/sweeney/keyboard-sensor/internal/platform"
)

// gate drops work while the document is hidden. The check is delayed by lag
// because visibilitychange can arrive after the focus-out that precedes
// backgrounding.
type gate struct {
	sched *scheduler
	p     platform.Platform
	lag   time.Duration
	log   pslog.Logger
}

func (g *gate) pass(what string, fn func()) {
	g.sched.after(g.lag, func() {
		if g.p.Visibility() != logic.DocumentVisible {
			g.log.Debug("gate dropped", "what", what)
			return
		}
		fn()
	})
}
