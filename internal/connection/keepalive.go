package connection

import (
	"time"

	"github.com/rickgao/marketdash/internal/sched"
)

// periodic is a repeating task that only runs between start and stop.
// The heartbeat and the metrics poller are both periodic tasks owned by
// the manager.
type periodic struct {
	interval time.Duration
	sched    sched.Scheduler
	fn       func()
	timer    sched.Timer
}

func newPeriodic(interval time.Duration, s sched.Scheduler, fn func()) *periodic {
	return &periodic{interval: interval, sched: s, fn: fn}
}

func (p *periodic) start() {
	if p.timer != nil || p.interval <= 0 {
		return
	}
	p.timer = p.sched.Every(p.interval, p.fn)
}

func (p *periodic) stop() {
	if p.timer == nil {
		return
	}
	p.timer.Stop()
	p.timer = nil
}

func (p *periodic) running() bool {
	return p.timer != nil
}
