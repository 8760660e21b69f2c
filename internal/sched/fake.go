package sched

import (
	"context"
	"sync"
	"time"
)

// Fake is a deterministic Scheduler driven by a virtual clock.
//
// Post drains the callback queue on the calling goroutine; a Post made
// while draining is queued behind the running callback, which mirrors the
// one-at-a-time semantics of Loop. Go runs its function inline.
type Fake struct {
	mu       sync.Mutex
	now      time.Time
	seq      uint64
	timers   []*fakeTimer
	queue    []func()
	draining bool
}

type fakeTimer struct {
	fake   *Fake
	when   time.Time
	period time.Duration
	seq    uint64
	fn     func()
	active bool
}

// NewFake creates a fake scheduler whose clock starts at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the virtual time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc arms a one-shot virtual timer.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	return f.arm(d, 0, fn)
}

// Every arms a periodic virtual timer.
func (f *Fake) Every(d time.Duration, fn func()) Timer {
	if d <= 0 {
		panic("sched: non-positive period")
	}
	return f.arm(d, d, fn)
}

func (f *Fake) arm(d, period time.Duration, fn func()) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	t := &fakeTimer{
		fake:   f,
		when:   f.now.Add(d),
		period: period,
		seq:    f.seq,
		fn:     fn,
		active: true,
	}
	f.timers = append(f.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	f := t.fake
	f.mu.Lock()
	defer f.mu.Unlock()

	if !t.active {
		return false
	}
	t.active = false
	f.removeLocked(t)
	return true
}

func (f *Fake) removeLocked(t *fakeTimer) {
	for i, x := range f.timers {
		if x == t {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return
		}
	}
}

// Post runs fn, and anything it posts, before returning, unless a drain is
// already in progress higher up the stack.
func (f *Fake) Post(fn func()) {
	f.mu.Lock()
	f.queue = append(f.queue, fn)
	if f.draining {
		f.mu.Unlock()
		return
	}
	f.draining = true
	f.mu.Unlock()

	for {
		f.mu.Lock()
		if len(f.queue) == 0 {
			f.draining = false
			f.mu.Unlock()
			return
		}
		next := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()

		next()
	}
}

// Go runs fn inline.
func (f *Fake) Go(fn func()) {
	fn()
}

// Call runs fn on the fake loop. Called from inside a callback it runs fn
// immediately instead of queueing it.
func (f *Fake) Call(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	nested := f.draining
	f.mu.Unlock()

	if nested {
		fn()
		return nil
	}
	f.Post(fn)
	return nil
}

// Advance moves the clock forward by d, firing due timers in deadline
// order. Timers armed by a firing callback fire too if they fall due
// within the same advance.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.nextDueLocked(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		if next.when.After(f.now) {
			f.now = next.when
		}
		if next.period > 0 {
			next.when = next.when.Add(next.period)
			f.seq++
			next.seq = f.seq
		} else {
			next.active = false
			f.removeLocked(next)
		}
		fn := next.fn
		f.mu.Unlock()

		f.Post(fn)
	}
}

func (f *Fake) nextDueLocked(target time.Time) *fakeTimer {
	var best *fakeTimer
	for _, t := range f.timers {
		if t.when.After(target) {
			continue
		}
		if best == nil || t.when.Before(best.when) || (t.when.Equal(best.when) && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

// Pending returns the number of armed timers.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}
