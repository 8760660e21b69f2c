package sched

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/marketdash/internal/ring"
)

// Loop is the production event loop. Callbacks run on the goroutine that
// called Run.
type Loop struct {
	queue  *ring.Queue[func()]
	done   chan struct{}
	logger *slog.Logger
}

// NewLoop creates a loop. initialCapacity sizes the callback queue, which
// grows on demand so Post never blocks.
func NewLoop(initialCapacity int, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		queue:  ring.NewQueue[func()](initialCapacity, 0),
		done:   make(chan struct{}),
		logger: logger.With("component", "loop"),
	}
}

// Run executes posted callbacks until ctx is cancelled. Callbacks already
// queued at cancellation are still run.
func (l *Loop) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, l.queue.Close)
	defer stop()
	defer close(l.done)

	l.logger.Debug("event loop started")
	for {
		f, ok := l.queue.Take()
		if !ok {
			l.logger.Debug("event loop stopped")
			return ctx.Err()
		}
		l.exec(f)
	}
}

// Done is closed once Run returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) exec(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("callback panicked", "panic", r)
		}
	}()
	f()
}

// Now returns the wall clock.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// Post enqueues f. Callbacks posted after the loop stopped are dropped.
func (l *Loop) Post(f func()) {
	if !l.queue.Offer(f) {
		l.logger.Debug("dropping callback posted after stop")
	}
}

// Go runs f on a new goroutine.
func (l *Loop) Go(f func()) {
	go f()
}

// Call states.
const (
	callQueued int32 = iota
	callStarted
	callAbandoned
)

// Call runs f on the loop and waits for it. If ctx ends while f is still
// queued, f is abandoned and never runs, so an error from Call means f had
// no effect. Once f has started, Call waits for it and returns nil.
func (l *Loop) Call(ctx context.Context, f func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var state atomic.Int32
	finished := make(chan struct{})
	if !l.queue.Offer(func() {
		defer close(finished)
		if state.CompareAndSwap(callQueued, callStarted) {
			f()
		}
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		if state.CompareAndSwap(callQueued, callAbandoned) {
			return ctx.Err()
		}
		<-finished
		return nil
	case <-l.done:
		if state.CompareAndSwap(callQueued, callAbandoned) {
			return ErrStopped
		}
		<-finished
		return nil
	}
}

// Timer states, shared by one-shot and periodic loop timers.
const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

type loopTimer struct {
	state atomic.Int32
	t     *time.Timer
}

// AfterFunc arms a wall-clock timer whose expiry is posted to the loop.
// The state is re-checked on the loop, so Stop on the loop always wins
// against an expiry that is already queued.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.state.CompareAndSwap(timerPending, timerFired) {
				f()
			}
		})
	})
	return lt
}

func (lt *loopTimer) Stop() bool {
	lt.t.Stop()
	return lt.state.CompareAndSwap(timerPending, timerStopped)
}

type loopTicker struct {
	state atomic.Int32
	quit  chan struct{}
	once  sync.Once
}

// Every starts a ticker goroutine that posts f to the loop each period.
func (l *Loop) Every(d time.Duration, f func()) Timer {
	lt := &loopTicker{quit: make(chan struct{})}

	go func() {
		tk := time.NewTicker(d)
		defer tk.Stop()
		for {
			select {
			case <-lt.quit:
				return
			case <-l.done:
				return
			case <-tk.C:
				l.Post(func() {
					if lt.state.Load() == timerPending {
						f()
					}
				})
			}
		}
	}()
	return lt
}

func (lt *loopTicker) Stop() bool {
	stopped := lt.state.CompareAndSwap(timerPending, timerStopped)
	lt.once.Do(func() { close(lt.quit) })
	return stopped
}
