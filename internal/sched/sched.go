package sched

import (
	"context"
	"errors"
	"time"
)

// ErrStopped is returned by Call when the loop is no longer running.
var ErrStopped = errors.New("scheduler stopped")

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the timer. It returns false if the timer already fired
	// (one-shot) or was already stopped.
	Stop() bool
}

// Scheduler posts work onto the event loop and creates timers whose
// callbacks run on it.
type Scheduler interface {
	Now() time.Time

	// AfterFunc runs f on the loop once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer

	// Every runs f on the loop each time d elapses until stopped.
	Every(d time.Duration, f func()) Timer

	// Post enqueues f to run on the loop. Safe from any goroutine.
	Post(f func())

	// Go runs blocking work off the loop. Results must come back via Post.
	Go(f func())
}

// Runner is a Scheduler that can also execute a function on the loop and
// wait for it to finish.
type Runner interface {
	Scheduler

	// Call runs f on the loop and returns once it completed, the context
	// is done, or the loop stopped. Must not be called from the loop.
	Call(ctx context.Context, f func()) error
}
