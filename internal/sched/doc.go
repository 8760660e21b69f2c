// Package sched is the execution model of the client.
//
// All client state is owned by one event loop. Work reaches the loop as
// posted callbacks: timer expirations, transport events, and calls from
// other goroutines (HTTP handlers, main). Callbacks run one at a time, so a
// callback never observes a partially applied mutation made by another.
//
// Two implementations of Scheduler exist:
//
//   - Loop runs callbacks on a dedicated goroutine against the wall clock.
//   - Fake runs callbacks synchronously against a virtual clock that tests
//     move forward with Advance.
//
// Timers created through either implementation are cancellable from the
// loop: once Stop returns, the callback is guaranteed not to run.
package sched
