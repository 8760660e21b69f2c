// Package stats derives the dashboard statistics from raw client state.
//
// All functions are pure: they take the message rate window, counters or a
// price series and return a number. Nothing here is cached; callers
// recompute on every query.
package stats
