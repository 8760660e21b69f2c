// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Channel state, reconnect attempts and outbound frames
//   - Inbound frames by type, parse errors and unrecognized variants
//   - Trade log appends
//   - Tick archive batches, inserted rows and refused offers
//
// A nil *Metrics is valid and records nothing, so components can be built
// without instrumentation in tests.
package metrics
