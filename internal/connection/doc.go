// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns the single WebSocket channel to the data feed
//   - Drives the state machine Disconnected → Connecting → Connected,
//     falling back to Reconnecting with exponential backoff on failure
//   - Gives up after a bounded number of attempts until Reconnect is called
//   - Runs the heartbeat and the metrics poller while Connected only
//   - Hands every inbound frame to a MessageHandler on the event loop
//
// All Manager methods must run on the event loop (see package sched).
// Transport goroutines only post events back to it, tagged with the
// generation of the channel that produced them; events from a channel that
// was already torn down are dropped.
package connection
