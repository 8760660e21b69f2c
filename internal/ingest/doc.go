// Package ingest turns inbound feed frames into state changes.
//
// The Pipeline is the single consumer of frames delivered by the
// connection manager. For every frame it bumps the message counters,
// records the arrival instant for rate computation, decodes the frame and
// dispatches it:
//
//   - metrics replaces the server metrics snapshot
//   - market_data is merged into the symbol store; a significant move of
//     the selected symbol appends a trade log entry, and the merged tick is
//     offered to the archive when one is configured
//   - connection notices are forwarded to the notification sink
//   - anything else is reported as unrecognized
//
// Malformed frames are reported and dropped. The pipeline is confined to
// the event loop and does no locking.
package ingest
