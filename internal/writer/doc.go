// Package writer implements the batch writer for the tick archive.
//
// Accepted market data updates are offered to a growable queue without
// blocking the event loop. A consumer goroutine batches them by size and a
// flush ticker bounds how long a partial batch waits. Rows are inserted with
// ON CONFLICT DO NOTHING, so the archive is append-only and a replayed tick
// is counted as a conflict rather than an error.
package writer
