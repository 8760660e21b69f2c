// Package ring provides the two buffers the client is built on.
//
// Bounded is a fixed-capacity FIFO used for rolling state (price history,
// the message rate window, the trade log, the system message log). It is
// not synchronized: it is owned by the event loop like the rest of the
// client state.
//
// Queue is a thread-safe, growable hand-off buffer between the event loop
// and background writers. It doubles in size at 70% fill up to a hard
// limit, after which offers are refused instead of blocking the producer.
package ring
