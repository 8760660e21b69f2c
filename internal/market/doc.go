// Package market holds the per-symbol market state of the client.
//
// The Store keeps one record per uppercase ticker with the latest
// bid/ask/last/volume, a bounded price history and the day range. Updates
// are sparse: only the fields present in an Update overwrite the record.
//
// Two symbols are protected from removal: TEST and whichever symbol is
// currently selected.
//
// The Store is not synchronized; it is owned by the event loop.
package market
