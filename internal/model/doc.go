// Package model defines shared data types used across the market dashboard client.
//
// Conventions:
//   - Prices and sizes: float64 in quote currency units
//   - Timestamps: time.Time on the Go side, int64 milliseconds since Unix epoch on the wire
//   - Symbols: uppercase tickers (e.g. "AAPL")
//
// The error taxonomy shared by every component also lives here.
package model
