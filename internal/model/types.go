package model

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Market Data Types
// -----------------------------------------------------------------------------

// PricePoint is a single observation in a symbol's history window.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
	Bid   float64   `json:"bid"`
	Ask   float64   `json:"ask"`
}

// Tick is an accepted market_data update after it was merged into the store.
type Tick struct {
	Symbol     string
	Bid        float64
	Ask        float64
	Last       float64
	Volume     float64
	ExchangeTS time.Time // Source timestamp (falls back to receive time)
	ReceivedAt time.Time
}

// Side is the derived direction of a trade log entry.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeLogEntry records a significant price move of the selected symbol.
type TradeLogEntry struct {
	Time  time.Time `json:"time"`
	Side  Side      `json:"side"`
	Price float64   `json:"price"`
	Size  float64   `json:"size"`
	Value float64   `json:"value"` // Price * Size
}

// NewTradeLogEntry derives the side from the previous last price.
// A move up is a BUY, anything else is a SELL.
func NewTradeLogEntry(at time.Time, previous, price, size float64) TradeLogEntry {
	side := SideSell
	if price > previous {
		side = SideBuy
	}
	return TradeLogEntry{
		Time:  at,
		Side:  side,
		Price: price,
		Size:  size,
		Value: price * size,
	}
}

// MetricsSnapshot holds the aggregate server metrics from the last metrics message.
type MetricsSnapshot struct {
	Connections  int64     `json:"connections"`
	TotalOrders  int64     `json:"total_orders"`
	TotalTrades  int64     `json:"total_trades"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	ReceivedAt   time.Time `json:"received_at"`
}

// -----------------------------------------------------------------------------
// Notification Types
// -----------------------------------------------------------------------------

// Severity classifies a notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	for sev := SeverityInfo; sev <= SeverityError; sev++ {
		if sev.String() == string(text) {
			*s = sev
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", text)
}

// SystemMessage is one entry of the user-visible notification log.
type SystemMessage struct {
	Time     time.Time `json:"time"`
	Text     string    `json:"text"`
	Severity Severity  `json:"severity"`
}
