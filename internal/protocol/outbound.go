package protocol

import (
	"encoding/json"
	"time"
)

// Outbound message types.
const (
	TypeSubscribe  = "subscribe"
	TypeGetMetrics = "get_metrics"
	TypeHeartbeat  = "heartbeat"
	TypeChat       = "chat"
	TypePing       = "ping"
)

// Outbound is a frame sent to the feed.
type Outbound interface {
	Type() string
	wire() any
}

// Subscribe asks the feed to stream a symbol.
type Subscribe struct {
	Symbol string
}

// GetMetrics asks the feed for an aggregate metrics message.
type GetMetrics struct {
	Timestamp time.Time
}

// Heartbeat keeps the channel observable.
type Heartbeat struct {
	Timestamp time.Time
}

// Chat is a free-form user message.
type Chat struct {
	Message string
}

// Ping is a user-originated latency probe.
type Ping struct{}

func (Subscribe) Type() string  { return TypeSubscribe }
func (GetMetrics) Type() string { return TypeGetMetrics }
func (Heartbeat) Type() string  { return TypeHeartbeat }
func (Chat) Type() string       { return TypeChat }
func (Ping) Type() string       { return TypePing }

type symbolWire struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

type timestampWire struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type messageWire struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type bareWire struct {
	Type string `json:"type"`
}

func (m Subscribe) wire() any  { return symbolWire{Type: TypeSubscribe, Symbol: m.Symbol} }
func (m GetMetrics) wire() any { return timestampWire{Type: TypeGetMetrics, Timestamp: m.Timestamp.UnixMilli()} }
func (m Heartbeat) wire() any  { return timestampWire{Type: TypeHeartbeat, Timestamp: m.Timestamp.UnixMilli()} }
func (m Chat) wire() any       { return messageWire{Type: TypeChat, Message: m.Message} }
func (Ping) wire() any         { return bareWire{Type: TypePing} }

// Encode serializes an outbound frame.
func Encode(m Outbound) ([]byte, error) {
	return json.Marshal(m.wire())
}
