package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rickgao/marketdash/internal/model"
)

// Inbound message types.
const (
	TypeMetrics    = "metrics"
	TypeMarketData = "market_data"
	TypeConnection = "connection"
)

// Inbound is a decoded frame. It is one of *Metrics, *MarketData,
// *ConnectionNotice or *Unknown.
type Inbound interface {
	Type() string
	inbound()
}

// Metrics carries aggregate server metrics. Absent fields decode as zero.
type Metrics struct {
	Connections  int64
	TotalOrders  int64
	TotalTrades  int64
	AvgLatencyMs float64
}

// MarketData is a sparse per-symbol update. Nil fields were absent.
type MarketData struct {
	Symbol    string
	Bid       *float64
	Ask       *float64
	Last      *float64
	Volume    *float64
	Timestamp *time.Time
}

// ConnectionNotice is a server-side status announcement.
type ConnectionNotice struct {
	Status  string
	Message string
}

// Unknown is a frame with a well-formed but unrecognized discriminator.
type Unknown struct {
	Kind string
}

func (*Metrics) Type() string          { return TypeMetrics }
func (*MarketData) Type() string       { return TypeMarketData }
func (*ConnectionNotice) Type() string { return TypeConnection }
func (u *Unknown) Type() string        { return u.Kind }

func (*Metrics) inbound()          {}
func (*MarketData) inbound()       {}
func (*ConnectionNotice) inbound() {}
func (*Unknown) inbound()          {}

// ProtocolError describes a frame that could not be decoded.
type ProtocolError struct {
	Kind   string // declared type, empty if it could not be read
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := "protocol error"
	if e.Kind != "" {
		msg += " in " + e.Kind
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the underlying cause and model.ErrProtocol.
func (e *ProtocolError) Unwrap() []error {
	if e.Err == nil {
		return []error{model.ErrProtocol}
	}
	return []error{model.ErrProtocol, e.Err}
}

// Wire types for JSON parsing

type envelope struct {
	Type *string `json:"type"`
}

type metricsWire struct {
	Connections float64 `json:"connections"`
	TotalOrders float64 `json:"totalOrders"`
	TotalTrades float64 `json:"totalTrades"`
	AvgLatency  float64 `json:"avgLatency"`
}

type marketDataWire struct {
	Symbol    string   `json:"symbol"`
	Bid       *float64 `json:"bid"`
	Ask       *float64 `json:"ask"`
	Last      *float64 `json:"last"`
	Volume    *float64 `json:"volume"`
	Timestamp *int64   `json:"timestamp"`
}

type connectionWire struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Decode parses one inbound frame.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ProtocolError{Reason: "malformed frame", Err: err}
	}
	if env.Type == nil {
		return nil, &ProtocolError{Reason: "missing type discriminator"}
	}

	kind := *env.Type
	switch kind {
	case TypeMetrics:
		var w metricsWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &ProtocolError{Kind: kind, Reason: "bad field", Err: err}
		}
		return &Metrics{
			Connections:  int64(w.Connections),
			TotalOrders:  int64(w.TotalOrders),
			TotalTrades:  int64(w.TotalTrades),
			AvgLatencyMs: w.AvgLatency,
		}, nil

	case TypeMarketData:
		var w marketDataWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &ProtocolError{Kind: kind, Reason: "bad field", Err: err}
		}
		if w.Symbol == "" {
			return nil, &ProtocolError{Kind: kind, Reason: "missing symbol"}
		}
		if w.Volume != nil && *w.Volume < 0 {
			return nil, &ProtocolError{Kind: kind, Reason: fmt.Sprintf("negative volume %v", *w.Volume)}
		}
		md := &MarketData{
			Symbol: w.Symbol,
			Bid:    w.Bid,
			Ask:    w.Ask,
			Last:   w.Last,
			Volume: w.Volume,
		}
		if w.Timestamp != nil {
			ts := time.UnixMilli(*w.Timestamp)
			md.Timestamp = &ts
		}
		return md, nil

	case TypeConnection:
		var w connectionWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, &ProtocolError{Kind: kind, Reason: "bad field", Err: err}
		}
		return &ConnectionNotice{Status: w.Status, Message: w.Message}, nil

	default:
		return &Unknown{Kind: kind}, nil
	}
}
