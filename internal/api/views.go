package api

import (
	"math"
	"time"

	"github.com/rickgao/marketdash/internal/market"
	"github.com/rickgao/marketdash/internal/version"
)

// SymbolView is the JSON form of a symbol record. DayLow is 0 until a
// price has been observed.
type SymbolView struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Last      float64   `json:"last"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
	DayHigh   float64   `json:"day_high"`
	DayLow    float64   `json:"day_low"`
	Points    int       `json:"points"`
}

func symbolView(r market.Record) SymbolView {
	v := SymbolView{
		Symbol:    r.Symbol,
		Bid:       r.Bid,
		Ask:       r.Ask,
		Last:      r.Last,
		Volume:    r.Volume,
		Timestamp: r.Timestamp,
		DayHigh:   r.DayHigh,
		DayLow:    r.DayLow,
		Points:    r.Points,
	}
	if math.IsInf(v.DayLow, 0) {
		v.DayLow = 0
	}
	return v
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string       `json:"status"`
	Build  version.Info `json:"build"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type symbolRequest struct {
	Symbol string `json:"symbol"`
}

type timeframeRequest struct {
	Timeframe string `json:"timeframe"`
}

type submitRequest struct {
	Text string `json:"text"`
}
