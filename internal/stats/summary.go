package stats

import (
	"math"
	"time"
)

// Summary is the full statistics view for one symbol.
type Summary struct {
	Symbol        string        `json:"symbol"`
	MessageRate   int           `json:"message_rate"`
	TotalMessages int64         `json:"total_messages"`
	DataRateKB    float64       `json:"data_rate_kb"`
	Volatility    float64       `json:"volatility"`
	Spread        SpreadInfo    `json:"spread"`
	DayHigh       float64       `json:"day_high"`
	DayLow        float64       `json:"day_low"` // 0 until a price was observed
	Uptime        time.Duration `json:"uptime_ns"`
	UptimeText    string        `json:"uptime"`
}

// Inputs gathers what Summarize needs from the client state.
type Inputs struct {
	Symbol          string
	Window          []time.Time
	Total           int64
	BytesPerMessage int
	Prices          []float64
	Bid, Ask, Last  float64
	DayHigh         float64
	DayLow          float64
	SessionStart    time.Time // zero when not connected
}

// Summarize computes every statistic at now.
func Summarize(in Inputs, now time.Time) Summary {
	s := Summary{
		Symbol:        in.Symbol,
		MessageRate:   MessageRate(in.Window, now),
		TotalMessages: in.Total,
		DataRateKB:    DataRateKB(in.Total, in.BytesPerMessage),
		Volatility:    Volatility(in.Prices),
		Spread:        Spread(in.Bid, in.Ask, in.Last),
		DayHigh:       in.DayHigh,
		DayLow:        in.DayLow,
	}
	if math.IsInf(in.DayLow, 1) {
		// No price observed yet. JSON cannot carry +Inf.
		s.DayLow = 0
	}
	if !in.SessionStart.IsZero() {
		s.Uptime = now.Sub(in.SessionStart)
	}
	s.UptimeText = FormatDuration(s.Uptime)
	return s
}
