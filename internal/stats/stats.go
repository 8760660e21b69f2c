package stats

import (
	"fmt"
	"math"
	"time"
)

const (
	// RateSlice is the trailing interval the message rate is counted over.
	RateSlice = time.Second

	// VolatilityPoints is the number of recent prices volatility needs.
	VolatilityPoints = 20

	// DefaultBytesPerMessage is the size assumed for the data rate estimate.
	DefaultBytesPerMessage = 100
)

// MessageRate counts the instants no older than one second at now.
func MessageRate(window []time.Time, now time.Time) int {
	n := 0
	for _, ts := range window {
		if now.Sub(ts) <= RateSlice {
			n++
		}
	}
	return n
}

// DataRateKB estimates throughput in KB/s from the message total. It is an
// estimate, not a measured byte count.
func DataRateKB(total int64, bytesPerMessage int) float64 {
	if bytesPerMessage <= 0 {
		bytesPerMessage = DefaultBytesPerMessage
	}
	return float64(total) * float64(bytesPerMessage) / 1024
}

// Volatility is the population coefficient of variation, in percent, of the
// last 20 prices. Fewer than 20 prices, or a non-positive mean, yield 0.
func Volatility(prices []float64) float64 {
	if len(prices) < VolatilityPoints {
		return 0
	}
	recent := prices[len(prices)-VolatilityPoints:]

	var sum float64
	for _, p := range recent {
		sum += p
	}
	mean := sum / float64(len(recent))
	if mean <= 0 {
		return 0
	}

	var sq float64
	for _, p := range recent {
		d := p - mean
		sq += d * d
	}
	variance := sq / float64(len(recent))
	return math.Sqrt(variance) / mean * 100
}

// SpreadInfo describes the top of book of a symbol.
type SpreadInfo struct {
	Spread  float64 `json:"spread"`
	Percent float64 `json:"spread_percent"`
	Mid     float64 `json:"mid"`
}

// Spread computes ask-bid and its share of last. Percent is 0 when last is
// not positive.
func Spread(bid, ask, last float64) SpreadInfo {
	s := SpreadInfo{
		Spread: ask - bid,
		Mid:    (bid + ask) / 2,
	}
	if last > 0 {
		s.Percent = s.Spread / last * 100
	}
	return s
}

// PriceChange returns the percent change from previous to current. Both must
// be positive, otherwise ok is false.
func PriceChange(previous, current float64) (pct float64, ok bool) {
	if previous <= 0 || current <= 0 {
		return 0, false
	}
	return (current - previous) / previous * 100, true
}

// FormatDuration renders d as hh:mm:ss, truncated to whole seconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
