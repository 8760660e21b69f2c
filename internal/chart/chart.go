// Package chart produces bounded, down-sampled views of a price history.
//
// A view keeps the points whose position in the stored history is a
// multiple of the timeframe's stride and whose age is within its maximum.
// The stride counts stored points, not wall-clock buckets, so the visual
// cadence of a view follows the ingest rate.
package chart

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/rickgao/marketdash/internal/model"
)

// Timeframe names a view profile.
type Timeframe string

const (
	Timeframe1s  Timeframe = "1s"
	Timeframe5s  Timeframe = "5s"
	Timeframe30s Timeframe = "30s"
	Timeframe1m  Timeframe = "1m"
)

// DefaultTimeframe is the timeframe a new client starts with.
const DefaultTimeframe = Timeframe1s

// ErrUnknownTimeframe is returned for a tag outside the profile table.
var ErrUnknownTimeframe = fmt.Errorf("%w: unknown timeframe", model.ErrPolicy)

// Profile bounds a view by age and positional stride.
type Profile struct {
	MaxAge time.Duration
	Stride int
}

var profiles = map[Timeframe]Profile{
	Timeframe1s:  {MaxAge: time.Minute, Stride: 1},
	Timeframe5s:  {MaxAge: 5 * time.Minute, Stride: 5},
	Timeframe30s: {MaxAge: 30 * time.Minute, Stride: 30},
	Timeframe1m:  {MaxAge: time.Hour, Stride: 60},
}

// Timeframes lists the supported tags, finest first.
func Timeframes() []Timeframe {
	return []Timeframe{Timeframe1s, Timeframe5s, Timeframe30s, Timeframe1m}
}

// ParseTimeframe validates a tag.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := profiles[tf]; !ok {
		names := make([]string, 0, len(profiles))
		for _, t := range Timeframes() {
			names = append(names, string(t))
		}
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownTimeframe, s, strings.Join(names, ", "))
	}
	return tf, nil
}

// Profile returns the bounds of tf.
func (tf Timeframe) Profile() (Profile, bool) {
	p, ok := profiles[tf]
	return p, ok
}

// Window returns a lazy view over history at now. The sequence is
// restartable: every range re-evaluates the filter against the same
// history slice. An unknown timeframe yields an empty sequence.
func Window(history []model.PricePoint, tf Timeframe, now time.Time) iter.Seq2[time.Time, float64] {
	p, ok := profiles[tf]
	return func(yield func(time.Time, float64) bool) {
		if !ok {
			return
		}
		for i, pt := range history {
			if i%p.Stride != 0 || now.Sub(pt.Time) > p.MaxAge {
				continue
			}
			if !yield(pt.Time, pt.Price) {
				return
			}
		}
	}
}

// Point is a materialized view element.
type Point struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Collect materializes a view.
func Collect(seq iter.Seq2[time.Time, float64]) []Point {
	out := []Point{}
	for ts, price := range seq {
		out = append(out, Point{Time: ts, Price: price})
	}
	return out
}
