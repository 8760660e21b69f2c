package connection

import (
	"math"
	"time"
)

// Policy computes the delay before reconnect attempt n.
type Policy struct {
	Base   time.Duration // Delay before the first attempt
	Factor float64       // Growth per attempt
}

// DefaultPolicy returns 3s growing by 1.5x per attempt.
func DefaultPolicy() Policy {
	return Policy{Base: 3 * time.Second, Factor: 1.5}
}

// Delay returns Base * Factor^(attempt-1). Attempts below 1 count as 1.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(p.Base) * math.Pow(p.Factor, float64(attempt-1)))
}
