package domain

import (
	"math"
	"time"
)

type ExchangeRate struct {
	Value     float64
	FetchedAt time.Time
}

// Fresh reports whether the rate is still inside its ttl window at now.
func (r ExchangeRate) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.FetchedAt) < ttl
}

// UsableRate reports whether v can be used as a conversion factor.
func UsableRate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
