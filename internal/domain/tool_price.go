package domain

import "time"

// BaseToolPrice is the pricing part of a tool record. Either field may be nil.
type BaseToolPrice struct {
	ToolID            string
	BaselineUSD       *float64
	LegacyResultLocal *float64
}

type PriceSource string

const (
	PriceSourcePersonal PriceSource = "personal"
	PriceSourceBase     PriceSource = "base"
)

// ResolvedPrice is what the price read surface returns. Nil fields mean
// "not available".
type ResolvedPrice struct {
	ToolID      string
	BaselineUSD *float64
	ResultLocal *int64
	Rate        *float64
	Source      PriceSource
	UpdatedAt   *time.Time
}
