package domain

import "time"

// PersonalPrice is the per-user override for one tool, keyed by (UserID, ToolID).
type PersonalPrice struct {
	UserID       string
	ToolID       string
	BaselineUSD  float64
	RateSnapshot float64
	ResultLocal  int64
	UpdatedAt    time.Time
}
