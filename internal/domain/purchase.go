package domain

import "time"

type Purchase struct {
	ID          string
	UserID      string
	ToolID      string
	PaymentID   string
	AmountLocal int64
	Status      LifecycleState
	CheckedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
