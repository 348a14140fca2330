package application

import (
	"context"
	"time"

	"toolprice-service/internal/domain"
)

// ToolRepo reads and updates the pricing fields of tool records.
// Both methods return ErrNotFound for unknown tools.
type ToolRepo interface {
	GetPrice(ctx context.Context, toolID string) (domain.BaseToolPrice, error)
	UpdateBasePrice(ctx context.Context, toolID string, baselineUSD, legacyResultLocal float64) error
}

// PersonalPriceRepo stores at most one override per (user, tool). Upsert
// replaces every field of an existing row.
type PersonalPriceRepo interface {
	Get(ctx context.Context, userID, toolID string) (domain.PersonalPrice, error)
	Upsert(ctx context.Context, p domain.PersonalPrice) error
}

type PurchaseRepo interface {
	Create(ctx context.Context, p domain.Purchase) error
	GetByPaymentID(ctx context.Context, paymentID string) (domain.Purchase, error)
	ClaimPending(ctx context.Context, limit int, recheckAfter time.Duration) ([]domain.Purchase, error)
	UpdateStatus(ctx context.Context, id string, status domain.LifecycleState) error
}

type AccessRepo interface {
	Grant(ctx context.Context, userID, toolID string) error
	Has(ctx context.Context, userID, toolID string) (bool, error)
}

type RateProvider interface {
	Get(ctx context.Context, pair string) (domain.Quote, error)
}

// RateSource never fails; implementations substitute a fallback.
type RateSource interface {
	Rate(ctx context.Context) domain.ExchangeRate
}

// PaymentGateway returns ok=false when the status is unknown: gateway not
// configured, transport failure or non-2xx answer.
type PaymentGateway interface {
	FetchStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, bool)
}

type PriceResolver interface {
	ResolvePrice(ctx context.Context, userID, toolID string) (domain.ResolvedPrice, error)
}
