package provider

import (
	"context"
	"time"

	"toolprice-service/internal/application"
	"toolprice-service/internal/domain"
)

var _ application.RateProvider = (*Fake)(nil)

// Fake answers every pair with a constant rate. Used for local runs and e2e.
type Fake struct {
	price float64
}

func NewFake(price float64) *Fake { return &Fake{price: price} }

func (f *Fake) Get(_ context.Context, pair string) (domain.Quote, error) {
	return domain.Quote{
		Pair:      domain.Pair(pair),
		Price:     f.price,
		UpdatedAt: time.Now().UTC(),
	}, nil
}
