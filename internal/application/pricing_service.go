package application

import (
	"context"
	"errors"
	"fmt"
	"math"

	"toolprice-service/internal/domain"

	"go.uber.org/zap"
)

var _ PriceResolver = (*PricingService)(nil)

var errBaselineRange = fmt.Errorf("%w: baseline_usd must be between %v and %v", ErrInvalidInput, domain.MinBaselineUSD, domain.MaxBaselineUSD)

type PricingService struct {
	tools    ToolRepo
	personal PersonalPriceRepo
	rates    RateSource
	params   domain.PriceParams
	clock    Clock
	log      *zap.Logger
}

type PricingOption func(*PricingService)

func WithPriceParams(p domain.PriceParams) PricingOption {
	return func(s *PricingService) { s.params = p }
}

func WithPricingClock(c Clock) PricingOption { return func(s *PricingService) { s.clock = c } }

func WithPricingLogger(l *zap.Logger) PricingOption { return func(s *PricingService) { s.log = l } }

func NewPricingService(tools ToolRepo, personal PersonalPriceRepo, rates RateSource, opts ...PricingOption) *PricingService {
	s := &PricingService{
		tools:    tools,
		personal: personal,
		rates:    rates,
		params:   domain.DefaultPriceParams(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// ResolvePrice returns the personal override for (userID, toolID) when one
// exists, otherwise the tool's base price. userID may be empty.
func (s *PricingService) ResolvePrice(ctx context.Context, userID, toolID string) (domain.ResolvedPrice, error) {
	if userID != "" {
		p, err := s.personal.Get(ctx, userID, toolID)
		switch {
		case err == nil:
			return personalResult(p), nil
		case !errors.Is(err, ErrNotFound):
			return domain.ResolvedPrice{}, fmt.Errorf("get personal price: %w", err)
		}
	}

	tool, err := s.tools.GetPrice(ctx, toolID)
	if err != nil {
		return domain.ResolvedPrice{}, fmt.Errorf("get tool %q: %w", toolID, err)
	}
	out := domain.ResolvedPrice{ToolID: toolID, Source: domain.PriceSourceBase}

	switch {
	case tool.BaselineUSD != nil:
		rate := s.rates.Rate(ctx)
		q := s.params.Quote(*tool.BaselineUSD, rate.Value)
		out.BaselineUSD = ptr(*tool.BaselineUSD)
		out.Rate = ptr(rate.Value)
		if q.Valid() {
			out.ResultLocal = ptr(q.ResultLocal)
		} else {
			s.log.Warn("pricing.unpriceable_baseline", zap.String("tool_id", toolID), zap.Float64("baseline_usd", *tool.BaselineUSD))
		}
	case tool.LegacyResultLocal != nil:
		out.ResultLocal = ptr(int64(math.Round(*tool.LegacyResultLocal)))
	}
	return out, nil
}

// SetPersonalPrice computes a price for baselineUSD and stores it as the
// caller's override for toolID. An invalid rateOverride is ignored.
func (s *PricingService) SetPersonalPrice(ctx context.Context, userID, toolID string, baselineUSD float64, rateOverride *float64) (domain.ResolvedPrice, error) {
	if userID == "" {
		return domain.ResolvedPrice{}, ErrUnauthorized
	}
	baselineUSD, ok := domain.StorableBaselineUSD(baselineUSD)
	if !ok {
		return domain.ResolvedPrice{}, errBaselineRange
	}
	if _, err := s.tools.GetPrice(ctx, toolID); err != nil {
		return domain.ResolvedPrice{}, fmt.Errorf("get tool %q: %w", toolID, err)
	}

	q, err := s.quote(ctx, baselineUSD, rateOverride)
	if err != nil {
		return domain.ResolvedPrice{}, err
	}
	p := domain.PersonalPrice{
		UserID:       userID,
		ToolID:       toolID,
		BaselineUSD:  q.BaselineUSD,
		RateSnapshot: q.Rate,
		ResultLocal:  q.ResultLocal,
		UpdatedAt:    s.clock.Now(),
	}
	if err := s.personal.Upsert(ctx, p); err != nil {
		return domain.ResolvedPrice{}, fmt.Errorf("upsert personal price: %w", err)
	}
	s.log.Info("pricing.personal_price_set",
		zap.String("user_id", userID),
		zap.String("tool_id", toolID),
		zap.Int64("result_local", p.ResultLocal),
	)
	return personalResult(p), nil
}

// SetBasePrice writes the tool's own baseline and a denormalized local price.
func (s *PricingService) SetBasePrice(ctx context.Context, toolID string, baselineUSD float64, rateOverride *float64) (domain.ResolvedPrice, error) {
	baselineUSD, ok := domain.StorableBaselineUSD(baselineUSD)
	if !ok {
		return domain.ResolvedPrice{}, errBaselineRange
	}
	q, err := s.quote(ctx, baselineUSD, rateOverride)
	if err != nil {
		return domain.ResolvedPrice{}, err
	}
	if err := s.tools.UpdateBasePrice(ctx, toolID, q.BaselineUSD, float64(q.ResultLocal)); err != nil {
		return domain.ResolvedPrice{}, fmt.Errorf("update tool %q: %w", toolID, err)
	}
	s.log.Info("pricing.base_price_set", zap.String("tool_id", toolID), zap.Int64("result_local", q.ResultLocal))
	now := s.clock.Now()
	return domain.ResolvedPrice{
		ToolID:      toolID,
		BaselineUSD: ptr(q.BaselineUSD),
		ResultLocal: ptr(q.ResultLocal),
		Rate:        ptr(q.Rate),
		Source:      domain.PriceSourceBase,
		UpdatedAt:   &now,
	}, nil
}

// quote prices a rounded baseline for storage. The rate is rounded to
// snapshot precision so stored rows reproduce the returned price.
func (s *PricingService) quote(ctx context.Context, baselineUSD float64, rateOverride *float64) (domain.PriceQuote, error) {
	var (
		rate float64
		ok   bool
	)
	if rateOverride != nil {
		rate, ok = domain.StorableRate(*rateOverride)
	}
	if !ok {
		rate, ok = domain.StorableRate(s.rates.Rate(ctx).Value)
	}
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("%w: exchange rate out of range", ErrInvalidInput)
	}
	q := s.params.Quote(baselineUSD, rate)
	if !q.Storable() {
		return domain.PriceQuote{}, fmt.Errorf("%w: price could not be computed", ErrInvalidInput)
	}
	return q, nil
}

func personalResult(p domain.PersonalPrice) domain.ResolvedPrice {
	updated := p.UpdatedAt
	return domain.ResolvedPrice{
		ToolID:      p.ToolID,
		BaselineUSD: ptr(p.BaselineUSD),
		ResultLocal: ptr(p.ResultLocal),
		Rate:        ptr(p.RateSnapshot),
		Source:      domain.PriceSourcePersonal,
		UpdatedAt:   &updated,
	}
}

func ptr[T any](v T) *T { return &v }
