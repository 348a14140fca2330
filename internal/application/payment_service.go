package application

import (
	"context"
	"fmt"

	"toolprice-service/internal/domain"

	"go.uber.org/zap"
)

type PaymentService struct {
	gateway   PaymentGateway
	purchases PurchaseRepo
	access    AccessRepo
	prices    PriceResolver
	uow       UnitOfWork
	clock     Clock
	idgen     IDGen
	log       *zap.Logger
}

type PaymentOption func(*PaymentService)

func WithUnitOfWork(u UnitOfWork) PaymentOption { return func(s *PaymentService) { s.uow = u } }
func WithPaymentClock(c Clock) PaymentOption    { return func(s *PaymentService) { s.clock = c } }
func WithIDGen(g IDGen) PaymentOption           { return func(s *PaymentService) { s.idgen = g } }
func WithPaymentLogger(l *zap.Logger) PaymentOption {
	return func(s *PaymentService) { s.log = l }
}

func NewPaymentService(gateway PaymentGateway, purchases PurchaseRepo, access AccessRepo, prices PriceResolver, opts ...PaymentOption) *PaymentService {
	s := &PaymentService{
		gateway:   gateway,
		purchases: purchases,
		access:    access,
		prices:    prices,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.uow == nil {
		s.uow = NoopUoW{}
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.idgen == nil {
		s.idgen = defaultIDGen{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Status looks up a payment at the gateway. ok=false means "unknown, retry
// later" and must not be read as a failed payment.
func (s *PaymentService) Status(ctx context.Context, paymentID string) (domain.PaymentStatus, bool) {
	return s.gateway.FetchStatus(ctx, paymentID)
}

// RecordPurchase stores a pending purchase for a payment created at the
// gateway, charging the price the user currently resolves to.
func (s *PaymentService) RecordPurchase(ctx context.Context, userID, toolID, paymentID string) (domain.Purchase, error) {
	if userID == "" {
		return domain.Purchase{}, ErrUnauthorized
	}
	if paymentID == "" {
		return domain.Purchase{}, fmt.Errorf("%w: payment_id is required", ErrInvalidInput)
	}
	price, err := s.prices.ResolvePrice(ctx, userID, toolID)
	if err != nil {
		return domain.Purchase{}, err
	}
	if price.ResultLocal == nil {
		return domain.Purchase{}, fmt.Errorf("%w: tool %q has no price", ErrInvalidInput, toolID)
	}

	now := s.clock.Now()
	p := domain.Purchase{
		ID:          s.idgen.NewID(),
		UserID:      userID,
		ToolID:      toolID,
		PaymentID:   paymentID,
		AmountLocal: *price.ResultLocal,
		Status:      domain.LifecyclePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.purchases.Create(ctx, p); err != nil {
		return domain.Purchase{}, fmt.Errorf("create purchase: %w", err)
	}
	s.log.Info("purchase.recorded",
		zap.String("purchase_id", p.ID),
		zap.String("payment_id", paymentID),
		zap.Int64("amount_local", p.AmountLocal),
	)
	return p, nil
}

// Reconcile moves a pending purchase to its gateway outcome. Unknown and
// pending gateway answers leave it pending for the next poll.
func (s *PaymentService) Reconcile(ctx context.Context, p domain.Purchase) (domain.LifecycleState, error) {
	if p.Status != domain.LifecyclePending {
		return p.Status, nil
	}
	log := s.log.With(zap.String("purchase_id", p.ID), zap.String("payment_id", p.PaymentID))

	st, ok := s.gateway.FetchStatus(ctx, p.PaymentID)
	if !ok {
		log.Info("reconcile.status_unknown")
		return domain.LifecyclePending, nil
	}

	switch st.LifecycleState {
	case domain.LifecycleCompleted:
		err := s.uow.Do(ctx, func(ctx context.Context) error {
			if err := s.purchases.UpdateStatus(ctx, p.ID, domain.LifecycleCompleted); err != nil {
				return err
			}
			return s.access.Grant(ctx, p.UserID, p.ToolID)
		})
		if err != nil {
			return domain.LifecyclePending, fmt.Errorf("complete purchase %s: %w", p.ID, err)
		}
	case domain.LifecycleFailed:
		if err := s.purchases.UpdateStatus(ctx, p.ID, domain.LifecycleFailed); err != nil {
			return domain.LifecyclePending, fmt.Errorf("fail purchase %s: %w", p.ID, err)
		}
	default:
		return domain.LifecyclePending, nil
	}
	log.Info("reconcile.settled", zap.String("state", string(st.LifecycleState)), zap.String("provider_status", st.RawProviderStatus))
	return st.LifecycleState, nil
}

// ReconcileByPaymentID settles the caller's purchase for paymentID on demand.
// Purchases of other users are reported as not found.
func (s *PaymentService) ReconcileByPaymentID(ctx context.Context, userID, paymentID string) (domain.Purchase, error) {
	if userID == "" {
		return domain.Purchase{}, ErrUnauthorized
	}
	p, err := s.purchases.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return domain.Purchase{}, fmt.Errorf("purchase for payment %q: %w", paymentID, err)
	}
	if p.UserID != userID {
		return domain.Purchase{}, fmt.Errorf("purchase for payment %q: %w", paymentID, ErrNotFound)
	}
	st, err := s.Reconcile(ctx, p)
	if err != nil {
		return domain.Purchase{}, err
	}
	p.Status = st
	return p, nil
}

func (s *PaymentService) HasAccess(ctx context.Context, userID, toolID string) (bool, error) {
	if userID == "" {
		return false, ErrUnauthorized
	}
	return s.access.Has(ctx, userID, toolID)
}
