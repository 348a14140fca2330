package httpserver

import (
	"context"
	"sync"
	"time"

	"toolprice-service/internal/application"
	"toolprice-service/internal/domain"
)

var (
	_ application.ToolRepo          = (*memTools)(nil)
	_ application.PersonalPriceRepo = (*memPersonal)(nil)
	_ application.PurchaseRepo      = (*memPurchases)(nil)
	_ application.AccessRepo        = (*memAccess)(nil)
	_ application.PaymentGateway    = (*stubGateway)(nil)
)

type memTools struct {
	mu    sync.Mutex
	tools map[string]domain.BaseToolPrice
}

func (m *memTools) GetPrice(_ context.Context, id string) (domain.BaseToolPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tools[id]
	if !ok {
		return domain.BaseToolPrice{}, application.ErrNotFound
	}
	return t, nil
}

func (m *memTools) UpdateBasePrice(_ context.Context, id string, baseline, legacy float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tools[id]
	if !ok {
		return application.ErrNotFound
	}
	t.BaselineUSD, t.LegacyResultLocal = &baseline, &legacy
	m.tools[id] = t
	return nil
}

type memPersonal struct {
	mu   sync.Mutex
	rows map[[2]string]domain.PersonalPrice
}

func (m *memPersonal) Get(_ context.Context, userID, toolID string) (domain.PersonalPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[[2]string{userID, toolID}]
	if !ok {
		return domain.PersonalPrice{}, application.ErrNotFound
	}
	return p, nil
}

func (m *memPersonal) Upsert(_ context.Context, p domain.PersonalPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[[2]string{p.UserID, p.ToolID}] = p
	return nil
}

type memPurchases struct {
	mu   sync.Mutex
	rows map[string]domain.Purchase
}

func (m *memPurchases) Create(_ context.Context, p domain.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.PaymentID == p.PaymentID {
			return application.ErrConflict
		}
	}
	m.rows[p.ID] = p
	return nil
}

func (m *memPurchases) GetByPaymentID(_ context.Context, paymentID string) (domain.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.PaymentID == paymentID {
			return r, nil
		}
	}
	return domain.Purchase{}, application.ErrNotFound
}

func (m *memPurchases) ClaimPending(context.Context, int, time.Duration) ([]domain.Purchase, error) {
	return nil, nil
}

func (m *memPurchases) UpdateStatus(_ context.Context, id string, st domain.LifecycleState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return application.ErrNotFound
	}
	r.Status = st
	m.rows[id] = r
	return nil
}

type memAccess struct {
	mu     sync.Mutex
	grants map[[2]string]bool
}

func (m *memAccess) Grant(_ context.Context, userID, toolID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[[2]string{userID, toolID}] = true
	return nil
}

func (m *memAccess) Has(_ context.Context, userID, toolID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grants[[2]string{userID, toolID}], nil
}

type stubGateway struct {
	statuses map[string]string
}

func (g stubGateway) FetchStatus(_ context.Context, id string) (domain.PaymentStatus, bool) {
	raw, ok := g.statuses[id]
	if !ok {
		return domain.PaymentStatus{}, false
	}
	return domain.NewPaymentStatus(id, raw), true
}

type fixedRate float64

func (f fixedRate) Rate(context.Context) domain.ExchangeRate {
	return domain.ExchangeRate{Value: float64(f), FetchedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

type memIdempotency struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memIdempotency) TryReserve(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, key)
	return nil
}

type inMemory struct {
	tools     *memTools
	personal  *memPersonal
	purchases *memPurchases
	access    *memAccess
	rate      fixedRate
}

func newInMemory() *inMemory {
	b := 20.0
	legacy := 1499.5
	return &inMemory{
		tools: &memTools{tools: map[string]domain.BaseToolPrice{
			"writer": {ToolID: "writer", BaselineUSD: &b},
			"legacy": {ToolID: "legacy", LegacyResultLocal: &legacy},
			"free":   {ToolID: "free"},
		}},
		personal:  &memPersonal{rows: map[[2]string]domain.PersonalPrice{}},
		purchases: &memPurchases{rows: map[string]domain.Purchase{}},
		access:    &memAccess{grants: map[[2]string]bool{}},
		rate:      90,
	}
}

func (m *inMemory) server(gw stubGateway, opts ...ServerOption) *Server {
	pricing := application.NewPricingService(m.tools, m.personal, m.rate)
	payments := application.NewPaymentService(gw, m.purchases, m.access, pricing)
	return NewServer(pricing, payments, m.rate, opts...)
}
