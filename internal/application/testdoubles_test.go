package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"toolprice-service/internal/domain"

	"github.com/stretchr/testify/mock"
)

var (
	ErrRepo = errors.New("repo error")
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("purchase-%d", g.n)
}

// fakeRateProvider returns prices in order and repeats the last one.
type fakeRateProvider struct {
	mu     sync.Mutex
	prices []float64
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeRateProvider) Get(ctx context.Context, pair string) (domain.Quote, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := ctx.Err(); err != nil {
		return domain.Quote{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	i := int(n) - 1
	if i >= len(f.prices) {
		i = len(f.prices) - 1
	}
	return domain.Quote{Pair: domain.Pair(pair), Price: f.prices[i], UpdatedAt: time.Now()}, nil
}

func (f *fakeRateProvider) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type staticRates struct{ v float64 }

func (s *staticRates) Rate(context.Context) domain.ExchangeRate {
	return domain.ExchangeRate{Value: s.v, FetchedAt: time.Now()}
}

type fakeToolRepo struct {
	mu    sync.Mutex
	tools map[string]domain.BaseToolPrice
	err   error
}

func (f *fakeToolRepo) GetPrice(_ context.Context, toolID string) (domain.BaseToolPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.BaseToolPrice{}, f.err
	}
	t, ok := f.tools[toolID]
	if !ok {
		return domain.BaseToolPrice{}, ErrNotFound
	}
	return t, nil
}

func (f *fakeToolRepo) UpdateBasePrice(_ context.Context, toolID string, baselineUSD, legacy float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	t, ok := f.tools[toolID]
	if !ok {
		return ErrNotFound
	}
	t.BaselineUSD, t.LegacyResultLocal = &baselineUSD, &legacy
	f.tools[toolID] = t
	return nil
}

type personalKey struct{ user, tool string }

type fakePersonalRepo struct {
	mu   sync.Mutex
	rows map[personalKey]domain.PersonalPrice
	err  error
	puts int
}

func (f *fakePersonalRepo) Get(_ context.Context, userID, toolID string) (domain.PersonalPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.PersonalPrice{}, f.err
	}
	p, ok := f.rows[personalKey{userID, toolID}]
	if !ok {
		return domain.PersonalPrice{}, ErrNotFound
	}
	return p, nil
}

func (f *fakePersonalRepo) Upsert(_ context.Context, p domain.PersonalPrice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.rows == nil {
		f.rows = map[personalKey]domain.PersonalPrice{}
	}
	f.rows[personalKey{p.UserID, p.ToolID}] = p
	f.puts++
	return nil
}

type fakePurchaseRepo struct {
	mu   sync.Mutex
	rows map[string]domain.Purchase
	err  error
}

func (f *fakePurchaseRepo) Create(_ context.Context, p domain.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = map[string]domain.Purchase{}
	}
	for _, r := range f.rows {
		if r.PaymentID == p.PaymentID {
			return ErrConflict
		}
	}
	f.rows[p.ID] = p
	return nil
}

func (f *fakePurchaseRepo) GetByPaymentID(_ context.Context, paymentID string) (domain.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.PaymentID == paymentID {
			return r, nil
		}
	}
	return domain.Purchase{}, ErrNotFound
}

func (f *fakePurchaseRepo) ClaimPending(_ context.Context, limit int, _ time.Duration) ([]domain.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Purchase
	for _, r := range f.rows {
		if r.Status == domain.LifecyclePending {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakePurchaseRepo) UpdateStatus(_ context.Context, id string, st domain.LifecycleState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	r, ok := f.rows[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = st
	f.rows[id] = r
	return nil
}

func (f *fakePurchaseRepo) status(id string) domain.LifecycleState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].Status
}

type fakeAccessRepo struct {
	mu     sync.Mutex
	grants map[personalKey]bool
	err    error
}

func (f *fakeAccessRepo) Grant(_ context.Context, userID, toolID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.grants == nil {
		f.grants = map[personalKey]bool{}
	}
	f.grants[personalKey{userID, toolID}] = true
	return nil
}

func (f *fakeAccessRepo) Has(_ context.Context, userID, toolID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grants[personalKey{userID, toolID}], nil
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) FetchStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, bool) {
	args := m.Called(ctx, paymentID)
	return args.Get(0).(domain.PaymentStatus), args.Bool(1)
}

func f64(v float64) *float64 { return &v }
