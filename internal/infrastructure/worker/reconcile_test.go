package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"toolprice-service/internal/domain"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memPurchases struct {
	mu       sync.Mutex
	pending  []domain.Purchase
	claimErr error
	claims   int
}

func (m *memPurchases) Create(context.Context, domain.Purchase) error { return nil }
func (m *memPurchases) GetByPaymentID(context.Context, string) (domain.Purchase, error) {
	return domain.Purchase{}, errors.New("not used")
}
func (m *memPurchases) UpdateStatus(context.Context, string, domain.LifecycleState) error {
	return nil
}

func (m *memPurchases) ClaimPending(_ context.Context, limit int, _ time.Duration) ([]domain.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims++
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	if limit > len(m.pending) {
		limit = len(m.pending)
	}
	return append([]domain.Purchase(nil), m.pending[:limit]...), nil
}

type scriptedReconciler struct {
	mu      sync.Mutex
	results map[string]domain.LifecycleState
	errs    map[string]error
	seen    []string
}

func (s *scriptedReconciler) Reconcile(_ context.Context, p domain.Purchase) (domain.LifecycleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, p.ID)
	if err := s.errs[p.ID]; err != nil {
		return domain.LifecyclePending, err
	}
	return s.results[p.ID], nil
}

func TestTick_CountsSettled(t *testing.T) {
	repo := &memPurchases{pending: []domain.Purchase{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}}
	rec := &scriptedReconciler{
		results: map[string]domain.LifecycleState{
			"a": domain.LifecycleCompleted,
			"b": domain.LifecyclePending,
			"c": domain.LifecycleFailed,
		},
		errs: map[string]error{"d": errors.New("db down")},
	}
	w := &ReconcileWorker{Purchases: repo, Reconciler: rec, BatchLimit: 10}

	settled := w.Tick(context.Background(), zap.NewNop())
	require.Equal(t, 2, settled)
	require.Equal(t, []string{"a", "b", "c", "d"}, rec.seen)
}

func TestTick_RespectsBatchLimit(t *testing.T) {
	repo := &memPurchases{pending: []domain.Purchase{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	rec := &scriptedReconciler{results: map[string]domain.LifecycleState{}}
	w := &ReconcileWorker{Purchases: repo, Reconciler: rec, BatchLimit: 2}

	w.Tick(context.Background(), zap.NewNop())
	require.Len(t, rec.seen, 2)
}

func TestTick_ClaimError(t *testing.T) {
	repo := &memPurchases{claimErr: errors.New("conn reset")}
	rec := &scriptedReconciler{}
	w := &ReconcileWorker{Purchases: repo, Reconciler: rec, BatchLimit: 5}

	require.Zero(t, w.Tick(context.Background(), zap.NewNop()))
	require.Empty(t, rec.seen)
}

func TestStart_PollsUntilCanceled(t *testing.T) {
	repo := &memPurchases{}
	w := &ReconcileWorker{Purchases: repo, Reconciler: &scriptedReconciler{}, PollEvery: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.claims >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
