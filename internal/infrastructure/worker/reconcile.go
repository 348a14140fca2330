package worker

import (
	"context"
	"time"

	"toolprice-service/internal/application"
	"toolprice-service/internal/domain"

	"go.uber.org/zap"
)

var _ application.Worker = (*ReconcileWorker)(nil)

// Reconciler settles one purchase against the payment gateway.
type Reconciler interface {
	Reconcile(ctx context.Context, p domain.Purchase) (domain.LifecycleState, error)
}

// ReconcileWorker polls pending purchases and settles them. Purchases whose
// payment status is still unknown are picked up again after RecheckAfter.
type ReconcileWorker struct {
	Purchases  application.PurchaseRepo
	Reconciler Reconciler

	PollEvery    time.Duration
	BatchLimit   int
	RecheckAfter time.Duration
	Log          *zap.Logger
}

func (w *ReconcileWorker) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.PollEvery <= 0 {
		w.PollEvery = 250 * time.Millisecond
	}
	if w.BatchLimit <= 0 {
		w.BatchLimit = 10
	}

	t := time.NewTicker(w.PollEvery)
	defer t.Stop()

	log.Info("reconcile_worker.started", zap.Duration("poll_every", w.PollEvery), zap.Int("batch_limit", w.BatchLimit))
	for {
		select {
		case <-ctx.Done():
			log.Info("reconcile_worker.stopped")
			return
		case <-t.C:
			w.Tick(ctx, log)
		}
	}
}

// Tick claims and reconciles one batch. It returns how many purchases left
// the pending state.
func (w *ReconcileWorker) Tick(ctx context.Context, log *zap.Logger) int {
	batch, err := w.Purchases.ClaimPending(ctx, w.BatchLimit, w.RecheckAfter)
	if err != nil {
		log.Warn("reconcile_worker.claim_failed", zap.Error(err))
		return 0
	}
	settled := 0
	for _, p := range batch {
		if ctx.Err() != nil {
			return settled
		}
		st, err := w.Reconciler.Reconcile(ctx, p)
		if err != nil {
			log.Warn("reconcile_worker.reconcile_failed", zap.String("purchase_id", p.ID), zap.Error(err))
			continue
		}
		if st != domain.LifecyclePending {
			settled++
		}
	}
	if len(batch) > 0 {
		log.Info("reconcile_worker.batch_done", zap.Int("claimed", len(batch)), zap.Int("settled", settled))
	}
	return settled
}
