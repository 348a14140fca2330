package pg

import (
	"context"
	"errors"
	"time"

	"toolprice-service/internal/application"
	"toolprice-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PurchaseRepo struct{ db *DB }

func NewPurchaseRepo(db *DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

var _ application.PurchaseRepo = (*PurchaseRepo)(nil)

const purchaseCols = `id, user_id, tool_id, payment_id, amount_local, status, checked_at, created_at, updated_at`

func scanPurchase(row pgx.Row) (domain.Purchase, error) {
	var p domain.Purchase
	var status string
	err := row.Scan(&p.ID, &p.UserID, &p.ToolID, &p.PaymentID, &p.AmountLocal, &status, &p.CheckedAt, &p.CreatedAt, &p.UpdatedAt)
	p.Status = domain.LifecycleState(status)
	return p, err
}

func (r *PurchaseRepo) Create(ctx context.Context, p domain.Purchase) error {
	const ins = `
        INSERT INTO purchases(id, user_id, tool_id, payment_id, amount_local, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	log := sqlLog(ctx, "purchase", "Create", ins,
		zap.String("id", p.ID),
		zap.String("payment_id", p.PaymentID),
	)
	log.Info("sql.exec_start")
	_, err := r.db.conn(ctx).Exec(ctx, ins, p.ID, p.UserID, p.ToolID, p.PaymentID, p.AmountLocal, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return mapErr(err)
	}
	log.Info("sql.exec_success")
	return nil
}

func (r *PurchaseRepo) GetByPaymentID(ctx context.Context, paymentID string) (domain.Purchase, error) {
	q := `SELECT ` + purchaseCols + ` FROM purchases WHERE payment_id=$1`
	p, err := scanPurchase(r.db.conn(ctx).QueryRow(ctx, q, paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Purchase{}, application.ErrNotFound
	}
	if err != nil {
		sqlLog(ctx, "purchase", "GetByPaymentID", q, zap.String("payment_id", paymentID)).Error("sql.query_failed", zap.Error(err))
		return domain.Purchase{}, err
	}
	return p, nil
}

// ClaimPending stamps checked_at on up to limit pending purchases that were
// not checked within recheckAfter and returns them. Rows locked by another
// worker are skipped.
func (r *PurchaseRepo) ClaimPending(ctx context.Context, limit int, recheckAfter time.Duration) ([]domain.Purchase, error) {
	q := `
      WITH cte AS (
        SELECT id
        FROM purchases
        WHERE status = 'pending'
          AND (checked_at IS NULL OR checked_at < NOW() - make_interval(secs => $2::float8))
        ORDER BY created_at
        LIMIT $1
        FOR UPDATE SKIP LOCKED
      )
      UPDATE purchases p
      SET checked_at = NOW()
      FROM cte
      WHERE p.id = cte.id
      RETURNING p.id, p.user_id, p.tool_id, p.payment_id, p.amount_local, p.status, p.checked_at, p.created_at, p.updated_at`
	rows, err := r.db.conn(ctx).Query(ctx, q, limit, recheckAfter.Seconds())
	if err != nil {
		sqlLog(ctx, "purchase", "ClaimPending", q).Error("sql.query_failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []domain.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PurchaseRepo) UpdateStatus(ctx context.Context, id string, status domain.LifecycleState) error {
	const up = `UPDATE purchases SET status=$2, updated_at=NOW() WHERE id=$1`
	log := sqlLog(ctx, "purchase", "UpdateStatus", up, zap.String("id", id), zap.String("status", string(status)))
	log.Info("sql.exec_start")
	tag, err := r.db.conn(ctx).Exec(ctx, up, id, string(status))
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		log.Warn("sql.exec_no_rows")
		return application.ErrNotFound
	}
	log.Info("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return nil
}
