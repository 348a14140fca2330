package pg

import (
	"context"
	"errors"

	"toolprice-service/internal/application"
	"toolprice-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PersonalPriceRepo struct{ db *DB }

func NewPersonalPriceRepo(db *DB) *PersonalPriceRepo { return &PersonalPriceRepo{db: db} }

var _ application.PersonalPriceRepo = (*PersonalPriceRepo)(nil)

func (r *PersonalPriceRepo) Get(ctx context.Context, userID, toolID string) (domain.PersonalPrice, error) {
	const q = `
        SELECT user_id, tool_id, baseline_usd::float8, rate_snapshot::float8, result_local, updated_at
        FROM personal_prices WHERE user_id=$1 AND tool_id=$2`
	var out domain.PersonalPrice
	err := r.db.conn(ctx).QueryRow(ctx, q, userID, toolID).Scan(
		&out.UserID, &out.ToolID, &out.BaselineUSD, &out.RateSnapshot, &out.ResultLocal, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PersonalPrice{}, application.ErrNotFound
	}
	if err != nil {
		sqlLog(ctx, "personal_price", "Get", q, zap.String("user_id", userID), zap.String("tool_id", toolID)).
			Error("sql.query_failed", zap.Error(err))
		return domain.PersonalPrice{}, err
	}
	return out, nil
}

// Upsert writes every column, so a repeated write leaves no trace of the
// previous row. Concurrent writers race; the last commit wins.
func (r *PersonalPriceRepo) Upsert(ctx context.Context, p domain.PersonalPrice) error {
	const up = `
        INSERT INTO personal_prices(user_id, tool_id, baseline_usd, rate_snapshot, result_local, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id, tool_id) DO UPDATE
          SET baseline_usd=EXCLUDED.baseline_usd,
              rate_snapshot=EXCLUDED.rate_snapshot,
              result_local=EXCLUDED.result_local,
              updated_at=EXCLUDED.updated_at`
	log := sqlLog(ctx, "personal_price", "Upsert", up,
		zap.String("user_id", p.UserID),
		zap.String("tool_id", p.ToolID),
		zap.Int64("result_local", p.ResultLocal),
	)
	log.Info("sql.exec_start")
	if _, err := r.db.conn(ctx).Exec(ctx, up, p.UserID, p.ToolID, p.BaselineUSD, p.RateSnapshot, p.ResultLocal, p.UpdatedAt); err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return mapErr(err)
	}
	log.Info("sql.exec_success")
	return nil
}
