package pg

import (
	"context"
	"errors"

	"toolprice-service/internal/application"
	"toolprice-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ToolRepo struct{ db *DB }

func NewToolRepo(db *DB) *ToolRepo { return &ToolRepo{db: db} }

var _ application.ToolRepo = (*ToolRepo)(nil)

func (r *ToolRepo) GetPrice(ctx context.Context, toolID string) (domain.BaseToolPrice, error) {
	const q = `SELECT id, start_price_usd::float8, price::float8 FROM tools WHERE id=$1`
	log := sqlLog(ctx, "tool", "GetPrice", q, zap.String("tool_id", toolID))
	log.Debug("sql.query_start")

	var out domain.BaseToolPrice
	err := r.db.conn(ctx).QueryRow(ctx, q, toolID).Scan(&out.ToolID, &out.BaselineUSD, &out.LegacyResultLocal)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Info("sql.query_no_rows")
		return domain.BaseToolPrice{}, application.ErrNotFound
	}
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return domain.BaseToolPrice{}, err
	}
	return out, nil
}

func (r *ToolRepo) UpdateBasePrice(ctx context.Context, toolID string, baselineUSD, legacyResultLocal float64) error {
	const up = `
        UPDATE tools
        SET start_price_usd=$2, price=$3, updated_at=NOW()
        WHERE id=$1`
	log := sqlLog(ctx, "tool", "UpdateBasePrice", up,
		zap.String("tool_id", toolID),
		zap.Float64("baseline_usd", baselineUSD),
		zap.Float64("price", legacyResultLocal),
	)
	log.Info("sql.exec_start")
	tag, err := r.db.conn(ctx).Exec(ctx, up, toolID, baselineUSD, legacyResultLocal)
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
