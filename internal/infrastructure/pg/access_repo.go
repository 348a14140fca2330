package pg

import (
	"context"

	"toolprice-service/internal/application"

	"go.uber.org/zap"
)

type AccessRepo struct{ db *DB }

func NewAccessRepo(db *DB) *AccessRepo { return &AccessRepo{db: db} }

var _ application.AccessRepo = (*AccessRepo)(nil)

// Grant is idempotent.
func (r *AccessRepo) Grant(ctx context.Context, userID, toolID string) error {
	const ins = `
        INSERT INTO tool_access(user_id, tool_id)
        VALUES ($1, $2)
        ON CONFLICT (user_id, tool_id) DO NOTHING`
	log := sqlLog(ctx, "access", "Grant", ins, zap.String("user_id", userID), zap.String("tool_id", toolID))
	log.Info("sql.exec_start")
	if _, err := r.db.conn(ctx).Exec(ctx, ins, userID, toolID); err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return mapErr(err)
	}
	log.Info("sql.exec_success")
	return nil
}

func (r *AccessRepo) Has(ctx context.Context, userID, toolID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM tool_access WHERE user_id=$1 AND tool_id=$2)`
	var ok bool
	if err := r.db.conn(ctx).QueryRow(ctx, q, userID, toolID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
