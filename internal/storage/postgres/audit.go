package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickshelf/pos/internal/domain/audit"
)

const (
	insertLogSQL = `INSERT INTO activity_logs (user_id, action_description) VALUES ($1, $2)`

	listLogsSQL = `SELECT log_id, user_id, logged_at, action_description
		FROM activity_logs ORDER BY log_id DESC LIMIT $1`
)

var _ audit.Repository = (*AuditRepository)(nil)

// AuditRepository implements audit.Repository backed by PostgreSQL.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository returns an AuditRepository that uses the given pool.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Record(ctx context.Context, userID int64, action string) error {
	_, err := r.pool.Exec(ctx, insertLogSQL, userID, action)
	if err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, limit int) ([]audit.Entry, error) {
	rows, err := r.pool.Query(ctx, listLogsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Entry, error) {
		var e audit.Entry
		err := row.Scan(&e.ID, &e.UserID, &e.At, &e.Action)
		return e, err
	})
}
