package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenloop/carbon-market/internal/models"
)

type auditLogsRepo struct{ pool *pgxpool.Pool }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) (models.AuditLog, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO audit_logs(id, credit_id, actor_id, action, comments)
		 VALUES($1,$2,$3,$4,$5)
		 RETURNING id, credit_id, actor_id, action, comments, created_at`,
		l.ID, l.CreditID, l.ActorID, l.Action, l.Comments,
	).Scan(&l.ID, &l.CreditID, &l.ActorID, &l.Action, &l.Comments, &l.CreatedAt)
	return l, err
}

func (r *auditLogsRepo) ListByCredit(ctx context.Context, creditID string) ([]models.AuditLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, credit_id, actor_id, action, comments, created_at
		   FROM audit_logs WHERE credit_id=$1 ORDER BY created_at`, creditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.CreditID, &l.ActorID, &l.Action, &l.Comments, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
