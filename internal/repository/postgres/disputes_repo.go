package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenloop/carbon-market/internal/models"
)

type disputesRepo struct{ pool *pgxpool.Pool }

const disputeCols = `id, transaction_id, raised_by, resolved_by, reason, status, resolution, created_at, resolved_at`

func scanDispute(row pgx.Row) (models.Dispute, error) {
	var d models.Dispute
	err := row.Scan(&d.ID, &d.TransactionID, &d.RaisedBy, &d.ResolvedBy, &d.Reason, &d.Status, &d.Resolution, &d.CreatedAt, &d.ResolvedAt)
	return d, err
}

func (r *disputesRepo) Create(ctx context.Context, d models.Dispute) (models.Dispute, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = models.DisputeOpen
	}
	out, err := scanDispute(r.pool.QueryRow(ctx,
		`INSERT INTO disputes(id, transaction_id, raised_by, reason, status)
		 VALUES($1,$2,$3,$4,$5)
		 RETURNING `+disputeCols,
		d.ID, d.TransactionID, d.RaisedBy, d.Reason, d.Status,
	))
	return out, err
}

func (r *disputesRepo) GetByID(ctx context.Context, id string) (models.Dispute, error) {
	d, err := scanDispute(r.pool.QueryRow(ctx,
		`SELECT `+disputeCols+` FROM disputes WHERE id=$1`, id))
	return d, mapNoRows(err)
}

func (r *disputesRepo) ExistsOpenByTransaction(ctx context.Context, transactionID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM disputes WHERE transaction_id=$1 AND status=$2)`,
		transactionID, models.DisputeOpen,
	).Scan(&exists)
	return exists, err
}

func (r *disputesRepo) Resolve(ctx context.Context, id, resolverID string, status models.DisputeStatus, resolution string, at time.Time) (models.Dispute, error) {
	d, err := scanDispute(r.pool.QueryRow(ctx,
		`UPDATE disputes
		    SET status=$2, resolved_by=$3, resolution=$4, resolved_at=$5
		  WHERE id=$1 AND status=$6
		  RETURNING `+disputeCols,
		id, status, resolverID, resolution, at, models.DisputeOpen))
	if err == pgx.ErrNoRows {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return models.Dispute{}, gerr
		}
		return models.Dispute{}, models.ErrAlreadyResolved
	}
	return d, err
}
