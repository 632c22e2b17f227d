package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenloop/carbon-market/internal/models"
)

type creditsRepo struct{ pool *pgxpool.Pool }

const creditCols = `id, owner_id, status, co2_reduced_kg, credit_amount, verified_by, created_at, verified_at, listed_at`

func scanCredit(row pgx.Row) (models.CarbonCredit, error) {
	var c models.CarbonCredit
	err := row.Scan(&c.ID, &c.OwnerID, &c.Status, &c.CO2ReducedKg, &c.CreditAmount, &c.VerifiedBy, &c.CreatedAt, &c.VerifiedAt, &c.ListedAt)
	return c, err
}

func (r *creditsRepo) Create(ctx context.Context, c models.CarbonCredit) (models.CarbonCredit, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.CreditPending
	}
	out, err := scanCredit(r.pool.QueryRow(ctx,
		`INSERT INTO carbon_credits(id, owner_id, status, co2_reduced_kg, credit_amount)
		 VALUES($1,$2,$3,$4,$5)
		 RETURNING `+creditCols,
		c.ID, c.OwnerID, c.Status, c.CO2ReducedKg, c.CreditAmount,
	))
	return out, err
}

func (r *creditsRepo) GetByID(ctx context.Context, id string) (models.CarbonCredit, error) {
	c, err := scanCredit(r.pool.QueryRow(ctx,
		`SELECT `+creditCols+` FROM carbon_credits WHERE id=$1`, id))
	return c, mapNoRows(err)
}

func (r *creditsRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.CarbonCredit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+creditCols+` FROM carbon_credits WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CarbonCredit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// casCredit runs a conditional update and distinguishes "row missing" from
// "guard failed" so callers get NotFound vs InvalidStatus.
func (r *creditsRepo) casCredit(ctx context.Context, id, q string, args ...any) (models.CarbonCredit, error) {
	c, err := scanCredit(r.pool.QueryRow(ctx, q, args...))
	if err == pgx.ErrNoRows {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return models.CarbonCredit{}, gerr
		}
		return models.CarbonCredit{}, models.ErrInvalidStatus
	}
	return c, err
}

func (r *creditsRepo) SetVerified(ctx context.Context, id, verifierID string, at time.Time) (models.CarbonCredit, error) {
	return r.casCredit(ctx, id,
		`UPDATE carbon_credits
		    SET status=$2, verified_by=$3, verified_at=$4
		  WHERE id=$1 AND status=$5
		  RETURNING `+creditCols,
		id, models.CreditVerified, verifierID, at, models.CreditPending)
}

func (r *creditsRepo) SetRejected(ctx context.Context, id, verifierID string) (models.CarbonCredit, error) {
	return r.casCredit(ctx, id,
		`UPDATE carbon_credits
		    SET status=$2, verified_by=$3
		  WHERE id=$1 AND status=$4
		  RETURNING `+creditCols,
		id, models.CreditRejected, verifierID, models.CreditPending)
}

func (r *creditsRepo) SetStatus(ctx context.Context, id string, from, to models.CreditStatus) (models.CarbonCredit, error) {
	if to == models.CreditListed {
		return r.casCredit(ctx, id,
			`UPDATE carbon_credits SET status=$2, listed_at=now() WHERE id=$1 AND status=$3 RETURNING `+creditCols,
			id, to, from)
	}
	return r.casCredit(ctx, id,
		`UPDATE carbon_credits SET status=$2 WHERE id=$1 AND status=$3 RETURNING `+creditCols,
		id, to, from)
}

func (r *creditsRepo) SetOwner(ctx context.Context, id, newOwnerID string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE carbon_credits SET owner_id=$2 WHERE id=$1`, id, newOwnerID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
