package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenloop/carbon-market/internal/models"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

const txnCols = `id, buyer_id, seller_id, credit_id, listing_id, amount, status, created_at, completed_at`

func scanTxn(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.BuyerID, &t.SellerID, &t.CreditID, &t.ListingID, &t.Amount, &t.Status, &t.CreatedAt, &t.CompletedAt)
	return t, err
}

func (r *transactionsRepo) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	out, err := scanTxn(r.pool.QueryRow(ctx,
		`INSERT INTO transactions(id, buyer_id, seller_id, credit_id, listing_id, amount, status, completed_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING `+txnCols,
		t.ID, t.BuyerID, t.SellerID, t.CreditID, t.ListingID, t.Amount, t.Status, t.CompletedAt,
	))
	return out, err
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	t, err := scanTxn(r.pool.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE id=$1`, id))
	return t, mapNoRows(err)
}

func (r *transactionsRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnCols+` FROM transactions
		  WHERE buyer_id=$1 OR seller_id=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) SetStatus(ctx context.Context, id string, from, to models.TxnStatus) (models.Transaction, error) {
	t, err := scanTxn(r.pool.QueryRow(ctx,
		`UPDATE transactions SET status=$2 WHERE id=$1 AND status=$3 RETURNING `+txnCols,
		id, to, from))
	if err == pgx.ErrNoRows {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return models.Transaction{}, gerr
		}
		return models.Transaction{}, models.ErrInvalidStatus
	}
	return t, err
}
