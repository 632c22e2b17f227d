package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenloop/carbon-market/internal/models"
)

type bidsRepo struct{ pool *pgxpool.Pool }

func (r *bidsRepo) Create(ctx context.Context, b models.Bid) (models.Bid, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO bids(id, listing_id, bidder_id, amount)
		 VALUES($1,$2,$3,$4)
		 RETURNING id, listing_id, bidder_id, amount, created_at`,
		b.ID, b.ListingID, b.BidderID, b.Amount,
	).Scan(&b.ID, &b.ListingID, &b.BidderID, &b.Amount, &b.CreatedAt)
	return b, err
}

func (r *bidsRepo) ListByListing(ctx context.Context, listingID string) ([]models.Bid, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, listing_id, bidder_id, amount, created_at
		   FROM bids WHERE listing_id=$1 ORDER BY created_at`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Bid
	for rows.Next() {
		var b models.Bid
		if err := rows.Scan(&b.ID, &b.ListingID, &b.BidderID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
