package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/greenloop/carbon-market/internal/models"
)

type listingsRepo struct{ pool *pgxpool.Pool }

const listingCols = `id, credit_id, seller_id, listing_type, status, price, min_bid, auction_end_time, highest_bid, highest_bidder, created_at`

func scanListing(row pgx.Row) (models.CreditListing, error) {
	var l models.CreditListing
	err := row.Scan(&l.ID, &l.CreditID, &l.SellerID, &l.Type, &l.Status, &l.Price, &l.MinBid, &l.AuctionEndTime, &l.HighestBid, &l.HighestBidder, &l.CreatedAt)
	return l, err
}

func (r *listingsRepo) Create(ctx context.Context, l models.CreditListing) (models.CreditListing, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = models.ListingActive
	}
	out, err := scanListing(r.pool.QueryRow(ctx,
		`INSERT INTO listings(id, credit_id, seller_id, listing_type, status, price, min_bid, auction_end_time)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING `+listingCols,
		l.ID, l.CreditID, l.SellerID, l.Type, l.Status, l.Price, l.MinBid, l.AuctionEndTime,
	))
	return out, err
}

func (r *listingsRepo) GetByID(ctx context.Context, id string) (models.CreditListing, error) {
	l, err := scanListing(r.pool.QueryRow(ctx,
		`SELECT `+listingCols+` FROM listings WHERE id=$1`, id))
	return l, mapNoRows(err)
}

func (r *listingsRepo) ListActive(ctx context.Context) ([]models.CreditListing, error) {
	return r.listWhere(ctx,
		`SELECT `+listingCols+` FROM listings WHERE status=$1 ORDER BY created_at DESC`,
		models.ListingActive)
}

func (r *listingsRepo) ExistsActiveByCredit(ctx context.Context, creditID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM listings WHERE credit_id=$1 AND status NOT IN ($2,$3))`,
		creditID, models.ListingCancelled, models.ListingExpired,
	).Scan(&exists)
	return exists, err
}

func (r *listingsRepo) SetStatus(ctx context.Context, id string, from, to models.ListingStatus) (models.CreditListing, error) {
	l, err := scanListing(r.pool.QueryRow(ctx,
		`UPDATE listings SET status=$2 WHERE id=$1 AND status=$3 RETURNING `+listingCols,
		id, to, from))
	if err == pgx.ErrNoRows {
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return models.CreditListing{}, gerr
		}
		return models.CreditListing{}, models.ErrInvalidStatus
	}
	return l, err
}

func (r *listingsRepo) CompareAndSetBid(ctx context.Context, id, bidderID string, amount decimal.Decimal, prev *decimal.Decimal) (bool, error) {
	// The prev comparison serializes concurrent bids: two bids racing past
	// the same stale highest cannot both match.
	ct, err := r.pool.Exec(ctx,
		`UPDATE listings
		    SET highest_bid=$3, highest_bidder=$2
		  WHERE id=$1 AND status=$4
		    AND ((highest_bid IS NULL AND $5::numeric IS NULL) OR highest_bid=$5)`,
		id, bidderID, amount, models.ListingActive, prev,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *listingsRepo) ListExpiredAuctions(ctx context.Context, now time.Time) ([]models.CreditListing, error) {
	return r.listWhere(ctx,
		`SELECT `+listingCols+` FROM listings
		  WHERE status=$1 AND listing_type=$2 AND auction_end_time < $3
		  ORDER BY auction_end_time`,
		models.ListingActive, models.ListingAuction, now)
}

func (r *listingsRepo) listWhere(ctx context.Context, q string, args ...any) ([]models.CreditListing, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CreditListing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
