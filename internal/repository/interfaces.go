package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/greenloop/carbon-market/internal/models"
)

// Repository contracts for the marketplace core. The postgres package
// implements them over pgx; the memory package implements the same
// semantics in-process for tests.
//
// Every "check current state, then mutate" method below is atomic with
// respect to the row it targets: implementations use conditional UPDATEs
// (compare-and-swap on the status/balance column) or an equivalent lock, and
// report a failed guard as models.ErrInvalidStatus / ErrInsufficientBalance
// rather than applying a stale write.

type Users interface {
	Create(ctx context.Context, username, email, passwordHash string, role models.Role) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type Wallets interface {
	// GetOrCreate returns the user's wallet, creating a zero-balance one on
	// first access. Concurrent first access must not create duplicates.
	GetOrCreate(ctx context.Context, userID string) (models.Wallet, error)
	Get(ctx context.Context, userID string) (models.Wallet, error)

	// Add applies a signed delta to one balance. A delta that would drive the
	// balance negative fails with models.ErrInsufficientBalance and leaves
	// the wallet untouched.
	Add(ctx context.Context, userID string, kind models.BalanceKind, delta decimal.Decimal) (models.Wallet, error)

	// Transfer moves funds from buyer to seller and credits from seller to
	// buyer, all-or-nothing: if any leg would go negative no leg is applied.
	Transfer(ctx context.Context, fromUserID, toUserID string, funds, credits decimal.Decimal) error
}

type Credits interface {
	Create(ctx context.Context, c models.CarbonCredit) (models.CarbonCredit, error)
	GetByID(ctx context.Context, id string) (models.CarbonCredit, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.CarbonCredit, error)

	// SetVerified moves PENDING -> VERIFIED, stamping verifier and time.
	SetVerified(ctx context.Context, id, verifierID string, at time.Time) (models.CarbonCredit, error)
	// SetRejected moves PENDING -> REJECTED.
	SetRejected(ctx context.Context, id, verifierID string) (models.CarbonCredit, error)
	// SetStatus is a status CAS: the update applies only if the credit is
	// currently in `from`. Used for VERIFIED<->LISTED and ->SOLD moves.
	SetStatus(ctx context.Context, id string, from, to models.CreditStatus) (models.CarbonCredit, error)
	// SetOwner reassigns ownership (settlement only).
	SetOwner(ctx context.Context, id, newOwnerID string) error
}

type Listings interface {
	Create(ctx context.Context, l models.CreditListing) (models.CreditListing, error)
	GetByID(ctx context.Context, id string) (models.CreditListing, error)
	ListActive(ctx context.Context) ([]models.CreditListing, error)
	// ExistsActiveByCredit reports whether the credit already has a listing
	// that is neither CANCELLED nor EXPIRED.
	ExistsActiveByCredit(ctx context.Context, creditID string) (bool, error)

	// SetStatus is the per-listing serialization point: it applies only if
	// the listing is currently in `from`, otherwise models.ErrInvalidStatus.
	SetStatus(ctx context.Context, id string, from, to models.ListingStatus) (models.CreditListing, error)

	// CompareAndSetBid installs (bidderID, amount) as the highest bid iff the
	// stored highest still equals prev. Returns false on a stale prev so the
	// caller can re-read and re-validate.
	CompareAndSetBid(ctx context.Context, id, bidderID string, amount decimal.Decimal, prev *decimal.Decimal) (bool, error)

	// ListExpiredAuctions returns ACTIVE auctions whose end time is before now.
	ListExpiredAuctions(ctx context.Context, now time.Time) ([]models.CreditListing, error)
}

type Bids interface {
	Create(ctx context.Context, b models.Bid) (models.Bid, error)
	ListByListing(ctx context.Context, listingID string) ([]models.Bid, error)
}

type Transactions interface {
	Create(ctx context.Context, t models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	// SetStatus CAS, same contract as Listings.SetStatus.
	SetStatus(ctx context.Context, id string, from, to models.TxnStatus) (models.Transaction, error)
}

type Disputes interface {
	Create(ctx context.Context, d models.Dispute) (models.Dispute, error)
	GetByID(ctx context.Context, id string) (models.Dispute, error)
	ExistsOpenByTransaction(ctx context.Context, transactionID string) (bool, error)
	// Resolve moves OPEN -> status, stamping resolver, resolution and time.
	Resolve(ctx context.Context, id, resolverID string, status models.DisputeStatus, resolution string, at time.Time) (models.Dispute, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) (models.AuditLog, error)
	ListByCredit(ctx context.Context, creditID string) ([]models.AuditLog, error)
}
