package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/greenloop/carbon-market/internal/metrics"
	"github.com/greenloop/carbon-market/internal/models"
	"github.com/greenloop/carbon-market/internal/notify"
	repo "github.com/greenloop/carbon-market/internal/repository"
	"github.com/greenloop/carbon-market/internal/worker"
)

// SettlementService turns an accepted offer or winning bid into an atomic
// transfer of funds and credit ownership, exactly once per listing.
type SettlementService struct {
	listings repo.Listings
	credits  repo.Credits
	txns     repo.Transactions
	audits   repo.AuditLogs
	wallet   *WalletService
	sink     notify.Sink
	wp       *worker.Pool
}

func NewSettlementService(l repo.Listings, c repo.Credits, t repo.Transactions, a repo.AuditLogs, w *WalletService, sink notify.Sink, wp *worker.Pool) *SettlementService {
	return &SettlementService{listings: l, credits: c, txns: t, audits: a, wallet: w, sink: sink, wp: wp}
}

// Settle claims the listing with an ACTIVE->SOLD CAS, then moves funds and
// credits all-or-nothing. The CAS makes settlement exactly-once: of N
// concurrent attempts only one claim succeeds, the rest see
// ErrListingUnavailable. A funds failure restores the listing to ACTIVE so
// the operation can be retried, and leaves every wallet untouched.
func (s *SettlementService) Settle(ctx context.Context, l models.CreditListing, buyerID string, amount decimal.Decimal) (models.Transaction, error) {
	if buyerID == l.SellerID {
		return models.Transaction{}, fmt.Errorf("%w: buyer and seller are the same", models.ErrValidation)
	}

	if _, err := s.listings.SetStatus(ctx, l.ID, models.ListingActive, models.ListingSold); err != nil {
		if errors.Is(err, models.ErrInvalidStatus) {
			return models.Transaction{}, models.ErrListingUnavailable
		}
		return models.Transaction{}, err
	}

	credit, err := s.credits.GetByID(ctx, l.CreditID)
	if err != nil {
		s.release(ctx, l.ID)
		return models.Transaction{}, err
	}

	if err := s.wallet.Transfer(ctx, buyerID, l.SellerID, amount, credit.CreditAmount); err != nil {
		s.release(ctx, l.ID)
		metrics.SettlementsFailed.Inc()
		return models.Transaction{}, err
	}

	// Funds are committed; the remaining mutations describe the done deal and
	// their failures are logged, not rolled back.
	if err := s.credits.SetOwner(ctx, credit.ID, buyerID); err != nil {
		slog.Error("settlement reassign owner", "credit_id", credit.ID, "err", err)
	}
	if _, err := s.credits.SetStatus(ctx, credit.ID, models.CreditListed, models.CreditSold); err != nil {
		slog.Error("settlement credit status", "credit_id", credit.ID, "err", err)
	}

	now := time.Now()
	txn, err := s.txns.Create(ctx, models.Transaction{
		BuyerID:     buyerID,
		SellerID:    l.SellerID,
		CreditID:    credit.ID,
		ListingID:   l.ID,
		Amount:      amount,
		Status:      models.TxnCompleted,
		CompletedAt: &now,
	})
	if err != nil {
		return models.Transaction{}, err
	}

	if _, err := s.audits.Create(ctx, models.AuditLog{
		CreditID: &credit.ID,
		ActorID:  &buyerID,
		Action:   models.AuditSold,
		Comments: "amount " + amount.String(),
	}); err != nil {
		slog.Error("audit append", "credit_id", credit.ID, "action", models.AuditSold, "err", err)
	}
	metrics.SettlementsTotal.Inc()

	s.notifyAsync(txn)
	return txn, nil
}

// release puts a claimed listing back on the market after a failed
// settlement leg.
func (s *SettlementService) release(ctx context.Context, listingID string) {
	if _, err := s.listings.SetStatus(ctx, listingID, models.ListingSold, models.ListingActive); err != nil {
		slog.Error("settlement release listing", "listing_id", listingID, "err", err)
	}
}

// notifyAsync fans out sale notifications off the commit path. Sink failures
// never reach the caller.
func (s *SettlementService) notifyAsync(txn models.Transaction) {
	if s.sink == nil || s.wp == nil {
		return
	}
	ev := notify.Event{Type: "listing.sold", Data: map[string]any{
		"transaction_id": txn.ID,
		"credit_id":      txn.CreditID,
		"amount":         txn.Amount.String(),
	}}
	for _, uid := range []string{txn.BuyerID, txn.SellerID} {
		uid := uid
		s.wp.Submit(func() {
			if err := s.sink.Notify(uid, ev); err != nil {
				slog.Warn("notify", "user_id", uid, "err", err)
			}
		})
	}
}
