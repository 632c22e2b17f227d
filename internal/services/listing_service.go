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
	repo "github.com/greenloop/carbon-market/internal/repository"
)

// ListingService manages fixed-price and auction listings over verified
// credits. All status moves go through repo-level CAS so concurrent buyers,
// bidders and the expiry sweep serialize per listing.
type ListingService struct {
	listings   repo.Listings
	credits    repo.Credits
	bids       repo.Bids
	audits     repo.AuditLogs
	settlement *SettlementService
}

func NewListingService(l repo.Listings, c repo.Credits, b repo.Bids, a repo.AuditLogs, st *SettlementService) *ListingService {
	return &ListingService{listings: l, credits: c, bids: b, audits: a, settlement: st}
}

type CreateListingInput struct {
	CreditID       string
	Type           models.ListingType
	Price          decimal.Decimal // FIXED
	MinBid         decimal.Decimal // AUCTION
	AuctionEndTime *time.Time      // AUCTION
}

func (s *ListingService) CreateListing(ctx context.Context, actor models.Actor, in CreateListingInput) (models.CreditListing, error) {
	credit, err := s.credits.GetByID(ctx, in.CreditID)
	if err != nil {
		return models.CreditListing{}, err
	}
	if credit.OwnerID != actor.UserID {
		return models.CreditListing{}, fmt.Errorf("%w: only the owner may list a credit", models.ErrUnauthorized)
	}
	if credit.Status != models.CreditVerified {
		return models.CreditListing{}, fmt.Errorf("%w: credit is %s, must be VERIFIED", models.ErrInvalidStatus, credit.Status)
	}
	switch in.Type {
	case models.ListingFixed:
		if !in.Price.IsPositive() {
			return models.CreditListing{}, fmt.Errorf("%w: fixed listing needs a positive price", models.ErrValidation)
		}
	case models.ListingAuction:
		if !in.MinBid.IsPositive() {
			return models.CreditListing{}, fmt.Errorf("%w: auction needs a positive min_bid", models.ErrValidation)
		}
		if in.AuctionEndTime == nil || !in.AuctionEndTime.After(time.Now()) {
			return models.CreditListing{}, fmt.Errorf("%w: auction_end_time must be in the future", models.ErrValidation)
		}
	default:
		return models.CreditListing{}, fmt.Errorf("%w: unknown listing type %q", models.ErrValidation, in.Type)
	}
	if exists, err := s.listings.ExistsActiveByCredit(ctx, in.CreditID); err != nil {
		return models.CreditListing{}, err
	} else if exists {
		return models.CreditListing{}, models.ErrCreditListed
	}

	// The VERIFIED->LISTED CAS is the lock against concurrent double-listing.
	if _, err := s.credits.SetStatus(ctx, credit.ID, models.CreditVerified, models.CreditListed); err != nil {
		if errors.Is(err, models.ErrInvalidStatus) {
			return models.CreditListing{}, models.ErrCreditListed
		}
		return models.CreditListing{}, err
	}
	l, err := s.listings.Create(ctx, models.CreditListing{
		CreditID:       credit.ID,
		SellerID:       actor.UserID,
		Type:           in.Type,
		Status:         models.ListingActive,
		Price:          in.Price,
		MinBid:         in.MinBid,
		AuctionEndTime: in.AuctionEndTime,
	})
	if err != nil {
		// Release the credit again; the claim above must not leak.
		if _, rerr := s.credits.SetStatus(ctx, credit.ID, models.CreditListed, models.CreditVerified); rerr != nil {
			slog.Error("listing create rollback", "credit_id", credit.ID, "err", rerr)
		}
		return models.CreditListing{}, err
	}
	s.audit(ctx, credit.ID, actor.UserID, models.AuditListed, string(in.Type))
	metrics.ListingsCreated.WithLabelValues(string(in.Type)).Inc()
	return l, nil
}

// PlaceBid validates and installs a new highest bid on an auction. The
// strict-increase rule means ties favor the earlier bid. On success the
// returned amount is the new highest; on ErrBidTooLow it is the current
// highest the bid lost against. No wallet is touched at bid time.
func (s *ListingService) PlaceBid(ctx context.Context, actor models.Actor, listingID string, amount decimal.Decimal) (decimal.Decimal, error) {
	for {
		l, err := s.listings.GetByID(ctx, listingID)
		if err != nil {
			return decimal.Zero, err
		}
		if l.Type != models.ListingAuction {
			return decimal.Zero, fmt.Errorf("%w: bids are only valid on auctions", models.ErrValidation)
		}
		if l.Status != models.ListingActive {
			return currentHighest(l), models.ErrListingClosed
		}
		if l.AuctionEndTime != nil && !l.AuctionEndTime.After(time.Now()) {
			return currentHighest(l), models.ErrListingClosed
		}
		if l.SellerID == actor.UserID {
			return currentHighest(l), fmt.Errorf("%w: seller cannot bid on own auction", models.ErrUnauthorized)
		}
		if amount.LessThan(l.MinBid) {
			metrics.BidsTotal.WithLabelValues("rejected").Inc()
			return currentHighest(l), models.ErrBidTooLow
		}
		if l.HighestBid != nil && amount.LessThanOrEqual(*l.HighestBid) {
			metrics.BidsTotal.WithLabelValues("rejected").Inc()
			return *l.HighestBid, models.ErrBidTooLow
		}

		ok, err := s.listings.CompareAndSetBid(ctx, listingID, actor.UserID, amount, l.HighestBid)
		if err != nil {
			return decimal.Zero, err
		}
		if !ok {
			// Lost the race against another bid or a status change; re-read
			// and re-validate against the fresh highest.
			continue
		}
		if _, err := s.bids.Create(ctx, models.Bid{ListingID: listingID, BidderID: actor.UserID, Amount: amount}); err != nil {
			slog.Error("bid history append", "listing_id", listingID, "err", err)
		}
		s.audit(ctx, l.CreditID, actor.UserID, models.AuditBid, amount.String())
		metrics.BidsTotal.WithLabelValues("accepted").Inc()
		return amount, nil
	}
}

func currentHighest(l models.CreditListing) decimal.Decimal {
	if l.HighestBid != nil {
		return *l.HighestBid
	}
	return decimal.Zero
}

// BuyNow settles a FIXED listing synchronously. If settlement fails the
// listing stays ACTIVE so the buyer can retry after funding the wallet.
func (s *ListingService) BuyNow(ctx context.Context, actor models.Actor, listingID string) (models.Transaction, error) {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return models.Transaction{}, err
	}
	if l.Type != models.ListingFixed {
		return models.Transaction{}, fmt.Errorf("%w: buy-now is only valid on fixed-price listings", models.ErrValidation)
	}
	if l.Status != models.ListingActive {
		return models.Transaction{}, models.ErrListingUnavailable
	}
	if l.SellerID == actor.UserID {
		return models.Transaction{}, fmt.Errorf("%w: cannot buy own listing", models.ErrUnauthorized)
	}
	return s.settlement.Settle(ctx, l, actor.UserID, l.Price)
}

// CancelListing takes an ACTIVE listing off the market and makes the credit
// listable again.
func (s *ListingService) CancelListing(ctx context.Context, actor models.Actor, listingID string) (models.CreditListing, error) {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return models.CreditListing{}, err
	}
	if l.SellerID != actor.UserID && !actor.IsAdmin() {
		return models.CreditListing{}, fmt.Errorf("%w: only the seller may cancel", models.ErrUnauthorized)
	}
	l, err = s.listings.SetStatus(ctx, listingID, models.ListingActive, models.ListingCancelled)
	if err != nil {
		return models.CreditListing{}, err
	}
	if _, err := s.credits.SetStatus(ctx, l.CreditID, models.CreditListed, models.CreditVerified); err != nil {
		slog.Error("cancel revert credit", "credit_id", l.CreditID, "err", err)
	}
	s.audit(ctx, l.CreditID, actor.UserID, models.AuditCancelled, "")
	return l, nil
}

// CloseExpiredAuctions settles or expires every ACTIVE auction whose end
// time has passed. Safe to invoke redundantly and concurrently with bidders
// and buyers: each transition is guarded by its own status CAS, so a listing
// already handled elsewhere is simply skipped.
func (s *ListingService) CloseExpiredAuctions(ctx context.Context, now time.Time) (settled, expired int, err error) {
	metrics.SweepRuns.Inc()
	ls, err := s.listings.ListExpiredAuctions(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	for _, l := range ls {
		if l.HighestBid != nil && l.HighestBidder != nil {
			_, serr := s.settlement.Settle(ctx, l, *l.HighestBidder, *l.HighestBid)
			switch {
			case serr == nil:
				settled++
			case errors.Is(serr, models.ErrListingUnavailable):
				// Another sweep got there first.
			case errors.Is(serr, models.ErrInsufficientBalance):
				// Winner cannot pay: expire so the owner can relist.
				slog.Warn("auction winner unfunded", "listing_id", l.ID, "bidder", *l.HighestBidder)
				if s.expire(ctx, l) {
					expired++
				}
			default:
				slog.Error("auction close settlement", "listing_id", l.ID, "err", serr)
			}
			continue
		}
		if s.expire(ctx, l) {
			expired++
		}
	}
	return settled, expired, nil
}

func (s *ListingService) expire(ctx context.Context, l models.CreditListing) bool {
	if _, err := s.listings.SetStatus(ctx, l.ID, models.ListingActive, models.ListingExpired); err != nil {
		return false // already transitioned by a concurrent actor
	}
	if _, err := s.credits.SetStatus(ctx, l.CreditID, models.CreditListed, models.CreditVerified); err != nil {
		slog.Error("expire revert credit", "credit_id", l.CreditID, "err", err)
	}
	s.audit(ctx, l.CreditID, l.SellerID, models.AuditExpired, "")
	return true
}

func (s *ListingService) GetByID(ctx context.Context, id string) (models.CreditListing, error) {
	return s.listings.GetByID(ctx, id)
}

func (s *ListingService) ListActive(ctx context.Context) ([]models.CreditListing, error) {
	return s.listings.ListActive(ctx)
}

func (s *ListingService) BidHistory(ctx context.Context, listingID string) ([]models.Bid, error) {
	return s.bids.ListByListing(ctx, listingID)
}

func (s *ListingService) audit(ctx context.Context, creditID, actorID string, action models.AuditAction, comments string) {
	if _, err := s.audits.Create(ctx, models.AuditLog{
		CreditID: &creditID,
		ActorID:  &actorID,
		Action:   action,
		Comments: comments,
	}); err != nil {
		slog.Error("audit append", "credit_id", creditID, "action", action, "err", err)
	}
}
