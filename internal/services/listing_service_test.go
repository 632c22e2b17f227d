package services_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenloop/carbon-market/internal/models"
	"github.com/greenloop/carbon-market/internal/services"
)

func TestCreateListingRequiresVerifiedCredit(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	c, err := e.credit.Submit(ctx, seller.UserID, 20, dec("5"))
	require.NoError(t, err)

	_, err = e.listing.CreateListing(ctx, seller, services.CreateListingInput{
		CreditID: c.ID, Type: models.ListingFixed, Price: dec("100"),
	})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestCreateListingRequiresOwner(t *testing.T) {
	e := newEnv()
	c := e.verifiedCredit(t, "5")

	_, err := e.listing.CreateListing(context.Background(), buyer, services.CreateListingInput{
		CreditID: c.ID, Type: models.ListingFixed, Price: dec("100"),
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestCreateListingValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	c := e.verifiedCredit(t, "5")
	_, err := e.listing.CreateListing(ctx, seller, services.CreateListingInput{
		CreditID: c.ID, Type: models.ListingFixed, Price: dec("0"),
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	past := time.Now().Add(-time.Hour)
	_, err = e.listing.CreateListing(ctx, seller, services.CreateListingInput{
		CreditID: c.ID, Type: models.ListingAuction, MinBid: dec("10"), AuctionEndTime: &past,
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateListingMarksCreditListed(t *testing.T) {
	e := newEnv()
	l, c := e.fixedListing(t, "100")
	assert.Equal(t, models.ListingActive, l.Status)

	got, err := e.credit.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CreditListed, got.Status)
	assert.NotNil(t, got.ListedAt)
}

func TestNoDoubleListing(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	_, c := e.fixedListing(t, "100")

	_, err := e.listing.CreateListing(ctx, seller, services.CreateListingInput{
		CreditID: c.ID, Type: models.ListingFixed, Price: dec("120"),
	})
	assert.Error(t, err)
}

func TestBidOrdering(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	l, _ := e.auctionListing(t, "10", time.Now().Add(time.Hour))

	b1 := models.Actor{UserID: "b1", Role: models.RoleUser}
	b2 := models.Actor{UserID: "b2", Role: models.RoleUser}
	b3 := models.Actor{UserID: "b3", Role: models.RoleUser}

	highest, err := e.listing.PlaceBid(ctx, b1, l.ID, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, "10", highest.String())

	highest, err = e.listing.PlaceBid(ctx, b2, l.ID, dec("15"))
	require.NoError(t, err)
	assert.Equal(t, "15", highest.String())

	// Third bid of 12 loses: strict increase over the current highest.
	highest, err = e.listing.PlaceBid(ctx, b3, l.ID, dec("12"))
	assert.ErrorIs(t, err, models.ErrBidTooLow)
	assert.Equal(t, "15", highest.String())

	got, err := e.listing.GetByID(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got.HighestBid)
	assert.Equal(t, "15", got.HighestBid.String())
	assert.Equal(t, "b2", *got.HighestBidder)
}

func TestBidEqualToHighestLoses(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	l, _ := e.auctionListing(t, "10", time.Now().Add(time.Hour))

	_, err := e.listing.PlaceBid(ctx, models.Actor{UserID: "b1"}, l.ID, dec("15"))
	require.NoError(t, err)
	_, err = e.listing.PlaceBid(ctx, models.Actor{UserID: "b2"}, l.ID, dec("15"))
	assert.ErrorIs(t, err, models.ErrBidTooLow)
}

func TestBidBelowMinRejected(t *testing.T) {
	e := newEnv()
	l, _ := e.auctionListing(t, "10", time.Now().Add(time.Hour))

	_, err := e.listing.PlaceBid(context.Background(), buyer, l.ID, dec("9"))
	assert.ErrorIs(t, err, models.ErrBidTooLow)
}

func TestBidOnFixedListingRejected(t *testing.T) {
	e := newEnv()
	l, _ := e.fixedListing(t, "100")

	_, err := e.listing.PlaceBid(context.Background(), buyer, l.ID, dec("50"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestConcurrentBidsKeepMonotonicHighest(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	l, _ := e.auctionListing(t, "1", time.Now().Add(time.Hour))

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := models.Actor{UserID: "bidder", Role: models.RoleUser}
			_, _ = e.listing.PlaceBid(ctx, a, l.ID, dec(strconv.Itoa(i)))
		}(i)
	}
	wg.Wait()

	got, err := e.listing.GetByID(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got.HighestBid)
	assert.Equal(t, "20", got.HighestBid.String(), "highest submitted bid must win")
}

func TestBuyNowHappyPath(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	l, c := e.fixedListing(t, "100")
	e.fund(t, buyer.UserID, "150")

	txn, err := e.listing.BuyNow(ctx, buyer, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxnCompleted, txn.Status)
	assert.NotNil(t, txn.CompletedAt)

	assert.Equal(t, "50", e.cash(t, buyer.UserID).String())
	assert.Equal(t, "100", e.cash(t, seller.UserID).String())
	assert.Equal(t, "5", e.credits(t, buyer.UserID).String())

	got, err := e.credit.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CreditSold, got.Status)
	assert.Equal(t, buyer.UserID, got.OwnerID)

	lst, err := e.listing.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingSold, lst.Status)
}

func TestBuyNowInsufficientBalanceLeavesListingActive(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	l, _ := e.fixedListing(t, "100")
	e.fund(t, buyer.UserID, "50")

	_, err := e.listing.BuyNow(ctx, buyer, l.ID)
	require.ErrorIs(t, err, models.ErrInsufficientBalance)

	// No wallet mutation and the listing is retryable.
	assert.Equal(t, "50", e.cash(t, buyer.UserID).String())
	lst, err := e.listing.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingActive, lst.Status)
}

func TestBuyNowOwnListingRejected(t *testing.T) {
	e := newEnv()
	l, _ := e.fixedListing(t, "100")
	e.fund(t, seller.UserID, "200")

	_, err := e.listing.BuyNow(context.Background(), seller, l.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestConcurrentBuyNowSettlesExactlyOnce(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	l, _ := e.fixedListing(t, "100")

	const n = 8
	buyers := make([]models.Actor, n)
	for i := range buyers {
		buyers[i] = models.Actor{UserID: "buyer-" + string(rune('a'+i)), Role: models.RoleUser}
		e.fund(t, buyers[i].UserID, "100")
	}

	var wg sync.WaitGroup
	results := make([]error, n)
	for i := range buyers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.listing.BuyNow(ctx, buyers[i], l.ID)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, models.ErrListingUnavailable)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, losses)
	assert.Equal(t, "100", e.cash(t, seller.UserID).String(), "seller paid exactly once")
}

func TestCancelListingRevertsCredit(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	l, c := e.fixedListing(t, "100")

	_, err := e.listing.CancelListing(ctx, seller, l.ID)
	require.NoError(t, err)

	got, err := e.credit.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CreditVerified, got.Status)

	// The credit is listable again.
	_, err = e.listing.CreateListing(ctx, seller, services.CreateListingInput{
		CreditID: c.ID, Type: models.ListingFixed, Price: dec("90"),
	})
	assert.NoError(t, err)
}

func TestCancelOnlyBySeller(t *testing.T) {
	e := newEnv()
	l, _ := e.fixedListing(t, "100")

	_, err := e.listing.CancelListing(context.Background(), buyer, l.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSweepExpiresZeroBidAuction(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	end := time.Now().Add(time.Minute)
	l, c := e.auctionListing(t, "10", end)

	settled, expired, err := e.listing.CloseExpiredAuctions(ctx, end.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, settled)
	assert.Equal(t, 1, expired)

	lst, err := e.listing.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingExpired, lst.Status)

	got, err := e.credit.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CreditVerified, got.Status, "credit is listable again")
}

func TestSweepSettlesWinningBid(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	end := time.Now().Add(time.Minute)
	l, c := e.auctionListing(t, "10", end)
	e.fund(t, buyer.UserID, "40")

	_, err := e.listing.PlaceBid(ctx, buyer, l.ID, dec("25"))
	require.NoError(t, err)

	settled, expired, err := e.listing.CloseExpiredAuctions(ctx, end.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	assert.Equal(t, 0, expired)

	assert.Equal(t, "15", e.cash(t, buyer.UserID).String())
	assert.Equal(t, "25", e.cash(t, seller.UserID).String())
	got, err := e.credit.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CreditSold, got.Status)
	assert.Equal(t, buyer.UserID, got.OwnerID)
}

func TestSweepUnfundedWinnerExpiresListing(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	end := time.Now().Add(time.Minute)
	l, c := e.auctionListing(t, "10", end)
	// Bidder never funds the wallet.
	_, err := e.listing.PlaceBid(ctx, buyer, l.ID, dec("25"))
	require.NoError(t, err)

	settled, expired, err := e.listing.CloseExpiredAuctions(ctx, end.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, settled)
	assert.Equal(t, 1, expired)

	lst, err := e.listing.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingExpired, lst.Status)
	got, err := e.credit.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CreditVerified, got.Status)
}

func TestSweepIsIdempotent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	end := time.Now().Add(time.Minute)
	e.auctionListing(t, "10", end)

	_, expired, err := e.listing.CloseExpiredAuctions(ctx, end.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	settled, expired, err := e.listing.CloseExpiredAuctions(ctx, end.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 0, settled)
	assert.Equal(t, 0, expired)
}

func TestBidAfterAuctionEndRejected(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	end := time.Now().Add(30 * time.Millisecond)
	l, _ := e.auctionListing(t, "10", end)

	time.Sleep(50 * time.Millisecond)
	_, err := e.listing.PlaceBid(ctx, buyer, l.ID, dec("20"))
	assert.ErrorIs(t, err, models.ErrListingClosed)
}

func TestBidHistoryRecordsAcceptedBids(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	l, _ := e.auctionListing(t, "10", time.Now().Add(time.Hour))

	_, err := e.listing.PlaceBid(ctx, models.Actor{UserID: "b1"}, l.ID, dec("10"))
	require.NoError(t, err)
	_, err = e.listing.PlaceBid(ctx, models.Actor{UserID: "b2"}, l.ID, dec("15"))
	require.NoError(t, err)
	_, err = e.listing.PlaceBid(ctx, models.Actor{UserID: "b3"}, l.ID, dec("12"))
	require.Error(t, err)

	bids, err := e.listing.BidHistory(ctx, l.ID)
	require.NoError(t, err)
	assert.Len(t, bids, 2, "only accepted bids are recorded")
}
