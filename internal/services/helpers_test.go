package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/greenloop/carbon-market/internal/models"
	"github.com/greenloop/carbon-market/internal/repository/memory"
	"github.com/greenloop/carbon-market/internal/services"
)

type env struct {
	repos   memory.Repositories
	wallet  *services.WalletService
	credit  *services.CreditService
	listing *services.ListingService
	dispute *services.DisputeService
}

func newEnv() *env {
	repos := memory.NewRepositories()
	wallet := services.NewWalletService(repos.Wallets)
	settlement := services.NewSettlementService(repos.Listings, repos.Credits, repos.Transactions, repos.AuditLogs, wallet, nil, nil)
	return &env{
		repos:   repos,
		wallet:  wallet,
		credit:  services.NewCreditService(repos.Credits, repos.AuditLogs, wallet),
		listing: services.NewListingService(repos.Listings, repos.Credits, repos.Bids, repos.AuditLogs, settlement),
		dispute: services.NewDisputeService(repos.Disputes, repos.Transactions, repos.Credits, repos.AuditLogs, wallet, nil, nil),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	seller   = models.Actor{UserID: "seller", Role: models.RoleUser}
	buyer    = models.Actor{UserID: "buyer", Role: models.RoleUser}
	verifier = models.Actor{UserID: "verifier", Role: models.RoleVerifier}
	admin    = models.Actor{UserID: "admin", Role: models.RoleAdmin}
)

// verifiedCredit submits and verifies a credit owned by the seller.
func (e *env) verifiedCredit(t *testing.T, amount string) models.CarbonCredit {
	t.Helper()
	ctx := context.Background()
	c, err := e.credit.Submit(ctx, seller.UserID, 20, dec(amount))
	require.NoError(t, err)
	c, err = e.credit.Verify(ctx, c.ID, verifier, "checked")
	require.NoError(t, err)
	return c
}

// fixedListing creates an ACTIVE fixed-price listing over a fresh credit.
func (e *env) fixedListing(t *testing.T, price string) (models.CreditListing, models.CarbonCredit) {
	t.Helper()
	c := e.verifiedCredit(t, "5")
	l, err := e.listing.CreateListing(context.Background(), seller, services.CreateListingInput{
		CreditID: c.ID,
		Type:     models.ListingFixed,
		Price:    dec(price),
	})
	require.NoError(t, err)
	return l, c
}

// auctionListing creates an ACTIVE auction ending at end.
func (e *env) auctionListing(t *testing.T, minBid string, end time.Time) (models.CreditListing, models.CarbonCredit) {
	t.Helper()
	c := e.verifiedCredit(t, "5")
	l, err := e.listing.CreateListing(context.Background(), seller, services.CreateListingInput{
		CreditID:       c.ID,
		Type:           models.ListingAuction,
		MinBid:         dec(minBid),
		AuctionEndTime: &end,
	})
	require.NoError(t, err)
	return l, c
}

func (e *env) fund(t *testing.T, userID, cash string) {
	t.Helper()
	_, err := e.wallet.Credit(context.Background(), userID, models.BalanceCash, dec(cash))
	require.NoError(t, err)
}

func (e *env) cash(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	w, err := e.wallet.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	return w.CashBalance
}

func (e *env) credits(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	w, err := e.wallet.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	return w.CreditBalance
}
