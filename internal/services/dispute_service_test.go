package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenloop/carbon-market/internal/models"
)

// completedSale runs a full buy-now settlement and returns the transaction:
// buyer funded with 150, listing priced at 100, credit amount 5.
func (e *env) completedSale(t *testing.T) models.Transaction {
	t.Helper()
	l, _ := e.fixedListing(t, "100")
	e.fund(t, buyer.UserID, "150")
	txn, err := e.listing.BuyNow(context.Background(), buyer, l.ID)
	require.NoError(t, err)
	return txn
}

func TestRaiseDispute(t *testing.T) {
	e := newEnv()
	txn := e.completedSale(t)

	d, err := e.dispute.Raise(context.Background(), buyer, txn.ID, "credits never delivered")
	require.NoError(t, err)
	assert.Equal(t, models.DisputeOpen, d.Status)
	assert.Equal(t, buyer.UserID, *d.RaisedBy)

	got, err := e.dispute.TransactionsByUser(context.Background(), buyer.UserID, 50, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.TxnDisputed, got[0].Status)
}

func TestRaiseDisputeBySeller(t *testing.T) {
	e := newEnv()
	txn := e.completedSale(t)

	_, err := e.dispute.Raise(context.Background(), seller, txn.ID, "buyer chargeback abuse")
	assert.NoError(t, err)
}

func TestRaiseDisputeThirdPartyRejected(t *testing.T) {
	e := newEnv()
	txn := e.completedSale(t)

	stranger := models.Actor{UserID: "stranger", Role: models.RoleUser}
	_, err := e.dispute.Raise(context.Background(), stranger, txn.ID, "not my deal")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestRaiseDisputeTwiceRejected(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	txn := e.completedSale(t)

	_, err := e.dispute.Raise(ctx, buyer, txn.ID, "first")
	require.NoError(t, err)
	_, err = e.dispute.Raise(ctx, seller, txn.ID, "second")
	assert.ErrorIs(t, err, models.ErrAlreadyDisputed)
}

func TestRaiseDisputeUnknownTransaction(t *testing.T) {
	e := newEnv()
	_, err := e.dispute.Raise(context.Background(), buyer, "missing", "nothing here")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestResolveRefundRestoresBalances(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	txn := e.completedSale(t)
	// Post-settlement: buyer 50 cash / 5 credits, seller 100 cash.

	d, err := e.dispute.Raise(ctx, buyer, txn.ID, "credits never delivered")
	require.NoError(t, err)

	final, err := e.dispute.Resolve(ctx, admin, d.ID, models.OutcomeRefund, "seller at fault")
	require.NoError(t, err)
	assert.Equal(t, models.TxnRefunded, final.Status)

	assert.Equal(t, "150", e.cash(t, buyer.UserID).String())
	assert.Equal(t, "0", e.cash(t, seller.UserID).String())
	assert.Equal(t, "0", e.credits(t, buyer.UserID).String())
	assert.Equal(t, "5", e.credits(t, seller.UserID).String())

	got, err := e.dispute.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeResolved, got.Status)
	assert.NotNil(t, got.ResolvedAt)
}

func TestResolveRefundFailsWhenSellerSpent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	txn := e.completedSale(t)
	// Seller drains the proceeds before resolution.
	_, err := e.wallet.Debit(ctx, seller.UserID, models.BalanceCash, dec("100"))
	require.NoError(t, err)

	d, err := e.dispute.Raise(ctx, buyer, txn.ID, "credits never delivered")
	require.NoError(t, err)

	_, err = e.dispute.Resolve(ctx, admin, d.ID, models.OutcomeRefund, "refund")
	require.ErrorIs(t, err, models.ErrInsufficientBalance)

	// The dispute stays open and the transaction stays frozen.
	got, err := e.dispute.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeOpen, got.Status)
	txs, err := e.dispute.TransactionsByUser(ctx, buyer.UserID, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, models.TxnDisputed, txs[0].Status)
}

func TestResolveUphold(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	txn := e.completedSale(t)

	d, err := e.dispute.Raise(ctx, buyer, txn.ID, "buyer remorse")
	require.NoError(t, err)

	final, err := e.dispute.Resolve(ctx, admin, d.ID, models.OutcomeUphold, "sale stands")
	require.NoError(t, err)
	assert.Equal(t, models.TxnCompleted, final.Status)

	// Balances untouched.
	assert.Equal(t, "50", e.cash(t, buyer.UserID).String())
	assert.Equal(t, "100", e.cash(t, seller.UserID).String())

	got, err := e.dispute.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeResolved, got.Status)
}

func TestResolveReject(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	txn := e.completedSale(t)

	d, err := e.dispute.Raise(ctx, buyer, txn.ID, "frivolous")
	require.NoError(t, err)

	final, err := e.dispute.Resolve(ctx, admin, d.ID, models.OutcomeReject, "no grounds")
	require.NoError(t, err)
	assert.Equal(t, models.TxnCompleted, final.Status)

	got, err := e.dispute.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DisputeRejected, got.Status)
}

func TestResolveRequiresAdmin(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	txn := e.completedSale(t)
	d, err := e.dispute.Raise(ctx, buyer, txn.ID, "reason")
	require.NoError(t, err)

	_, err = e.dispute.Resolve(ctx, buyer, d.ID, models.OutcomeRefund, "self-serve")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestResolveTwiceRejected(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	txn := e.completedSale(t)
	d, err := e.dispute.Raise(ctx, buyer, txn.ID, "reason")
	require.NoError(t, err)

	_, err = e.dispute.Resolve(ctx, admin, d.ID, models.OutcomeUphold, "done")
	require.NoError(t, err)
	_, err = e.dispute.Resolve(ctx, admin, d.ID, models.OutcomeRefund, "again")
	assert.ErrorIs(t, err, models.ErrAlreadyResolved)
}

func TestResolveUnknownOutcome(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	txn := e.completedSale(t)
	d, err := e.dispute.Raise(ctx, buyer, txn.ID, "reason")
	require.NoError(t, err)

	_, err = e.dispute.Resolve(ctx, admin, d.ID, models.DisputeOutcome("SPLIT"), "half each")
	assert.ErrorIs(t, err, models.ErrValidation)
}
