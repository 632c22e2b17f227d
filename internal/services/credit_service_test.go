package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenloop/carbon-market/internal/models"
)

func TestVerifyHappyPath(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	c, err := e.credit.Submit(ctx, seller.UserID, 20, dec("5"))
	require.NoError(t, err)
	assert.Equal(t, models.CreditPending, c.Status)

	c, err = e.credit.Verify(ctx, c.ID, verifier, "looks good")
	require.NoError(t, err)
	assert.Equal(t, models.CreditVerified, c.Status)
	require.NotNil(t, c.VerifiedBy)
	assert.Equal(t, verifier.UserID, *c.VerifiedBy)
	assert.NotNil(t, c.VerifiedAt)

	logs, err := e.credit.AuditTrail(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditVerified, logs[0].Action)
}

func TestVerifyIsIdempotent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	c := e.verifiedCredit(t, "5")

	again, err := e.credit.Verify(ctx, c.ID, verifier, "second look")
	require.NoError(t, err)
	assert.Equal(t, models.CreditVerified, again.Status)

	// Still exactly one audit entry.
	logs, err := e.credit.AuditTrail(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestVerifyMintsOwnerCreditBalance(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	c, err := e.credit.Submit(ctx, seller.UserID, 20, dec("5"))
	require.NoError(t, err)
	assert.Equal(t, "0", e.credits(t, seller.UserID).String())

	_, err = e.credit.Verify(ctx, c.ID, verifier, "looks good")
	require.NoError(t, err)

	// Verification is where credit units enter circulation: the owner's
	// wallet now backs the credit, ready for settlement to move it.
	assert.Equal(t, "5", e.credits(t, seller.UserID).String())

	// Re-verifying mints nothing.
	_, err = e.credit.Verify(ctx, c.ID, verifier, "again")
	require.NoError(t, err)
	assert.Equal(t, "5", e.credits(t, seller.UserID).String())
}

func TestVerifyZeroAmountMintsNothing(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	c, err := e.credit.Submit(ctx, seller.UserID, 20, dec("0"))
	require.NoError(t, err)
	_, err = e.credit.Verify(ctx, c.ID, verifier, "")
	require.NoError(t, err)
	assert.Equal(t, "0", e.credits(t, seller.UserID).String())
}

func TestVerifyRequiresVerifier(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	c, err := e.credit.Submit(ctx, seller.UserID, 20, dec("5"))
	require.NoError(t, err)

	_, err = e.credit.Verify(ctx, c.ID, buyer, "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestVerifyRejectedCreditFails(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	c, err := e.credit.Submit(ctx, seller.UserID, 20, dec("5"))
	require.NoError(t, err)

	_, err = e.credit.Reject(ctx, c.ID, verifier, "bad data")
	require.NoError(t, err)

	_, err = e.credit.Verify(ctx, c.ID, verifier, "")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestRejectOnlyFromPending(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	c := e.verifiedCredit(t, "5")

	_, err := e.credit.Reject(ctx, c.ID, verifier, "too late")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestRejectWritesAudit(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	c, err := e.credit.Submit(ctx, seller.UserID, 20, dec("5"))
	require.NoError(t, err)

	c, err = e.credit.Reject(ctx, c.ID, verifier, "unverifiable journey")
	require.NoError(t, err)
	assert.Equal(t, models.CreditRejected, c.Status)

	logs, err := e.credit.AuditTrail(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditRejected, logs[0].Action)
	assert.Equal(t, "unverifiable journey", logs[0].Comments)
}

func TestSubmitValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.credit.Submit(ctx, seller.UserID, 0, dec("5"))
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = e.credit.Submit(ctx, seller.UserID, 20, dec("-1"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestVerifyUnknownCredit(t *testing.T) {
	e := newEnv()
	_, err := e.credit.Verify(context.Background(), "nope", verifier, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
