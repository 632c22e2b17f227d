package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenloop/carbon-market/internal/models"
)

func TestWalletCreditDebit(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	w, err := e.wallet.Credit(ctx, "alice", models.BalanceCash, dec("100"))
	require.NoError(t, err)
	assert.Equal(t, "100", w.CashBalance.String())

	w, err = e.wallet.Debit(ctx, "alice", models.BalanceCash, dec("30"))
	require.NoError(t, err)
	assert.Equal(t, "70", w.CashBalance.String())
}

func TestWalletRejectsNonPositiveAmounts(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.wallet.Credit(ctx, "alice", models.BalanceCash, dec("0"))
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = e.wallet.Debit(ctx, "alice", models.BalanceCash, dec("-5"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestWalletDebitInsufficient(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.fund(t, "alice", "50")

	_, err := e.wallet.Debit(ctx, "alice", models.BalanceCash, dec("51"))
	require.ErrorIs(t, err, models.ErrInsufficientBalance)

	// Balance untouched and still non-negative.
	assert.Equal(t, "50", e.cash(t, "alice").String())
}

func TestWalletTransferAllOrNothing(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.fund(t, "buyer", "100")
	// Seller has no credit balance: the credit leg must fail and undo nothing.
	_, err := e.wallet.GetOrCreate(ctx, "seller")
	require.NoError(t, err)

	err = e.wallet.Transfer(ctx, "buyer", "seller", dec("60"), dec("5"))
	require.ErrorIs(t, err, models.ErrInsufficientBalance)

	assert.Equal(t, "100", e.cash(t, "buyer").String())
	assert.Equal(t, "0", e.cash(t, "seller").String())
}

func TestWalletTransferMovesBothLegs(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.fund(t, "buyer", "150")
	_, err := e.wallet.GetOrCreate(ctx, "seller")
	require.NoError(t, err)
	_, err = e.wallet.Credit(ctx, "seller", models.BalanceCredit, dec("5"))
	require.NoError(t, err)

	require.NoError(t, e.wallet.Transfer(ctx, "buyer", "seller", dec("100"), dec("5")))

	assert.Equal(t, "50", e.cash(t, "buyer").String())
	assert.Equal(t, "100", e.cash(t, "seller").String())
	assert.Equal(t, "5", e.credits(t, "buyer").String())
	assert.Equal(t, "0", e.credits(t, "seller").String())
}

func TestWalletGetOrCreateConcurrent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := e.wallet.GetOrCreate(ctx, "alice")
			require.NoError(t, err)
			ids[i] = w.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id, "concurrent first access must yield one wallet")
	}
}

func TestWalletConcurrentDebitsNeverOverdraw(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.fund(t, "alice", "100")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.wallet.Debit(ctx, "alice", models.BalanceCash, dec("10"))
		}()
	}
	wg.Wait()

	// 20 debits of 10 against 100: exactly 10 succeed.
	assert.Equal(t, "0", e.cash(t, "alice").String())
	assert.False(t, e.cash(t, "alice").IsNegative())
}
