package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/greenloop/carbon-market/internal/models"
)

type walletsRepo struct{ pool *pgxpool.Pool }

const walletCols = `id, user_id, cash_balance, credit_balance, created_at, updated_at`

func scanWallet(row pgx.Row) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.CashBalance, &w.CreditBalance, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func (r *walletsRepo) Get(ctx context.Context, userID string) (models.Wallet, error) {
	w, err := scanWallet(r.pool.QueryRow(ctx,
		`SELECT `+walletCols+` FROM wallets WHERE user_id=$1`, userID))
	return w, mapNoRows(err)
}

func (r *walletsRepo) GetOrCreate(ctx context.Context, userID string) (models.Wallet, error) {
	if w, err := r.Get(ctx, userID); err == nil {
		return w, nil
	}
	// ON CONFLICT keeps concurrent first access from creating duplicates.
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wallets(id, user_id, cash_balance, credit_balance)
		 VALUES($1, $2, 0, 0)
		 ON CONFLICT (user_id) DO NOTHING`,
		uuid.NewString(), userID,
	)
	if err != nil {
		return models.Wallet{}, err
	}
	return r.Get(ctx, userID)
}

func balanceColumn(kind models.BalanceKind) (string, error) {
	switch kind {
	case models.BalanceCash:
		return "cash_balance", nil
	case models.BalanceCredit:
		return "credit_balance", nil
	}
	return "", fmt.Errorf("unknown balance kind %q", kind)
}

func (r *walletsRepo) Add(ctx context.Context, userID string, kind models.BalanceKind, delta decimal.Decimal) (models.Wallet, error) {
	col, err := balanceColumn(kind)
	if err != nil {
		return models.Wallet{}, err
	}
	// The >= 0 guard makes the read-modify-write atomic: a delta that would
	// go negative matches no row.
	q := fmt.Sprintf(`UPDATE wallets
	    SET %[1]s = %[1]s + $2, updated_at = now()
	  WHERE user_id = $1 AND %[1]s + $2 >= 0
	  RETURNING `+walletCols, col)
	w, err := scanWallet(r.pool.QueryRow(ctx, q, userID, delta))
	if err == pgx.ErrNoRows {
		// Row exists but the guard failed, or no wallet at all.
		if _, gerr := r.Get(ctx, userID); gerr != nil {
			return models.Wallet{}, gerr
		}
		return models.Wallet{}, models.ErrInsufficientBalance
	}
	return w, err
}

// Transfer applies the four legs of a settlement inside one serializable
// transaction: buyer cash -> seller cash, seller credits -> buyer credits.
// Any failed leg rolls back the whole thing.
func (r *walletsRepo) Transfer(ctx context.Context, fromUserID, toUserID string, funds, credits decimal.Decimal) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock both wallets in a stable order so concurrent opposite-direction
	// transfers cannot deadlock.
	first, second := fromUserID, toUserID
	if second < first {
		first, second = second, first
	}
	for _, uid := range []string{first, second} {
		var id string
		if err := tx.QueryRow(ctx, `SELECT id FROM wallets WHERE user_id=$1 FOR UPDATE`, uid).Scan(&id); err != nil {
			return mapNoRows(err)
		}
	}

	legs := []struct {
		col    string
		userID string
		delta  decimal.Decimal
	}{
		{"cash_balance", fromUserID, funds.Neg()},
		{"cash_balance", toUserID, funds},
		{"credit_balance", toUserID, credits.Neg()},
		{"credit_balance", fromUserID, credits},
	}
	for _, leg := range legs {
		q := fmt.Sprintf(`UPDATE wallets
		    SET %[1]s = %[1]s + $2, updated_at = now()
		  WHERE user_id = $1 AND %[1]s + $2 >= 0`, leg.col)
		ct, err := tx.Exec(ctx, q, leg.userID, leg.delta)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return models.ErrInsufficientBalance
		}
	}
	return tx.Commit(ctx)
}
