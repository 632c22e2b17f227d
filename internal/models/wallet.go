package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceKind selects which of the two wallet balances an operation targets.
type BalanceKind string

const (
	BalanceCash   BalanceKind = "cash"
	BalanceCredit BalanceKind = "credit"
)

// Wallet holds a user's cash and carbon-credit balances. Both are NUMERIC in
// the DB and must never go negative; the repos enforce that atomically.
type Wallet struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
