package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreditStatus string

const (
	CreditPending  CreditStatus = "PENDING"
	CreditVerified CreditStatus = "VERIFIED"
	CreditRejected CreditStatus = "REJECTED" // terminal
	CreditListed   CreditStatus = "LISTED"
	CreditSold     CreditStatus = "SOLD"
)

// CarbonCredit is a unit of verified CO2 reduction. Status only moves
// forward: PENDING -> {VERIFIED, REJECTED} -> LISTED -> SOLD.
// CreditAmount is immutable once VERIFIED.
type CarbonCredit struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Status       CreditStatus    `json:"status"`
	CO2ReducedKg float64         `json:"co2_reduced_kg"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
	VerifiedBy   *string         `json:"verified_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	VerifiedAt   *time.Time      `json:"verified_at,omitempty"`
	ListedAt     *time.Time      `json:"listed_at,omitempty"`
}
