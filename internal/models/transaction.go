package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxnStatus string

const (
	TxnPending   TxnStatus = "PENDING"
	TxnCompleted TxnStatus = "COMPLETED"
	TxnDisputed  TxnStatus = "DISPUTED"
	TxnCancelled TxnStatus = "CANCELLED"
	TxnRefunded  TxnStatus = "REFUNDED"
)

// Transaction is the immutable record of a settled sale. Only Status may
// change after completion (COMPLETED -> DISPUTED -> {COMPLETED, REFUNDED}).
type Transaction struct {
	ID          string          `json:"id"`
	BuyerID     string          `json:"buyer_id"`
	SellerID    string          `json:"seller_id"`
	CreditID    string          `json:"credit_id"`
	ListingID   string          `json:"listing_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      TxnStatus       `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
