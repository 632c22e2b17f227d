package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ListingType string

const (
	ListingFixed   ListingType = "FIXED"
	ListingAuction ListingType = "AUCTION"
)

type ListingStatus string

const (
	ListingActive    ListingStatus = "ACTIVE"
	ListingSold      ListingStatus = "SOLD"
	ListingCancelled ListingStatus = "CANCELLED"
	ListingExpired   ListingStatus = "EXPIRED"
)

// CreditListing offers one credit for sale. FIXED listings carry Price;
// AUCTION listings carry MinBid + AuctionEndTime and track the current
// highest bid. A credit has at most one non-CANCELLED/EXPIRED listing.
type CreditListing struct {
	ID             string           `json:"id"`
	CreditID       string           `json:"credit_id"`
	SellerID       string           `json:"seller_id"`
	Type           ListingType      `json:"type"`
	Status         ListingStatus    `json:"status"`
	Price          decimal.Decimal  `json:"price"`   // FIXED
	MinBid         decimal.Decimal  `json:"min_bid"` // AUCTION
	AuctionEndTime *time.Time       `json:"auction_end_time,omitempty"`
	HighestBid     *decimal.Decimal `json:"highest_bid,omitempty"`
	HighestBidder  *string          `json:"highest_bidder,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Bid is an accepted bid, kept as history alongside the listing's
// current-highest tracking.
type Bid struct {
	ID        string          `json:"id"`
	ListingID string          `json:"listing_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
