package models

import "time"

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "OPEN"
	DisputeResolved DisputeStatus = "RESOLVED"
	DisputeRejected DisputeStatus = "REJECTED"
)

type DisputeOutcome string

const (
	OutcomeRefund DisputeOutcome = "REFUND" // reverse the transfer, transaction -> REFUNDED
	OutcomeUphold DisputeOutcome = "UPHOLD" // transaction back to COMPLETED
	OutcomeReject DisputeOutcome = "REJECT" // dispute frivolous; transaction back to COMPLETED
)

// Dispute is a contention against a completed transaction. At most one OPEN
// dispute exists per transaction. RaisedBy is nullable: system-raised
// disputes are allowed.
type Dispute struct {
	ID            string        `json:"id"`
	TransactionID string        `json:"transaction_id"`
	RaisedBy      *string       `json:"raised_by,omitempty"`
	ResolvedBy    *string       `json:"resolved_by,omitempty"`
	Reason        string        `json:"reason"`
	Status        DisputeStatus `json:"status"`
	Resolution    *string       `json:"resolution,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
}
