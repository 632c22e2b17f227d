package models

import "time"

type AuditAction string

const (
	AuditVerified  AuditAction = "VERIFIED"
	AuditRejected  AuditAction = "REJECTED"
	AuditListed    AuditAction = "LISTED"
	AuditBid       AuditAction = "BID"
	AuditSold      AuditAction = "SOLD"
	AuditCancelled AuditAction = "CANCELLED"
	AuditExpired   AuditAction = "EXPIRED"
	AuditDisputed  AuditAction = "DISPUTED"
	AuditRefunded  AuditAction = "REFUNDED"
	AuditUpheld    AuditAction = "UPHELD"
)

// AuditLog is an append-only record correlating an actor, an action and the
// affected credit. Never updated or deleted by normal flow.
type AuditLog struct {
	ID        string      `json:"id"`
	CreditID  *string     `json:"credit_id,omitempty"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Action    AuditAction `json:"action"`
	Comments  string      `json:"comments,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
