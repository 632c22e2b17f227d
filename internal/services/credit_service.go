package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/greenloop/carbon-market/internal/models"
	repo "github.com/greenloop/carbon-market/internal/repository"
)

// CreditService owns the carbon credit state machine:
// PENDING -> {VERIFIED, REJECTED} -> LISTED -> SOLD, REJECTED terminal.
type CreditService struct {
	credits repo.Credits
	audits  repo.AuditLogs
	wallet  *WalletService
}

func NewCreditService(c repo.Credits, a repo.AuditLogs, w *WalletService) *CreditService {
	return &CreditService{credits: c, audits: a, wallet: w}
}

// Submit records a credit produced by the journey-ingestion collaborator.
func (s *CreditService) Submit(ctx context.Context, ownerID string, co2Kg float64, amount decimal.Decimal) (models.CarbonCredit, error) {
	if co2Kg <= 0 {
		return models.CarbonCredit{}, fmt.Errorf("%w: co2_reduced_kg must be > 0", models.ErrValidation)
	}
	if amount.IsNegative() {
		return models.CarbonCredit{}, fmt.Errorf("%w: credit_amount must be >= 0", models.ErrValidation)
	}
	return s.credits.Create(ctx, models.CarbonCredit{
		OwnerID:      ownerID,
		Status:       models.CreditPending,
		CO2ReducedKg: co2Kg,
		CreditAmount: amount,
	})
}

// Verify moves a PENDING credit to VERIFIED, mints its credit_amount into
// the owner's wallet credit balance and appends one audit entry. Settlement
// later moves that balance to the buyer, so verification is the only place
// credit units enter circulation. Re-verifying an already-VERIFIED credit is
// a no-op: the current credit is returned unchanged, nothing is minted again
// and no new audit entry is written. REJECTED and SOLD credits fail with
// ErrInvalidStatus.
func (s *CreditService) Verify(ctx context.Context, creditID string, actor models.Actor, comments string) (models.CarbonCredit, error) {
	if !actor.IsVerifier() {
		return models.CarbonCredit{}, fmt.Errorf("%w: verifier capability required", models.ErrUnauthorized)
	}
	c, err := s.credits.SetVerified(ctx, creditID, actor.UserID, time.Now())
	if errors.Is(err, models.ErrInvalidStatus) {
		cur, gerr := s.credits.GetByID(ctx, creditID)
		if gerr != nil {
			return models.CarbonCredit{}, gerr
		}
		if cur.Status == models.CreditVerified {
			return cur, nil // idempotent
		}
		return models.CarbonCredit{}, fmt.Errorf("%w: cannot verify credit in %s", models.ErrInvalidStatus, cur.Status)
	}
	if err != nil {
		return models.CarbonCredit{}, err
	}
	// The PENDING->VERIFIED CAS above succeeds once, so the mint runs once.
	if c.CreditAmount.IsPositive() {
		if _, werr := s.wallet.Credit(ctx, c.OwnerID, models.BalanceCredit, c.CreditAmount); werr != nil {
			// Un-verify so a VERIFIED credit is always backed by wallet units.
			if _, rerr := s.credits.SetStatus(ctx, c.ID, models.CreditVerified, models.CreditPending); rerr != nil {
				slog.Error("verify mint rollback", "credit_id", c.ID, "err", rerr)
			}
			return models.CarbonCredit{}, werr
		}
	}
	s.audit(ctx, c.ID, actor.UserID, models.AuditVerified, comments)
	return c, nil
}

// Reject moves PENDING -> REJECTED (terminal).
func (s *CreditService) Reject(ctx context.Context, creditID string, actor models.Actor, reason string) (models.CarbonCredit, error) {
	if !actor.IsVerifier() {
		return models.CarbonCredit{}, fmt.Errorf("%w: verifier capability required", models.ErrUnauthorized)
	}
	c, err := s.credits.SetRejected(ctx, creditID, actor.UserID)
	if err != nil {
		return models.CarbonCredit{}, err
	}
	s.audit(ctx, c.ID, actor.UserID, models.AuditRejected, reason)
	return c, nil
}

func (s *CreditService) GetByID(ctx context.Context, id string) (models.CarbonCredit, error) {
	return s.credits.GetByID(ctx, id)
}

func (s *CreditService) ListByOwner(ctx context.Context, ownerID string) ([]models.CarbonCredit, error) {
	return s.credits.ListByOwner(ctx, ownerID)
}

func (s *CreditService) AuditTrail(ctx context.Context, creditID string) ([]models.AuditLog, error) {
	return s.audits.ListByCredit(ctx, creditID)
}

// audit appends an entry; a persistence failure here is logged but never
// rolls back the state change it describes.
func (s *CreditService) audit(ctx context.Context, creditID, actorID string, action models.AuditAction, comments string) {
	_, err := s.audits.Create(ctx, models.AuditLog{
		CreditID: &creditID,
		ActorID:  &actorID,
		Action:   action,
		Comments: comments,
	})
	if err != nil {
		slog.Error("audit append", "credit_id", creditID, "action", action, "err", err)
	}
}
