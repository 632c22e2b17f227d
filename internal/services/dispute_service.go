package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/greenloop/carbon-market/internal/metrics"
	"github.com/greenloop/carbon-market/internal/models"
	"github.com/greenloop/carbon-market/internal/notify"
	repo "github.com/greenloop/carbon-market/internal/repository"
	"github.com/greenloop/carbon-market/internal/worker"
)

// DisputeService freezes a completed transaction into contention and applies
// the resolution outcome, reversing the settlement when a refund is granted.
type DisputeService struct {
	disputes repo.Disputes
	txns     repo.Transactions
	credits  repo.Credits
	audits   repo.AuditLogs
	wallet   *WalletService
	sink     notify.Sink
	wp       *worker.Pool
}

func NewDisputeService(d repo.Disputes, t repo.Transactions, c repo.Credits, a repo.AuditLogs, w *WalletService, sink notify.Sink, wp *worker.Pool) *DisputeService {
	return &DisputeService{disputes: d, txns: t, credits: c, audits: a, wallet: w, sink: sink, wp: wp}
}

// Raise opens a dispute against a COMPLETED transaction. Only buyer, seller
// or an admin may raise; the COMPLETED->DISPUTED CAS serializes concurrent
// raisers so at most one OPEN dispute exists per transaction.
func (s *DisputeService) Raise(ctx context.Context, actor models.Actor, transactionID, reason string) (models.Dispute, error) {
	t, err := s.txns.GetByID(ctx, transactionID)
	if err != nil {
		return models.Dispute{}, err
	}
	if actor.UserID != t.BuyerID && actor.UserID != t.SellerID && !actor.IsAdmin() {
		return models.Dispute{}, fmt.Errorf("%w: only a party to the transaction may dispute it", models.ErrUnauthorized)
	}
	if exists, err := s.disputes.ExistsOpenByTransaction(ctx, transactionID); err != nil {
		return models.Dispute{}, err
	} else if exists {
		return models.Dispute{}, models.ErrAlreadyDisputed
	}
	if _, err := s.txns.SetStatus(ctx, transactionID, models.TxnCompleted, models.TxnDisputed); err != nil {
		if errors.Is(err, models.ErrInvalidStatus) {
			if t.Status == models.TxnDisputed {
				return models.Dispute{}, models.ErrAlreadyDisputed
			}
			return models.Dispute{}, fmt.Errorf("%w: transaction is %s, must be COMPLETED", models.ErrInvalidStatus, t.Status)
		}
		return models.Dispute{}, err
	}

	raisedBy := actor.UserID
	d, err := s.disputes.Create(ctx, models.Dispute{
		TransactionID: transactionID,
		RaisedBy:      &raisedBy,
		Reason:        reason,
		Status:        models.DisputeOpen,
	})
	if err != nil {
		return models.Dispute{}, err
	}
	s.audit(ctx, t.CreditID, actor.UserID, models.AuditDisputed, reason)
	metrics.DisputesTotal.WithLabelValues("raised").Inc()
	s.notifyAsync(t, "transaction.disputed")
	return d, nil
}

// Resolve closes an OPEN dispute. REFUND reverses the original transfer
// (buyer and seller swapped) and marks the transaction REFUNDED; UPHOLD and
// REJECT restore it to COMPLETED. The DISPUTED->final CAS on the transaction
// is the serialization point, so a second resolver fails before any wallet
// is touched.
func (s *DisputeService) Resolve(ctx context.Context, actor models.Actor, disputeID string, outcome models.DisputeOutcome, resolution string) (models.Transaction, error) {
	if !actor.IsAdmin() {
		return models.Transaction{}, fmt.Errorf("%w: dispute resolution requires admin", models.ErrUnauthorized)
	}
	d, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return models.Transaction{}, err
	}
	if d.Status != models.DisputeOpen {
		return models.Transaction{}, models.ErrAlreadyResolved
	}
	t, err := s.txns.GetByID(ctx, d.TransactionID)
	if err != nil {
		return models.Transaction{}, err
	}

	var final models.Transaction
	switch outcome {
	case models.OutcomeRefund:
		final, err = s.txns.SetStatus(ctx, t.ID, models.TxnDisputed, models.TxnRefunded)
		if err != nil {
			return models.Transaction{}, resolveRaceErr(err)
		}
		credit, cerr := s.credits.GetByID(ctx, t.CreditID)
		if cerr != nil {
			return models.Transaction{}, cerr
		}
		if terr := s.wallet.Transfer(ctx, t.SellerID, t.BuyerID, t.Amount, credit.CreditAmount); terr != nil {
			// Seller cannot cover the refund: put the transaction back so
			// the dispute stays open and resolvable later.
			if _, rerr := s.txns.SetStatus(ctx, t.ID, models.TxnRefunded, models.TxnDisputed); rerr != nil {
				slog.Error("refund rollback", "transaction_id", t.ID, "err", rerr)
			}
			return models.Transaction{}, terr
		}
		s.audit(ctx, t.CreditID, actor.UserID, models.AuditRefunded, resolution)
	case models.OutcomeUphold, models.OutcomeReject:
		final, err = s.txns.SetStatus(ctx, t.ID, models.TxnDisputed, models.TxnCompleted)
		if err != nil {
			return models.Transaction{}, resolveRaceErr(err)
		}
		s.audit(ctx, t.CreditID, actor.UserID, models.AuditUpheld, resolution)
	default:
		return models.Transaction{}, fmt.Errorf("%w: unknown outcome %q", models.ErrValidation, outcome)
	}

	status := models.DisputeResolved
	if outcome == models.OutcomeReject {
		status = models.DisputeRejected
	}
	if _, err := s.disputes.Resolve(ctx, disputeID, actor.UserID, status, resolution, time.Now()); err != nil {
		slog.Error("dispute close", "dispute_id", disputeID, "err", err)
	}
	metrics.DisputesTotal.WithLabelValues(string(outcome)).Inc()
	s.notifyAsync(final, "dispute.resolved")
	return final, nil
}

func resolveRaceErr(err error) error {
	if errors.Is(err, models.ErrInvalidStatus) {
		return models.ErrAlreadyResolved
	}
	return err
}

func (s *DisputeService) GetByID(ctx context.Context, id string) (models.Dispute, error) {
	return s.disputes.GetByID(ctx, id)
}

func (s *DisputeService) TransactionsByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	return s.txns.ListByUser(ctx, userID, limit, offset)
}

func (s *DisputeService) audit(ctx context.Context, creditID, actorID string, action models.AuditAction, comments string) {
	if _, err := s.audits.Create(ctx, models.AuditLog{
		CreditID: &creditID,
		ActorID:  &actorID,
		Action:   action,
		Comments: comments,
	}); err != nil {
		slog.Error("audit append", "credit_id", creditID, "action", action, "err", err)
	}
}

func (s *DisputeService) notifyAsync(t models.Transaction, typ string) {
	if s.sink == nil || s.wp == nil {
		return
	}
	ev := notify.Event{Type: typ, Data: map[string]any{"transaction_id": t.ID}}
	for _, uid := range []string{t.BuyerID, t.SellerID} {
		uid := uid
		s.wp.Submit(func() {
			if err := s.sink.Notify(uid, ev); err != nil {
				slog.Warn("notify", "user_id", uid, "err", err)
			}
		})
	}
}
