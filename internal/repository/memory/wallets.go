package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/greenloop/carbon-market/internal/models"
)

type walletsStore struct {
	mu     sync.Mutex
	byUser map[string]*models.Wallet
}

func (s *walletsStore) GetOrCreate(_ context.Context, userID string) (models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(userID), nil
}

func (s *walletsStore) getOrCreateLocked(userID string) *models.Wallet {
	if w, ok := s.byUser[userID]; ok {
		return w
	}
	now := time.Now()
	w := &models.Wallet{
		ID:            newID(),
		UserID:        userID,
		CashBalance:   decimal.Zero,
		CreditBalance: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.byUser[userID] = w
	return w
}

func (s *walletsStore) Get(_ context.Context, userID string) (models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.byUser[userID]
	if !ok {
		return models.Wallet{}, models.ErrNotFound
	}
	return *w, nil
}

func (s *walletsStore) Add(_ context.Context, userID string, kind models.BalanceKind, delta decimal.Decimal) (models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.byUser[userID]
	if !ok {
		return models.Wallet{}, models.ErrNotFound
	}
	if err := addLocked(w, kind, delta); err != nil {
		return models.Wallet{}, err
	}
	w.UpdatedAt = time.Now()
	return *w, nil
}

func addLocked(w *models.Wallet, kind models.BalanceKind, delta decimal.Decimal) error {
	switch kind {
	case models.BalanceCash:
		next := w.CashBalance.Add(delta)
		if next.IsNegative() {
			return models.ErrInsufficientBalance
		}
		w.CashBalance = next
	case models.BalanceCredit:
		next := w.CreditBalance.Add(delta)
		if next.IsNegative() {
			return models.ErrInsufficientBalance
		}
		w.CreditBalance = next
	}
	return nil
}

// Transfer applies all four legs under the store lock, checking every leg
// before touching anything so a failure leaves both wallets as they were.
func (s *walletsStore) Transfer(_ context.Context, fromUserID, toUserID string, funds, credits decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.byUser[fromUserID]
	if !ok {
		return models.ErrNotFound
	}
	to, ok := s.byUser[toUserID]
	if !ok {
		return models.ErrNotFound
	}
	if from.CashBalance.LessThan(funds) || to.CreditBalance.LessThan(credits) {
		return models.ErrInsufficientBalance
	}
	now := time.Now()
	from.CashBalance = from.CashBalance.Sub(funds)
	to.CashBalance = to.CashBalance.Add(funds)
	to.CreditBalance = to.CreditBalance.Sub(credits)
	from.CreditBalance = from.CreditBalance.Add(credits)
	from.UpdatedAt, to.UpdatedAt = now, now
	return nil
}
