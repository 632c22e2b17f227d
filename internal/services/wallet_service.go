package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/greenloop/carbon-market/internal/models"
	repo "github.com/greenloop/carbon-market/internal/repository"
)

// WalletService is the wallet ledger: the only writer of balances. Debits
// that would go negative fail with ErrInsufficientBalance; the repo
// serializes each read-modify-write per wallet.
type WalletService struct {
	wallets repo.Wallets
}

func NewWalletService(w repo.Wallets) *WalletService { return &WalletService{wallets: w} }

func (s *WalletService) GetOrCreate(ctx context.Context, userID string) (models.Wallet, error) {
	return s.wallets.GetOrCreate(ctx, userID)
}

func (s *WalletService) Credit(ctx context.Context, userID string, kind models.BalanceKind, amount decimal.Decimal) (models.Wallet, error) {
	if !amount.IsPositive() {
		return models.Wallet{}, fmt.Errorf("%w: amount must be > 0", models.ErrValidation)
	}
	if _, err := s.wallets.GetOrCreate(ctx, userID); err != nil {
		return models.Wallet{}, err
	}
	return s.wallets.Add(ctx, userID, kind, amount)
}

func (s *WalletService) Debit(ctx context.Context, userID string, kind models.BalanceKind, amount decimal.Decimal) (models.Wallet, error) {
	if !amount.IsPositive() {
		return models.Wallet{}, fmt.Errorf("%w: amount must be > 0", models.ErrValidation)
	}
	if _, err := s.wallets.GetOrCreate(ctx, userID); err != nil {
		return models.Wallet{}, err
	}
	return s.wallets.Add(ctx, userID, kind, amount.Neg())
}

// Transfer moves funds buyer->seller and credits seller->buyer,
// all-or-nothing. Both wallets are created on first touch so the only
// recoverable failure is an insufficient balance on either side.
func (s *WalletService) Transfer(ctx context.Context, fromUserID, toUserID string, funds, credits decimal.Decimal) error {
	if funds.IsNegative() || credits.IsNegative() {
		return fmt.Errorf("%w: negative transfer amount", models.ErrValidation)
	}
	if _, err := s.wallets.GetOrCreate(ctx, fromUserID); err != nil {
		return err
	}
	if _, err := s.wallets.GetOrCreate(ctx, toUserID); err != nil {
		return err
	}
	return s.wallets.Transfer(ctx, fromUserID, toUserID, funds, credits)
}
