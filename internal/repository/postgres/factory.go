package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenloop/carbon-market/internal/models"
	repo "github.com/greenloop/carbon-market/internal/repository"
)

type Repositories struct {
	Users        repo.Users
	Wallets      repo.Wallets
	Credits      repo.Credits
	Listings     repo.Listings
	Bids         repo.Bids
	Transactions repo.Transactions
	Disputes     repo.Disputes
	AuditLogs    repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:        &usersRepo{pool},
		Wallets:      &walletsRepo{pool},
		Credits:      &creditsRepo{pool},
		Listings:     &listingsRepo{pool},
		Bids:         &bidsRepo{pool},
		Transactions: &transactionsRepo{pool},
		Disputes:     &disputesRepo{pool},
		AuditLogs:    &auditLogsRepo{pool},
	}
}

// mapNoRows translates pgx's no-row result into the domain NotFound.
func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}
