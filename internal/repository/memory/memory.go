// Package memory implements the repository interfaces in-process. It backs
// the service tests and keeps the same atomicity contract as the postgres
// implementation: every check-then-mutate happens under the store lock.
package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"

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

func NewRepositories() Repositories {
	return Repositories{
		Users:        &usersStore{byID: map[string]models.User{}},
		Wallets:      &walletsStore{byUser: map[string]*models.Wallet{}},
		Credits:      &creditsStore{byID: map[string]models.CarbonCredit{}},
		Listings:     &listingsStore{byID: map[string]models.CreditListing{}},
		Bids:         &bidsStore{},
		Transactions: &transactionsStore{byID: map[string]models.Transaction{}},
		Disputes:     &disputesStore{byID: map[string]models.Dispute{}},
		AuditLogs:    &auditLogsStore{},
	}
}

func newID() string { return uuid.NewString() }

func sortedByCreatedAtDesc[T any](items []T, created func(T) time.Time) []T {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).After(created(items[j]))
	})
	return items
}
