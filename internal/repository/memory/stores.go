package memory

import (
	"context"
	"sync"
	"time"

	"github.com/greenloop/carbon-market/internal/models"
)

// users

type usersStore struct {
	mu   sync.Mutex
	byID map[string]models.User
}

func (s *usersStore) Create(_ context.Context, username, email, hash string, role models.Role) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	u := models.User{
		ID:           newID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[u.ID] = u
	return u, nil
}

func (s *usersStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

func (s *usersStore) GetByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, models.ErrNotFound
}

func (s *usersStore) List(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u)
	}
	return sortedByCreatedAtDesc(out, func(u models.User) time.Time { return u.CreatedAt }), nil
}

// bids

type bidsStore struct {
	mu   sync.Mutex
	bids []models.Bid
}

func (s *bidsStore) Create(_ context.Context, b models.Bid) (models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = newID()
	}
	b.CreatedAt = time.Now()
	s.bids = append(s.bids, b)
	return b, nil
}

func (s *bidsStore) ListByListing(_ context.Context, listingID string) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bid
	for _, b := range s.bids {
		if b.ListingID == listingID {
			out = append(out, b)
		}
	}
	return out, nil
}

// transactions

type transactionsStore struct {
	mu   sync.Mutex
	byID map[string]models.Transaction
}

func (s *transactionsStore) Create(_ context.Context, t models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	t.CreatedAt = time.Now()
	s.byID[t.ID] = t
	return t, nil
}

func (s *transactionsStore) GetByID(_ context.Context, id string) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return models.Transaction{}, models.ErrNotFound
	}
	return t, nil
}

func (s *transactionsStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, t := range s.byID {
		if t.BuyerID == userID || t.SellerID == userID {
			out = append(out, t)
		}
	}
	out = sortedByCreatedAtDesc(out, func(t models.Transaction) time.Time { return t.CreatedAt })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *transactionsStore) SetStatus(_ context.Context, id string, from, to models.TxnStatus) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return models.Transaction{}, models.ErrNotFound
	}
	if t.Status != from {
		return models.Transaction{}, models.ErrInvalidStatus
	}
	t.Status = to
	s.byID[id] = t
	return t, nil
}

// disputes

type disputesStore struct {
	mu   sync.Mutex
	byID map[string]models.Dispute
}

func (s *disputesStore) Create(_ context.Context, d models.Dispute) (models.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = newID()
	}
	if d.Status == "" {
		d.Status = models.DisputeOpen
	}
	d.CreatedAt = time.Now()
	s.byID[d.ID] = d
	return d, nil
}

func (s *disputesStore) GetByID(_ context.Context, id string) (models.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return models.Dispute{}, models.ErrNotFound
	}
	return d, nil
}

func (s *disputesStore) ExistsOpenByTransaction(_ context.Context, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.byID {
		if d.TransactionID == transactionID && d.Status == models.DisputeOpen {
			return true, nil
		}
	}
	return false, nil
}

func (s *disputesStore) Resolve(_ context.Context, id, resolverID string, status models.DisputeStatus, resolution string, at time.Time) (models.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return models.Dispute{}, models.ErrNotFound
	}
	if d.Status != models.DisputeOpen {
		return models.Dispute{}, models.ErrAlreadyResolved
	}
	d.Status = status
	d.ResolvedBy = &resolverID
	d.Resolution = &resolution
	d.ResolvedAt = &at
	s.byID[id] = d
	return d, nil
}

// audit logs

type auditLogsStore struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (s *auditLogsStore) Create(_ context.Context, l models.AuditLog) (models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = newID()
	}
	l.CreatedAt = time.Now()
	s.logs = append(s.logs, l)
	return l, nil
}

func (s *auditLogsStore) ListByCredit(_ context.Context, creditID string) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditLog
	for _, l := range s.logs {
		if l.CreditID != nil && *l.CreditID == creditID {
			out = append(out, l)
		}
	}
	return out, nil
}
