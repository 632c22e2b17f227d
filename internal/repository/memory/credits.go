package memory

import (
	"context"
	"sync"
	"time"

	"github.com/greenloop/carbon-market/internal/models"
)

type creditsStore struct {
	mu   sync.Mutex
	byID map[string]models.CarbonCredit
}

func (s *creditsStore) Create(_ context.Context, c models.CarbonCredit) (models.CarbonCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Status == "" {
		c.Status = models.CreditPending
	}
	c.CreatedAt = time.Now()
	s.byID[c.ID] = c
	return c, nil
}

func (s *creditsStore) GetByID(_ context.Context, id string) (models.CarbonCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return models.CarbonCredit{}, models.ErrNotFound
	}
	return c, nil
}

func (s *creditsStore) ListByOwner(_ context.Context, ownerID string) ([]models.CarbonCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CarbonCredit
	for _, c := range s.byID {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return sortedByCreatedAtDesc(out, func(c models.CarbonCredit) time.Time { return c.CreatedAt }), nil
}

func (s *creditsStore) SetVerified(_ context.Context, id, verifierID string, at time.Time) (models.CarbonCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return models.CarbonCredit{}, models.ErrNotFound
	}
	if c.Status != models.CreditPending {
		return models.CarbonCredit{}, models.ErrInvalidStatus
	}
	c.Status = models.CreditVerified
	c.VerifiedBy = &verifierID
	c.VerifiedAt = &at
	s.byID[id] = c
	return c, nil
}

func (s *creditsStore) SetRejected(_ context.Context, id, verifierID string) (models.CarbonCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return models.CarbonCredit{}, models.ErrNotFound
	}
	if c.Status != models.CreditPending {
		return models.CarbonCredit{}, models.ErrInvalidStatus
	}
	c.Status = models.CreditRejected
	c.VerifiedBy = &verifierID
	s.byID[id] = c
	return c, nil
}

func (s *creditsStore) SetStatus(_ context.Context, id string, from, to models.CreditStatus) (models.CarbonCredit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return models.CarbonCredit{}, models.ErrNotFound
	}
	if c.Status != from {
		return models.CarbonCredit{}, models.ErrInvalidStatus
	}
	c.Status = to
	if to == models.CreditListed {
		now := time.Now()
		c.ListedAt = &now
	}
	s.byID[id] = c
	return c, nil
}

func (s *creditsStore) SetOwner(_ context.Context, id, newOwnerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	c.OwnerID = newOwnerID
	s.byID[id] = c
	return nil
}
