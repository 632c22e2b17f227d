package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/greenloop/carbon-market/internal/models"
)

type listingsStore struct {
	mu   sync.Mutex
	byID map[string]models.CreditListing
}

func (s *listingsStore) Create(_ context.Context, l models.CreditListing) (models.CreditListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = newID()
	}
	if l.Status == "" {
		l.Status = models.ListingActive
	}
	l.CreatedAt = time.Now()
	s.byID[l.ID] = l
	return l, nil
}

func (s *listingsStore) GetByID(_ context.Context, id string) (models.CreditListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok {
		return models.CreditListing{}, models.ErrNotFound
	}
	return l, nil
}

func (s *listingsStore) ListActive(_ context.Context) ([]models.CreditListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CreditListing
	for _, l := range s.byID {
		if l.Status == models.ListingActive {
			out = append(out, l)
		}
	}
	return sortedByCreatedAtDesc(out, func(l models.CreditListing) time.Time { return l.CreatedAt }), nil
}

func (s *listingsStore) ExistsActiveByCredit(_ context.Context, creditID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.byID {
		if l.CreditID == creditID && l.Status != models.ListingCancelled && l.Status != models.ListingExpired {
			return true, nil
		}
	}
	return false, nil
}

func (s *listingsStore) SetStatus(_ context.Context, id string, from, to models.ListingStatus) (models.CreditListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok {
		return models.CreditListing{}, models.ErrNotFound
	}
	if l.Status != from {
		return models.CreditListing{}, models.ErrInvalidStatus
	}
	l.Status = to
	s.byID[id] = l
	return l, nil
}

func (s *listingsStore) CompareAndSetBid(_ context.Context, id, bidderID string, amount decimal.Decimal, prev *decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok {
		return false, models.ErrNotFound
	}
	if l.Status != models.ListingActive {
		return false, nil
	}
	switch {
	case l.HighestBid == nil && prev == nil:
	case l.HighestBid != nil && prev != nil && l.HighestBid.Equal(*prev):
	default:
		return false, nil
	}
	l.HighestBid = &amount
	l.HighestBidder = &bidderID
	s.byID[id] = l
	return true, nil
}

func (s *listingsStore) ListExpiredAuctions(_ context.Context, now time.Time) ([]models.CreditListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CreditListing
	for _, l := range s.byID {
		if l.Status == models.ListingActive && l.Type == models.ListingAuction &&
			l.AuctionEndTime != nil && l.AuctionEndTime.Before(now) {
			out = append(out, l)
		}
	}
	return out, nil
}
