// Package scheduler drives the periodic marketplace sweeps. The auction
// sweep is idempotent, so overlapping or redundant runs are harmless.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/greenloop/carbon-market/internal/services"
)

type Sweeper struct {
	listings *services.ListingService
	interval time.Duration
}

func NewSweeper(ls *services.ListingService, interval time.Duration) *Sweeper {
	return &Sweeper{listings: ls, interval: interval}
}

// Run closes expired auctions every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			settled, expired, err := s.listings.CloseExpiredAuctions(ctx, now)
			if err != nil {
				slog.Error("auction sweep", "err", err)
				continue
			}
			if settled > 0 || expired > 0 {
				slog.Info("auction sweep", "settled", settled, "expired", expired)
			}
		}
	}
}
