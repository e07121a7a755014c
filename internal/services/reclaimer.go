package services

import (
	"context"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// Reclaimer physically deletes reservations that ran out. Reads already
// treat them as available, so sweeping only keeps the collection small.
type Reclaimer struct {
	tickets  repositories.TicketRepository
	interval time.Duration
	grace    time.Duration
	now      Clock
}

// NewReclaimer creates a new Reclaimer. Rows are kept for grace past their
// deadline before they are deleted.
func NewReclaimer(tickets repositories.TicketRepository, interval, grace time.Duration, clock Clock) *Reclaimer {
	if interval <= 0 {
		interval = time.Minute
	}
	if grace < 0 {
		grace = 0
	}
	if clock == nil {
		clock = systemClock
	}
	return &Reclaimer{tickets: tickets, interval: interval, grace: grace, now: clock}
}

// Sweep deletes reserved rows whose deadline passed more than grace ago
func (r *Reclaimer) Sweep(ctx context.Context) (int64, error) {
	return r.tickets.PurgeExpired(ctx, r.now().Add(-r.grace))
}

// Run sweeps on every tick until ctx is done
func (r *Reclaimer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	slog.Info("Expiry reclaimer started", "interval", r.interval, "grace", r.grace)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Expiry reclaimer stopped")
			return nil
		case <-ticker.C:
			n, err := r.Sweep(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("Expiry sweep failed", "error", err)
				}
				continue
			}
			if n > 0 {
				slog.Info("Expired reservations reclaimed", "count", n)
			}
		}
	}
}
