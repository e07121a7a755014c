package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/config"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

const (
	referenceAttempts = 3
	quickPickAttempts = 3

	// MaxReservationTTLMinutes bounds every hold, whatever the raffle or
	// request asks for.
	MaxReservationTTLMinutes = 7 * 24 * 60
)

// ReservationService claims ticket numbers for a buyer under one reference
// code. Either every requested number ends up reserved, or none stays
// reserved under that code.
type ReservationService struct {
	raffles repositories.RaffleRepository
	tickets repositories.TicketRepository
	sampler *SamplerService
	outbox  *Outbox
	cfg     config.ReservationConfig
	now     Clock
}

// NewReservationService creates a new ReservationService
func NewReservationService(
	raffles repositories.RaffleRepository,
	tickets repositories.TicketRepository,
	sampler *SamplerService,
	outbox *Outbox,
	cfg config.ReservationConfig,
	clock Clock,
) *ReservationService {
	if clock == nil {
		clock = systemClock
	}
	return &ReservationService{
		raffles: raffles,
		tickets: tickets,
		sampler: sampler,
		outbox:  outbox,
		cfg:     cfg,
		now:     clock,
	}
}

// Reserve claims numbers for buyer. The hold lasts the raffle's TTL, then the
// configured default; a positive ttlMinutes can only shorten it.
func (s *ReservationService) Reserve(ctx context.Context, raffleID string, numbers []string, buyer models.BuyerInfo, ttlMinutes int) (*models.Reservation, error) {
	raffle, err := loadRaffle(ctx, s.raffles, raffleID)
	if err != nil {
		return nil, err
	}
	if !raffle.AcceptsReservations() {
		return nil, ErrRaffleNotOpen
	}
	buyer.Name = strings.TrimSpace(buyer.Name)
	buyer.Email = strings.TrimSpace(buyer.Email)
	if buyer.Name == "" {
		return nil, fmt.Errorf("%w: buyer name is required", ErrInvalidRequest)
	}
	if len(numbers) == 0 {
		return nil, fmt.Errorf("%w: no ticket numbers requested", ErrInvalidRequest)
	}
	if s.cfg.MaxTicketsPerOrder > 0 && len(numbers) > s.cfg.MaxTicketsPerOrder {
		return nil, fmt.Errorf("%w: at most %d tickets per order", ErrInvalidRequest, s.cfg.MaxTicketsPerOrder)
	}

	requested := make([]string, 0, len(numbers))
	seen := make(map[string]bool, len(numbers))
	for _, number := range numbers {
		canonical, _, err := raffle.ParseNumber(strings.TrimSpace(number))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTicketNumber, err)
		}
		if seen[canonical] {
			return nil, fmt.Errorf("%w: ticket %s requested twice", ErrInvalidTicketNumber, canonical)
		}
		seen[canonical] = true
		requested = append(requested, canonical)
	}
	sortNumbers(requested)

	reference, err := s.newReference(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	ttl := s.ttl(raffle, ttlMinutes)
	now := s.now()
	reservedUntil := now.Add(ttl)
	orderTotal := raffle.TicketPrice * float64(len(requested))

	claims, err := s.tickets.Claim(ctx, models.ClaimRequest{
		RaffleID:      raffleID,
		Numbers:       requested,
		Buyer:         buyer,
		Reference:     reference,
		ReservedUntil: reservedUntil,
		OrderTotal:    orderTotal,
		Now:           now,
	})
	if err != nil {
		s.compensate(ctx, raffleID, reference)
		return nil, fmt.Errorf("failed to claim tickets: %w", err)
	}
	if len(claims) < len(requested) {
		s.compensate(ctx, raffleID, reference)
		claimed := make(map[string]bool, len(claims))
		for _, c := range claims {
			claimed[c.TicketNumber] = true
		}
		var unavailable []string
		for _, n := range requested {
			if !claimed[n] {
				unavailable = append(unavailable, n)
			}
		}
		slog.Info("Reservation lost a race", "raffleId", raffleID, "reference", reference, "requested", len(requested), "unavailable", unavailable)
		return nil, &InsufficientAvailabilityError{
			Requested:   len(requested),
			Missing:     len(unavailable),
			Unavailable: unavailable,
		}
	}

	slog.Info("Tickets reserved", "raffleId", raffleID, "reference", reference, "tickets", len(claims), "reservedUntil", reservedUntil)
	s.outbox.Enqueue(ctx, &models.Notification{
		RaffleID:  raffleID,
		Reference: reference,
		Type:      models.NotificationReservationCreated,
		Channel:   models.ChannelStaff,
		Subject:   fmt.Sprintf("New reservation %s", reference),
		Content: fmt.Sprintf("%s reserved %d ticket(s) in %q: %s. Pay %.2f %s before %s.",
			buyer.Name, len(claims), raffle.Title, strings.Join(requested, ", "),
			orderTotal, raffle.Currency, reservedUntil.Format(time.RFC3339)),
	})

	return &models.Reservation{
		ReferenceCode: reference,
		RaffleID:      raffleID,
		Claims:        claims,
		ReservedUntil: reservedUntil,
		OrderTotal:    orderTotal,
	}, nil
}

// QuickPick samples count available numbers and reserves them, sampling
// again when another buyer wins a race for one of them.
func (s *ReservationService) QuickPick(ctx context.Context, raffleID string, count int, exclude []string, buyer models.BuyerInfo) (*models.Reservation, error) {
	if s.cfg.MaxTicketsPerOrder > 0 && count > s.cfg.MaxTicketsPerOrder {
		return nil, fmt.Errorf("%w: at most %d tickets per order", ErrInvalidRequest, s.cfg.MaxTicketsPerOrder)
	}
	var lastErr error
	for attempt := 1; attempt <= quickPickAttempts; attempt++ {
		numbers, err := s.sampler.SampleAvailable(ctx, raffleID, count, exclude)
		if err != nil {
			return nil, err
		}
		reservation, err := s.Reserve(ctx, raffleID, numbers, buyer, 0)
		var shortfall *InsufficientAvailabilityError
		if errors.As(err, &shortfall) {
			lastErr = err
			slog.Warn("Quick pick collided, resampling", "raffleId", raffleID, "attempt", attempt, "unavailable", shortfall.Unavailable)
			continue
		}
		return reservation, err
	}
	return nil, lastErr
}

// compensate releases whatever this reference managed to claim. Rows that
// were since taken by another reference are never touched.
func (s *ReservationService) compensate(ctx context.Context, raffleID, reference string) {
	released, err := s.tickets.ReleaseReservation(context.WithoutCancel(ctx), raffleID, reference)
	if err != nil {
		slog.Error("Failed to release partial reservation", "error", err, "raffleId", raffleID, "reference", reference)
		return
	}
	if released > 0 {
		slog.Info("Released partial reservation", "raffleId", raffleID, "reference", reference, "released", released)
	}
}

// newReference draws reference codes until one is unused in the raffle
func (s *ReservationService) newReference(ctx context.Context, raffleID string) (string, error) {
	for i := 0; i < referenceAttempts; i++ {
		code, err := NewReferenceCode()
		if err != nil {
			return "", err
		}
		exists, err := s.tickets.ReferenceExists(ctx, raffleID, code)
		if err != nil {
			return "", fmt.Errorf("failed to check reference code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique reference code")
}

func (s *ReservationService) ttl(raffle *models.Raffle, ttlMinutes int) time.Duration {
	minutes := 60
	switch {
	case raffle.ReservationTTLMinutes > 0:
		minutes = raffle.ReservationTTLMinutes
	case s.cfg.TTLMinutes > 0:
		minutes = s.cfg.TTLMinutes
	}
	if ttlMinutes > 0 && ttlMinutes < minutes {
		minutes = ttlMinutes
	}
	if minutes > MaxReservationTTLMinutes {
		minutes = MaxReservationTTLMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// sortNumbers orders zero-padded ticket numbers numerically
func sortNumbers(numbers []string) {
	sort.Slice(numbers, func(i, j int) bool {
		a, _ := strconv.Atoi(numbers[i])
		b, _ := strconv.Atoi(numbers[j])
		return a < b
	})
}
