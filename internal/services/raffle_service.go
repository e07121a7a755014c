package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/ArowuTest/raffle-backend/pkg/entitlement"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// LimitsProvider returns the plan limits of an organization
type LimitsProvider interface {
	GetLimits(ctx context.Context, organizationID string) (*entitlement.Limits, error)
}

// RaffleService manages raffle definitions
type RaffleService struct {
	raffles      repositories.RaffleRepository
	entitlements LimitsProvider
}

// NewRaffleService creates a new RaffleService
func NewRaffleService(raffles repositories.RaffleRepository, entitlements LimitsProvider) *RaffleService {
	return &RaffleService{raffles: raffles, entitlements: entitlements}
}

// Create stores a new draft raffle for the actor's organization once the
// organization's plan allows it
func (s *RaffleService) Create(ctx context.Context, actor models.Actor, req models.CreateRaffleRequest) (*models.Raffle, error) {
	if actor.UserID == "" || actor.OrganizationID == "" {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	if req.TotalTickets < 1 {
		return nil, fmt.Errorf("%w: totalTickets must be positive", ErrInvalidRequest)
	}
	if req.TicketPrice < 0 || req.ReservationTTLMinutes < 0 || req.NumberWidth < 0 {
		return nil, fmt.Errorf("%w: negative values are not allowed", ErrInvalidRequest)
	}
	if req.ReservationTTLMinutes > MaxReservationTTLMinutes {
		return nil, fmt.Errorf("%w: reservationTtlMinutes must be at most %d", ErrInvalidRequest, MaxReservationTTLMinutes)
	}

	if s.entitlements != nil {
		limits, err := s.entitlements.GetLimits(ctx, actor.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to check entitlement: %w", err)
		}
		existing, err := s.raffles.CountByOrganization(ctx, actor.OrganizationID)
		if err != nil {
			return nil, err
		}
		if !limits.AllowsRaffle(existing, req.TotalTickets) {
			slog.Warn("Raffle creation refused by entitlement", "organizationId", actor.OrganizationID, "plan", limits.Plan, "existing", existing, "totalTickets", req.TotalTickets)
			return nil, ErrEntitlementExceeded
		}
	}

	prizes := make([]models.Prize, 0, len(req.Prizes))
	for i, p := range req.Prizes {
		t := strings.TrimSpace(p.Title)
		if t == "" {
			return nil, fmt.Errorf("%w: prize %d has no title", ErrInvalidRequest, i+1)
		}
		prizes = append(prizes, models.Prize{ID: uuid.NewString(), Title: t, Position: i + 1})
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	raffle := &models.Raffle{
		OrganizationID:        actor.OrganizationID,
		Title:                 title,
		TotalTickets:          req.TotalTickets,
		NumberWidth:           req.NumberWidth,
		TicketPrice:           req.TicketPrice,
		Currency:              currency,
		ReservationTTLMinutes: req.ReservationTTLMinutes,
		Status:                models.RaffleStatusDraft,
		Prizes:                prizes,
	}
	if err := s.raffles.Create(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to create raffle: %w", err)
	}
	slog.Info("Raffle created", "raffleId", raffle.ID, "organizationId", raffle.OrganizationID, "totalTickets", raffle.TotalTickets, "prizes", len(prizes), "by", actor.Email)
	return raffle, nil
}

// Get returns a raffle by id
func (s *RaffleService) Get(ctx context.Context, raffleID string) (*models.Raffle, error) {
	return loadRaffle(ctx, s.raffles, raffleID)
}

// UpdateStatus moves a raffle through its lifecycle. A completed raffle only
// reopens when one of its draws is deleted; canceled is final.
func (s *RaffleService) UpdateStatus(ctx context.Context, actor models.Actor, raffleID string, status models.RaffleStatus) (*models.Raffle, error) {
	raffle, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown raffle status %q", ErrInvalidRequest, status)
	}
	if !statusTransitionAllowed(raffle.Status, status) {
		return nil, fmt.Errorf("%w: cannot move raffle from %s to %s", ErrInvalidRequest, raffle.Status, status)
	}
	if raffle.Status == status {
		return raffle, nil
	}
	if err := s.raffles.UpdateStatus(ctx, raffleID, status); err != nil {
		return nil, fmt.Errorf("failed to update raffle status: %w", err)
	}
	slog.Info("Raffle status updated", "raffleId", raffleID, "from", raffle.Status, "to", status, "by", actor.Email)
	raffle.Status = status
	return raffle, nil
}

func statusTransitionAllowed(from, to models.RaffleStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case models.RaffleStatusDraft:
		return to == models.RaffleStatusActive || to == models.RaffleStatusCanceled
	case models.RaffleStatusActive:
		return to == models.RaffleStatusPaused || to == models.RaffleStatusCompleted || to == models.RaffleStatusCanceled
	case models.RaffleStatusPaused:
		return to == models.RaffleStatusActive || to == models.RaffleStatusCompleted || to == models.RaffleStatusCanceled
	}
	return false
}
