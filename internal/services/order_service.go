package services

import (
	"context"
	"fmt"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
)

// OrderService builds order read models from the claims sharing a reference
type OrderService struct {
	raffles repositories.RaffleRepository
	tickets repositories.TicketRepository
	now     Clock
}

// NewOrderService creates a new OrderService
func NewOrderService(raffles repositories.RaffleRepository, tickets repositories.TicketRepository, clock Clock) *OrderService {
	if clock == nil {
		clock = systemClock
	}
	return &OrderService{raffles: raffles, tickets: tickets, now: clock}
}

// Lookup returns the order behind a reference code. The code is the buyer's
// only key to their order.
func (s *OrderService) Lookup(ctx context.Context, raffleID, reference string) (*models.OrderSummary, error) {
	reference = NormalizeReference(reference)
	if reference == "" {
		return nil, ErrMissingReferenceCode
	}
	if _, err := loadRaffle(ctx, s.raffles, raffleID); err != nil {
		return nil, err
	}
	claims, err := s.tickets.FindByReference(ctx, raffleID, reference)
	if err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return nil, ErrOrderNotFound
	}
	return models.SummarizeOrder(claims, s.now()), nil
}

// List returns a page of live orders, newest first. Pending and review orders
// are both reserved in storage and are told apart by their proof, so their
// pages may come back shorter than limit.
func (s *OrderService) List(ctx context.Context, actor models.Actor, raffleID string, status models.OrderStatus, page, limit int) ([]*models.OrderSummary, error) {
	if _, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	var claimStatus models.TicketStatus
	switch status {
	case "":
	case models.OrderStatusPending, models.OrderStatusReview:
		claimStatus = models.TicketStatusReserved
	case models.OrderStatusSold:
		claimStatus = models.TicketStatusSold
	default:
		return nil, fmt.Errorf("%w: unknown order status %q", ErrInvalidRequest, status)
	}

	now := s.now()
	refs, err := s.tickets.ListOrderReferences(ctx, raffleID, claimStatus, now, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	orders := make([]*models.OrderSummary, 0, len(refs))
	for _, ref := range refs {
		claims, err := s.tickets.FindByReference(ctx, raffleID, ref)
		if err != nil {
			return nil, err
		}
		summary := models.SummarizeOrder(claims, now)
		if summary == nil {
			continue
		}
		if status != "" && summary.Status != status {
			continue
		}
		orders = append(orders, summary)
	}
	return orders, nil
}
