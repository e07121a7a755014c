package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// InventoryService answers read queries over the virtual numbering space.
// Only numbers that left "available" have a row; everything else is derived.
type InventoryService struct {
	raffles repositories.RaffleRepository
	tickets repositories.TicketRepository
	now     Clock
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(raffles repositories.RaffleRepository, tickets repositories.TicketRepository, clock Clock) *InventoryService {
	if clock == nil {
		clock = systemClock
	}
	return &InventoryService{raffles: raffles, tickets: tickets, now: clock}
}

// Status returns the derived status of one ticket number
func (s *InventoryService) Status(ctx context.Context, raffleID, number string) (models.TicketView, error) {
	raffle, err := loadRaffle(ctx, s.raffles, raffleID)
	if err != nil {
		return models.TicketView{}, err
	}
	canonical, _, err := raffle.ParseNumber(number)
	if err != nil {
		return models.TicketView{}, fmt.Errorf("%w: %v", ErrInvalidTicketNumber, err)
	}
	claim, err := s.tickets.FindByNumber(ctx, raffleID, canonical)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return models.TicketView{}, err
	}
	return models.ViewOf(canonical, claim, s.now()), nil
}

// ListPage returns one page of tickets. Available tickets are synthesized
// from the gaps between claim rows.
func (s *InventoryService) ListPage(ctx context.Context, raffleID string, filter models.TicketFilter, page, pageSize int) (*models.TicketPage, error) {
	raffle, err := loadRaffle(ctx, s.raffles, raffleID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	query := strings.TrimSpace(filter.Query)
	for _, r := range query {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: search must be digits", ErrInvalidRequest)
		}
	}
	now := s.now()
	skip := (page - 1) * pageSize
	result := &models.TicketPage{Tickets: []models.TicketView{}, Page: page, Limit: pageSize}

	switch filter.Status {
	case models.TicketStatusReserved, models.TicketStatusSold:
		claims, total, err := s.tickets.ListActive(ctx, raffleID, filter.Status, query, now, skip, pageSize)
		if err != nil {
			return nil, err
		}
		for _, c := range claims {
			result.Tickets = append(result.Tickets, models.ViewOf(c.TicketNumber, c, now))
		}
		result.Total = total
		return result, nil

	case models.TicketStatusAvailable:
		active, err := s.tickets.ActiveNumbers(ctx, raffleID, now)
		if err != nil {
			return nil, err
		}
		held := make(map[string]bool, len(active))
		for _, n := range active {
			held[n] = true
		}
		numbers, total := s.walk(raffle, query, skip, pageSize, func(n string) bool { return !held[n] })
		for _, n := range numbers {
			result.Tickets = append(result.Tickets, models.TicketView{Number: n, Status: models.TicketStatusAvailable})
		}
		result.Total = total
		return result, nil

	case "":
		var numbers []string
		var total int64
		if query == "" {
			total = int64(raffle.TotalTickets)
			for i := skip + 1; i <= raffle.TotalTickets && len(numbers) < pageSize; i++ {
				numbers = append(numbers, raffle.FormatNumber(i))
			}
		} else {
			numbers, total = s.walk(raffle, query, skip, pageSize, func(string) bool { return true })
		}
		claims, err := s.tickets.FindByNumbers(ctx, raffleID, numbers)
		if err != nil {
			return nil, err
		}
		byNumber := make(map[string]*models.TicketClaim, len(claims))
		for _, c := range claims {
			byNumber[c.TicketNumber] = c
		}
		for _, n := range numbers {
			result.Tickets = append(result.Tickets, models.ViewOf(n, byNumber[n], now))
		}
		result.Total = total
		return result, nil
	}
	return nil, fmt.Errorf("%w: unknown status filter %q", ErrInvalidRequest, filter.Status)
}

// walk enumerates 1..TotalTickets in order, keeping numbers that contain query
// and pass keep, and returns the requested window plus the total match count.
func (s *InventoryService) walk(raffle *models.Raffle, query string, skip, limit int, keep func(string) bool) ([]string, int64) {
	numbers := make([]string, 0, limit)
	var total int64
	for i := 1; i <= raffle.TotalTickets; i++ {
		n := raffle.FormatNumber(i)
		if query != "" && !strings.Contains(n, query) {
			continue
		}
		if !keep(n) {
			continue
		}
		if total >= int64(skip) && len(numbers) < limit {
			numbers = append(numbers, n)
		}
		total++
	}
	return numbers, total
}

// Counts returns server-side counts. Available is derived, never paged.
func (s *InventoryService) Counts(ctx context.Context, raffleID string) (models.TicketCounts, error) {
	raffle, err := loadRaffle(ctx, s.raffles, raffleID)
	if err != nil {
		return models.TicketCounts{}, err
	}
	return s.counts(ctx, raffle)
}

func (s *InventoryService) counts(ctx context.Context, raffle *models.Raffle) (models.TicketCounts, error) {
	reserved, sold, err := s.tickets.Counts(ctx, raffle.ID, s.now())
	if err != nil {
		return models.TicketCounts{}, err
	}
	total := int64(raffle.TotalTickets)
	available := total - reserved - sold
	if available < 0 {
		available = 0
	}
	return models.TicketCounts{Total: total, Available: available, Reserved: reserved, Sold: sold}, nil
}

// Stats returns counts and revenue. Revenue counts every reference once,
// using the order total when one was recorded.
func (s *InventoryService) Stats(ctx context.Context, actor models.Actor, raffleID string) (*models.RaffleStats, error) {
	raffle, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID)
	if err != nil {
		return nil, err
	}
	counts, err := s.counts(ctx, raffle)
	if err != nil {
		return nil, err
	}
	totals, err := s.tickets.SoldOrderTotals(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	return &models.RaffleStats{
		RaffleID: raffleID,
		Counts:   counts,
		Orders:   len(totals),
		Revenue:  Revenue(raffle.TicketPrice, totals),
		Currency: raffle.Currency,
	}, nil
}

// Revenue sums order totals once per reference, falling back to
// price × tickets for orders recorded without a total.
func Revenue(ticketPrice float64, totals []models.OrderTotals) float64 {
	var revenue float64
	for _, t := range totals {
		if t.OrderTotal != nil {
			revenue += *t.OrderTotal
			continue
		}
		revenue += ticketPrice * float64(t.Tickets)
	}
	return revenue
}
