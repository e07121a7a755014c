package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
)

// SamplerService picks random available ticket numbers for quick pick
type SamplerService struct {
	raffles       repositories.RaffleRepository
	tickets       repositories.TicketRepository
	bulkThreshold int
	now           Clock
}

// NewSamplerService creates a new SamplerService. Requests above
// bulkThreshold use the streaming selection path.
func NewSamplerService(raffles repositories.RaffleRepository, tickets repositories.TicketRepository, bulkThreshold int, clock Clock) *SamplerService {
	if bulkThreshold <= 0 {
		bulkThreshold = 100
	}
	if clock == nil {
		clock = systemClock
	}
	return &SamplerService{raffles: raffles, tickets: tickets, bulkThreshold: bulkThreshold, now: clock}
}

// SampleAvailable returns count distinct available numbers, uniformly chosen
// and in random order, never including any of exclude.
func (s *SamplerService) SampleAvailable(ctx context.Context, raffleID string, count int, exclude []string) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive", ErrInvalidRequest)
	}
	raffle, err := loadRaffle(ctx, s.raffles, raffleID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blocked(ctx, raffle, exclude)
	if err != nil {
		return nil, err
	}
	available := raffle.TotalTickets - len(blocked)
	if available < count {
		return nil, &InsufficientAvailabilityError{Requested: count, Missing: count - available}
	}

	var picked []int
	if count <= s.bulkThreshold {
		picked, err = shuffleSample(raffle.TotalTickets, blocked, count)
	} else {
		picked, err = selectionSample(raffle.TotalTickets, blocked, available, count)
	}
	if err != nil {
		return nil, err
	}
	numbers := make([]string, len(picked))
	for i, n := range picked {
		numbers[i] = raffle.FormatNumber(n)
	}
	return numbers, nil
}

// blocked collects the numbers that are held or excluded
func (s *SamplerService) blocked(ctx context.Context, raffle *models.Raffle, exclude []string) (map[int]bool, error) {
	active, err := s.tickets.ActiveNumbers(ctx, raffle.ID, s.now())
	if err != nil {
		return nil, err
	}
	blocked := make(map[int]bool, len(active)+len(exclude))
	for _, number := range active {
		n, err := strconv.Atoi(number)
		if err != nil {
			continue
		}
		blocked[n] = true
	}
	for _, number := range exclude {
		_, n, err := raffle.ParseNumber(number)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTicketNumber, err)
		}
		blocked[n] = true
	}
	return blocked, nil
}

// shuffleSample materializes the candidates and runs a partial Fisher-Yates.
func shuffleSample(total int, blocked map[int]bool, count int) ([]int, error) {
	candidates := make([]int, 0, total-len(blocked))
	for n := 1; n <= total; n++ {
		if !blocked[n] {
			candidates = append(candidates, n)
		}
	}
	if err := shuffle(candidates, count); err != nil {
		return nil, err
	}
	return candidates[:count], nil
}

// selectionSample streams over 1..total once (Knuth's algorithm S), keeping
// each available number with probability needed/remaining. Memory is O(count).
// The result is in ascending order, so it is shuffled before returning.
func selectionSample(total int, blocked map[int]bool, available, count int) ([]int, error) {
	picked := make([]int, 0, count)
	remaining := available
	for n := 1; n <= total && len(picked) < count; n++ {
		if blocked[n] {
			continue
		}
		need := count - len(picked)
		r, err := randIntn(remaining)
		if err != nil {
			return nil, err
		}
		if r < need {
			picked = append(picked, n)
		}
		remaining--
	}
	if err := shuffle(picked, len(picked)); err != nil {
		return nil, err
	}
	return picked, nil
}
