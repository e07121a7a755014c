package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
)

// loadRaffle fetches a raffle and maps a missing one to ErrRaffleNotFound
func loadRaffle(ctx context.Context, raffles repositories.RaffleRepository, raffleID string) (*models.Raffle, error) {
	if raffleID == "" {
		return nil, ErrRaffleNotFound
	}
	raffle, err := raffles.FindByID(ctx, raffleID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRaffleNotFound
		}
		return nil, fmt.Errorf("load raffle %s: %w", raffleID, err)
	}
	return raffle, nil
}

// loadManagedRaffle fetches a raffle the actor is allowed to manage
func loadManagedRaffle(ctx context.Context, raffles repositories.RaffleRepository, actor models.Actor, raffleID string) (*models.Raffle, error) {
	raffle, err := loadRaffle(ctx, raffles, raffleID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(raffle.OrganizationID) {
		return nil, ErrForbidden
	}
	return raffle, nil
}

// dedupe drops empty and repeated strings, keeping the first occurrence
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
