package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

const (
	minLotteryDigits = 2
	maxLotteryDigits = 5
)

// DrawService selects prize winners among sold tickets
type DrawService struct {
	raffles repositories.RaffleRepository
	tickets repositories.TicketRepository
	draws   repositories.DrawRepository
	outbox  *Outbox
	now     Clock
}

// NewDrawService creates a new DrawService
func NewDrawService(
	raffles repositories.RaffleRepository,
	tickets repositories.TicketRepository,
	draws repositories.DrawRepository,
	outbox *Outbox,
	clock Clock,
) *DrawService {
	if clock == nil {
		clock = systemClock
	}
	return &DrawService{raffles: raffles, tickets: tickets, draws: draws, outbox: outbox, now: clock}
}

// lotterySuffix returns the last digits characters of lotteryNumber
func lotterySuffix(raffle *models.Raffle, lotteryNumber string, digits int) (string, error) {
	lotteryNumber = strings.TrimSpace(lotteryNumber)
	if digits < minLotteryDigits || digits > maxLotteryDigits {
		return "", fmt.Errorf("%w: digits must be between %d and %d", ErrInvalidRequest, minLotteryDigits, maxLotteryDigits)
	}
	if digits > raffle.Width() {
		return "", fmt.Errorf("%w: ticket numbers only have %d digits", ErrInvalidRequest, raffle.Width())
	}
	if len(lotteryNumber) < digits {
		return "", fmt.Errorf("%w: lottery number must have at least %d digits", ErrInvalidRequest, digits)
	}
	for _, r := range lotteryNumber {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: lottery number must be digits", ErrInvalidRequest)
		}
	}
	return lotteryNumber[len(lotteryNumber)-digits:], nil
}

// Candidates lists sold tickets whose number ends with the last digits of
// lotteryNumber
func (s *DrawService) Candidates(ctx context.Context, actor models.Actor, raffleID, lotteryNumber string, digits int) ([]*models.TicketClaim, error) {
	raffle, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID)
	if err != nil {
		return nil, err
	}
	suffix, err := lotterySuffix(raffle, lotteryNumber, digits)
	if err != nil {
		return nil, err
	}
	return s.tickets.SoldBySuffix(ctx, raffleID, suffix)
}

// SelectWinner draws one prize. Tickets that already won a prize of this
// raffle are not eligible again. A main draw, or drawing the last remaining
// prize, completes the raffle.
func (s *DrawService) SelectWinner(ctx context.Context, actor models.Actor, raffleID string, req models.DrawRequest) (*models.Draw, error) {
	raffle, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID)
	if err != nil {
		return nil, err
	}
	if raffle.Status == models.RaffleStatusDraft || raffle.Status == models.RaffleStatusCanceled {
		return nil, fmt.Errorf("%w: cannot draw a %s raffle", ErrRaffleNotOpen, raffle.Status)
	}
	if req.DrawType != models.DrawTypePreDraw && req.DrawType != models.DrawTypeMainDraw {
		return nil, fmt.Errorf("%w: unknown draw type %q", ErrInvalidRequest, req.DrawType)
	}
	prize, ok := raffle.FindPrize(req.PrizeID)
	if !ok {
		return nil, ErrPrizeNotFound
	}
	previous, err := s.draws.FindByRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	winners := make(map[string]bool, len(previous))
	for _, d := range previous {
		if d.PrizeID == prize.ID {
			return nil, ErrPrizeAlreadyDrawn
		}
		winners[d.TicketNumber] = true
	}

	var winner *models.TicketClaim
	draw := &models.Draw{
		RaffleID:  raffleID,
		PrizeID:   prize.ID,
		Method:    req.Method,
		DrawType:  req.DrawType,
		CreatedBy: actor.UserID,
		CreatedAt: s.now(),
	}

	switch req.Method {
	case models.DrawMethodManual:
		winner, err = s.soldTicket(ctx, raffle, req.TicketNumber)
		if err != nil {
			return nil, err
		}
		if winners[winner.TicketNumber] {
			return nil, fmt.Errorf("%w: ticket %s already won a prize", ErrInvalidRequest, winner.TicketNumber)
		}

	case models.DrawMethodLottery:
		suffix, err := lotterySuffix(raffle, req.LotteryNumber, req.Digits)
		if err != nil {
			return nil, err
		}
		sold, err := s.tickets.SoldBySuffix(ctx, raffleID, suffix)
		if err != nil {
			return nil, err
		}
		candidates := eligible(sold, winners)
		if req.TicketNumber != "" {
			canonical, _, err := raffle.ParseNumber(req.TicketNumber)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidTicketNumber, err)
			}
			for _, c := range candidates {
				if c.TicketNumber == canonical {
					winner = c
				}
			}
			if winner == nil {
				return nil, fmt.Errorf("%w: ticket %s is not a sold ticket ending in %s", ErrTicketNotSold, canonical, suffix)
			}
		} else {
			switch len(candidates) {
			case 0:
				return nil, ErrNoEligibleTickets
			case 1:
				winner = candidates[0]
			default:
				return nil, &AmbiguousDrawError{Candidates: ticketNumbers(candidates)}
			}
		}
		draw.LotteryNumber = strings.TrimSpace(req.LotteryNumber)
		draw.Digits = req.Digits

	case models.DrawMethodRNG:
		sold, err := s.tickets.SoldBySuffix(ctx, raffleID, "")
		if err != nil {
			return nil, err
		}
		candidates := eligible(sold, winners)
		if len(candidates) == 0 {
			return nil, ErrNoEligibleTickets
		}
		i, err := randIntn(len(candidates))
		if err != nil {
			return nil, err
		}
		winner = candidates[i]

	default:
		return nil, fmt.Errorf("%w: unknown draw method %q", ErrInvalidRequest, req.Method)
	}

	draw.TicketNumber = winner.TicketNumber
	draw.Winner = winner.Buyer
	draw.Reference = winner.PaymentReference
	if err := s.draws.Create(ctx, draw); err != nil {
		if errors.Is(err, repositories.ErrAlreadyExists) {
			return nil, ErrPrizeAlreadyDrawn
		}
		return nil, fmt.Errorf("failed to record draw: %w", err)
	}

	remaining := models.RemainingPrizes(raffle.Prizes, append(previous, draw))
	if draw.DrawType == models.DrawTypeMainDraw || len(remaining) == 0 {
		if err := s.raffles.UpdateStatus(ctx, raffleID, models.RaffleStatusCompleted); err != nil {
			slog.Error("Failed to complete raffle after draw", "error", err, "raffleId", raffleID, "drawId", draw.ID)
		}
	}

	slog.Info("Winner selected", "raffleId", raffleID, "prizeId", prize.ID, "ticket", draw.TicketNumber, "method", draw.Method, "drawType", draw.DrawType, "remainingPrizes", len(remaining))
	s.outbox.Enqueue(ctx, &models.Notification{
		RaffleID:  raffleID,
		Reference: draw.Reference,
		Type:      models.NotificationWinnerDrawn,
		Channel:   models.ChannelStaff,
		Subject:   fmt.Sprintf("Winner for %s", prize.Title),
		Content: fmt.Sprintf("Ticket %s (%s, order %s) won %q in %q.",
			draw.TicketNumber, draw.Winner.Name, draw.Reference, prize.Title, raffle.Title),
	})
	return draw, nil
}

// soldTicket loads a ticket and requires it to be sold
func (s *DrawService) soldTicket(ctx context.Context, raffle *models.Raffle, number string) (*models.TicketClaim, error) {
	canonical, _, err := raffle.ParseNumber(strings.TrimSpace(number))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicketNumber, err)
	}
	claim, err := s.tickets.FindByNumber(ctx, raffle.ID, canonical)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if claim.EffectiveStatus(s.now()) != models.TicketStatusSold {
		return nil, fmt.Errorf("%w: ticket %s", ErrTicketNotSold, canonical)
	}
	return claim, nil
}

func eligible(sold []*models.TicketClaim, winners map[string]bool) []*models.TicketClaim {
	out := make([]*models.TicketClaim, 0, len(sold))
	for _, c := range sold {
		if !winners[c.TicketNumber] {
			out = append(out, c)
		}
	}
	return out
}

// RemainingPrizes lists the prizes that have not been drawn yet
func (s *DrawService) RemainingPrizes(ctx context.Context, raffleID string) ([]models.Prize, error) {
	raffle, err := loadRaffle(ctx, s.raffles, raffleID)
	if err != nil {
		return nil, err
	}
	draws, err := s.draws.FindByRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	return models.RemainingPrizes(raffle.Prizes, draws), nil
}

// ListDraws returns every draw of a raffle with full winner details
func (s *DrawService) ListDraws(ctx context.Context, actor models.Actor, raffleID string) ([]*models.Draw, error) {
	if _, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID); err != nil {
		return nil, err
	}
	return s.draws.FindByRaffle(ctx, raffleID)
}

// PublicDraws returns announced draws without winner contact details
func (s *DrawService) PublicDraws(ctx context.Context, raffleID string) ([]models.PublicDraw, error) {
	if _, err := loadRaffle(ctx, s.raffles, raffleID); err != nil {
		return nil, err
	}
	draws, err := s.draws.FindByRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	out := []models.PublicDraw{}
	for _, d := range draws {
		if d.Announced {
			out = append(out, d.Public())
		}
	}
	return out, nil
}

// DeleteDraw undoes a draw so its prize can be drawn again. A completed
// raffle goes back to paused.
func (s *DrawService) DeleteDraw(ctx context.Context, actor models.Actor, raffleID, drawID string) error {
	raffle, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID)
	if err != nil {
		return err
	}
	if _, err := s.loadDraw(ctx, raffleID, drawID); err != nil {
		return err
	}
	if err := s.draws.Delete(ctx, drawID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrDrawNotFound
		}
		return err
	}
	if raffle.Status == models.RaffleStatusCompleted {
		if err := s.raffles.UpdateStatus(ctx, raffleID, models.RaffleStatusPaused); err != nil {
			return fmt.Errorf("failed to reopen raffle: %w", err)
		}
	}
	slog.Info("Draw deleted", "raffleId", raffleID, "drawId", drawID, "by", actor.Email)
	return nil
}

// Announce publishes a draw and tells the winner
func (s *DrawService) Announce(ctx context.Context, actor models.Actor, raffleID, drawID string) (*models.Draw, error) {
	raffle, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID)
	if err != nil {
		return nil, err
	}
	draw, err := s.loadDraw(ctx, raffleID, drawID)
	if err != nil {
		return nil, err
	}
	if draw.Announced {
		return draw, nil
	}
	now := s.now()
	if err := s.draws.MarkAnnounced(ctx, drawID, now); err != nil {
		return nil, err
	}
	draw.Announced = true
	draw.AnnouncedAt = &now

	prizeTitle := draw.PrizeID
	if prize, ok := raffle.FindPrize(draw.PrizeID); ok {
		prizeTitle = prize.Title
	}
	s.outbox.Enqueue(ctx, &models.Notification{
		RaffleID:  raffleID,
		Reference: draw.Reference,
		Type:      models.NotificationWinnerDrawn,
		Channel:   models.ChannelBuyer,
		Recipient: buyerRecipient(draw.Winner),
		Subject:   fmt.Sprintf("You won %s!", prizeTitle),
		Content: fmt.Sprintf("Congratulations %s, ticket %s won %q in %s. The organizer will contact you.",
			draw.Winner.Name, draw.TicketNumber, prizeTitle, raffle.Title),
	})
	return draw, nil
}

func (s *DrawService) loadDraw(ctx context.Context, raffleID, drawID string) (*models.Draw, error) {
	draw, err := s.draws.FindByID(ctx, drawID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrDrawNotFound
		}
		return nil, err
	}
	if draw.RaffleID != raffleID {
		return nil, ErrDrawNotFound
	}
	return draw, nil
}
