package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// ProofService attaches uploaded payment proofs to reservations. The only
// accepted key is the reference code; names and emails are ambiguous across
// orders of the same buyer.
type ProofService struct {
	raffles repositories.RaffleRepository
	tickets repositories.TicketRepository
	outbox  *Outbox
	now     Clock
}

// NewProofService creates a new ProofService
func NewProofService(raffles repositories.RaffleRepository, tickets repositories.TicketRepository, outbox *Outbox, clock Clock) *ProofService {
	if clock == nil {
		clock = systemClock
	}
	return &ProofService{raffles: raffles, tickets: tickets, outbox: outbox, now: clock}
}

// NormalizeReference trims and upper-cases a buyer supplied reference code
func NormalizeReference(reference string) string {
	return strings.ToUpper(strings.TrimSpace(reference))
}

// SubmitProof stores proofURL on every live reserved claim of referenceCode
// and returns how many claims were updated. Submitting again overwrites the
// URL on the same rows. When buyerEmail is given it must match the order.
func (s *ProofService) SubmitProof(ctx context.Context, raffleID, referenceCode, proofURL, buyerEmail string) (int64, error) {
	reference := NormalizeReference(referenceCode)
	if reference == "" {
		return 0, ErrMissingReferenceCode
	}
	if err := validateProofURL(proofURL); err != nil {
		return 0, err
	}
	raffle, err := loadRaffle(ctx, s.raffles, raffleID)
	if err != nil {
		return 0, err
	}
	now := s.now()

	var claims []*models.TicketClaim
	if email := strings.TrimSpace(buyerEmail); email != "" {
		claims, err = s.tickets.FindByReference(ctx, raffleID, reference)
		if err != nil {
			return 0, err
		}
		matched := false
		for _, c := range claims {
			if c.IsActive(now) && strings.EqualFold(c.Buyer.Email, email) {
				matched = true
				break
			}
		}
		if !matched {
			return 0, &AssociationFailureError{ReferenceCode: reference}
		}
	}

	updated, err := s.tickets.AttachProof(ctx, raffleID, reference, proofURL, now)
	if err != nil {
		return 0, fmt.Errorf("failed to attach payment proof: %w", err)
	}
	if updated == 0 {
		slog.Warn("Payment proof matched no live reservation", "raffleId", raffleID, "reference", reference)
		return 0, &AssociationFailureError{ReferenceCode: reference}
	}

	slog.Info("Payment proof attached", "raffleId", raffleID, "reference", reference, "tickets", updated)
	s.outbox.Enqueue(ctx, &models.Notification{
		RaffleID:  raffleID,
		Reference: reference,
		Type:      models.NotificationProofSubmitted,
		Channel:   models.ChannelStaff,
		Subject:   fmt.Sprintf("Payment proof for %s", reference),
		Content:   fmt.Sprintf("Order %s in %q (%d ticket(s)) is waiting for review: %s", reference, raffle.Title, updated, proofURL),
	})
	return updated, nil
}

func validateProofURL(proofURL string) error {
	u, err := url.ParseRequestURI(strings.TrimSpace(proofURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: payment proof must be an http(s) URL", ErrInvalidRequest)
	}
	return nil
}
