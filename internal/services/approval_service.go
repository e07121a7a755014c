package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// ApprovalResult is the outcome of one approve or reject
type ApprovalResult struct {
	Reference   string `json:"reference"`
	Updated     int64  `json:"updated"`
	AlreadySold bool   `json:"alreadySold,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ApprovalService moves whole orders to sold or back to available. All claims
// of a reference change in one write; different references are independent.
type ApprovalService struct {
	raffles repositories.RaffleRepository
	tickets repositories.TicketRepository
	outbox  *Outbox
	now     Clock
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(raffles repositories.RaffleRepository, tickets repositories.TicketRepository, outbox *Outbox, clock Clock) *ApprovalService {
	if clock == nil {
		clock = systemClock
	}
	return &ApprovalService{raffles: raffles, tickets: tickets, outbox: outbox, now: clock}
}

// Approve marks every reserved claim of reference as sold while the hold is
// live. Approving an order that is already sold changes nothing and is not an
// error; a lapsed hold is refused with ErrReservationExpired.
func (s *ApprovalService) Approve(ctx context.Context, actor models.Actor, raffleID, reference string) (*ApprovalResult, error) {
	raffle, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID)
	if err != nil {
		return nil, err
	}
	return s.approve(ctx, actor, raffle, reference)
}

func (s *ApprovalService) approve(ctx context.Context, actor models.Actor, raffle *models.Raffle, reference string) (*ApprovalResult, error) {
	reference = NormalizeReference(reference)
	if reference == "" {
		return nil, ErrMissingReferenceCode
	}
	updated, err := s.tickets.MarkSold(ctx, raffle.ID, reference, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to approve order: %w", err)
	}
	claims, err := s.tickets.FindByReference(ctx, raffle.ID, reference)
	if err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return nil, ErrOrderNotFound
	}
	result := &ApprovalResult{Reference: reference, Updated: updated}
	if updated == 0 {
		for _, c := range claims {
			if c.Status == models.TicketStatusSold {
				result.AlreadySold = true
				break
			}
		}
		if !result.AlreadySold {
			// the hold lapsed; the buyer has to reserve again
			return nil, ErrReservationExpired
		}
		slog.Info("Order already approved", "raffleId", raffle.ID, "reference", reference, "by", actor.Email)
		return result, nil
	}

	slog.Info("Order approved", "raffleId", raffle.ID, "reference", reference, "tickets", updated, "by", actor.Email)
	buyer := claims[0].Buyer
	s.outbox.Enqueue(ctx, &models.Notification{
		RaffleID:  raffle.ID,
		Reference: reference,
		Type:      models.NotificationOrderApproved,
		Channel:   models.ChannelBuyer,
		Recipient: buyerRecipient(buyer),
		Subject:   fmt.Sprintf("Your tickets for %s are confirmed", raffle.Title),
		Content: fmt.Sprintf("Hi %s, your payment for order %s was approved. Your ticket numbers: %s.",
			buyer.Name, reference, strings.Join(ticketNumbers(claims), ", ")),
	})
	return result, nil
}

// Reject deletes every claim of reference, reserved or sold, so its numbers
// become available again.
func (s *ApprovalService) Reject(ctx context.Context, actor models.Actor, raffleID, reference, reason string) (*ApprovalResult, error) {
	raffle, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID)
	if err != nil {
		return nil, err
	}
	return s.reject(ctx, actor, raffle, reference, reason)
}

func (s *ApprovalService) reject(ctx context.Context, actor models.Actor, raffle *models.Raffle, reference, reason string) (*ApprovalResult, error) {
	reference = NormalizeReference(reference)
	if reference == "" {
		return nil, ErrMissingReferenceCode
	}
	claims, err := s.tickets.FindByReference(ctx, raffle.ID, reference)
	if err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return nil, ErrOrderNotFound
	}
	deleted, err := s.tickets.DeleteByReference(ctx, raffle.ID, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to reject order: %w", err)
	}
	if deleted == 0 {
		return nil, ErrOrderNotFound
	}

	slog.Info("Order rejected", "raffleId", raffle.ID, "reference", reference, "tickets", deleted, "reason", reason, "by", actor.Email)
	buyer := claims[0].Buyer
	content := fmt.Sprintf("Hi %s, your order %s for %s was not approved and its tickets were released.",
		buyer.Name, reference, raffle.Title)
	if reason = strings.TrimSpace(reason); reason != "" {
		content += " Reason: " + reason
	}
	s.outbox.Enqueue(ctx, &models.Notification{
		RaffleID:  raffle.ID,
		Reference: reference,
		Type:      models.NotificationOrderRejected,
		Channel:   models.ChannelBuyer,
		Recipient: buyerRecipient(buyer),
		Subject:   fmt.Sprintf("Your order %s was not approved", reference),
		Content:   content,
	})
	return &ApprovalResult{Reference: reference, Updated: deleted}, nil
}

// ApproveMany approves each reference on its own; one failure does not stop
// the others.
func (s *ApprovalService) ApproveMany(ctx context.Context, actor models.Actor, raffleID string, references []string) ([]ApprovalResult, error) {
	raffle, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID)
	if err != nil {
		return nil, err
	}
	return s.each(references, func(ref string) (*ApprovalResult, error) {
		return s.approve(ctx, actor, raffle, ref)
	}), nil
}

// RejectMany rejects each reference on its own with the same reason
func (s *ApprovalService) RejectMany(ctx context.Context, actor models.Actor, raffleID string, references []string, reason string) ([]ApprovalResult, error) {
	raffle, err := loadManagedRaffle(ctx, s.raffles, actor, raffleID)
	if err != nil {
		return nil, err
	}
	return s.each(references, func(ref string) (*ApprovalResult, error) {
		return s.reject(ctx, actor, raffle, ref, reason)
	}), nil
}

func (s *ApprovalService) each(references []string, fn func(string) (*ApprovalResult, error)) []ApprovalResult {
	normalized := make([]string, len(references))
	for i, r := range references {
		normalized[i] = NormalizeReference(r)
	}
	refs := dedupe(normalized)
	results := make([]ApprovalResult, 0, len(refs))
	for _, ref := range refs {
		res, err := fn(ref)
		if err != nil {
			results = append(results, ApprovalResult{Reference: ref, Error: err.Error()})
			continue
		}
		results = append(results, *res)
	}
	return results
}

func ticketNumbers(claims []*models.TicketClaim) []string {
	out := make([]string, len(claims))
	for i, c := range claims {
		out[i] = c.TicketNumber
	}
	return out
}
