package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/ArowuTest/raffle-backend/pkg/notifier"
	"golang.org/x/exp/slog"
)

// Outbox records notifications next to the state change that caused them.
// Delivery happens later in NotificationService, so a failed send can never
// undo a reservation, approval or draw.
type Outbox struct {
	repo repositories.NotificationRepository
}

// NewOutbox creates a new Outbox
func NewOutbox(repo repositories.NotificationRepository) *Outbox {
	return &Outbox{repo: repo}
}

// Enqueue stores n as pending. Failures are logged and swallowed.
func (o *Outbox) Enqueue(ctx context.Context, n *models.Notification) {
	if o == nil || o.repo == nil {
		return
	}
	n.Status = models.NotificationStatusPending
	if err := o.repo.Create(context.WithoutCancel(ctx), n); err != nil {
		slog.Error("Failed to enqueue notification", "error", err, "type", n.Type, "raffleId", n.RaffleID, "reference", n.Reference)
	}
}

// buyerRecipient prefers the buyer's email over the phone number
func buyerRecipient(b models.BuyerInfo) string {
	if b.Email != "" {
		return b.Email
	}
	return b.Phone
}

// NotificationService delivers pending outbox entries through the gateway
// chosen in system settings, falling back to the other gateways in order.
type NotificationService struct {
	repo     repositories.NotificationRepository
	settings repositories.SystemSettingsRepository
	gateways []notifier.Gateway
	batch    int
	interval time.Duration
}

// NewNotificationService creates a new NotificationService. Gateways are
// tried in the given order after the configured default.
func NewNotificationService(
	repo repositories.NotificationRepository,
	settings repositories.SystemSettingsRepository,
	gateways []notifier.Gateway,
	batchSize int,
	interval time.Duration,
) *NotificationService {
	if batchSize <= 0 {
		batchSize = 50
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &NotificationService{
		repo:     repo,
		settings: settings,
		gateways: gateways,
		batch:    batchSize,
		interval: interval,
	}
}

// GatewayNames lists the registered gateways
func (s *NotificationService) GatewayNames() []string {
	names := make([]string, 0, len(s.gateways))
	for _, g := range s.gateways {
		names = append(names, g.Name())
	}
	return names
}

// chain orders the gateways with the preferred one first
func (s *NotificationService) chain(preferred string) []notifier.Gateway {
	out := make([]notifier.Gateway, 0, len(s.gateways))
	for _, g := range s.gateways {
		if strings.EqualFold(g.Name(), preferred) {
			out = append(out, g)
		}
	}
	for _, g := range s.gateways {
		if !strings.EqualFold(g.Name(), preferred) {
			out = append(out, g)
		}
	}
	return out
}

// DispatchPending sends one batch of pending notifications
func (s *NotificationService) DispatchPending(ctx context.Context) (sent, failed int, err error) {
	pending, err := s.repo.FindPending(ctx, s.batch)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load pending notifications: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get system settings: %w", err)
	}
	gateways := s.chain(settings.NotificationGateway)

	for _, n := range pending {
		if ctx.Err() != nil {
			return sent, failed, ctx.Err()
		}
		gateway, messageID, sendErr := s.deliver(ctx, gateways, n)
		status, statusMessage := models.NotificationStatusSent, ""
		if sendErr != nil {
			status, statusMessage = models.NotificationStatusFailed, sendErr.Error()
			failed++
			slog.Warn("Notification delivery failed", "error", sendErr, "notificationId", n.ID, "type", n.Type)
		} else {
			sent++
		}
		if err := s.repo.UpdateStatus(ctx, n.ID, status, gateway, messageID, statusMessage); err != nil {
			slog.Error("Failed to record notification status", "error", err, "notificationId", n.ID, "status", status)
		}
	}
	return sent, failed, nil
}

// deliver walks the gateway chain until one accepts the message
func (s *NotificationService) deliver(ctx context.Context, gateways []notifier.Gateway, n *models.Notification) (string, string, error) {
	msg := notifier.Message{
		Recipient: n.Recipient,
		Staff:     n.Channel == models.ChannelStaff,
		Subject:   n.Subject,
		Body:      n.Content,
	}
	if !msg.Staff && msg.Recipient == "" {
		return "", "", errors.New("buyer left no email or phone")
	}
	if len(gateways) == 0 {
		return "", "", errors.New("no notification gateway configured")
	}
	var errs []error
	for _, g := range gateways {
		messageID, err := g.Send(ctx, msg)
		if err == nil {
			return g.Name(), messageID, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", g.Name(), err))
	}
	return gateways[len(gateways)-1].Name(), "", errors.Join(errs...)
}

// Run dispatches on every tick until ctx is done
func (s *NotificationService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	slog.Info("Notification dispatcher started", "interval", s.interval, "gateways", s.GatewayNames())
	for {
		select {
		case <-ctx.Done():
			slog.Info("Notification dispatcher stopped")
			return nil
		case <-ticker.C:
			sent, failed, err := s.DispatchPending(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("Notification dispatch failed", "error", err)
				continue
			}
			if sent+failed > 0 {
				slog.Info("Notifications dispatched", "sent", sent, "failed", failed)
			}
		}
	}
}
