package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// SystemSettingsService manages runtime-switchable settings
type SystemSettingsService struct {
	settingsRepo repositories.SystemSettingsRepository
	gateways     []string
}

// NewSystemSettingsService creates a new SystemSettingsService. gateways are
// the names that may be selected as default.
func NewSystemSettingsService(settingsRepo repositories.SystemSettingsRepository, gateways []string) *SystemSettingsService {
	return &SystemSettingsService{settingsRepo: settingsRepo, gateways: gateways}
}

// GetSettings retrieves the current system settings
func (s *SystemSettingsService) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	return s.settingsRepo.GetSettings(ctx)
}

// AvailableGateways lists the selectable gateways
func (s *SystemSettingsService) AvailableGateways() []string {
	return s.gateways
}

// UpdateNotificationGateway switches the default gateway. Admins only.
func (s *SystemSettingsService) UpdateNotificationGateway(ctx context.Context, actor models.Actor, gateway string) (*models.SystemSettings, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	gateway = strings.ToUpper(strings.TrimSpace(gateway))
	known := false
	for _, g := range s.gateways {
		if g == gateway {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: unknown gateway %q", ErrInvalidRequest, gateway)
	}
	if err := s.settingsRepo.UpdateNotificationGateway(ctx, gateway, actor.Email); err != nil {
		return nil, fmt.Errorf("failed to update notification gateway: %w", err)
	}
	slog.Info("Notification gateway updated", "gateway", gateway, "updatedBy", actor.Email)
	return s.settingsRepo.GetSettings(ctx)
}
