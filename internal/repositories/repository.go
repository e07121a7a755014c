package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
)

// ErrNotFound is returned by every store when a record does not exist
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when a unique key is already taken
var ErrAlreadyExists = errors.New("record already exists")

// RaffleRepository defines the interface for raffle data operations
type RaffleRepository interface {
	Create(ctx context.Context, raffle *models.Raffle) error
	FindByID(ctx context.Context, id string) (*models.Raffle, error)
	UpdateStatus(ctx context.Context, id string, status models.RaffleStatus) error
	CountByOrganization(ctx context.Context, orgID string) (int64, error)
}

// TicketRepository stores claim rows. A ticket number without a row is
// available; rows are keyed uniquely by (raffle, ticket number).
type TicketRepository interface {
	// Claim conditionally moves each requested number that is available (no
	// row, canceled, or reserved past its deadline) to reserved under
	// req.Reference, and returns the claims it managed to write. Stores with
	// multi-row transactions roll back on any shortfall, so a short result
	// leaves nothing behind; other stores rely on ReleaseReservation.
	Claim(ctx context.Context, req models.ClaimRequest) ([]*models.TicketClaim, error)
	// ReleaseReservation deletes reserved rows still carrying reference.
	ReleaseReservation(ctx context.Context, raffleID, reference string) (int64, error)

	FindByNumber(ctx context.Context, raffleID, number string) (*models.TicketClaim, error)
	FindByNumbers(ctx context.Context, raffleID string, numbers []string) ([]*models.TicketClaim, error)
	FindByReference(ctx context.Context, raffleID, reference string) ([]*models.TicketClaim, error)
	ReferenceExists(ctx context.Context, raffleID, reference string) (bool, error)

	// ListActive returns active claims ordered by ticket number.
	ListActive(ctx context.Context, raffleID string, status models.TicketStatus, query string, now time.Time, skip, limit int) ([]*models.TicketClaim, int64, error)
	// ActiveNumbers returns every ticket number that is currently not available.
	ActiveNumbers(ctx context.Context, raffleID string, now time.Time) ([]string, error)
	Counts(ctx context.Context, raffleID string, now time.Time) (reserved, sold int64, err error)

	AttachProof(ctx context.Context, raffleID, reference, proofURL string, now time.Time) (int64, error)
	// MarkSold moves reserved rows of reference whose hold is still live at
	// now to sold and returns how many rows changed.
	MarkSold(ctx context.Context, raffleID, reference string, now time.Time) (int64, error)
	DeleteByReference(ctx context.Context, raffleID, reference string) (int64, error)
	// PurgeExpired deletes reserved rows whose deadline is before cutoff.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)

	SoldBySuffix(ctx context.Context, raffleID, suffix string) ([]*models.TicketClaim, error)
	SoldOrderTotals(ctx context.Context, raffleID string) ([]models.OrderTotals, error)
	// ListOrderReferences returns the distinct references of live claims
	// ordered by creation.
	ListOrderReferences(ctx context.Context, raffleID string, status models.TicketStatus, now time.Time, skip, limit int) ([]string, error)
}

// DrawRepository defines the interface for draw data operations
type DrawRepository interface {
	Create(ctx context.Context, draw *models.Draw) error
	FindByID(ctx context.Context, id string) (*models.Draw, error)
	FindByRaffle(ctx context.Context, raffleID string) ([]*models.Draw, error)
	Delete(ctx context.Context, id string) error
	MarkAnnounced(ctx context.Context, id string, at time.Time) error
}

// NotificationRepository is the notification outbox
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	FindPending(ctx context.Context, limit int) ([]*models.Notification, error)
	UpdateStatus(ctx context.Context, id string, status, gateway, messageID, statusMessage string) error
	FindByReference(ctx context.Context, raffleID, reference string) ([]*models.Notification, error)
}

// AdminUserRepository defines the interface for staff account operations
type AdminUserRepository interface {
	Create(ctx context.Context, adminUser *models.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	FindByID(ctx context.Context, id string) (*models.AdminUser, error)
}

// SystemSettingsRepository defines the interface for system settings operations
type SystemSettingsRepository interface {
	GetSettings(ctx context.Context) (*models.SystemSettings, error)
	UpdateNotificationGateway(ctx context.Context, gateway string, updatedBy string) error
}

// Store bundles every repository of one storage backend
type Store struct {
	Raffles       RaffleRepository
	Tickets       TicketRepository
	Draws         DrawRepository
	Notifications NotificationRepository
	AdminUsers    AdminUserRepository
	Settings      SystemSettingsRepository
	Close         func(ctx context.Context) error
}
