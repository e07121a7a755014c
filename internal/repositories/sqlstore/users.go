package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/google/uuid"
)

var _ repositories.AdminUserRepository = (*adminUserRepository)(nil)
var _ repositories.SystemSettingsRepository = (*settingsRepository)(nil)

type adminUserRepository struct {
	db *sql.DB
}

const adminUserColumns = `id, organization_id, first_name, last_name, email, password_hash, role, created_at, updated_at`

func (r *adminUserRepository) Create(ctx context.Context, u *models.AdminUser) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_users (`+adminUserColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.OrganizationID, u.FirstName, u.LastName, u.Email, u.Password, u.Role,
		toMillis(now), toMillis(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrAlreadyExists
		}
		return fmt.Errorf("create admin user: %w", err)
	}
	return nil
}

func (r *adminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	return r.findOne(ctx, `email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *adminUserRepository) FindByID(ctx context.Context, id string) (*models.AdminUser, error) {
	return r.findOne(ctx, `id = ?`, id)
}

func (r *adminUserRepository) findOne(ctx context.Context, where string, arg any) (*models.AdminUser, error) {
	var (
		u                    models.AdminUser
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE `+where, arg).
		Scan(&u.ID, &u.OrganizationID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &u.Role,
			&createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

// settingsID keys the single settings row
const settingsID = "global"

type settingsRepository struct {
	db             *sql.DB
	defaultGateway string
}

func (r *settingsRepository) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	var (
		s                    models.SystemSettings
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT notification_gateway, updated_by, created_at, updated_at FROM system_settings WHERE id = ?`,
		settingsID,
	).Scan(&s.NotificationGateway, &s.UpdatedBy, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		now := time.Now().UTC()
		return &models.SystemSettings{NotificationGateway: r.defaultGateway, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)
	return &s, nil
}

func (r *settingsRepository) UpdateNotificationGateway(ctx context.Context, gateway string, updatedBy string) error {
	now := toMillis(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO system_settings (id, notification_gateway, updated_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   notification_gateway = excluded.notification_gateway,
		   updated_by = excluded.updated_by,
		   updated_at = excluded.updated_at`,
		settingsID, gateway, updatedBy, now, now)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}
