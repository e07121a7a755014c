package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/google/uuid"
)

var _ repositories.NotificationRepository = (*notificationRepository)(nil)

type notificationRepository struct {
	db *sql.DB
}

const notificationColumns = `id, raffle_id, reference, type, channel, recipient, subject, content, status,
	gateway, message_id, attempts, status_message, sent_at, created_at, updated_at`

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n                    models.Notification
		typ, channel         string
		sentAt               sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&n.ID, &n.RaffleID, &n.Reference, &typ, &channel, &n.Recipient, &n.Subject,
		&n.Content, &n.Status, &n.Gateway, &n.MessageID, &n.Attempts, &n.StatusMessage, &sentAt,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	n.Type = models.NotificationType(typ)
	n.Channel = models.NotificationChannel(channel)
	n.SentAt = timePtr(sentAt)
	n.CreatedAt = fromMillis(createdAt)
	n.UpdatedAt = fromMillis(updatedAt)
	return &n, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RaffleID, n.Reference, string(n.Type), string(n.Channel), n.Recipient, n.Subject,
		n.Content, n.Status, n.Gateway, n.MessageID, n.Attempts, n.StatusMessage, nullMillis(n.SentAt),
		toMillis(n.CreatedAt), toMillis(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

func (r *notificationRepository) FindPending(ctx context.Context, limit int) ([]*models.Notification, error) {
	return r.list(ctx, `status = ? ORDER BY created_at, id LIMIT ?`, models.NotificationStatusPending, limit)
}

func (r *notificationRepository) FindByReference(ctx context.Context, raffleID, reference string) ([]*models.Notification, error) {
	return r.list(ctx, `raffle_id = ? AND reference = ? ORDER BY created_at, id`, raffleID, reference)
}

func (r *notificationRepository) UpdateStatus(ctx context.Context, id, status, gateway, messageID, statusMessage string) error {
	now := time.Now().UTC()
	var sentAt *time.Time
	if status == models.NotificationStatusSent {
		sentAt = &now
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications
		    SET status = ?, gateway = ?, message_id = ?, status_message = ?,
		        attempts = attempts + 1, sent_at = COALESCE(?, sent_at), updated_at = ?
		  WHERE id = ?`,
		status, gateway, messageID, statusMessage, nullMillis(sentAt), toMillis(now), id)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	return requireRow(res)
}

func (r *notificationRepository) list(ctx context.Context, where string, args ...any) ([]*models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := []*models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
