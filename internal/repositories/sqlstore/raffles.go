package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/google/uuid"
)

var _ repositories.RaffleRepository = (*raffleRepository)(nil)

type raffleRepository struct {
	db *sql.DB
}

func (r *raffleRepository) Create(ctx context.Context, raffle *models.Raffle) error {
	if raffle.ID == "" {
		raffle.ID = uuid.NewString()
	}
	if raffle.Prizes == nil {
		raffle.Prizes = []models.Prize{}
	}
	prizes, err := json.Marshal(raffle.Prizes)
	if err != nil {
		return fmt.Errorf("encode prizes: %w", err)
	}
	now := time.Now().UTC()
	raffle.CreatedAt = now
	raffle.UpdatedAt = now
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO raffles (
		   id, organization_id, title, total_tickets, number_width, ticket_price,
		   currency, reservation_ttl_minutes, status, prizes_json, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		raffle.ID, raffle.OrganizationID, raffle.Title, raffle.TotalTickets, raffle.NumberWidth,
		raffle.TicketPrice, raffle.Currency, raffle.ReservationTTLMinutes, string(raffle.Status),
		string(prizes), toMillis(now), toMillis(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrAlreadyExists
		}
		return fmt.Errorf("create raffle: %w", err)
	}
	return nil
}

func (r *raffleRepository) FindByID(ctx context.Context, id string) (*models.Raffle, error) {
	var (
		raffle               models.Raffle
		status, prizes       string
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, organization_id, title, total_tickets, number_width, ticket_price,
		        currency, reservation_ttl_minutes, status, prizes_json, created_at, updated_at
		   FROM raffles WHERE id = ?`, id,
	).Scan(&raffle.ID, &raffle.OrganizationID, &raffle.Title, &raffle.TotalTickets, &raffle.NumberWidth,
		&raffle.TicketPrice, &raffle.Currency, &raffle.ReservationTTLMinutes, &status, &prizes,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	raffle.Status = models.RaffleStatus(status)
	if err := json.Unmarshal([]byte(prizes), &raffle.Prizes); err != nil {
		return nil, fmt.Errorf("decode prizes of raffle %s: %w", id, err)
	}
	raffle.CreatedAt = fromMillis(createdAt)
	raffle.UpdatedAt = fromMillis(updatedAt)
	return &raffle, nil
}

func (r *raffleRepository) UpdateStatus(ctx context.Context, id string, status models.RaffleStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE raffles SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toMillis(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update raffle status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *raffleRepository) CountByOrganization(ctx context.Context, orgID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raffles WHERE organization_id = ?`, orgID).Scan(&n)
	return n, err
}
