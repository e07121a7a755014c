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

var _ repositories.DrawRepository = (*drawRepository)(nil)

type drawRepository struct {
	db *sql.DB
}

const drawColumns = `id, raffle_id, prize_id, ticket_number, winner_name, winner_email, winner_phone, winner_city,
	reference, method, draw_type, lottery_number, digits, announced, announced_at, created_by, created_at`

func scanDraw(row rowScanner) (*models.Draw, error) {
	var (
		d                models.Draw
		method, drawType string
		announced        int
		announcedAt      sql.NullInt64
		createdAt        int64
	)
	if err := row.Scan(&d.ID, &d.RaffleID, &d.PrizeID, &d.TicketNumber, &d.Winner.Name, &d.Winner.Email,
		&d.Winner.Phone, &d.Winner.City, &d.Reference, &method, &drawType, &d.LotteryNumber, &d.Digits,
		&announced, &announcedAt, &d.CreatedBy, &createdAt,
	); err != nil {
		return nil, err
	}
	d.Method = models.DrawMethod(method)
	d.DrawType = models.DrawType(drawType)
	d.Announced = announced != 0
	d.AnnouncedAt = timePtr(announcedAt)
	d.CreatedAt = fromMillis(createdAt)
	return &d, nil
}

func (r *drawRepository) Create(ctx context.Context, draw *models.Draw) error {
	if draw.ID == "" {
		draw.ID = uuid.NewString()
	}
	if draw.CreatedAt.IsZero() {
		draw.CreatedAt = time.Now().UTC()
	}
	announced := 0
	if draw.Announced {
		announced = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO draws (`+drawColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		draw.ID, draw.RaffleID, draw.PrizeID, draw.TicketNumber, draw.Winner.Name, draw.Winner.Email,
		draw.Winner.Phone, draw.Winner.City, draw.Reference, string(draw.Method), string(draw.DrawType),
		draw.LotteryNumber, draw.Digits, announced, nullMillis(draw.AnnouncedAt), draw.CreatedBy,
		toMillis(draw.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrAlreadyExists
		}
		return fmt.Errorf("create draw: %w", err)
	}
	return nil
}

func (r *drawRepository) FindByID(ctx context.Context, id string) (*models.Draw, error) {
	d, err := scanDraw(r.db.QueryRowContext(ctx, `SELECT `+drawColumns+` FROM draws WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

func (r *drawRepository) FindByRaffle(ctx context.Context, raffleID string) ([]*models.Draw, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+drawColumns+` FROM draws WHERE raffle_id = ? ORDER BY created_at, id`, raffleID)
	if err != nil {
		return nil, fmt.Errorf("query draws: %w", err)
	}
	defer rows.Close()

	draws := []*models.Draw{}
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, err
		}
		draws = append(draws, d)
	}
	return draws, rows.Err()
}

func (r *drawRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM draws WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete draw: %w", err)
	}
	return requireRow(res)
}

func (r *drawRepository) MarkAnnounced(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE draws SET announced = 1, announced_at = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("announce draw: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
