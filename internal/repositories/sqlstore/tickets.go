package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
)

var _ repositories.TicketRepository = (*ticketRepository)(nil)

type ticketRepository struct {
	db *sql.DB
}

const claimColumns = `raffle_id, ticket_number, status, buyer_name, buyer_email, buyer_phone, buyer_city,
	reserved_until, payment_reference, payment_proof_url, proof_submitted_at, order_total,
	approved_at, sold_at, canceled_at, created_at, updated_at`

// claimSQL takes a number only when it has no row, a canceled row, or a
// reservation that has run out. RETURNING yields nothing when the WHERE of the
// upsert rejects the existing row.
const claimSQL = `INSERT INTO ticket_claims (
	raffle_id, ticket_number, status, buyer_name, buyer_email, buyer_phone, buyer_city,
	reserved_until, payment_reference, order_total, created_at, updated_at
) VALUES (?, ?, 'reserved', ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (raffle_id, ticket_number) DO UPDATE SET
	status = 'reserved',
	buyer_name = excluded.buyer_name,
	buyer_email = excluded.buyer_email,
	buyer_phone = excluded.buyer_phone,
	buyer_city = excluded.buyer_city,
	reserved_until = excluded.reserved_until,
	payment_reference = excluded.payment_reference,
	payment_proof_url = '',
	proof_submitted_at = NULL,
	order_total = excluded.order_total,
	approved_at = NULL,
	sold_at = NULL,
	canceled_at = NULL,
	created_at = excluded.created_at,
	updated_at = excluded.updated_at
WHERE ticket_claims.status = 'canceled'
   OR (ticket_claims.status = 'reserved' AND ticket_claims.reserved_until <= ?)
RETURNING ticket_number`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*models.TicketClaim, error) {
	var (
		c                    models.TicketClaim
		status               string
		reservedUntil        sql.NullInt64
		proofSubmittedAt     sql.NullInt64
		orderTotal           sql.NullFloat64
		approvedAt, soldAt   sql.NullInt64
		canceledAt           sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&c.RaffleID, &c.TicketNumber, &status, &c.Buyer.Name, &c.Buyer.Email,
		&c.Buyer.Phone, &c.Buyer.City, &reservedUntil, &c.PaymentReference, &c.PaymentProofURL,
		&proofSubmittedAt, &orderTotal, &approvedAt, &soldAt, &canceledAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	c.Status = models.TicketStatus(status)
	c.ReservedUntil = timePtr(reservedUntil)
	c.ProofSubmittedAt = timePtr(proofSubmittedAt)
	if orderTotal.Valid {
		total := orderTotal.Float64
		c.OrderTotal = &total
	}
	c.ApprovedAt = timePtr(approvedAt)
	c.SoldAt = timePtr(soldAt)
	c.CanceledAt = timePtr(canceledAt)
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return &c, nil
}

func (r *ticketRepository) query(ctx context.Context, where string, args ...any) ([]*models.TicketClaim, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+claimColumns+` FROM ticket_claims WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	claims := []*models.TicketClaim{}
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// activeClause restricts to rows holding their number at now
func activeClause(status models.TicketStatus, now time.Time) (string, []any) {
	switch status {
	case models.TicketStatusSold:
		return `status = 'sold'`, nil
	case models.TicketStatusReserved:
		return `(status = 'reserved' AND reserved_until > ?)`, []any{toMillis(now)}
	}
	return `(status = 'sold' OR (status = 'reserved' AND reserved_until > ?))`, []any{toMillis(now)}
}

// Claim reserves the requested numbers in one transaction. Any number that
// cannot be taken rolls the whole transaction back; the claims that would have
// succeeded are still returned so the caller can tell which numbers were lost.
func (r *ticketRepository) Claim(ctx context.Context, req models.ClaimRequest) ([]*models.TicketClaim, error) {
	if len(req.Numbers) == 0 {
		return []*models.TicketClaim{}, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, claimSQL)
	if err != nil {
		return nil, fmt.Errorf("prepare claim: %w", err)
	}
	defer stmt.Close()

	now := toMillis(req.Now)
	until := toMillis(req.ReservedUntil)
	reservedUntil := fromMillis(until)
	orderTotal := req.OrderTotal

	claims := make([]*models.TicketClaim, 0, len(req.Numbers))
	for _, number := range req.Numbers {
		var got string
		err := stmt.QueryRowContext(ctx,
			req.RaffleID, number, req.Buyer.Name, req.Buyer.Email, req.Buyer.Phone, req.Buyer.City,
			until, req.Reference, orderTotal, now, now, now,
		).Scan(&got)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("claim ticket %s: %w", number, err)
		}
		claims = append(claims, &models.TicketClaim{
			RaffleID:         req.RaffleID,
			TicketNumber:     got,
			Status:           models.TicketStatusReserved,
			Buyer:            req.Buyer,
			ReservedUntil:    &reservedUntil,
			PaymentReference: req.Reference,
			OrderTotal:       &orderTotal,
			CreatedAt:        fromMillis(now),
			UpdatedAt:        fromMillis(now),
		})
	}
	if len(claims) < len(req.Numbers) {
		return claims, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return claims, nil
}

func (r *ticketRepository) ReleaseReservation(ctx context.Context, raffleID, reference string) (int64, error) {
	return r.exec(ctx,
		`DELETE FROM ticket_claims WHERE raffle_id = ? AND payment_reference = ? AND status = 'reserved'`,
		raffleID, reference)
}

func (r *ticketRepository) FindByNumber(ctx context.Context, raffleID, number string) (*models.TicketClaim, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM ticket_claims WHERE raffle_id = ? AND ticket_number = ?`,
		raffleID, number)
	c, err := scanClaim(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *ticketRepository) FindByNumbers(ctx context.Context, raffleID string, numbers []string) ([]*models.TicketClaim, error) {
	if len(numbers) == 0 {
		return []*models.TicketClaim{}, nil
	}
	args := make([]any, 0, len(numbers)+1)
	args = append(args, raffleID)
	for _, n := range numbers {
		args = append(args, n)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(numbers)), ",")
	return r.query(ctx, `raffle_id = ? AND ticket_number IN (`+placeholders+`) ORDER BY ticket_number`, args...)
}

func (r *ticketRepository) FindByReference(ctx context.Context, raffleID, reference string) ([]*models.TicketClaim, error) {
	return r.query(ctx, `raffle_id = ? AND payment_reference = ? ORDER BY ticket_number`, raffleID, reference)
}

func (r *ticketRepository) ReferenceExists(ctx context.Context, raffleID, reference string) (bool, error) {
	var found int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM ticket_claims WHERE raffle_id = ? AND payment_reference = ? LIMIT 1`,
		raffleID, reference).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r *ticketRepository) ListActive(ctx context.Context, raffleID string, status models.TicketStatus, query string, now time.Time, skip, limit int) ([]*models.TicketClaim, int64, error) {
	clause, clauseArgs := activeClause(status, now)
	where := `raffle_id = ? AND ` + clause
	args := append([]any{raffleID}, clauseArgs...)
	if query != "" {
		where += ` AND ticket_number LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(query)+"%")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticket_claims WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count claims: %w", err)
	}
	claims, err := r.query(ctx, where+` ORDER BY ticket_number LIMIT ? OFFSET ?`, append(args, limit, skip)...)
	if err != nil {
		return nil, 0, err
	}
	return claims, total, nil
}

func (r *ticketRepository) ActiveNumbers(ctx context.Context, raffleID string, now time.Time) ([]string, error) {
	clause, clauseArgs := activeClause("", now)
	rows, err := r.db.QueryContext(ctx,
		`SELECT ticket_number FROM ticket_claims WHERE raffle_id = ? AND `+clause,
		append([]any{raffleID}, clauseArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("query active numbers: %w", err)
	}
	defer rows.Close()

	numbers := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (r *ticketRepository) Counts(ctx context.Context, raffleID string, now time.Time) (int64, int64, error) {
	var reserved, sold int64
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN status = 'reserved' AND reserved_until > ? THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN status = 'sold' THEN 1 ELSE 0 END), 0)
		 FROM ticket_claims WHERE raffle_id = ?`,
		toMillis(now), raffleID,
	).Scan(&reserved, &sold)
	if err != nil {
		return 0, 0, fmt.Errorf("count tickets: %w", err)
	}
	return reserved, sold, nil
}

func (r *ticketRepository) AttachProof(ctx context.Context, raffleID, reference, proofURL string, now time.Time) (int64, error) {
	return r.exec(ctx,
		`UPDATE ticket_claims SET payment_proof_url = ?, proof_submitted_at = ?, updated_at = ?
		  WHERE raffle_id = ? AND payment_reference = ? AND status = 'reserved' AND reserved_until > ?`,
		proofURL, toMillis(now), toMillis(now), raffleID, reference, toMillis(now))
}

func (r *ticketRepository) MarkSold(ctx context.Context, raffleID, reference string, now time.Time) (int64, error) {
	return r.exec(ctx,
		`UPDATE ticket_claims SET status = 'sold', sold_at = ?, approved_at = ?, reserved_until = NULL, updated_at = ?
		  WHERE raffle_id = ? AND payment_reference = ? AND status = 'reserved' AND reserved_until > ?`,
		toMillis(now), toMillis(now), toMillis(now), raffleID, reference, toMillis(now))
}

func (r *ticketRepository) DeleteByReference(ctx context.Context, raffleID, reference string) (int64, error) {
	return r.exec(ctx, `DELETE FROM ticket_claims WHERE raffle_id = ? AND payment_reference = ?`, raffleID, reference)
}

func (r *ticketRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.exec(ctx, `DELETE FROM ticket_claims WHERE status = 'reserved' AND reserved_until < ?`, toMillis(cutoff))
}

func (r *ticketRepository) SoldBySuffix(ctx context.Context, raffleID, suffix string) ([]*models.TicketClaim, error) {
	if suffix == "" {
		return r.query(ctx, `raffle_id = ? AND status = 'sold' ORDER BY ticket_number`, raffleID)
	}
	return r.query(ctx,
		`raffle_id = ? AND status = 'sold' AND substr(ticket_number, -?) = ? ORDER BY ticket_number`,
		raffleID, len(suffix), suffix)
}

func (r *ticketRepository) SoldOrderTotals(ctx context.Context, raffleID string) ([]models.OrderTotals, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payment_reference, COUNT(*), MAX(order_total)
		   FROM ticket_claims WHERE raffle_id = ? AND status = 'sold'
		  GROUP BY payment_reference ORDER BY payment_reference`, raffleID)
	if err != nil {
		return nil, fmt.Errorf("query order totals: %w", err)
	}
	defer rows.Close()

	totals := []models.OrderTotals{}
	for rows.Next() {
		var (
			t     models.OrderTotals
			total sql.NullFloat64
		)
		if err := rows.Scan(&t.Reference, &t.Tickets, &total); err != nil {
			return nil, err
		}
		if total.Valid {
			v := total.Float64
			t.OrderTotal = &v
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (r *ticketRepository) ListOrderReferences(ctx context.Context, raffleID string, status models.TicketStatus, now time.Time, skip, limit int) ([]string, error) {
	clause, clauseArgs := activeClause(status, now)
	args := append([]any{raffleID}, clauseArgs...)
	args = append(args, limit, skip)
	rows, err := r.db.QueryContext(ctx,
		`SELECT payment_reference, MIN(created_at) AS first_at
		   FROM ticket_claims WHERE raffle_id = ? AND `+clause+`
		  GROUP BY payment_reference
		  ORDER BY first_at DESC, payment_reference
		  LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	refs := []string{}
	for rows.Next() {
		var (
			ref   string
			first int64
		)
		if err := rows.Scan(&ref, &first); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *ticketRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	return res.RowsAffected()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
