package utils

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/ArowuTest/raffle-backend/internal/services"
	"golang.org/x/exp/slog"
)

// ImportResult summarizes one CSV import
type ImportResult struct {
	TotalRows       int      `json:"totalRows"`
	OrdersImported  int      `json:"ordersImported"`
	TicketsImported int      `json:"ticketsImported"`
	Errors          []string `json:"errors"`
}

type importRow struct {
	line   int
	number string
	buyer  models.BuyerInfo
	amount *float64
}

// SoldTicketImporter loads tickets sold offline (cash, bank desk) into a
// raffle. Rows sharing an order key become one order under a fresh
// reference code and are marked sold right away.
type SoldTicketImporter struct {
	raffles repositories.RaffleRepository
	tickets repositories.TicketRepository
	now     func() time.Time
}

// NewSoldTicketImporter creates a new SoldTicketImporter
func NewSoldTicketImporter(raffles repositories.RaffleRepository, tickets repositories.TicketRepository) *SoldTicketImporter {
	return &SoldTicketImporter{
		raffles: raffles,
		tickets: tickets,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Import reads r as CSV with a header row. Recognized columns are ticket
// (required), name (required), email, phone, city, order and amount.
func (i *SoldTicketImporter) Import(ctx context.Context, raffleID string, r io.Reader) (*ImportResult, error) {
	raffle, err := i.raffles.FindByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load raffle: %w", err)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	ticketIdx := findColumnIndex(header, []string{"Ticket", "Ticket Number", "Number"})
	nameIdx := findColumnIndex(header, []string{"Name", "Buyer", "Buyer Name"})
	emailIdx := findColumnIndex(header, []string{"Email", "E-mail"})
	phoneIdx := findColumnIndex(header, []string{"Phone", "Phone Number", "Mobile"})
	cityIdx := findColumnIndex(header, []string{"City"})
	orderIdx := findColumnIndex(header, []string{"Order", "Order ID", "Receipt"})
	amountIdx := findColumnIndex(header, []string{"Amount", "Order Total", "Paid"})
	if ticketIdx == -1 || nameIdx == -1 {
		return nil, errors.New("CSV must have ticket and name columns")
	}

	result := &ImportResult{Errors: []string{}}
	groups := map[string][]importRow{}
	var order []string
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Line %d: %v", line, err))
			continue
		}
		result.TotalRows++

		number, _, err := raffle.ParseNumber(strings.TrimSpace(cell(row, ticketIdx)))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Line %d: %v", line, err))
			continue
		}
		ir := importRow{
			line:   line,
			number: number,
			buyer: models.BuyerInfo{
				Name:  strings.TrimSpace(cell(row, nameIdx)),
				Email: strings.ToLower(strings.TrimSpace(cell(row, emailIdx))),
				Phone: cleanPhone(cell(row, phoneIdx)),
				City:  strings.TrimSpace(cell(row, cityIdx)),
			},
		}
		if ir.buyer.Name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Line %d: no buyer name", line))
			continue
		}
		if s := strings.TrimSpace(cell(row, amountIdx)); s != "" {
			amount, err := strconv.ParseFloat(s, 64)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Line %d: invalid amount %q", line, s))
				continue
			}
			ir.amount = &amount
		}

		key := strings.TrimSpace(cell(row, orderIdx))
		if key == "" {
			key = fmt.Sprintf("%s|%s|%s", ir.buyer.Name, ir.buyer.Email, ir.buyer.Phone)
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], ir)
	}

	for _, key := range order {
		n, err := i.importOrder(ctx, raffle, groups[key])
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Order %q (line %d): %v", key, groups[key][0].line, err))
			continue
		}
		result.OrdersImported++
		result.TicketsImported += n
	}
	slog.Info("CSV import finished", "raffleId", raffleID, "rows", result.TotalRows, "orders", result.OrdersImported, "tickets", result.TicketsImported, "errors", len(result.Errors))
	return result, nil
}

// importOrder claims and sells the rows of one order
func (i *SoldTicketImporter) importOrder(ctx context.Context, raffle *models.Raffle, rows []importRow) (int, error) {
	reference, err := services.NewReferenceCode()
	if err != nil {
		return 0, err
	}
	numbers := make([]string, 0, len(rows))
	total := 0.0
	haveTotal := false
	for _, r := range rows {
		numbers = append(numbers, r.number)
		if r.amount != nil {
			total += *r.amount
			haveTotal = true
		}
	}
	if !haveTotal {
		total = raffle.TicketPrice * float64(len(numbers))
	}

	now := i.now()
	claims, err := i.tickets.Claim(ctx, models.ClaimRequest{
		RaffleID:      raffle.ID,
		Numbers:       numbers,
		Buyer:         rows[0].buyer,
		Reference:     reference,
		ReservedUntil: now.Add(time.Hour),
		OrderTotal:    total,
		Now:           now,
	})
	if err != nil || len(claims) < len(numbers) {
		if _, relErr := i.tickets.ReleaseReservation(context.WithoutCancel(ctx), raffle.ID, reference); relErr != nil {
			slog.Error("Failed to release partial import", "error", relErr, "reference", reference)
		}
		if err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("only %d of %d tickets were available", len(claims), len(numbers))
	}
	sold, err := i.tickets.MarkSold(ctx, raffle.ID, reference, now)
	if err != nil {
		return 0, fmt.Errorf("failed to mark order %s sold: %w", reference, err)
	}
	return int(sold), nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// findColumnIndex finds the index of a column by possible names
func findColumnIndex(header []string, possibleNames []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range possibleNames {
			if strings.ToLower(name) == h {
				return i
			}
		}
	}
	return -1
}

// cleanPhone keeps the digits of a phone number and a leading +
func cleanPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	plus := strings.HasPrefix(phone, "+")
	phone = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if plus && phone != "" {
		return "+" + phone
	}
	return phone
}
