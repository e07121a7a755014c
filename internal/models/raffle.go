package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RaffleStatus represents the lifecycle state of a raffle
type RaffleStatus string

const (
	RaffleStatusDraft     RaffleStatus = "draft"
	RaffleStatusActive    RaffleStatus = "active"
	RaffleStatusPaused    RaffleStatus = "paused"
	RaffleStatusCompleted RaffleStatus = "completed"
	RaffleStatusCanceled  RaffleStatus = "canceled"
)

// Valid reports whether s is one of the known raffle states.
func (s RaffleStatus) Valid() bool {
	switch s {
	case RaffleStatusDraft, RaffleStatusActive, RaffleStatusPaused, RaffleStatusCompleted, RaffleStatusCanceled:
		return true
	}
	return false
}

// Raffle owns the numbering space [1, TotalTickets]
type Raffle struct {
	ID                    string       `bson:"_id" json:"id"`
	OrganizationID        string       `bson:"organizationId" json:"organizationId"`
	Title                 string       `bson:"title" json:"title"`
	TotalTickets          int          `bson:"totalTickets" json:"totalTickets"`
	NumberWidth           int          `bson:"numberWidth" json:"numberWidth"`
	TicketPrice           float64      `bson:"ticketPrice" json:"ticketPrice"`
	Currency              string       `bson:"currency" json:"currency"`
	ReservationTTLMinutes int          `bson:"reservationTtlMinutes" json:"reservationTtlMinutes"`
	Status                RaffleStatus `bson:"status" json:"status"`
	Prizes                []Prize      `bson:"prizes" json:"prizes"`
	CreatedAt             time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// Width returns the zero-padding width of ticket numbers.
func (r *Raffle) Width() int {
	w := len(strconv.Itoa(r.TotalTickets))
	if r.NumberWidth > w {
		return r.NumberWidth
	}
	return w
}

// FormatNumber renders n left-zero-padded to the raffle's width.
func (r *Raffle) FormatNumber(n int) string {
	return fmt.Sprintf("%0*d", r.Width(), n)
}

// ParseNumber validates a ticket number string against the numbering space and
// returns its canonical padded form together with its integer value.
func (r *Raffle) ParseNumber(s string) (string, int, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return "", 0, fmt.Errorf("ticket number %q is not numeric", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return "", 0, fmt.Errorf("ticket number %q is not numeric", s)
	}
	if n < 1 || n > r.TotalTickets {
		return "", 0, fmt.Errorf("ticket number %q is outside 1..%d", s, r.TotalTickets)
	}
	return r.FormatNumber(n), n, nil
}

// FindPrize returns the prize with the given id.
func (r *Raffle) FindPrize(id string) (Prize, bool) {
	for _, p := range r.Prizes {
		if p.ID == id {
			return p, true
		}
	}
	return Prize{}, false
}

// AcceptsReservations reports whether buyers may claim tickets.
func (r *Raffle) AcceptsReservations() bool {
	return r.Status == RaffleStatusActive
}

// PrizeInput is one prize of a new raffle, in draw order
type PrizeInput struct {
	Title string `json:"title" binding:"required"`
}

// CreateRaffleRequest defines the structure for creating a raffle
type CreateRaffleRequest struct {
	Title                 string       `json:"title" binding:"required"`
	TotalTickets          int          `json:"totalTickets" binding:"required,min=1"`
	NumberWidth           int          `json:"numberWidth"`
	TicketPrice           float64      `json:"ticketPrice" binding:"min=0"`
	Currency              string       `json:"currency"`
	ReservationTTLMinutes int          `json:"reservationTtlMinutes" binding:"min=0"`
	Prizes                []PrizeInput `json:"prizes"`
}

// UpdateRaffleStatusRequest defines the structure for a status change
type UpdateRaffleStatusRequest struct {
	Status RaffleStatus `json:"status" binding:"required"`
}
