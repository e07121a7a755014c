package models

import (
	"time"
)

// TicketStatus is the derived status of a ticket number
type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "available"
	TicketStatusReserved  TicketStatus = "reserved"
	TicketStatusSold      TicketStatus = "sold"
	TicketStatusCanceled  TicketStatus = "canceled"
)

// BuyerInfo is the contact snapshot captured at reservation time
type BuyerInfo struct {
	Name  string `bson:"name" json:"name" binding:"required"`
	Email string `bson:"email" json:"email" binding:"omitempty,email"`
	Phone string `bson:"phone" json:"phone"`
	City  string `bson:"city,omitempty" json:"city,omitempty"`
}

// TicketClaim records that a ticket number has left "available".
// ReservedUntil is only set while Status is reserved; SoldAt and ApprovedAt
// only once it is sold.
type TicketClaim struct {
	RaffleID         string       `bson:"raffleId" json:"raffleId"`
	TicketNumber     string       `bson:"ticketNumber" json:"ticketNumber"`
	Status           TicketStatus `bson:"status" json:"status"`
	Buyer            BuyerInfo    `bson:"buyer" json:"buyer"`
	ReservedUntil    *time.Time   `bson:"reservedUntil,omitempty" json:"reservedUntil,omitempty"`
	PaymentReference string       `bson:"paymentReference" json:"paymentReference"`
	PaymentProofURL  string       `bson:"paymentProofUrl,omitempty" json:"paymentProofUrl,omitempty"`
	ProofSubmittedAt *time.Time   `bson:"proofSubmittedAt,omitempty" json:"proofSubmittedAt,omitempty"`
	OrderTotal       *float64     `bson:"orderTotal,omitempty" json:"orderTotal,omitempty"`
	ApprovedAt       *time.Time   `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	SoldAt           *time.Time   `bson:"soldAt,omitempty" json:"soldAt,omitempty"`
	CanceledAt       *time.Time   `bson:"canceledAt,omitempty" json:"canceledAt,omitempty"`
	CreatedAt        time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// EffectiveStatus folds lazy expiry and cancellation into "available".
func (c *TicketClaim) EffectiveStatus(now time.Time) TicketStatus {
	if c == nil {
		return TicketStatusAvailable
	}
	switch c.Status {
	case TicketStatusSold:
		return TicketStatusSold
	case TicketStatusReserved:
		if c.ReservedUntil != nil && c.ReservedUntil.After(now) {
			return TicketStatusReserved
		}
	}
	return TicketStatusAvailable
}

// IsActive reports whether the claim currently holds its ticket number.
func (c *TicketClaim) IsActive(now time.Time) bool {
	return c.EffectiveStatus(now) != TicketStatusAvailable
}

// TicketView is the public projection of one ticket number
type TicketView struct {
	Number        string       `json:"number"`
	Status        TicketStatus `json:"status"`
	ReservedUntil *time.Time   `json:"reservedUntil,omitempty"`
}

// ViewOf projects a (possibly nil) claim for number at time now.
func ViewOf(number string, c *TicketClaim, now time.Time) TicketView {
	v := TicketView{Number: number, Status: c.EffectiveStatus(now)}
	if v.Status == TicketStatusReserved {
		v.ReservedUntil = c.ReservedUntil
	}
	return v
}

// TicketFilter narrows a ticket page
type TicketFilter struct {
	Status TicketStatus `form:"status"`
	Query  string       `form:"q"`
}

// TicketPage is one page of the virtual numbering space
type TicketPage struct {
	Tickets []TicketView `json:"tickets"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
	Total   int64        `json:"total"`
}

// TicketCounts are computed by the store, never by paging
type TicketCounts struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Sold      int64 `json:"sold"`
}

// ClaimRequest is one conditional bulk claim against the store
type ClaimRequest struct {
	RaffleID      string
	Numbers       []string
	Buyer         BuyerInfo
	Reference     string
	ReservedUntil time.Time
	OrderTotal    float64
	Now           time.Time
}
