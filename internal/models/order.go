package models

import "time"

// OrderStatus is the aggregate status of the claims sharing a reference
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"  // reserved, no proof yet
	OrderStatusReview  OrderStatus = "review"   // reserved, proof attached
	OrderStatusSold    OrderStatus = "sold"
	OrderStatusExpired OrderStatus = "expired"
)

// OrderSummary is the read model of an order: all claims sharing a payment reference
type OrderSummary struct {
	Reference        string      `json:"reference"`
	RaffleID         string      `json:"raffleId"`
	Status           OrderStatus `json:"status"`
	Buyer            BuyerInfo   `json:"buyer"`
	TicketNumbers    []string    `json:"ticketNumbers"`
	OrderTotal       *float64    `json:"orderTotal,omitempty"`
	ProofURL         string      `json:"proofUrl,omitempty"`
	ProofSubmittedAt *time.Time  `json:"proofSubmittedAt,omitempty"`
	ReservedUntil    *time.Time  `json:"reservedUntil,omitempty"`
	SoldAt           *time.Time  `json:"soldAt,omitempty"`
}

// SummarizeOrder folds the claims of one reference into an OrderSummary.
func SummarizeOrder(claims []*TicketClaim, now time.Time) *OrderSummary {
	if len(claims) == 0 {
		return nil
	}
	first := claims[0]
	o := &OrderSummary{
		Reference:  first.PaymentReference,
		RaffleID:   first.RaffleID,
		Buyer:      first.Buyer,
		OrderTotal: first.OrderTotal,
	}
	sold := 0
	live := 0
	for _, c := range claims {
		o.TicketNumbers = append(o.TicketNumbers, c.TicketNumber)
		if c.PaymentProofURL != "" {
			o.ProofURL = c.PaymentProofURL
			o.ProofSubmittedAt = c.ProofSubmittedAt
		}
		switch c.EffectiveStatus(now) {
		case TicketStatusSold:
			sold++
			o.SoldAt = c.SoldAt
		case TicketStatusReserved:
			live++
			o.ReservedUntil = c.ReservedUntil
		}
	}
	switch {
	case sold > 0:
		o.Status = OrderStatusSold
	case live == 0:
		o.Status = OrderStatusExpired
	case o.ProofURL != "":
		o.Status = OrderStatusReview
	default:
		o.Status = OrderStatusPending
	}
	return o
}

// OrderTotals is the per-reference aggregate used for revenue
type OrderTotals struct {
	Reference  string   `bson:"_id" json:"reference"`
	Tickets    int64    `bson:"tickets" json:"tickets"`
	OrderTotal *float64 `bson:"orderTotal" json:"orderTotal,omitempty"`
}

// RaffleStats are the staff-facing inventory figures of a raffle
type RaffleStats struct {
	RaffleID string       `json:"raffleId"`
	Counts   TicketCounts `json:"counts"`
	Orders   int          `json:"orders"`
	Revenue  float64      `json:"revenue"`
	Currency string       `json:"currency"`
}

// Reservation is the result of a successful reserve call
type Reservation struct {
	ReferenceCode string         `json:"referenceCode"`
	RaffleID      string         `json:"raffleId"`
	Claims        []*TicketClaim `json:"claims"`
	ReservedUntil time.Time      `json:"reservedUntil"`
	OrderTotal    float64        `json:"orderTotal"`
}
