package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingReferenceCode = errors.New("a reference code is required")
	ErrOrderNotFound        = errors.New("order not found")
	ErrRaffleNotFound       = errors.New("raffle not found")
	ErrRaffleNotOpen        = errors.New("raffle is not accepting reservations")
	ErrInvalidTicketNumber  = errors.New("invalid ticket number")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPrizeNotFound        = errors.New("prize not found")
	ErrPrizeAlreadyDrawn    = errors.New("prize has already been drawn")
	ErrTicketNotSold        = errors.New("ticket is not sold")
	ErrAmbiguousDraw        = errors.New("several sold tickets match the lottery number")
	ErrNoEligibleTickets    = errors.New("no eligible sold tickets")
	ErrDrawNotFound         = errors.New("draw not found")
	ErrForbidden            = errors.New("not allowed to manage this raffle")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEntitlementExceeded  = errors.New("organization entitlement exceeded")
	ErrReservationExpired   = errors.New("reservation has expired")
)

// InsufficientAvailabilityError reports that a reservation or a sample could
// not be satisfied. Unavailable lists the requested numbers that were lost.
type InsufficientAvailabilityError struct {
	Requested   int
	Missing     int
	Unavailable []string
}

func (e *InsufficientAvailabilityError) Error() string {
	if len(e.Unavailable) == 0 {
		return fmt.Sprintf("insufficient availability: requested %d, %d short", e.Requested, e.Missing)
	}
	return fmt.Sprintf("insufficient availability: requested %d, unavailable %s",
		e.Requested, strings.Join(e.Unavailable, ","))
}

// AssociationFailureError means a reference code matched no live reservation.
// The code is returned so the buyer can quote it to support.
type AssociationFailureError struct {
	ReferenceCode string
}

func (e *AssociationFailureError) Error() string {
	return fmt.Sprintf("no live reservation for reference code %s", e.ReferenceCode)
}

// AmbiguousDrawError carries the candidates of a lottery draw that matched
// more than one sold ticket.
type AmbiguousDrawError struct {
	Candidates []string
}

func (e *AmbiguousDrawError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAmbiguousDraw, strings.Join(e.Candidates, ","))
}

func (e *AmbiguousDrawError) Unwrap() error { return ErrAmbiguousDraw }
