package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
)

func TestReserveThenSecondReserveFails(t *testing.T) {
	e := newEnv()
	r := e.addRaffle(3)
	ctx := context.Background()

	res, err := e.reservations.Reserve(ctx, r.ID, []string{"1", "2", "3"}, testBuyer, 0)
	if err != nil {
		t.Fatalf("reserve all: %v", err)
	}
	if !IsReferenceCode(res.ReferenceCode) {
		t.Fatalf("expected a reference code, got %q", res.ReferenceCode)
	}
	if len(res.Claims) != 3 {
		t.Fatalf("expected 3 claims, got %d", len(res.Claims))
	}
	for _, c := range res.Claims {
		if c.PaymentReference != res.ReferenceCode || c.Status != models.TicketStatusReserved {
			t.Fatalf("unexpected claim %+v", c)
		}
	}
	if res.OrderTotal != 15 {
		t.Fatalf("expected order total 15, got %v", res.OrderTotal)
	}

	_, err = e.reservations.Reserve(ctx, r.ID, []string{"1"}, testBuyer, 0)
	var shortfall *InsufficientAvailabilityError
	if !errors.As(err, &shortfall) {
		t.Fatalf("expected InsufficientAvailabilityError, got %v", err)
	}
	if len(shortfall.Unavailable) != 1 || shortfall.Unavailable[0] != "1" {
		t.Fatalf("expected ticket 1 unavailable, got %v", shortfall.Unavailable)
	}
	if got := e.tickets.reservedUnder(r.ID, res.ReferenceCode); len(got) != 3 {
		t.Fatalf("first reservation was disturbed: %v", got)
	}
	if len(e.notifications.ofType(models.NotificationReservationCreated)) != 1 {
		t.Fatal("expected exactly one reservation notification")
	}
}

func TestConcurrentOverlappingReservations(t *testing.T) {
	for trial := 0; trial < 50; trial++ {
		e := newEnv()
		r := e.addRaffle(3)
		ctx := context.Background()

		requests := [][]string{{"1", "2"}, {"2", "3"}}
		results := make([]*models.Reservation, 2)
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := range requests {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = e.reservations.Reserve(ctx, r.ID, requests[i], testBuyer, 0)
			}(i)
		}
		wg.Wait()

		winners := 0
		var winner *models.Reservation
		for i := range requests {
			if errs[i] == nil {
				winners++
				winner = results[i]
				continue
			}
			var shortfall *InsufficientAvailabilityError
			if !errors.As(errs[i], &shortfall) {
				t.Fatalf("trial %d: unexpected error %v", trial, errs[i])
			}
			if len(shortfall.Unavailable) != 1 || shortfall.Unavailable[0] != "2" {
				t.Fatalf("trial %d: expected shortfall on ticket 2, got %v", trial, shortfall.Unavailable)
			}
		}
		if winners != 1 {
			t.Fatalf("trial %d: expected exactly one winner, got %d (%v)", trial, winners, errs)
		}

		// only the winner's numbers may be held
		held, _ := e.tickets.ActiveNumbers(ctx, r.ID, e.clock.Now())
		if len(held) != 2 {
			t.Fatalf("trial %d: expected 2 held numbers, got %v", trial, held)
		}
		for _, n := range held {
			claim, _ := e.tickets.FindByNumber(ctx, r.ID, n)
			if claim.PaymentReference != winner.ReferenceCode {
				t.Fatalf("trial %d: number %s held by %s, not the winner", trial, n, claim.PaymentReference)
			}
		}
	}
}

func TestFailedReservationReleasesOnlyItsOwnClaims(t *testing.T) {
	e := newEnv()
	r := e.addRaffle(5)
	ctx := context.Background()

	rivalBuyer := models.BuyerInfo{Name: "Rival", Email: "rival@example.com"}
	var rival *models.Reservation
	var rivalErr error
	fired := false
	// another buyer grabs ticket 2 while this reservation is mid-claim
	e.tickets.beforeClaim = func(number string) {
		if number == "2" && !fired {
			fired = true
			rival, rivalErr = e.reservations.Reserve(ctx, r.ID, []string{"2"}, rivalBuyer, 0)
		}
	}

	_, err := e.reservations.Reserve(ctx, r.ID, []string{"3", "1", "2"}, testBuyer, 0)
	var shortfall *InsufficientAvailabilityError
	if !errors.As(err, &shortfall) {
		t.Fatalf("expected InsufficientAvailabilityError, got %v", err)
	}
	if rivalErr != nil {
		t.Fatalf("rival reserve: %v", rivalErr)
	}

	held, _ := e.tickets.ActiveNumbers(ctx, r.ID, e.clock.Now())
	if len(held) != 1 || held[0] != "2" {
		t.Fatalf("expected only ticket 2 held, got %v", held)
	}
	claim, err := e.tickets.FindByNumber(ctx, r.ID, "2")
	if err != nil {
		t.Fatalf("find ticket 2: %v", err)
	}
	if claim.PaymentReference != rival.ReferenceCode {
		t.Fatalf("rival lost ticket 2 to %s", claim.PaymentReference)
	}
}

func TestExpiredReservationCanBeReclaimed(t *testing.T) {
	e := newEnv()
	r := e.addRaffle(10)
	ctx := context.Background()

	first, err := e.reservations.Reserve(ctx, r.ID, []string{"4"}, testBuyer, 10)
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if want := e.clock.Now().Add(10 * time.Minute); !first.ReservedUntil.Equal(want) {
		t.Fatalf("expected reservedUntil %v, got %v", want, first.ReservedUntil)
	}
	view, _ := e.inventory.Status(ctx, r.ID, "4")
	if view.Status != models.TicketStatusReserved {
		t.Fatalf("expected reserved, got %s", view.Status)
	}

	e.clock.Advance(11 * time.Minute)
	view, _ = e.inventory.Status(ctx, r.ID, "04")
	if view.Status != models.TicketStatusAvailable {
		t.Fatalf("expected an expired reservation to read as available, got %s", view.Status)
	}

	second, err := e.reservations.Reserve(ctx, r.ID, []string{"4"}, models.BuyerInfo{Name: "Late Buyer"}, 0)
	if err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	if second.ReferenceCode == first.ReferenceCode {
		t.Fatal("expected a new reference code")
	}
	if _, err := e.proofs.SubmitProof(ctx, r.ID, first.ReferenceCode, "https://proofs.example.com/a.png", ""); err == nil {
		t.Fatal("expected proof for the superseded reference to fail")
	}
}

func TestReserveTTLFallbacks(t *testing.T) {
	e := newEnv()
	r := e.addRaffle(10)
	ctx := context.Background()

	res, err := e.reservations.Reserve(ctx, r.ID, []string{"1"}, testBuyer, 0)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if want := e.clock.Now().Add(60 * time.Minute); !res.ReservedUntil.Equal(want) {
		t.Fatalf("expected the configured TTL, got %v", res.ReservedUntil)
	}

	e.raffles.raffles[r.ID].ReservationTTLMinutes = 30
	res, err = e.reservations.Reserve(ctx, r.ID, []string{"2"}, testBuyer, 0)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if want := e.clock.Now().Add(30 * time.Minute); !res.ReservedUntil.Equal(want) {
		t.Fatalf("expected the raffle TTL, got %v", res.ReservedUntil)
	}
}

func TestReserveTTLOnlyShortensHold(t *testing.T) {
	e := newEnv()
	r := e.addRaffle(10)
	ctx := context.Background()

	tests := []struct {
		number string
		ttl    int
		want   time.Duration
	}{
		{"1", 5, 5 * time.Minute},
		{"2", 90, 60 * time.Minute},
		{"3", 52560000, 60 * time.Minute},
		{"4", 1 << 40, 60 * time.Minute},
	}
	for _, tt := range tests {
		res, err := e.reservations.Reserve(ctx, r.ID, []string{tt.number}, testBuyer, tt.ttl)
		if err != nil {
			t.Fatalf("reserve %s: %v", tt.number, err)
		}
		if want := e.clock.Now().Add(tt.want); !res.ReservedUntil.Equal(want) {
			t.Fatalf("ttl %d: expected reservedUntil %v, got %v", tt.ttl, want, res.ReservedUntil)
		}
	}

	e.raffles.raffles[r.ID].ReservationTTLMinutes = 1 << 40
	res, err := e.reservations.Reserve(ctx, r.ID, []string{"5"}, testBuyer, 0)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if want := e.clock.Now().Add(MaxReservationTTLMinutes * time.Minute); !res.ReservedUntil.Equal(want) {
		t.Fatalf("expected the hold capped at %v, got %v", want, res.ReservedUntil)
	}

	// the capped hold still lapses and the reclaimer frees it
	e.clock.Advance(MaxReservationTTLMinutes*time.Minute + time.Hour)
	view, _ := e.inventory.Status(ctx, r.ID, "5")
	if view.Status != models.TicketStatusAvailable {
		t.Fatalf("expected the hold to lapse, got %s", view.Status)
	}
}

func TestReserveValidation(t *testing.T) {
	e := newEnv()
	r := e.addRaffle(10)
	ctx := context.Background()

	cases := []struct {
		name    string
		numbers []string
		buyer   models.BuyerInfo
		want    error
	}{
		{"empty", nil, testBuyer, ErrInvalidRequest},
		{"no buyer name", []string{"1"}, models.BuyerInfo{Email: "x@example.com"}, ErrInvalidRequest},
		{"out of range", []string{"11"}, testBuyer, ErrInvalidTicketNumber},
		{"zero", []string{"0"}, testBuyer, ErrInvalidTicketNumber},
		{"not numeric", []string{"abc"}, testBuyer, ErrInvalidTicketNumber},
		{"signed", []string{"+7"}, testBuyer, ErrInvalidTicketNumber},
		{"duplicate", []string{"3", "03"}, testBuyer, ErrInvalidTicketNumber},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.reservations.Reserve(ctx, r.ID, tc.numbers, tc.buyer, 0); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if held, _ := e.tickets.ActiveNumbers(ctx, r.ID, e.clock.Now()); len(held) != 0 {
		t.Fatalf("rejected requests left claims behind: %v", held)
	}
}

func TestReserveRequiresActiveRaffle(t *testing.T) {
	e := newEnv()
	r := e.addRaffle(10)
	e.raffles.raffles[r.ID].Status = models.RaffleStatusPaused
	if _, err := e.reservations.Reserve(context.Background(), r.ID, []string{"1"}, testBuyer, 0); !errors.Is(err, ErrRaffleNotOpen) {
		t.Fatalf("expected ErrRaffleNotOpen, got %v", err)
	}
}

func TestReserveEnforcesOrderLimit(t *testing.T) {
	e := newEnv()
	r := e.addRaffle(100)
	numbers := make([]string, 51)
	for i := range numbers {
		numbers[i] = r.FormatNumber(i + 1)
	}
	if _, err := e.reservations.Reserve(context.Background(), r.ID, numbers, testBuyer, 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest above the order limit, got %v", err)
	}
}

func TestQuickPickReservesSampledNumbers(t *testing.T) {
	e := newEnv()
	r := e.addRaffle(8)
	ctx := context.Background()

	res, err := e.reservations.QuickPick(ctx, r.ID, 3, []string{"1", "2"}, testBuyer)
	if err != nil {
		t.Fatalf("quick pick: %v", err)
	}
	if len(res.Claims) != 3 {
		t.Fatalf("expected 3 claims, got %d", len(res.Claims))
	}
	for _, c := range res.Claims {
		if c.TicketNumber == "1" || c.TicketNumber == "2" {
			t.Fatalf("quick pick returned excluded number %s", c.TicketNumber)
		}
	}

	// only 3 numbers remain outside the exclusion
	if _, err := e.reservations.QuickPick(ctx, r.ID, 4, []string{"1", "2"}, testBuyer); err == nil {
		t.Fatal("expected quick pick to run out of numbers")
	}
}

func TestReclaimerPurgesExpiredRows(t *testing.T) {
	e := newEnv()
	r := e.addRaffle(10)
	ctx := context.Background()

	if _, err := e.reservations.Reserve(ctx, r.ID, []string{"1", "2"}, testBuyer, 5); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	live, err := e.reservations.Reserve(ctx, r.ID, []string{"3"}, testBuyer, 60)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	reclaimer := NewReclaimer(e.tickets, time.Minute, time.Minute, e.clock.Now)
	e.clock.Advance(6 * time.Minute)
	if n, _ := reclaimer.Sweep(ctx); n != 0 {
		t.Fatalf("expected the grace period to keep rows, purged %d", n)
	}
	e.clock.Advance(time.Minute)
	if n, _ := reclaimer.Sweep(ctx); n != 2 {
		t.Fatalf("expected 2 purged rows, got %d", n)
	}
	if got := e.tickets.reservedUnder(r.ID, live.ReferenceCode); len(got) != 1 {
		t.Fatalf("live reservation was purged: %v", got)
	}
}
