package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) (*repositories.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raffle.db")
	db, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if db.Remote() {
		t.Fatal("expected a local store")
	}
	return db.Store("MOCK"), path
}

func createRaffle(t *testing.T, store *repositories.Store) *models.Raffle {
	t.Helper()
	raffle := &models.Raffle{
		OrganizationID: "org-1",
		Title:          "Spring Raffle",
		TotalTickets:   100,
		TicketPrice:    5,
		Currency:       "USD",
		Status:         models.RaffleStatusActive,
		Prizes:         []models.Prize{{ID: "p1", Title: "Car", Position: 1}},
	}
	if err := store.Raffles.Create(context.Background(), raffle); err != nil {
		t.Fatalf("create raffle: %v", err)
	}
	return raffle
}

func claim(t *testing.T, store *repositories.Store, raffleID, reference string, now time.Time, ttl time.Duration, numbers ...string) []*models.TicketClaim {
	t.Helper()
	claims, err := store.Tickets.Claim(context.Background(), models.ClaimRequest{
		RaffleID:      raffleID,
		Numbers:       numbers,
		Buyer:         models.BuyerInfo{Name: "Ada", Email: "ada@example.com"},
		Reference:     reference,
		ReservedUntil: now.Add(ttl),
		OrderTotal:    5 * float64(len(numbers)),
		Now:           now,
	})
	if err != nil {
		t.Fatalf("claim %v: %v", numbers, err)
	}
	return claims
}

func TestOpenIsIdempotent(t *testing.T) {
	_, path := openTestStore(t)
	db, err := Open(context.Background(), "file:"+path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	_ = db.Close()

	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected an empty dsn to be refused")
	}
}

func TestRaffleRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	raffle := createRaffle(t, store)

	got, err := store.Raffles.FindByID(ctx, raffle.ID)
	if err != nil {
		t.Fatalf("find raffle: %v", err)
	}
	if got.Title != raffle.Title || len(got.Prizes) != 1 || got.Prizes[0].Title != "Car" {
		t.Fatalf("unexpected raffle %+v", got)
	}
	if err := store.Raffles.UpdateStatus(ctx, raffle.ID, models.RaffleStatusPaused); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ = store.Raffles.FindByID(ctx, raffle.ID)
	if got.Status != models.RaffleStatusPaused {
		t.Fatalf("expected paused, got %s", got.Status)
	}
	if n, _ := store.Raffles.CountByOrganization(ctx, "org-1"); n != 1 {
		t.Fatalf("expected 1 raffle, got %d", n)
	}
	if _, err := store.Raffles.FindByID(ctx, "missing"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimIsAllOrNothing(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	raffle := createRaffle(t, store)

	if got := claim(t, store, raffle.ID, "AAAAAAAA", base, time.Hour, "001", "002"); len(got) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(got))
	}

	// 002 is taken, so 003 must not stay behind under BBBBBBBB
	got := claim(t, store, raffle.ID, "BBBBBBBB", base, time.Hour, "002", "003")
	if len(got) != 1 || got[0].TicketNumber != "003" {
		t.Fatalf("expected only 003 to be claimable, got %+v", got)
	}
	if rows, _ := store.Tickets.FindByReference(ctx, raffle.ID, "BBBBBBBB"); len(rows) != 0 {
		t.Fatalf("a short claim left %d rows behind", len(rows))
	}
	holder, err := store.Tickets.FindByNumber(ctx, raffle.ID, "002")
	if err != nil || holder.PaymentReference != "AAAAAAAA" {
		t.Fatalf("the first claim was disturbed: %+v, %v", holder, err)
	}
	if _, err := store.Tickets.FindByNumber(ctx, raffle.ID, "003"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected 003 to be unclaimed, got %v", err)
	}
}

func TestClaimTakesOverExpiredReservations(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	raffle := createRaffle(t, store)

	claim(t, store, raffle.ID, "AAAAAAAA", base, 10*time.Minute, "010")
	claim(t, store, raffle.ID, "SOLDSOLD", base, 10*time.Minute, "011")
	if n, err := store.Tickets.MarkSold(ctx, raffle.ID, "SOLDSOLD", base); err != nil || n != 1 {
		t.Fatalf("mark sold: %d, %v", n, err)
	}

	later := base.Add(11 * time.Minute)
	got := claim(t, store, raffle.ID, "CCCCCCCC", later, time.Hour, "010")
	if len(got) != 1 {
		t.Fatalf("expected the expired reservation to be taken over, got %+v", got)
	}
	row, _ := store.Tickets.FindByNumber(ctx, raffle.ID, "010")
	if row.PaymentReference != "CCCCCCCC" || row.EffectiveStatus(later) != models.TicketStatusReserved {
		t.Fatalf("unexpected row %+v", row)
	}
	if got := claim(t, store, raffle.ID, "DDDDDDDD", later.Add(24*time.Hour), time.Hour, "011"); len(got) != 0 {
		t.Fatalf("a sold ticket must never be reclaimed, got %+v", got)
	}
}

func TestMarkSoldSkipsLapsedHolds(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	raffle := createRaffle(t, store)

	claim(t, store, raffle.ID, "LAPSED00", base, time.Minute, "031", "032")
	later := base.Add(2 * time.Minute)
	claim(t, store, raffle.ID, "TAKEOVER", later, time.Hour, "031")

	if n, err := store.Tickets.MarkSold(ctx, raffle.ID, "LAPSED00", later); err != nil || n != 0 {
		t.Fatalf("expected no rows sold for a lapsed hold, got %d, %v", n, err)
	}
	left, err := store.Tickets.FindByNumber(ctx, raffle.ID, "032")
	if err != nil {
		t.Fatalf("find 032: %v", err)
	}
	if left.Status != models.TicketStatusReserved || left.EffectiveStatus(later) != models.TicketStatusAvailable {
		t.Fatalf("expected 032 to stay a lapsed hold, got %+v", left)
	}
	if n, _ := store.Tickets.MarkSold(ctx, raffle.ID, "TAKEOVER", later); n != 1 {
		t.Fatalf("expected the live order to sell 1 row, got %d", n)
	}
}

func TestOrderLifecycleQueries(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	raffle := createRaffle(t, store)

	claim(t, store, raffle.ID, "AAAAAAAA", base, time.Hour, "012", "013")
	claim(t, store, raffle.ID, "BBBBBBBB", base.Add(time.Minute), time.Hour, "021")
	claim(t, store, raffle.ID, "CCCCCCCC", base.Add(2*time.Minute), 5*time.Minute, "099")
	now := base.Add(3 * time.Minute)

	if exists, _ := store.Tickets.ReferenceExists(ctx, raffle.ID, "AAAAAAAA"); !exists {
		t.Fatal("expected reference AAAAAAAA to exist")
	}
	if n, _ := store.Tickets.AttachProof(ctx, raffle.ID, "AAAAAAAA", "https://proofs.example.com/a.png", now); n != 2 {
		t.Fatalf("expected proof on 2 rows, got %d", n)
	}
	if n, _ := store.Tickets.MarkSold(ctx, raffle.ID, "AAAAAAAA", now); n != 2 {
		t.Fatalf("expected 2 sold rows, got %d", n)
	}
	if n, _ := store.Tickets.MarkSold(ctx, raffle.ID, "AAAAAAAA", now); n != 0 {
		t.Fatalf("expected a second approval to change nothing, got %d", n)
	}

	reserved, sold, err := store.Tickets.Counts(ctx, raffle.ID, now)
	if err != nil || reserved != 2 || sold != 2 {
		t.Fatalf("expected 2 reserved and 2 sold, got %d/%d (%v)", reserved, sold, err)
	}
	active, _ := store.Tickets.ActiveNumbers(ctx, raffle.ID, now)
	if len(active) != 4 {
		t.Fatalf("expected 4 active numbers, got %v", active)
	}

	page, total, err := store.Tickets.ListActive(ctx, raffle.ID, "", "1", now, 0, 2)
	if err != nil || total != 3 || len(page) != 2 || page[0].TicketNumber != "012" {
		t.Fatalf("unexpected search page %+v total %d (%v)", page, total, err)
	}

	refs, _ := store.Tickets.ListOrderReferences(ctx, raffle.ID, "", now, 0, 10)
	if len(refs) != 3 || refs[0] != "CCCCCCCC" || refs[2] != "AAAAAAAA" {
		t.Fatalf("expected newest first, got %v", refs)
	}
	soldRefs, _ := store.Tickets.ListOrderReferences(ctx, raffle.ID, models.TicketStatusSold, now, 0, 10)
	if len(soldRefs) != 1 || soldRefs[0] != "AAAAAAAA" {
		t.Fatalf("unexpected sold references %v", soldRefs)
	}

	totals, _ := store.Tickets.SoldOrderTotals(ctx, raffle.ID)
	if len(totals) != 1 || totals[0].Tickets != 2 || totals[0].OrderTotal == nil || *totals[0].OrderTotal != 10 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	bySuffix, _ := store.Tickets.SoldBySuffix(ctx, raffle.ID, "13")
	if len(bySuffix) != 1 || bySuffix[0].TicketNumber != "013" {
		t.Fatalf("unexpected suffix match %+v", bySuffix)
	}
	allSold, _ := store.Tickets.SoldBySuffix(ctx, raffle.ID, "")
	if len(allSold) != 2 {
		t.Fatalf("expected 2 sold tickets, got %d", len(allSold))
	}

	if n, _ := store.Tickets.PurgeExpired(ctx, base.Add(time.Hour)); n != 1 {
		t.Fatalf("expected only the short reservation purged, got %d", n)
	}
	if n, _ := store.Tickets.DeleteByReference(ctx, raffle.ID, "AAAAAAAA"); n != 2 {
		t.Fatalf("expected rejecting to delete 2 rows, got %d", n)
	}
	if n, _ := store.Tickets.ReleaseReservation(ctx, raffle.ID, "BBBBBBBB"); n != 1 {
		t.Fatalf("expected 1 released row, got %d", n)
	}
	if active, _ := store.Tickets.ActiveNumbers(ctx, raffle.ID, now); len(active) != 0 {
		t.Fatalf("expected nothing left, got %v", active)
	}
}

func TestDrawUniquePerPrize(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	raffle := createRaffle(t, store)

	draw := &models.Draw{
		RaffleID: raffle.ID, PrizeID: "p1", TicketNumber: "007",
		Winner: models.BuyerInfo{Name: "Ada"}, Method: models.DrawMethodManual, DrawType: models.DrawTypeMainDraw,
		CreatedAt: base,
	}
	if err := store.Draws.Create(ctx, draw); err != nil {
		t.Fatalf("create draw: %v", err)
	}
	again := *draw
	again.ID = ""
	if err := store.Draws.Create(ctx, &again); !errors.Is(err, repositories.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	if err := store.Draws.MarkAnnounced(ctx, draw.ID, base.Add(time.Hour)); err != nil {
		t.Fatalf("announce: %v", err)
	}
	got, err := store.Draws.FindByID(ctx, draw.ID)
	if err != nil || !got.Announced || got.AnnouncedAt == nil || got.Winner.Name != "Ada" {
		t.Fatalf("unexpected draw %+v (%v)", got, err)
	}
	if err := store.Draws.Delete(ctx, draw.ID); err != nil {
		t.Fatalf("delete draw: %v", err)
	}
	if err := store.Draws.Delete(ctx, draw.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationOutbox(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	n := &models.Notification{RaffleID: "r1", Reference: "AAAAAAAA", Type: models.NotificationOrderApproved, Channel: models.ChannelBuyer, Recipient: "ada@example.com"}
	if err := store.Notifications.Create(ctx, n); err != nil {
		t.Fatalf("create notification: %v", err)
	}
	pending, _ := store.Notifications.FindPending(ctx, 10)
	if len(pending) != 1 || pending[0].ID != n.ID {
		t.Fatalf("expected the new notification pending, got %+v", pending)
	}
	if err := store.Notifications.UpdateStatus(ctx, n.ID, models.NotificationStatusSent, "MOCK", "m-1", ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := store.Notifications.FindByID(ctx, n.ID)
	if got.Status != models.NotificationStatusSent || got.Attempts != 1 || got.SentAt == nil {
		t.Fatalf("unexpected notification %+v", got)
	}
	if pending, _ := store.Notifications.FindPending(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %d", len(pending))
	}
	byRef, _ := store.Notifications.FindByReference(ctx, "r1", "AAAAAAAA")
	if len(byRef) != 1 {
		t.Fatalf("expected 1 notification for the reference, got %d", len(byRef))
	}
}

func TestAdminUsersAndSettings(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	user := &models.AdminUser{OrganizationID: "org-1", Email: " Staff@Example.com", Password: "hash", Role: models.RoleAdmin}
	if err := store.AdminUsers.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	dup := &models.AdminUser{OrganizationID: "org-2", Email: "staff@example.com", Password: "hash", Role: models.RoleStaff}
	if err := store.AdminUsers.Create(ctx, dup); !errors.Is(err, repositories.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	got, err := store.AdminUsers.FindByEmail(ctx, "STAFF@example.com")
	if err != nil || got.ID != user.ID {
		t.Fatalf("find by email: %+v, %v", got, err)
	}

	settings, _ := store.Settings.GetSettings(ctx)
	if settings.NotificationGateway != "MOCK" {
		t.Fatalf("expected the default gateway, got %q", settings.NotificationGateway)
	}
	if err := store.Settings.UpdateNotificationGateway(ctx, "WEBHOOK", "staff@example.com"); err != nil {
		t.Fatalf("update gateway: %v", err)
	}
	settings, _ = store.Settings.GetSettings(ctx)
	if settings.NotificationGateway != "WEBHOOK" || settings.UpdatedBy != "staff@example.com" {
		t.Fatalf("unexpected settings %+v", settings)
	}
}
