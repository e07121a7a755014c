package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/config"
	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"github.com/ArowuTest/raffle-backend/pkg/notifier"
)

// fakeClock is a settable clock shared by a test and the services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeRaffles struct {
	mu      sync.Mutex
	raffles map[string]*models.Raffle
	nextID  int
}

func newFakeRaffles() *fakeRaffles {
	return &fakeRaffles{raffles: map[string]*models.Raffle{}}
}

func (f *fakeRaffles) Create(_ context.Context, r *models.Raffle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		f.nextID++
		r.ID = fmt.Sprintf("raffle-%d", f.nextID)
	}
	cp := *r
	f.raffles[r.ID] = &cp
	return nil
}

func (f *fakeRaffles) FindByID(_ context.Context, id string) (*models.Raffle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.raffles[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRaffles) UpdateStatus(_ context.Context, id string, status models.RaffleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.raffles[id]
	if !ok {
		return repositories.ErrNotFound
	}
	r.Status = status
	return nil
}

func (f *fakeRaffles) CountByOrganization(_ context.Context, orgID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.raffles {
		if r.OrganizationID == orgID {
			n++
		}
	}
	return n, nil
}

// fakeTickets keeps claim rows in memory. Claim takes the lock once per
// number, like a store that only offers single-row conditional writes.
type fakeTickets struct {
	mu   sync.Mutex
	rows map[string]*models.TicketClaim // raffleID|number
	// beforeClaim, when set, runs between the per-number writes of Claim
	beforeClaim func(number string)
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{rows: map[string]*models.TicketClaim{}}
}

func rowKey(raffleID, number string) string { return raffleID + "|" + number }

func cloneClaim(c *models.TicketClaim) *models.TicketClaim {
	cp := *c
	return &cp
}

func (f *fakeTickets) Claim(_ context.Context, req models.ClaimRequest) ([]*models.TicketClaim, error) {
	claims := []*models.TicketClaim{}
	for _, number := range req.Numbers {
		if f.beforeClaim != nil {
			f.beforeClaim(number)
		}
		f.mu.Lock()
		key := rowKey(req.RaffleID, number)
		existing := f.rows[key]
		if existing != nil && existing.EffectiveStatus(req.Now) != models.TicketStatusAvailable {
			f.mu.Unlock()
			continue
		}
		until := req.ReservedUntil
		total := req.OrderTotal
		row := &models.TicketClaim{
			RaffleID:         req.RaffleID,
			TicketNumber:     number,
			Status:           models.TicketStatusReserved,
			Buyer:            req.Buyer,
			ReservedUntil:    &until,
			PaymentReference: req.Reference,
			OrderTotal:       &total,
			CreatedAt:        req.Now,
			UpdatedAt:        req.Now,
		}
		f.rows[key] = row
		claims = append(claims, cloneClaim(row))
		f.mu.Unlock()
	}
	return claims, nil
}

func (f *fakeTickets) ReleaseReservation(_ context.Context, raffleID, reference string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for key, row := range f.rows {
		if row.RaffleID == raffleID && row.PaymentReference == reference && row.Status == models.TicketStatusReserved {
			delete(f.rows, key)
			n++
		}
	}
	return n, nil
}

func (f *fakeTickets) FindByNumber(_ context.Context, raffleID, number string) (*models.TicketClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[rowKey(raffleID, number)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneClaim(row), nil
}

func (f *fakeTickets) FindByNumbers(_ context.Context, raffleID string, numbers []string) ([]*models.TicketClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.TicketClaim{}
	for _, n := range numbers {
		if row, ok := f.rows[rowKey(raffleID, n)]; ok {
			out = append(out, cloneClaim(row))
		}
	}
	sortClaims(out)
	return out, nil
}

func (f *fakeTickets) filter(keep func(*models.TicketClaim) bool) []*models.TicketClaim {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.TicketClaim{}
	for _, row := range f.rows {
		if keep(row) {
			out = append(out, cloneClaim(row))
		}
	}
	sortClaims(out)
	return out
}

func sortClaims(claims []*models.TicketClaim) {
	sort.Slice(claims, func(i, j int) bool { return claims[i].TicketNumber < claims[j].TicketNumber })
}

func (f *fakeTickets) FindByReference(_ context.Context, raffleID, reference string) ([]*models.TicketClaim, error) {
	return f.filter(func(c *models.TicketClaim) bool {
		return c.RaffleID == raffleID && c.PaymentReference == reference
	}), nil
}

func (f *fakeTickets) ReferenceExists(ctx context.Context, raffleID, reference string) (bool, error) {
	claims, _ := f.FindByReference(ctx, raffleID, reference)
	return len(claims) > 0, nil
}

func active(c *models.TicketClaim, status models.TicketStatus, now time.Time) bool {
	eff := c.EffectiveStatus(now)
	if status == "" {
		return eff != models.TicketStatusAvailable
	}
	return eff == status
}

func (f *fakeTickets) ListActive(_ context.Context, raffleID string, status models.TicketStatus, query string, now time.Time, skip, limit int) ([]*models.TicketClaim, int64, error) {
	all := f.filter(func(c *models.TicketClaim) bool {
		return c.RaffleID == raffleID && active(c, status, now) && strings.Contains(c.TicketNumber, query)
	})
	total := int64(len(all))
	if skip > len(all) {
		skip = len(all)
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], total, nil
}

func (f *fakeTickets) ActiveNumbers(_ context.Context, raffleID string, now time.Time) ([]string, error) {
	out := []string{}
	for _, c := range f.filter(func(c *models.TicketClaim) bool { return c.RaffleID == raffleID && active(c, "", now) }) {
		out = append(out, c.TicketNumber)
	}
	return out, nil
}

func (f *fakeTickets) Counts(_ context.Context, raffleID string, now time.Time) (int64, int64, error) {
	var reserved, sold int64
	for _, c := range f.filter(func(c *models.TicketClaim) bool { return c.RaffleID == raffleID }) {
		switch c.EffectiveStatus(now) {
		case models.TicketStatusReserved:
			reserved++
		case models.TicketStatusSold:
			sold++
		}
	}
	return reserved, sold, nil
}

func (f *fakeTickets) AttachProof(_ context.Context, raffleID, reference, proofURL string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if row.RaffleID == raffleID && row.PaymentReference == reference && row.EffectiveStatus(now) == models.TicketStatusReserved {
			row.PaymentProofURL = proofURL
			at := now
			row.ProofSubmittedAt = &at
			row.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (f *fakeTickets) MarkSold(_ context.Context, raffleID, reference string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if row.RaffleID == raffleID && row.PaymentReference == reference && row.EffectiveStatus(now) == models.TicketStatusReserved {
			row.Status = models.TicketStatusSold
			at := now
			row.SoldAt = &at
			row.ApprovedAt = &at
			row.ReservedUntil = nil
			row.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (f *fakeTickets) DeleteByReference(_ context.Context, raffleID, reference string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for key, row := range f.rows {
		if row.RaffleID == raffleID && row.PaymentReference == reference {
			delete(f.rows, key)
			n++
		}
	}
	return n, nil
}

func (f *fakeTickets) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for key, row := range f.rows {
		if row.Status == models.TicketStatusReserved && row.ReservedUntil != nil && row.ReservedUntil.Before(cutoff) {
			delete(f.rows, key)
			n++
		}
	}
	return n, nil
}

func (f *fakeTickets) SoldBySuffix(_ context.Context, raffleID, suffix string) ([]*models.TicketClaim, error) {
	return f.filter(func(c *models.TicketClaim) bool {
		return c.RaffleID == raffleID && c.Status == models.TicketStatusSold && strings.HasSuffix(c.TicketNumber, suffix)
	}), nil
}

func (f *fakeTickets) SoldOrderTotals(_ context.Context, raffleID string) ([]models.OrderTotals, error) {
	byRef := map[string]*models.OrderTotals{}
	var refs []string
	for _, c := range f.filter(func(c *models.TicketClaim) bool {
		return c.RaffleID == raffleID && c.Status == models.TicketStatusSold
	}) {
		t, ok := byRef[c.PaymentReference]
		if !ok {
			t = &models.OrderTotals{Reference: c.PaymentReference, OrderTotal: c.OrderTotal}
			byRef[c.PaymentReference] = t
			refs = append(refs, c.PaymentReference)
		}
		t.Tickets++
	}
	sort.Strings(refs)
	out := []models.OrderTotals{}
	for _, r := range refs {
		out = append(out, *byRef[r])
	}
	return out, nil
}

func (f *fakeTickets) ListOrderReferences(_ context.Context, raffleID string, status models.TicketStatus, now time.Time, skip, limit int) ([]string, error) {
	first := map[string]time.Time{}
	for _, c := range f.filter(func(c *models.TicketClaim) bool { return c.RaffleID == raffleID && active(c, status, now) }) {
		if t, ok := first[c.PaymentReference]; !ok || c.CreatedAt.Before(t) {
			first[c.PaymentReference] = c.CreatedAt
		}
	}
	refs := make([]string, 0, len(first))
	for r := range first {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool {
		if !first[refs[i]].Equal(first[refs[j]]) {
			return first[refs[i]].After(first[refs[j]])
		}
		return refs[i] < refs[j]
	})
	if skip > len(refs) {
		skip = len(refs)
	}
	end := skip + limit
	if end > len(refs) {
		end = len(refs)
	}
	return refs[skip:end], nil
}

// reservedUnder returns the numbers currently stored under reference
func (f *fakeTickets) reservedUnder(raffleID, reference string) []string {
	out := []string{}
	for _, c := range f.filter(func(c *models.TicketClaim) bool {
		return c.RaffleID == raffleID && c.PaymentReference == reference
	}) {
		out = append(out, c.TicketNumber)
	}
	return out
}

type fakeDraws struct {
	mu     sync.Mutex
	draws  map[string]*models.Draw
	nextID int
}

func newFakeDraws() *fakeDraws {
	return &fakeDraws{draws: map[string]*models.Draw{}}
}

func (f *fakeDraws) Create(_ context.Context, d *models.Draw) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.draws {
		if existing.RaffleID == d.RaffleID && existing.PrizeID == d.PrizeID {
			return repositories.ErrAlreadyExists
		}
	}
	f.nextID++
	d.ID = fmt.Sprintf("draw-%d", f.nextID)
	cp := *d
	f.draws[d.ID] = &cp
	return nil
}

func (f *fakeDraws) FindByID(_ context.Context, id string) (*models.Draw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.draws[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDraws) FindByRaffle(_ context.Context, raffleID string) ([]*models.Draw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Draw{}
	for _, d := range f.draws {
		if d.RaffleID == raffleID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDraws) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.draws[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.draws, id)
	return nil
}

func (f *fakeDraws) MarkAnnounced(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.draws[id]
	if !ok {
		return repositories.ErrNotFound
	}
	d.Announced = true
	d.AnnouncedAt = &at
	return nil
}

type fakeNotifications struct {
	mu     sync.Mutex
	items  []*models.Notification
	failOn bool
}

func (f *fakeNotifications) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn {
		return errors.New("outbox unavailable")
	}
	n.ID = fmt.Sprintf("n-%d", len(f.items)+1)
	cp := *n
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeNotifications) FindByID(_ context.Context, id string) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.items {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeNotifications) FindPending(_ context.Context, limit int) ([]*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Notification{}
	for _, n := range f.items {
		if n.Status == models.NotificationStatusPending && len(out) < limit {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeNotifications) UpdateStatus(_ context.Context, id, status, gateway, messageID, statusMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.items {
		if n.ID == id {
			n.Status = status
			n.Gateway = gateway
			n.MessageID = messageID
			n.StatusMessage = statusMessage
			n.Attempts++
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeNotifications) FindByReference(_ context.Context, raffleID, reference string) ([]*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Notification{}
	for _, n := range f.items {
		if n.RaffleID == raffleID && n.Reference == reference {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeNotifications) ofType(t models.NotificationType) []*models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Notification{}
	for _, n := range f.items {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type fakeSettings struct {
	mu       sync.Mutex
	settings models.SystemSettings
}

func (f *fakeSettings) GetSettings(context.Context) (*models.SystemSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.settings
	return &cp, nil
}

func (f *fakeSettings) UpdateNotificationGateway(_ context.Context, gateway, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings.NotificationGateway = gateway
	f.settings.UpdatedBy = updatedBy
	return nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.AdminUser
}

func (f *fakeUsers) Create(_ context.Context, u *models.AdminUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = map[string]*models.AdminUser{}
	}
	email := strings.ToLower(u.Email)
	if _, ok := f.users[email]; ok {
		return repositories.ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = fmt.Sprintf("user-%d", len(f.users)+1)
	}
	u.Email = email
	cp := *u
	f.users[email] = &cp
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[strings.ToLower(email)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*models.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// recordingGateway records messages and optionally fails
type recordingGateway struct {
	name string
	fail bool
	mu   sync.Mutex
	sent []notifier.Message
}

func (g *recordingGateway) Name() string { return g.name }

func (g *recordingGateway) Send(_ context.Context, msg notifier.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return "", errors.New(g.name + " is down")
	}
	g.sent = append(g.sent, msg)
	return fmt.Sprintf("%s-%d", g.name, len(g.sent)), nil
}

// env wires every service onto one set of fakes
type env struct {
	clock         *fakeClock
	raffles       *fakeRaffles
	tickets       *fakeTickets
	draws         *fakeDraws
	notifications *fakeNotifications
	outbox        *Outbox
	reservations  *ReservationService
	inventory     *InventoryService
	sampler       *SamplerService
	proofs        *ProofService
	approvals     *ApprovalService
	orders        *OrderService
	drawService   *DrawService
}

var staff = models.Actor{UserID: "u1", Email: "staff@example.com", OrganizationID: "org-1", Role: models.RoleAdmin}

func newEnv() *env {
	e := &env{
		clock:         newFakeClock(),
		raffles:       newFakeRaffles(),
		tickets:       newFakeTickets(),
		draws:         newFakeDraws(),
		notifications: &fakeNotifications{},
	}
	clock := Clock(e.clock.Now)
	e.outbox = NewOutbox(e.notifications)
	e.inventory = NewInventoryService(e.raffles, e.tickets, clock)
	e.sampler = NewSamplerService(e.raffles, e.tickets, 10, clock)
	e.reservations = NewReservationService(e.raffles, e.tickets, e.sampler, e.outbox, testReservationConfig(), clock)
	e.proofs = NewProofService(e.raffles, e.tickets, e.outbox, clock)
	e.approvals = NewApprovalService(e.raffles, e.tickets, e.outbox, clock)
	e.orders = NewOrderService(e.raffles, e.tickets, clock)
	e.drawService = NewDrawService(e.raffles, e.tickets, e.draws, e.outbox, clock)
	return e
}

// addRaffle stores an active raffle of total tickets owned by staff's org
func (e *env) addRaffle(total int, prizes ...string) *models.Raffle {
	r := &models.Raffle{
		OrganizationID: staff.OrganizationID,
		Title:          "Spring Raffle",
		TotalTickets:   total,
		TicketPrice:    5,
		Currency:       "USD",
		Status:         models.RaffleStatusActive,
	}
	for i, title := range prizes {
		r.Prizes = append(r.Prizes, models.Prize{ID: fmt.Sprintf("p%d", i+1), Title: title, Position: i + 1})
	}
	_ = e.raffles.Create(context.Background(), r)
	return r
}

var testBuyer = models.BuyerInfo{Name: "Ada Buyer", Email: "ada@example.com", Phone: "+15550100"}

func testReservationConfig() config.ReservationConfig {
	return config.ReservationConfig{
		TTLMinutes:          60,
		MaxTicketsPerOrder:  50,
		ReclaimInterval:     time.Minute,
		ReclaimGrace:        0,
		SampleBulkThreshold: 10,
	}
}
