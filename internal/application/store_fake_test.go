package application

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	repo "github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/apperror"
)

// memData is the backing state of the in-memory store. Entities are stored
// by value so transactions can snapshot with plain map copies.
type memData struct {
	users     map[string]entity.User           // by id
	invites   map[string]entity.InvitationCode // by id
	history   []entity.HistoryInvitation
	packages  map[string]entity.Package      // by id
	payments  map[string]entity.Payment      // by transaction id
	purchases map[string]entity.Purchase     // by transaction id
	subs      map[string]entity.Subscription // by transaction id
	notifs    []entity.Notification
	outbox    []entity.OutboxEvent
}

func newMemData() *memData {
	return &memData{
		users:     map[string]entity.User{},
		invites:   map[string]entity.InvitationCode{},
		packages:  map[string]entity.Package{},
		payments:  map[string]entity.Payment{},
		purchases: map[string]entity.Purchase{},
		subs:      map[string]entity.Subscription{},
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.invites {
		c.invites[k] = v
	}
	for k, v := range d.packages {
		c.packages[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.purchases {
		c.purchases[k] = v
	}
	for k, v := range d.subs {
		c.subs[k] = v
	}
	c.history = append([]entity.HistoryInvitation(nil), d.history...)
	c.notifs = append([]entity.Notification(nil), d.notifs...)
	c.outbox = append([]entity.OutboxEvent(nil), d.outbox...)
	return c
}

// memStore implements repository.Store over memData. InTx runs the callback
// against a snapshot and only publishes it back on success, mirroring
// transactional rollback.
type memStore struct {
	d *memData
}

func newMemStore() *memStore { return &memStore{d: newMemData()} }

func (s *memStore) Users() repo.UserRepository                 { return &memUsers{d: s.d} }
func (s *memStore) Invitations() repo.InvitationRepository     { return &memInvites{d: s.d} }
func (s *memStore) Packages() repo.PackageRepository           { return &memPackages{d: s.d} }
func (s *memStore) Payments() repo.PaymentRepository           { return &memPayments{d: s.d} }
func (s *memStore) Purchases() repo.PurchaseRepository         { return &memPurchases{d: s.d} }
func (s *memStore) Subscriptions() repo.SubscriptionRepository { return &memSubs{d: s.d} }
func (s *memStore) Notifications() repo.NotificationRepository { return &memNotifs{d: s.d} }
func (s *memStore) Outbox() repo.OutboxRepository              { return &memOutbox{d: s.d} }

func (s *memStore) InTx(ctx context.Context, fn func(repo.Store) error) error {
	snapshot := s.d.clone()
	if err := fn(&memStore{d: snapshot}); err != nil {
		return err
	}
	*s.d = *snapshot
	return nil
}

type memUsers struct{ d *memData }

func (r *memUsers) Create(_ context.Context, u *entity.User) error {
	for _, existing := range r.d.users {
		if existing.Email == u.Email || existing.Username == u.Username || existing.Slug == u.Slug {
			return apperror.Conflict("email or username already exists")
		}
	}
	r.d.users[u.ID] = *u
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := r.d.users[id]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	return &u, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.d.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (r *memUsers) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	for _, u := range r.d.users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (r *memUsers) GetBySlug(_ context.Context, slug string) (*entity.User, error) {
	for _, u := range r.d.users {
		if u.Slug == slug {
			out := u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (r *memUsers) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	for _, u := range r.d.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUsers) CountSlugVariants(_ context.Context, slug string) (int, error) {
	n := 0
	for _, u := range r.d.users {
		if u.Slug == slug || isNumericSlugVariant(u.Slug, slug) {
			n++
		}
	}
	return n, nil
}

func isNumericSlugVariant(candidate, base string) bool {
	rest, ok := strings.CutPrefix(candidate, base+"-")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (r *memUsers) List(_ context.Context, page repo.Page) ([]*entity.User, int, error) {
	var all []*entity.User
	for _, u := range r.d.users {
		if u.Status == entity.StatusActive {
			out := u
			all = append(all, &out)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, page), len(all), nil
}

func (r *memUsers) Update(_ context.Context, u *entity.User) error {
	if _, ok := r.d.users[u.ID]; !ok {
		return apperror.NotFound("user not found")
	}
	r.d.users[u.ID] = *u
	return nil
}

func (r *memUsers) SetAccountPackage(_ context.Context, userID string, pkg entity.PackageType) error {
	u, ok := r.d.users[userID]
	if !ok {
		return apperror.NotFound("user not found")
	}
	u.AccountPackage = pkg
	r.d.users[userID] = u
	return nil
}

func (r *memUsers) SetVerified(_ context.Context, userID string) error {
	u, ok := r.d.users[userID]
	if !ok {
		return apperror.NotFound("user not found")
	}
	u.IsVerified = true
	u.VerifyCode = ""
	r.d.users[userID] = u
	return nil
}

func (r *memUsers) SoftDelete(_ context.Context, userID string) error {
	u, ok := r.d.users[userID]
	if !ok {
		return apperror.NotFound("user not found")
	}
	u.Status = entity.StatusDeleted
	r.d.users[userID] = u
	return nil
}

type memInvites struct{ d *memData }

func (r *memInvites) Create(_ context.Context, c *entity.InvitationCode) error {
	for _, existing := range r.d.invites {
		if existing.Code == c.Code {
			return apperror.Conflict("invitation code already exists")
		}
	}
	r.d.invites[c.ID] = *c
	return nil
}

func (r *memInvites) GetByID(_ context.Context, id string) (*entity.InvitationCode, error) {
	c, ok := r.d.invites[id]
	if !ok {
		return nil, apperror.NotFound("invitation code not found")
	}
	return &c, nil
}

func (r *memInvites) GetByCode(_ context.Context, code string) (*entity.InvitationCode, error) {
	for _, c := range r.d.invites {
		if c.Code == code {
			out := c
			return &out, nil
		}
	}
	return nil, apperror.NotFound("invitation code not found")
}

func (r *memInvites) List(_ context.Context, page repo.Page) ([]*entity.InvitationCode, int, error) {
	var all []*entity.InvitationCode
	for _, c := range r.d.invites {
		out := c
		all = append(all, &out)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, page), len(all), nil
}

func (r *memInvites) ConsumeUse(_ context.Context, code string) (bool, error) {
	for id, c := range r.d.invites {
		if c.Code == code {
			if !c.IsActive || c.UsesLeft <= 0 {
				return false, nil
			}
			c.UsesLeft--
			c.UpdatedAt = time.Now().UTC()
			r.d.invites[id] = c
			return true, nil
		}
	}
	return false, nil
}

func (r *memInvites) Deactivate(_ context.Context, id string) error {
	c, ok := r.d.invites[id]
	if !ok {
		return apperror.NotFound("invitation code not found")
	}
	c.IsActive = false
	r.d.invites[id] = c
	return nil
}

func (r *memInvites) AppendHistory(_ context.Context, h *entity.HistoryInvitation) error {
	r.d.history = append(r.d.history, *h)
	return nil
}

func (r *memInvites) GetHistory(_ context.Context, id string) (*entity.HistoryInvitation, error) {
	for _, h := range r.d.history {
		if h.ID == id {
			out := h
			return &out, nil
		}
	}
	return nil, apperror.NotFound("history entry not found")
}

func (r *memInvites) ListHistory(_ context.Context, page repo.Page) ([]*entity.HistoryInvitation, int, error) {
	all := make([]*entity.HistoryInvitation, 0, len(r.d.history))
	for i := range r.d.history {
		all = append(all, &r.d.history[i])
	}
	return paginate(all, page), len(all), nil
}

func (r *memInvites) ListHistoryByCode(_ context.Context, code string) ([]*entity.HistoryInvitation, error) {
	var out []*entity.HistoryInvitation
	for i := range r.d.history {
		if r.d.history[i].Code == code {
			h := r.d.history[i]
			out = append(out, &h)
		}
	}
	return out, nil
}

type memPackages struct{ d *memData }

func (r *memPackages) Create(_ context.Context, p *entity.Package) error {
	for _, existing := range r.d.packages {
		if existing.Name == p.Name {
			return apperror.Conflict("package name already exists")
		}
	}
	r.d.packages[p.ID] = *p
	return nil
}

func (r *memPackages) GetByID(_ context.Context, id string) (*entity.Package, error) {
	p, ok := r.d.packages[id]
	if !ok {
		return nil, apperror.NotFound("package not found")
	}
	return &p, nil
}

func (r *memPackages) List(_ context.Context) ([]*entity.Package, error) {
	var out []*entity.Package
	for _, p := range r.d.packages {
		c := p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memPayments struct{ d *memData }

func (r *memPayments) Create(_ context.Context, p *entity.Payment) error {
	if _, ok := r.d.payments[p.TransactionID]; ok {
		return apperror.Conflict("transaction already exists")
	}
	r.d.payments[p.TransactionID] = *p
	return nil
}

func (r *memPayments) GetByTransactionID(_ context.Context, txnID string) (*entity.Payment, error) {
	p, ok := r.d.payments[txnID]
	if !ok {
		return nil, apperror.NotFound("payment not found")
	}
	return &p, nil
}

func (r *memPayments) ListByUser(_ context.Context, userID string, page repo.Page) ([]*entity.Payment, int, error) {
	var all []*entity.Payment
	for _, p := range r.d.payments {
		if p.UserID == userID {
			c := p
			all = append(all, &c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, page), len(all), nil
}

func (r *memPayments) Settle(_ context.Context, txnID string, status entity.PaymentStatus, paidAt time.Time) error {
	p, ok := r.d.payments[txnID]
	if !ok {
		return apperror.NotFound("payment not found")
	}
	p.Status = status
	p.PaidAt = &paidAt
	p.UpdatedAt = paidAt
	r.d.payments[txnID] = p
	return nil
}

type memPurchases struct{ d *memData }

func (r *memPurchases) Create(_ context.Context, p *entity.Purchase) error {
	if _, ok := r.d.purchases[p.TransactionID]; ok {
		return apperror.Conflict("transaction already exists")
	}
	r.d.purchases[p.TransactionID] = *p
	return nil
}

func (r *memPurchases) GetByTransactionID(_ context.Context, txnID string) (*entity.Purchase, error) {
	p, ok := r.d.purchases[txnID]
	if !ok {
		return nil, apperror.NotFound("purchase not found")
	}
	return &p, nil
}

func (r *memPurchases) MarkSuccess(_ context.Context, txnID string) (bool, error) {
	p, ok := r.d.purchases[txnID]
	if !ok {
		return false, nil
	}
	if p.Status != entity.PurchasePending {
		return false, nil
	}
	p.Status = entity.PurchaseSuccess
	p.UpdatedAt = time.Now().UTC()
	r.d.purchases[txnID] = p
	return true, nil
}

type memSubs struct{ d *memData }

func (r *memSubs) Create(_ context.Context, s *entity.Subscription) error {
	r.d.subs[s.TransactionID] = *s
	return nil
}

func (r *memSubs) GetByTransactionID(_ context.Context, txnID string) (*entity.Subscription, error) {
	s, ok := r.d.subs[txnID]
	if !ok {
		return nil, apperror.NotFound("subscription not found")
	}
	return &s, nil
}

func (r *memSubs) Activate(_ context.Context, txnID string, start, end time.Time) error {
	s, ok := r.d.subs[txnID]
	if !ok {
		return apperror.NotFound("subscription not found")
	}
	s.Status = entity.SubscriptionActive
	s.StartDate = &start
	s.EndDate = &end
	r.d.subs[txnID] = s
	return nil
}

type memNotifs struct{ d *memData }

func (r *memNotifs) Create(_ context.Context, n *entity.Notification) error {
	r.d.notifs = append(r.d.notifs, *n)
	return nil
}

func (r *memNotifs) ListByUser(_ context.Context, userID string, page repo.Page) ([]*entity.Notification, int, error) {
	var all []*entity.Notification
	for i := range r.d.notifs {
		if r.d.notifs[i].UserID == userID {
			n := r.d.notifs[i]
			all = append(all, &n)
		}
	}
	return paginate(all, page), len(all), nil
}

func (r *memNotifs) MarkRead(_ context.Context, id, userID string) error {
	for i := range r.d.notifs {
		if r.d.notifs[i].ID == id && r.d.notifs[i].UserID == userID {
			r.d.notifs[i].IsRead = true
			return nil
		}
	}
	return apperror.NotFound("notification not found")
}

func (r *memNotifs) Delete(_ context.Context, id, userID string) error {
	for i := range r.d.notifs {
		if r.d.notifs[i].ID == id && r.d.notifs[i].UserID == userID {
			r.d.notifs = append(r.d.notifs[:i], r.d.notifs[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("notification not found")
}

type memOutbox struct{ d *memData }

func (r *memOutbox) Enqueue(_ context.Context, e *entity.OutboxEvent) error {
	r.d.outbox = append(r.d.outbox, *e)
	return nil
}

func (r *memOutbox) ListDue(_ context.Context, limit int, now time.Time) ([]*entity.OutboxEvent, error) {
	var out []*entity.OutboxEvent
	for i := range r.d.outbox {
		e := r.d.outbox[i]
		if e.Status == entity.OutboxPending && !e.NextAttemptAt.After(now) {
			out = append(out, &e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memOutbox) MarkProcessed(_ context.Context, id string, at time.Time) error {
	for i := range r.d.outbox {
		if r.d.outbox[i].ID == id {
			r.d.outbox[i].Status = entity.OutboxProcessed
			r.d.outbox[i].ProcessedAt = &at
			return nil
		}
	}
	return apperror.NotFound("outbox event not found")
}

func (r *memOutbox) MarkFailed(_ context.Context, id string, lastError string, nextAttempt time.Time) error {
	for i := range r.d.outbox {
		if r.d.outbox[i].ID == id {
			r.d.outbox[i].Attempts++
			r.d.outbox[i].LastError = lastError
			r.d.outbox[i].NextAttemptAt = nextAttempt
			return nil
		}
	}
	return apperror.NotFound("outbox event not found")
}

func pageAll() repo.Page { return repo.Page{Number: 1, Size: 100} }

func paginate[T any](all []*T, page repo.Page) []*T {
	off := page.Offset()
	if off >= len(all) {
		return nil
	}
	end := off + page.Size
	if page.Size <= 0 || end > len(all) {
		end = len(all)
	}
	return all[off:end]
}

var _ repo.Store = (*memStore)(nil)
