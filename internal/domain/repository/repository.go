package repository

import (
	"context"
	"time"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
)

// Page describes list pagination. Order is "asc" or "desc" on created_at.
type Page struct {
	Number int
	Size   int
	Order  string
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// UserRepository owns user records.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetBySlug(ctx context.Context, slug string) (*entity.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	CountSlugVariants(ctx context.Context, slug string) (int, error)
	List(ctx context.Context, page Page) ([]*entity.User, int, error)
	Update(ctx context.Context, u *entity.User) error
	SetAccountPackage(ctx context.Context, userID string, pkg entity.PackageType) error
	SetVerified(ctx context.Context, userID string) error
	SoftDelete(ctx context.Context, userID string) error
}

// InvitationRepository owns invitation codes and their redemption history.
type InvitationRepository interface {
	Create(ctx context.Context, c *entity.InvitationCode) error
	GetByID(ctx context.Context, id string) (*entity.InvitationCode, error)
	GetByCode(ctx context.Context, code string) (*entity.InvitationCode, error)
	List(ctx context.Context, page Page) ([]*entity.InvitationCode, int, error)
	// ConsumeUse decrements uses_left only while it is still positive and the
	// code is active. It reports whether a use was actually consumed.
	ConsumeUse(ctx context.Context, code string) (bool, error)
	Deactivate(ctx context.Context, id string) error

	AppendHistory(ctx context.Context, h *entity.HistoryInvitation) error
	GetHistory(ctx context.Context, id string) (*entity.HistoryInvitation, error)
	ListHistory(ctx context.Context, page Page) ([]*entity.HistoryInvitation, int, error)
	ListHistoryByCode(ctx context.Context, code string) ([]*entity.HistoryInvitation, error)
}

// PackageRepository owns the package catalog.
type PackageRepository interface {
	Create(ctx context.Context, p *entity.Package) error
	GetByID(ctx context.Context, id string) (*entity.Package, error)
	List(ctx context.Context) ([]*entity.Package, error)
}

// PaymentRepository owns payment attempts.
type PaymentRepository interface {
	Create(ctx context.Context, p *entity.Payment) error
	GetByTransactionID(ctx context.Context, txnID string) (*entity.Payment, error)
	ListByUser(ctx context.Context, userID string, page Page) ([]*entity.Payment, int, error)
	// Settle records the gateway outcome and the settlement time.
	Settle(ctx context.Context, txnID string, status entity.PaymentStatus, paidAt time.Time) error
}

// PurchaseRepository owns package purchase attempts.
type PurchaseRepository interface {
	Create(ctx context.Context, p *entity.Purchase) error
	GetByTransactionID(ctx context.Context, txnID string) (*entity.Purchase, error)
	// MarkSuccess transitions pending -> success and reports whether the row
	// was actually transitioned. Zero rows on an already-successful purchase
	// is what makes activation idempotent.
	MarkSuccess(ctx context.Context, txnID string) (bool, error)
}

// SubscriptionRepository owns entitlement windows.
type SubscriptionRepository interface {
	Create(ctx context.Context, s *entity.Subscription) error
	GetByTransactionID(ctx context.Context, txnID string) (*entity.Subscription, error)
	Activate(ctx context.Context, txnID string, start, end time.Time) error
}

// NotificationRepository owns in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByUser(ctx context.Context, userID string, page Page) ([]*entity.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) error
	Delete(ctx context.Context, id, userID string) error
}

// OutboxRepository records post-commit side effects alongside the primary
// transaction and hands them to the dispatcher.
type OutboxRepository interface {
	Enqueue(ctx context.Context, e *entity.OutboxEvent) error
	ListDue(ctx context.Context, limit int, now time.Time) ([]*entity.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, lastError string, nextAttempt time.Time) error
}

// Store aggregates the repositories behind one unit of work. InTx runs fn
// against a Store bound to a single transaction; fn either commits as a whole
// or aborts as a whole. Only the caller that opened the transaction decides
// its fate - nothing inside fn commits on its own.
type Store interface {
	Users() UserRepository
	Invitations() InvitationRepository
	Packages() PackageRepository
	Payments() PaymentRepository
	Purchases() PurchaseRepository
	Subscriptions() SubscriptionRepository
	Notifications() NotificationRepository
	Outbox() OutboxRepository

	InTx(ctx context.Context, fn func(Store) error) error
}
