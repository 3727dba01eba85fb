package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/apperror"
)

// Querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx,
// so every repository works identically inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements repository.Store on Postgres. A Store constructed from a
// pool runs each call on the pool; InTx yields a Store where every repository
// is bound to one pgx transaction.
type Store struct {
	pool *pgxpool.Pool
	q    Querier
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

func (s *Store) Users() repository.UserRepository                 { return &UserRepository{q: s.q} }
func (s *Store) Invitations() repository.InvitationRepository     { return &InvitationRepository{q: s.q} }
func (s *Store) Packages() repository.PackageRepository           { return &PackageRepository{q: s.q} }
func (s *Store) Payments() repository.PaymentRepository           { return &PaymentRepository{q: s.q} }
func (s *Store) Purchases() repository.PurchaseRepository         { return &PurchaseRepository{q: s.q} }
func (s *Store) Subscriptions() repository.SubscriptionRepository { return &SubscriptionRepository{q: s.q} }
func (s *Store) Notifications() repository.NotificationRepository {
	return &NotificationRepository{q: s.q}
}
func (s *Store) Outbox() repository.OutboxRepository { return &OutboxRepository{q: s.q} }

// InTx runs fn inside a single transaction. A nested call on an already
// transactional Store joins the ambient transaction instead of opening a new
// one; commit or abort stays with the outermost caller.
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperror.Unavailable("store is not available")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

var _ repository.Store = (*Store)(nil)

// isUniqueViolation reports whether err is a unique-constraint violation,
// optionally on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
