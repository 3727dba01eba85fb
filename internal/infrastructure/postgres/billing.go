package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	"github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/apperror"
)

type PackageRepository struct {
	q Querier
}

func (r *PackageRepository) Create(ctx context.Context, p *entity.Package) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO packages (name, type, duration_days, price, currency, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, p.Name, p.Type, p.DurationDays, p.Price, p.Currency, p.IsActive)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if isUniqueViolation(err, "") {
			return apperror.Conflict("package already exists")
		}
		return apperror.Internal(err)
	}
	return nil
}

func (r *PackageRepository) GetByID(ctx context.Context, id string) (*entity.Package, error) {
	p := &entity.Package{}
	err := r.q.QueryRow(ctx, `
		SELECT id, name, type, duration_days, price, currency, is_active, created_at, updated_at
		FROM packages WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Type, &p.DurationDays, &p.Price, &p.Currency,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("package not found")
		}
		return nil, apperror.Internal(err)
	}
	return p, nil
}

func (r *PackageRepository) List(ctx context.Context) ([]*entity.Package, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, type, duration_days, price, currency, is_active, created_at, updated_at
		FROM packages WHERE is_active ORDER BY price ASC
	`)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	defer rows.Close()

	var pkgs []*entity.Package
	for rows.Next() {
		p := &entity.Package{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.DurationDays, &p.Price,
			&p.Currency, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, apperror.Internal(err)
		}
		pkgs = append(pkgs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return pkgs, nil
}

var _ repository.PackageRepository = (*PackageRepository)(nil)

type PaymentRepository struct {
	q Querier
}

const paymentColumns = `id, user_id, amount, currency, method,
	COALESCE(description, ''), transaction_id, status, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	p := &entity.Payment{}
	err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.Method,
		&p.Description, &p.TransactionID, &p.Status, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO payments (user_id, amount, currency, method, description, transaction_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, p.UserID, p.Amount, p.Currency, p.Method, nullable(p.Description), p.TransactionID, p.Status)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if isUniqueViolation(err, "") {
			return apperror.Conflict("payment already exists for this transaction")
		}
		return apperror.Internal(err)
	}
	return nil
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, txnID string) (*entity.Payment, error) {
	p, err := scanPayment(r.q.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`, txnID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("payment not found")
		}
		return nil, apperror.Internal(err)
	}
	return p, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string, page repository.Page) ([]*entity.Payment, int, error) {
	var total int
	if err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM payments WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, apperror.Internal(err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE user_id = $1 ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, apperror.Internal(err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return payments, total, nil
}

func (r *PaymentRepository) Settle(ctx context.Context, txnID string, status entity.PaymentStatus, paidAt time.Time) error {
	res, err := r.q.Exec(ctx, `
		UPDATE payments SET status = $1, paid_at = $2, updated_at = now()
		WHERE transaction_id = $3
	`, status, paidAt, txnID)
	if err != nil {
		return apperror.Internal(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound("payment not found")
	}
	return nil
}

var _ repository.PaymentRepository = (*PaymentRepository)(nil)

type PurchaseRepository struct {
	q Querier
}

func (r *PurchaseRepository) Create(ctx context.Context, p *entity.Purchase) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO purchases (user_id, package_id, transaction_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, p.UserID, p.PackageID, p.TransactionID, p.Status)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if isUniqueViolation(err, "") {
			return apperror.Conflict("purchase already exists for this transaction")
		}
		return apperror.Internal(err)
	}
	return nil
}

func (r *PurchaseRepository) GetByTransactionID(ctx context.Context, txnID string) (*entity.Purchase, error) {
	p := &entity.Purchase{}
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, package_id, transaction_id, status, created_at, updated_at
		FROM purchases WHERE transaction_id = $1
	`, txnID).Scan(&p.ID, &p.UserID, &p.PackageID, &p.TransactionID, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("purchase not found")
		}
		return nil, apperror.Internal(err)
	}
	return p, nil
}

// MarkSuccess is the idempotency gate for activation: only a pending purchase
// transitions, and the caller skips every downstream effect when no row moved.
func (r *PurchaseRepository) MarkSuccess(ctx context.Context, txnID string) (bool, error) {
	res, err := r.q.Exec(ctx, `
		UPDATE purchases SET status = 'success', updated_at = now()
		WHERE transaction_id = $1 AND status = 'pending'
	`, txnID)
	if err != nil {
		return false, apperror.Internal(err)
	}
	return res.RowsAffected() > 0, nil
}

var _ repository.PurchaseRepository = (*PurchaseRepository)(nil)

type SubscriptionRepository struct {
	q Querier
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *entity.Subscription) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO subscriptions (purchase_id, user_id, transaction_id, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, s.PurchaseID, s.UserID, s.TransactionID, s.Status, s.StartDate, s.EndDate)
	if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByTransactionID(ctx context.Context, txnID string) (*entity.Subscription, error) {
	s := &entity.Subscription{}
	err := r.q.QueryRow(ctx, `
		SELECT id, purchase_id, user_id, transaction_id, status, start_date, end_date, created_at, updated_at
		FROM subscriptions WHERE transaction_id = $1
	`, txnID).Scan(&s.ID, &s.PurchaseID, &s.UserID, &s.TransactionID, &s.Status,
		&s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("subscription not found")
		}
		return nil, apperror.Internal(err)
	}
	return s, nil
}

func (r *SubscriptionRepository) Activate(ctx context.Context, txnID string, start, end time.Time) error {
	res, err := r.q.Exec(ctx, `
		UPDATE subscriptions SET status = 'active', start_date = $1, end_date = $2, updated_at = now()
		WHERE transaction_id = $3
	`, start, end, txnID)
	if err != nil {
		return apperror.Internal(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound("subscription not found")
	}
	return nil
}

var _ repository.SubscriptionRepository = (*SubscriptionRepository)(nil)
