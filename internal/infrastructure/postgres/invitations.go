package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	"github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/apperror"
)

type InvitationRepository struct {
	q Querier
}

const invitationColumns = `id, code, COALESCE(event, ''), COALESCE(description, ''),
	type, total_uses, uses_left, started_at, expired_at, is_system, is_active,
	created_by, created_at, updated_at`

func scanInvitation(row pgx.Row) (*entity.InvitationCode, error) {
	c := &entity.InvitationCode{}
	err := row.Scan(&c.ID, &c.Code, &c.Event, &c.Description,
		&c.Type, &c.TotalUses, &c.UsesLeft, &c.StartedAt, &c.ExpiredAt,
		&c.IsSystem, &c.IsActive, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts the code and relies on the unique index to reject
// duplicates; there is no find-then-insert window.
func (r *InvitationRepository) Create(ctx context.Context, c *entity.InvitationCode) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO invitation_codes (code, event, description, type, total_uses,
			uses_left, started_at, expired_at, is_system, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, c.Code, nullable(c.Event), nullable(c.Description), c.Type, c.TotalUses,
		c.UsesLeft, c.StartedAt, c.ExpiredAt, c.IsSystem, c.IsActive, c.CreatedBy)

	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if isUniqueViolation(err, "") {
			return apperror.Conflict("invitation code already exists, please try again")
		}
		return apperror.Internal(err)
	}
	return nil
}

func (r *InvitationRepository) getBy(ctx context.Context, where string, arg any) (*entity.InvitationCode, error) {
	c, err := scanInvitation(r.q.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitation_codes WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("invitation code not found")
		}
		return nil, apperror.Internal(err)
	}
	return c, nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*entity.InvitationCode, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *InvitationRepository) GetByCode(ctx context.Context, code string) (*entity.InvitationCode, error) {
	return r.getBy(ctx, `code = $1`, code)
}

func (r *InvitationRepository) List(ctx context.Context, page repository.Page) ([]*entity.InvitationCode, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM invitation_codes`).Scan(&total); err != nil {
		return nil, 0, apperror.Internal(err)
	}

	order := "DESC"
	if page.Order == "asc" {
		order = "ASC"
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+invitationColumns+` FROM invitation_codes
		ORDER BY created_at `+order+`
		LIMIT $1 OFFSET $2
	`, page.Size, page.Offset())
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	defer rows.Close()

	var codes []*entity.InvitationCode
	for rows.Next() {
		c, err := scanInvitation(rows)
		if err != nil {
			return nil, 0, apperror.Internal(err)
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return codes, total, nil
}

// ConsumeUse is the guarded decrement. The uses_left > 0 predicate plus the
// CHECK constraint keep the counter from ever going negative even under
// concurrent redemptions.
func (r *InvitationRepository) ConsumeUse(ctx context.Context, code string) (bool, error) {
	res, err := r.q.Exec(ctx, `
		UPDATE invitation_codes
		SET uses_left = uses_left - 1, updated_at = now()
		WHERE code = $1 AND is_active AND uses_left > 0
	`, code)
	if err != nil {
		return false, apperror.Internal(err)
	}
	return res.RowsAffected() > 0, nil
}

// Deactivate flags the code unusable; codes are never physically deleted.
func (r *InvitationRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.q.Exec(ctx, `
		UPDATE invitation_codes SET is_active = false, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return apperror.Internal(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound("invitation code not found")
	}
	return nil
}

func (r *InvitationRepository) AppendHistory(ctx context.Context, h *entity.HistoryInvitation) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO invitation_history (user_id, code, invited_at, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, h.UserID, h.Code, h.InvitedAt, h.Status)
	if err := row.Scan(&h.ID); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (r *InvitationRepository) GetHistory(ctx context.Context, id string) (*entity.HistoryInvitation, error) {
	h := &entity.HistoryInvitation{}
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, code, invited_at, status FROM invitation_history WHERE id = $1
	`, id).Scan(&h.ID, &h.UserID, &h.Code, &h.InvitedAt, &h.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("invitation history not found")
		}
		return nil, apperror.Internal(err)
	}
	return h, nil
}

func (r *InvitationRepository) ListHistory(ctx context.Context, page repository.Page) ([]*entity.HistoryInvitation, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM invitation_history`).Scan(&total); err != nil {
		return nil, 0, apperror.Internal(err)
	}

	order := "DESC"
	if page.Order == "asc" {
		order = "ASC"
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, code, invited_at, status FROM invitation_history
		ORDER BY invited_at `+order+`
		LIMIT $1 OFFSET $2
	`, page.Size, page.Offset())
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	defer rows.Close()

	items, err := collectHistory(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *InvitationRepository) ListHistoryByCode(ctx context.Context, code string) ([]*entity.HistoryInvitation, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, code, invited_at, status FROM invitation_history
		WHERE code = $1 ORDER BY invited_at DESC
	`, code)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	defer rows.Close()
	return collectHistory(rows)
}

func collectHistory(rows pgx.Rows) ([]*entity.HistoryInvitation, error) {
	var items []*entity.HistoryInvitation
	for rows.Next() {
		h := &entity.HistoryInvitation{}
		if err := rows.Scan(&h.ID, &h.UserID, &h.Code, &h.InvitedAt, &h.Status); err != nil {
			return nil, apperror.Internal(err)
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return items, nil
}

var _ repository.InvitationRepository = (*InvitationRepository)(nil)
