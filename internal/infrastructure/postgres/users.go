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

type UserRepository struct {
	q Querier
}

const userColumns = `id, fullname, username, email, password, slug,
	COALESCE(avatar_url, ''), role, status, account_package,
	COALESCE(school, ''), COALESCE(class_name, ''),
	COALESCE(teacher_id::text, ''), COALESCE(parent_id::text, ''),
	COALESCE(invited_by::text, ''), is_verified, COALESCE(verify_code, ''),
	created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	err := row.Scan(&u.ID, &u.Fullname, &u.Username, &u.Email, &u.Password, &u.Slug,
		&u.AvatarURL, &u.Role, &u.Status, &u.AccountPackage,
		&u.School, &u.ClassName, &u.TeacherID, &u.ParentID,
		&u.InvitedBy, &u.IsVerified, &u.VerifyCode,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// nullable maps the zero string to SQL NULL for optional reference columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO users (fullname, username, email, password, slug, avatar_url,
			role, status, account_package, school, class_name, teacher_id,
			parent_id, invited_by, is_verified, verify_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`, u.Fullname, u.Username, u.Email, u.Password, u.Slug, nullable(u.AvatarURL),
		u.Role, u.Status, u.AccountPackage, nullable(u.School), nullable(u.ClassName),
		nullable(u.TeacherID), nullable(u.ParentID), nullable(u.InvitedBy),
		u.IsVerified, nullable(u.VerifyCode))

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err, "") {
			return apperror.Conflict("email or username already exists")
		}
		return apperror.Internal(err)
	}
	return nil
}

func (r *UserRepository) getBy(ctx context.Context, where string, arg any) (*entity.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal(err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getBy(ctx, `email = $1 AND status <> 'deleted'`, email)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getBy(ctx, `username = $1 AND status <> 'deleted'`, username)
}

func (r *UserRepository) GetBySlug(ctx context.Context, slug string) (*entity.User, error) {
	return r.getBy(ctx, `slug = $1 AND status = 'active'`, slug)
}

func (r *UserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR username = $2)
	`, email, username).Scan(&exists)
	if err != nil {
		return false, apperror.Internal(err)
	}
	return exists, nil
}

// CountSlugVariants counts the exact slug plus its numeric dedupe variants
// (base-2, base-3, ...). Longer slugs that merely share the prefix, like
// "ngo-bao-chau" against base "ngo-bao", are not variants.
func (r *UserRepository) CountSlugVariants(ctx context.Context, slug string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM users WHERE slug = $1 OR slug ~ ('^' || $1 || '-[0-9]+$')
	`, slug).Scan(&n)
	if err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

func (r *UserRepository) List(ctx context.Context, page repository.Page) ([]*entity.User, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE status = 'active'`).Scan(&total); err != nil {
		return nil, 0, apperror.Internal(err)
	}

	order := "DESC"
	if page.Order == "asc" {
		order = "ASC"
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE status = 'active'
		ORDER BY created_at `+order+`
		LIMIT $1 OFFSET $2
	`, page.Size, page.Offset())
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, apperror.Internal(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return users, total, nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()
	res, err := r.q.Exec(ctx, `
		UPDATE users
		SET fullname = $1, avatar_url = $2, password = $3, verify_code = $4, updated_at = $5
		WHERE id = $6
	`, u.Fullname, nullable(u.AvatarURL), u.Password, nullable(u.VerifyCode), u.UpdatedAt, u.ID)
	if err != nil {
		return apperror.Internal(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}

func (r *UserRepository) SetAccountPackage(ctx context.Context, userID string, pkg entity.PackageType) error {
	res, err := r.q.Exec(ctx, `
		UPDATE users SET account_package = $1, updated_at = now() WHERE id = $2
	`, pkg, userID)
	if err != nil {
		return apperror.Internal(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}

func (r *UserRepository) SetVerified(ctx context.Context, userID string) error {
	res, err := r.q.Exec(ctx, `
		UPDATE users SET is_verified = true, verify_code = NULL, updated_at = now() WHERE id = $1
	`, userID)
	if err != nil {
		return apperror.Internal(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}

// SoftDelete transitions the account to deleted; rows are never removed.
func (r *UserRepository) SoftDelete(ctx context.Context, userID string) error {
	res, err := r.q.Exec(ctx, `
		UPDATE users SET status = 'deleted', updated_at = now() WHERE id = $1 AND status <> 'deleted'
	`, userID)
	if err != nil {
		return apperror.Internal(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
