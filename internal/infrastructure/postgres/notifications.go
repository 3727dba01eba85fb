package postgres

import (
	"context"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	"github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/apperror"
)

type NotificationRepository struct {
	q Querier
}

func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO notifications (user_id, title, body, kind)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, n.UserID, n.Title, n.Body, n.Kind)
	if err := row.Scan(&n.ID, &n.CreatedAt); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, page repository.Page) ([]*entity.Notification, int, error) {
	var total int
	if err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, apperror.Internal(err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, title, body, kind, is_read, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	defer rows.Close()

	var items []*entity.Notification
	for rows.Next() {
		n := &entity.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Kind, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, apperror.Internal(err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return items, total, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	res, err := r.q.Exec(ctx, `
		UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return apperror.Internal(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound("notification not found")
	}
	return nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.q.Exec(ctx, `
		DELETE FROM notifications WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return apperror.Internal(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound("notification not found")
	}
	return nil
}

var _ repository.NotificationRepository = (*NotificationRepository)(nil)
