package postgres

import (
	"context"
	"time"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	"github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/apperror"
)

type OutboxRepository struct {
	q Querier
}

func (r *OutboxRepository) Enqueue(ctx context.Context, e *entity.OutboxEvent) error {
	row := r.q.QueryRow(ctx, `
		INSERT INTO outbox_events (event_type, payload, status, attempts, next_attempt_at)
		VALUES ($1, $2, 'pending', 0, now())
		RETURNING id, created_at
	`, e.EventType, e.Payload)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return apperror.Internal(err)
	}
	e.Status = entity.OutboxPending
	return nil
}

// ListDue claims due pending events for one dispatcher pass. FOR UPDATE
// SKIP LOCKED keeps concurrent dispatchers from double-delivering.
func (r *OutboxRepository) ListDue(ctx context.Context, limit int, now time.Time) ([]*entity.OutboxEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, event_type, payload, status, attempts, next_attempt_at,
			COALESCE(last_error, ''), created_at, processed_at
		FROM outbox_events
		WHERE status = 'pending' AND next_attempt_at <= $1
		ORDER BY next_attempt_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, now, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	defer rows.Close()

	var events []*entity.OutboxEvent
	for rows.Next() {
		e := &entity.OutboxEvent{}
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload, &e.Status, &e.Attempts,
			&e.NextAttemptAt, &e.LastError, &e.CreatedAt, &e.ProcessedAt); err != nil {
			return nil, apperror.Internal(err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal(err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE outbox_events SET status = 'processed', processed_at = $1 WHERE id = $2
	`, at, id)
	if err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, lastError string, nextAttempt time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE outbox_events
		SET attempts = attempts + 1, last_error = $1, next_attempt_at = $2
		WHERE id = $3
	`, lastError, nextAttempt, id)
	if err != nil {
		return apperror.Internal(err)
	}
	return nil
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)
