package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eduviet/eduviet-server/internal/domain/entity"
	repo "github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/pkg/mailer"
)

// Publisher is the queue-facing side of the dispatcher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// OutboxDispatcher drains pending outbox rows and publishes them to the
// email queue. Rows are claimed with FOR UPDATE SKIP LOCKED so multiple
// instances never double-publish; failures retry with capped exponential
// backoff.
type OutboxDispatcher struct {
	Store     repo.Store
	Publisher Publisher
	Logger    *logrus.Logger
	Interval  time.Duration
	BatchSize int
}

func NewOutboxDispatcher(store repo.Store, pub Publisher, logger *logrus.Logger, interval time.Duration, batchSize int) *OutboxDispatcher {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	return &OutboxDispatcher{Store: store, Publisher: pub, Logger: logger, Interval: interval, BatchSize: batchSize}
}

// Run polls until the context is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DispatchOnce(ctx); err != nil && d.Logger != nil {
				d.Logger.WithError(err).Warn("outbox dispatch pass failed")
			}
		}
	}
}

// DispatchOnce claims one batch of due events and publishes them. Each event
// is marked processed or rescheduled within the claiming transaction.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) error {
	return d.Store.InTx(ctx, func(st repo.Store) error {
		now := time.Now().UTC()
		events, err := st.Outbox().ListDue(ctx, d.BatchSize, now)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := d.publish(ctx, ev); err != nil {
				next := now.Add(backoff(ev.Attempts + 1))
				if mErr := st.Outbox().MarkFailed(ctx, ev.ID, err.Error(), next); mErr != nil {
					return mErr
				}
				if d.Logger != nil {
					d.Logger.WithError(err).WithFields(logrus.Fields{
						"event_id":   ev.ID,
						"event_type": ev.EventType,
						"attempts":   ev.Attempts + 1,
					}).Warn("outbox publish failed")
				}
				continue
			}
			if err := st.Outbox().MarkProcessed(ctx, ev.ID, time.Now().UTC()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *OutboxDispatcher) publish(ctx context.Context, ev *entity.OutboxEvent) error {
	var job mailer.EmailJob
	if err := json.Unmarshal(ev.Payload, &job); err != nil {
		return err
	}
	return d.Publisher.PublishJSON(ctx, job)
}

// backoff caps at ~4 minutes: 2s, 4s, 8s, ... 256s.
func backoff(attempts int) time.Duration {
	if attempts > 8 {
		attempts = 8
	}
	return time.Duration(1<<attempts) * time.Second
}
