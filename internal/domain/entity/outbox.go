package entity

import "time"

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxProcessed OutboxStatus = "processed"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxEvent is a post-commit side effect recorded in the same transaction
// as the primary write. A dispatcher publishes pending events to the message
// queue and retries with backoff; the primary transaction never waits on it.
type OutboxEvent struct {
	ID            string
	EventType     string // e.g. "email.verification", "email.payment_receipt"
	Payload       []byte // JSON
	Status        OutboxStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}
