package models

import "time"

// OutboxStatus is the delivery state of an OutboxEvent row.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxProcessed  OutboxStatus = "processed"
	OutboxPublished  OutboxStatus = "published"
	OutboxFailed     OutboxStatus = "failed"
)

// OutboxEvent is one durable row in the append-only outbox.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	CorrelationID string
	Status        OutboxStatus
	RetryCount    int
	ErrorMessage  *string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
	PublishedAt   *time.Time
}
