// Package messaging provides the Broker implementation wired into the
// outbox publisher. The message bus itself is an out-of-scope external
// collaborator; this package supplies the simplest concrete stand-in so
// the relay loop has somewhere to publish.
package messaging

import (
	"context"
	"log"
)

// LogBroker publishes events by writing them to the process log. It
// satisfies ports.Broker and is meant to be swapped for a real bus
// client (Kafka, SQS, NATS) without touching the outbox publisher.
type LogBroker struct{}

// NewLogBroker creates a new LogBroker.
func NewLogBroker() *LogBroker {
	return &LogBroker{}
}

// Publish logs the event and always succeeds.
func (b *LogBroker) Publish(ctx context.Context, eventType string, payload []byte) error {
	log.Printf("broker: publish %s: %s", eventType, string(payload))
	return nil
}
