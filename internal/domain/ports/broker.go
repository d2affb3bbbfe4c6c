package ports

import "context"

// Broker is the external message bus the outbox relay publishes to.
// It is injected into the publisher so that bus selection, an
// out-of-scope external collaborator, never leaks into the relay loop.
type Broker interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}
