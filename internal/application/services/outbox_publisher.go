package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/railrepay/delaytracker/internal/domain/events"
	"github.com/railrepay/delaytracker/internal/domain/models"
	"github.com/railrepay/delaytracker/internal/domain/ports"
	"github.com/railrepay/delaytracker/internal/infrastructure/database"
	"github.com/railrepay/delaytracker/internal/infrastructure/persistence"
	"github.com/railrepay/delaytracker/pkg/idgen"
)

// OutboxPublisher writes typed domain events into the outbox inside
// the caller's transaction, and separately relays pending rows to the
// injected broker.
type OutboxPublisher struct {
	db     *database.Connection
	outbox *persistence.OutboxRepository
	broker ports.Broker
}

// NewOutboxPublisher creates a new OutboxPublisher.
func NewOutboxPublisher(db *database.Connection, outbox *persistence.OutboxRepository, broker ports.Broker) *OutboxPublisher {
	return &OutboxPublisher{db: db, outbox: outbox, broker: broker}
}

func (p *OutboxPublisher) write(ctx context.Context, exec persistence.Executor, eventType events.EventType, aggregateType events.AggregateType, aggregateID string, payload interface{}, correlationID string) (string, error) {
	if correlationID == "" {
		correlationID = idgen.New()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return p.outbox.Create(ctx, exec, models.OutboxEvent{
		AggregateID:   aggregateID,
		AggregateType: string(aggregateType),
		EventType:     string(eventType),
		Payload:       body,
		CorrelationID: correlationID,
	})
}

// JourneyMonitoringStarted writes a journey.monitoring_started event.
func (p *OutboxPublisher) JourneyMonitoringStarted(ctx context.Context, exec persistence.Executor, j models.MonitoredJourney, correlationID string) (string, error) {
	payload := events.JourneyMonitoringStartedPayload{
		JourneyID:          j.JourneyID,
		UserID:             j.UserID,
		MonitoredJourneyID: j.ID,
		Origin:             j.OriginCode,
		Destination:        j.DestinationCode,
		ScheduledDeparture: j.ScheduledDeparture,
		CorrelationID:      correlationID,
	}
	return p.write(ctx, exec, events.JourneyMonitoringStarted, events.AggregateMonitoredJourney, j.ID, payload, correlationID)
}

// DelayDetected writes a delay.detected event.
func (p *OutboxPublisher) DelayDetected(ctx context.Context, exec persistence.Executor, j models.MonitoredJourney, alert models.DelayAlert, delayReasons map[string]any, correlationID string) (string, error) {
	payload := events.DelayDetectedPayload{
		JourneyID:     j.JourneyID,
		AlertID:       alert.ID,
		UserID:        j.UserID,
		DelayMinutes:  alert.DelayMinutes,
		DelayReasons:  delayReasons,
		CorrelationID: correlationID,
	}
	return p.write(ctx, exec, events.DelayDetected, events.AggregateDelayAlert, alert.ID, payload, correlationID)
}

// ClaimTriggered writes a claim.triggered event.
func (p *OutboxPublisher) ClaimTriggered(ctx context.Context, exec persistence.Executor, j models.MonitoredJourney, alert models.DelayAlert, claimReferenceID string, correlationID string) (string, error) {
	payload := events.ClaimTriggeredPayload{
		AlertID:          alert.ID,
		JourneyID:        j.JourneyID,
		UserID:           j.UserID,
		ClaimReferenceID: claimReferenceID,
		DelayMinutes:     alert.DelayMinutes,
		CorrelationID:    correlationID,
	}
	return p.write(ctx, exec, events.ClaimTriggered, events.AggregateDelayAlert, alert.ID, payload, correlationID)
}

// JourneyCompleted writes a journey.completed event.
func (p *OutboxPublisher) JourneyCompleted(ctx context.Context, exec persistence.Executor, j models.MonitoredJourney, hadDelay bool, delayMinutes *int, correlationID string) (string, error) {
	payload := events.JourneyCompletedPayload{
		JourneyID:     j.JourneyID,
		UserID:        j.UserID,
		CompletedAt:   time.Now().UTC(),
		HadDelay:      hadDelay,
		DelayMinutes:  delayMinutes,
		CorrelationID: correlationID,
	}
	return p.write(ctx, exec, events.JourneyCompleted, events.AggregateMonitoredJourney, j.ID, payload, correlationID)
}

// JourneyCancelled writes a journey.cancelled event.
func (p *OutboxPublisher) JourneyCancelled(ctx context.Context, exec persistence.Executor, j models.MonitoredJourney, correlationID string) (string, error) {
	payload := events.JourneyCancelledPayload{
		JourneyID:     j.JourneyID,
		UserID:        j.UserID,
		CorrelationID: correlationID,
	}
	return p.write(ctx, exec, events.JourneyCancelled, events.AggregateMonitoredJourney, j.ID, payload, correlationID)
}

// ProcessOutbox relays pending events to the broker. It opens one
// transaction, selects pending rows with row-level lock-and-skip so
// concurrent relay workers never double-publish, and marks each row
// processed or failed before committing. Returns the number of rows
// successfully published.
func (p *OutboxPublisher) ProcessOutbox(ctx context.Context, limit int) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin outbox relay transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pending, err := p.outbox.FindPendingForProcessing(ctx, tx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch lockable pending events: %w", err)
	}

	published := 0
	for _, event := range pending {
		if err := p.broker.Publish(ctx, event.EventType, event.Payload); err != nil {
			log.Printf("outbox: publish failed for event %s (%s): %v", event.ID, event.EventType, err)
			if markErr := p.outbox.MarkFailed(ctx, tx, event.ID, err.Error()); markErr != nil {
				return published, fmt.Errorf("failed to mark event %s failed: %w", event.ID, markErr)
			}
			continue
		}

		if err := p.outbox.MarkProcessed(ctx, tx, event.ID); err != nil {
			return published, fmt.Errorf("failed to mark event %s processed: %w", event.ID, err)
		}
		published++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit outbox relay transaction: %w", err)
	}
	return published, nil
}

// RetryFailedEvents resets failed rows below maxRetries back to
// pending and attempts to publish them, re-failing with an
// incremented retry count on error.
func (p *OutboxPublisher) RetryFailedEvents(ctx context.Context, maxRetries int) (int, error) {
	failed, err := p.outbox.FindFailedForRetry(ctx, maxRetries)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch retryable events: %w", err)
	}

	published := 0
	for _, event := range failed {
		if err := p.retryOne(ctx, event); err != nil {
			log.Printf("outbox: retry failed for event %s (%s): %v", event.ID, event.EventType, err)
			continue
		}
		published++
	}
	return published, nil
}

func (p *OutboxPublisher) retryOne(ctx context.Context, event models.OutboxEvent) error {
	if err := p.outbox.ResetToPending(ctx, nil, event.ID); err != nil {
		return fmt.Errorf("failed to reset event to pending: %w", err)
	}

	if err := p.broker.Publish(ctx, event.EventType, event.Payload); err != nil {
		if markErr := p.outbox.MarkFailed(ctx, nil, event.ID, err.Error()); markErr != nil {
			return fmt.Errorf("failed to mark event failed after retry: %w", markErr)
		}
		return err
	}

	return p.outbox.MarkProcessed(ctx, nil, event.ID)
}
