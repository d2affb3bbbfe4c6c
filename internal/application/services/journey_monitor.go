package services

import (
	"context"
	"time"

	"github.com/railrepay/delaytracker/internal/domain/models"
	"github.com/railrepay/delaytracker/internal/infrastructure/database"
	"github.com/railrepay/delaytracker/internal/infrastructure/persistence"
	"github.com/railrepay/delaytracker/pkg/apperrors"
	"github.com/railrepay/delaytracker/pkg/idgen"
)

// defaultTickInterval paces a journey's next touch when nothing else
// drives next_check_at.
const defaultTickInterval = 5 * time.Minute

// preRegistrationWindow is how far before departure the first touch is
// scheduled once a journey is more than that far out.
const preRegistrationWindow = 48 * time.Hour

// allowedTransitions enumerates every permitted monitoring_status move.
// Any pair not listed here is rejected with InvalidTransitionError.
var allowedTransitions = map[models.MonitoringStatus]map[models.MonitoringStatus]bool{
	models.StatusPendingRID: {
		models.StatusActive:    true,
		models.StatusCancelled: true,
	},
	models.StatusActive: {
		models.StatusDelayed:   true,
		models.StatusCompleted: true,
		models.StatusCancelled: true,
	},
	models.StatusDelayed: {
		models.StatusCompleted: true,
		models.StatusCancelled: true,
	},
}

// JourneyMonitor owns the monitoring_status state machine and the
// next_check_at scheduling policy. next_check_at is always computed
// here, never by a caller.
type JourneyMonitor struct {
	db           *database.Connection
	journeys     *persistence.JourneyRepository
	publisher    *OutboxPublisher
	tickInterval time.Duration
}

// NewJourneyMonitor creates a new JourneyMonitor. tickInterval paces
// periodic touches; pass 0 to use the 5-minute default.
func NewJourneyMonitor(db *database.Connection, journeys *persistence.JourneyRepository, publisher *OutboxPublisher, tickInterval time.Duration) *JourneyMonitor {
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	return &JourneyMonitor{db: db, journeys: journeys, publisher: publisher, tickInterval: tickInterval}
}

// CanTransition reports whether from->to is a permitted status change.
func CanTransition(from, to models.MonitoringStatus) bool {
	if from == to {
		return false
	}
	return allowedTransitions[from][to]
}

// RegisterJourney inserts a new journey in pending_rid, computing its
// initial next_check_at from the T-48h convention, and writes the
// journey.monitoring_started outbox event in the same transaction as
// the insert. Fails with ConflictError if journey_id already exists.
func (m *JourneyMonitor) RegisterJourney(ctx context.Context, j models.MonitoredJourney, now time.Time) (string, error) {
	j.MonitoringStatus = models.StatusPendingRID
	j.RID = nil
	next := m.initialNextCheck(j.ScheduledDeparture, now)
	j.NextCheckAt = &next

	correlationID := idgen.New()
	var id string
	err := withTx(ctx, m.db, func(tx persistence.Executor, txCtx context.Context) error {
		created, err := m.journeys.Create(txCtx, tx, j)
		if err != nil {
			return err
		}
		id = created
		j.ID = created

		_, err = m.publisher.JourneyMonitoringStarted(txCtx, tx, j, correlationID)
		return err
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

func (m *JourneyMonitor) initialNextCheck(departure, now time.Time) time.Time {
	if departure.Sub(now) > preRegistrationWindow {
		return departure.Add(-preRegistrationWindow)
	}
	return now.Add(m.tickInterval)
}

// ResolveRid moves a pending_rid journey to active with the resolved
// rid, scheduling an immediate next check.
func (m *JourneyMonitor) ResolveRid(ctx context.Context, exec persistence.Executor, id string, rid string, now time.Time) error {
	status := models.StatusActive
	return m.journeys.Update(ctx, exec, id, models.JourneyUpdate{
		RID:              &rid,
		MonitoringStatus: &status,
		NextCheckAt:      &now,
	})
}

// TouchPending advances next_check_at for a journey still waiting on
// RID resolution, without changing status.
func (m *JourneyMonitor) TouchPending(ctx context.Context, exec persistence.Executor, id string, now time.Time) error {
	next := now.Add(m.tickInterval)
	return m.journeys.Update(ctx, exec, id, models.JourneyUpdate{NextCheckAt: &next})
}

// Transition moves a journey to newStatus, clearing next_check_at if
// newStatus is terminal. Rejects transitions outside the permitted set.
func (m *JourneyMonitor) Transition(ctx context.Context, exec persistence.Executor, journey models.MonitoredJourney, newStatus models.MonitoringStatus, now time.Time) error {
	if !CanTransition(journey.MonitoringStatus, newStatus) {
		return apperrors.NewInvalidTransitionError(string(journey.MonitoringStatus), string(newStatus))
	}

	upd := models.JourneyUpdate{MonitoringStatus: &newStatus}
	if newStatus.IsTerminal() {
		upd.ClearNextCheckAt = true
	} else {
		next := now.Add(m.tickInterval)
		upd.NextCheckAt = &next
	}

	return m.journeys.Update(ctx, exec, journey.ID, upd)
}

// Cancel moves a journey to cancelled from any non-terminal state, the
// one transition permitted out of cycle with the rest of the machine
// (an explicit user or operator request).
func (m *JourneyMonitor) Cancel(ctx context.Context, exec persistence.Executor, journey models.MonitoredJourney) error {
	if journey.MonitoringStatus.IsTerminal() {
		return apperrors.NewInvalidTransitionError(string(journey.MonitoringStatus), string(models.StatusCancelled))
	}
	cancelled := models.StatusCancelled
	return m.journeys.Update(ctx, exec, journey.ID, models.JourneyUpdate{
		MonitoringStatus: &cancelled,
		ClearNextCheckAt: true,
	})
}

// DueForCheck returns journeys whose next_check_at has elapsed and
// whose status still permits checking, oldest first.
func (m *JourneyMonitor) DueForCheck(ctx context.Context, now time.Time, limit int) ([]models.MonitoredJourney, error) {
	return m.journeys.FindDueForCheck(ctx, now, limit)
}

// AdvancePacing bulk-pushes next_check_at for every id in ids to
// now+tickInterval, the periodic-touch case with no state change.
func (m *JourneyMonitor) AdvancePacing(ctx context.Context, exec persistence.Executor, ids []string, now time.Time) error {
	next := now.Add(m.tickInterval)
	return m.journeys.UpdateLastChecked(ctx, exec, ids, now, &next)
}
