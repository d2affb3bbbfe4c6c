package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/railrepay/delaytracker/internal/domain/models"
	"github.com/railrepay/delaytracker/internal/infrastructure/database"
	"github.com/railrepay/delaytracker/internal/infrastructure/persistence"
	"github.com/railrepay/delaytracker/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockMonitor(t *testing.T) (*JourneyMonitor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conn := database.NewForTesting(db)
	repo := persistence.NewJourneyRepository(conn)
	outbox := persistence.NewOutboxRepository(conn)
	publisher := NewOutboxPublisher(conn, outbox, &fakeBroker{})
	return NewJourneyMonitor(conn, repo, publisher, time.Minute), mock
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from models.MonitoringStatus
		to   models.MonitoringStatus
		want bool
	}{
		{models.StatusPendingRID, models.StatusActive, true},
		{models.StatusPendingRID, models.StatusCancelled, true},
		{models.StatusPendingRID, models.StatusDelayed, false},
		{models.StatusPendingRID, models.StatusCompleted, false},
		{models.StatusActive, models.StatusDelayed, true},
		{models.StatusActive, models.StatusCompleted, true},
		{models.StatusActive, models.StatusCancelled, true},
		{models.StatusActive, models.StatusPendingRID, false},
		{models.StatusDelayed, models.StatusCompleted, true},
		{models.StatusDelayed, models.StatusCancelled, true},
		{models.StatusDelayed, models.StatusActive, false},
		{models.StatusCompleted, models.StatusActive, false},
		{models.StatusCancelled, models.StatusActive, false},
		{models.StatusActive, models.StatusActive, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestJourneyMonitor_InitialNextCheck_FarOutDeparture(t *testing.T) {
	monitor, _ := newMockMonitor(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	departure := now.Add(72 * time.Hour)

	next := monitor.initialNextCheck(departure, now)

	assert.Equal(t, departure.Add(-preRegistrationWindow), next)
}

func TestJourneyMonitor_InitialNextCheck_NearDeparture(t *testing.T) {
	monitor, _ := newMockMonitor(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	departure := now.Add(10 * time.Hour)

	next := monitor.initialNextCheck(departure, now)

	assert.Equal(t, now.Add(monitor.tickInterval), next)
}

func TestJourneyMonitor_InitialNextCheck_ExactlyAtWindowBoundary(t *testing.T) {
	monitor, _ := newMockMonitor(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Exactly 48h out: not strictly greater than the window, so falls
	// to the tick-interval branch.
	atBoundary := now.Add(preRegistrationWindow)
	assert.Equal(t, now.Add(monitor.tickInterval), monitor.initialNextCheck(atBoundary, now))

	// One second past the boundary: the far-out branch applies.
	justOver := now.Add(preRegistrationWindow + time.Second)
	assert.Equal(t, justOver.Add(-preRegistrationWindow), monitor.initialNextCheck(justOver, now))
}

func TestJourneyMonitor_RegisterJourney(t *testing.T) {
	monitor, mock := newMockMonitor(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO delay_tracker.monitored_journeys")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO delay_tracker.outbox")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	journey := models.MonitoredJourney{
		JourneyID:          "J-1",
		UserID:             "U-1",
		ScheduledDeparture: now.Add(10 * time.Hour),
		ScheduledArrival:   now.Add(11 * time.Hour),
	}

	id, err := monitor.RegisterJourney(context.Background(), journey, now)

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet(), "registration must insert the journey and write journey.monitoring_started in one transaction")
}

func TestJourneyMonitor_Transition_InvalidRejectedWithoutTouchingStore(t *testing.T) {
	monitor, mock := newMockMonitor(t)
	journey := models.MonitoredJourney{ID: "mj-1", MonitoringStatus: models.StatusCompleted}

	err := monitor.Transition(context.Background(), nil, journey, models.StatusActive, time.Now())

	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))
	assert.NoError(t, mock.ExpectationsWereMet(), "no query should run for a rejected transition")
}

func TestJourneyMonitor_Transition_ToTerminalClearsNextCheck(t *testing.T) {
	monitor, mock := newMockMonitor(t)
	journey := models.MonitoredJourney{ID: "mj-1", MonitoringStatus: models.StatusActive}

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE delay_tracker.monitored_journeys SET updated_at = NOW(), monitoring_status = $2, next_check_at = NULL WHERE id = $1",
	)).WithArgs("mj-1", string(models.StatusCompleted)).WillReturnResult(sqlmock.NewResult(0, 1))

	err := monitor.Transition(context.Background(), nil, journey, models.StatusCompleted, time.Now())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJourneyMonitor_Cancel_FromTerminalRejected(t *testing.T) {
	monitor, mock := newMockMonitor(t)
	journey := models.MonitoredJourney{ID: "mj-1", MonitoringStatus: models.StatusCancelled}

	err := monitor.Cancel(context.Background(), nil, journey)

	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
