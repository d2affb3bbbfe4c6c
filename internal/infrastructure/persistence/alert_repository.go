package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/railrepay/delaytracker/internal/constants"
	"github.com/railrepay/delaytracker/internal/domain/models"
	"github.com/railrepay/delaytracker/internal/infrastructure/database"
	"github.com/railrepay/delaytracker/pkg/idgen"
)

// DelayAlertRepository is the delay-alert half of the journey store:
// one row per detected delay event against a journey.
type DelayAlertRepository struct {
	conn *database.Connection
}

// NewDelayAlertRepository creates a new DelayAlertRepository.
func NewDelayAlertRepository(conn *database.Connection) *DelayAlertRepository {
	return &DelayAlertRepository{conn: conn}
}

func (r *DelayAlertRepository) executor(exec Executor) Executor {
	if exec != nil {
		return exec
	}
	return r.conn
}

// Create inserts a new alert. delay_minutes must be strictly positive;
// callers recording a cancellation pass the 1-minute sentinel.
func (r *DelayAlertRepository) Create(ctx context.Context, exec Executor, a models.DelayAlert) (string, error) {
	ex := r.executor(exec)

	id := a.ID
	if id == "" {
		id = idgen.New()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(id, monitored_journey_id, delay_minutes, delay_detected_at, delay_reasons,
			 is_cancellation, threshold_exceeded, claim_triggered, notification_sent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, false, NOW(), NOW())
	`, constants.TableDelayAlerts)

	_, err := ex.ExecContext(ctx, query,
		id, a.MonitoredJourneyID, a.DelayMinutes, a.DelayDetectedAt, a.DelayReasons,
		a.IsCancellation, a.ThresholdExceeded,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create delay alert: %w", err)
	}

	return id, nil
}

// MarkClaimTriggered records a successful claim outcome on the alert.
func (r *DelayAlertRepository) MarkClaimTriggered(ctx context.Context, exec Executor, id string, claimReferenceID string, triggeredAt time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET claim_triggered = true, claim_triggered_at = $1, claim_reference_id = $2, updated_at = NOW()
		WHERE id = $3
	`, constants.TableDelayAlerts)
	_, err := r.executor(exec).ExecContext(ctx, query, triggeredAt, claimReferenceID, id)
	return err
}

// StoreClaimResponse records a non-success claim outcome's reason
// without marking the alert as triggered.
func (r *DelayAlertRepository) StoreClaimResponse(ctx context.Context, exec Executor, id string, response string) error {
	query := fmt.Sprintf(`UPDATE %s SET claim_trigger_response = $1, updated_at = NOW() WHERE id = $2`, constants.TableDelayAlerts)
	_, err := r.executor(exec).ExecContext(ctx, query, []byte(response), id)
	return err
}

// MarkNotificationSent records that a notification went out for this
// alert.
func (r *DelayAlertRepository) MarkNotificationSent(ctx context.Context, exec Executor, id string, sentAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET notification_sent = true, notification_sent_at = $1, updated_at = NOW() WHERE id = $2`, constants.TableDelayAlerts)
	_, err := r.executor(exec).ExecContext(ctx, query, sentAt, id)
	return err
}

// LatestForJourney returns the most recently detected alert for a
// journey, or nil if it has none.
func (r *DelayAlertRepository) LatestForJourney(ctx context.Context, exec Executor, journeyID string) (*models.DelayAlert, error) {
	query := fmt.Sprintf(`%s WHERE monitored_journey_id = $1 ORDER BY delay_detected_at DESC LIMIT 1`, selectAlertQuery())

	ex := r.executor(exec)
	row := ex.QueryRowContext(ctx, query, journeyID)
	alert, err := scanAlertRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// FindByID reads an alert by its surrogate id.
func (r *DelayAlertRepository) FindByID(ctx context.Context, id string) (*models.DelayAlert, error) {
	query := fmt.Sprintf(`%s WHERE id = $1`, selectAlertQuery())
	row := r.conn.QueryRowContext(ctx, query, id)
	alert, err := scanAlertRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// FindByJourney returns every alert recorded against a journey, oldest
// first.
func (r *DelayAlertRepository) FindByJourney(ctx context.Context, journeyID string) ([]models.DelayAlert, error) {
	query := fmt.Sprintf(`%s WHERE monitored_journey_id = $1 ORDER BY delay_detected_at ASC`, selectAlertQuery())

	rows, err := r.conn.QueryContext(ctx, query, journeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query delay alerts: %w", err)
	}
	defer rows.Close()

	var out []models.DelayAlert
	for rows.Next() {
		a, err := scanAlertRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delay alert: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func selectAlertQuery() string {
	return fmt.Sprintf(`
		SELECT id, monitored_journey_id, delay_minutes, delay_detected_at, delay_reasons,
		       is_cancellation, threshold_exceeded, claim_triggered, claim_triggered_at,
		       claim_reference_id, claim_trigger_response, notification_sent, notification_sent_at,
		       created_at, updated_at
		FROM %s`, constants.TableDelayAlerts)
}

func scanAlertRow(row rowScanner) (*models.DelayAlert, error) {
	var a models.DelayAlert
	if err := row.Scan(
		&a.ID, &a.MonitoredJourneyID, &a.DelayMinutes, &a.DelayDetectedAt, &a.DelayReasons,
		&a.IsCancellation, &a.ThresholdExceeded, &a.ClaimTriggered, &a.ClaimTriggeredAt,
		&a.ClaimReferenceID, &a.ClaimTriggerResponse, &a.NotificationSent, &a.NotificationSentAt,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
