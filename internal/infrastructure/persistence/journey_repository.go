package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/railrepay/delaytracker/internal/constants"
	"github.com/railrepay/delaytracker/internal/domain/models"
	"github.com/railrepay/delaytracker/internal/infrastructure/database"
	"github.com/railrepay/delaytracker/pkg/apperrors"
	"github.com/railrepay/delaytracker/pkg/idgen"

	"github.com/lib/pq"
)

const pqUniqueViolation = "unique_violation"

// JourneyRepository is the Journey Store.
type JourneyRepository struct {
	conn *database.Connection
}

// NewJourneyRepository creates a new JourneyRepository.
func NewJourneyRepository(conn *database.Connection) *JourneyRepository {
	return &JourneyRepository{conn: conn}
}

func (r *JourneyRepository) executor(exec Executor) Executor {
	if exec != nil {
		return exec
	}
	return r.conn
}

// Create inserts a new journey. Returns a *apperrors.ConflictError if
// journey_id already exists.
func (r *JourneyRepository) Create(ctx context.Context, exec Executor, j models.MonitoredJourney) (string, error) {
	ex := r.executor(exec)

	id := j.ID
	if id == "" {
		id = idgen.New()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(id, journey_id, user_id, service_date, origin_code, destination_code,
			 scheduled_departure, scheduled_arrival, rid, monitoring_status,
			 last_checked_at, next_check_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`, constants.TableMonitoredJourneys)

	_, err := ex.ExecContext(ctx, query,
		id, j.JourneyID, j.UserID, j.ServiceDate, j.OriginCode, j.DestinationCode,
		j.ScheduledDeparture, j.ScheduledArrival, j.RID, string(j.MonitoringStatus),
		j.LastCheckedAt, j.NextCheckAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", apperrors.NewConflictError("monitored_journey", "journey_id", j.JourneyID)
		}
		return "", fmt.Errorf("failed to create monitored journey: %w", err)
	}

	return id, nil
}

// FindByID reads a journey by its surrogate id.
func (r *JourneyRepository) FindByID(ctx context.Context, id string) (*models.MonitoredJourney, error) {
	query := fmt.Sprintf(`%s WHERE id = $1`, selectJourneyQuery())
	return r.queryOne(ctx, query, id)
}

// FindByExternalJourneyID reads a journey by its external journey_id.
func (r *JourneyRepository) FindByExternalJourneyID(ctx context.Context, journeyID string) (*models.MonitoredJourney, error) {
	query := fmt.Sprintf(`%s WHERE journey_id = $1`, selectJourneyQuery())
	return r.queryOne(ctx, query, journeyID)
}

// FindByUser returns every journey owned by userID.
func (r *JourneyRepository) FindByUser(ctx context.Context, userID string) ([]models.MonitoredJourney, error) {
	query := fmt.Sprintf(`%s WHERE user_id = $1 ORDER BY scheduled_departure ASC`, selectJourneyQuery())
	return r.queryMany(ctx, query, userID)
}

// FindDueForCheck returns rows due for a tick: next_check_at <= now and
// monitoring_status in (pending_rid, active), ordered by next_check_at
// ascending, bounded by limit. Backed by a partial index on
// (next_check_at) for rows in those two statuses.
func (r *JourneyRepository) FindDueForCheck(ctx context.Context, now time.Time, limit int) ([]models.MonitoredJourney, error) {
	query := fmt.Sprintf(`
		%s
		WHERE next_check_at <= $1
		  AND monitoring_status IN ($2, $3)
		ORDER BY next_check_at ASC
		LIMIT $4
	`, selectJourneyQuery())
	return r.queryMany(ctx, query, now, constants.StatusPendingRID, constants.StatusActive, limit)
}

// Update applies a whitelisted partial update: rid, monitoring_status,
// last_checked_at, next_check_at. Other fields are immutable
// post-create.
func (r *JourneyRepository) Update(ctx context.Context, exec Executor, id string, upd models.JourneyUpdate) error {
	ex := r.executor(exec)

	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	argN := 1

	add := func(col string, val interface{}) {
		argN++
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, val)
	}

	if upd.RID != nil {
		add("rid", *upd.RID)
	}
	if upd.MonitoringStatus != nil {
		add("monitoring_status", string(*upd.MonitoringStatus))
	}
	if upd.LastCheckedAt != nil {
		add("last_checked_at", *upd.LastCheckedAt)
	}
	if upd.ClearNextCheckAt {
		sets = append(sets, "next_check_at = NULL")
	} else if upd.NextCheckAt != nil {
		add("next_check_at", *upd.NextCheckAt)
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, constants.TableMonitoredJourneys, joinSets(sets))
	allArgs := append([]interface{}{id}, args...)

	_, err := ex.ExecContext(ctx, query, allArgs...)
	return err
}

// UpdateStatus atomically changes monitoring_status, optionally
// co-setting rid.
func (r *JourneyRepository) UpdateStatus(ctx context.Context, exec Executor, id string, newStatus models.MonitoringStatus, rid *string) error {
	upd := models.JourneyUpdate{MonitoringStatus: &newStatus}
	if rid != nil {
		upd.RID = rid
	}
	return r.Update(ctx, exec, id, upd)
}

// UpdateLastChecked bulk-updates pacing fields for every id in ids,
// used by the orchestrator to advance next_check_at for an entire
// batch in one round trip.
func (r *JourneyRepository) UpdateLastChecked(ctx context.Context, exec Executor, ids []string, checkedAt time.Time, nextCheckAt *time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	ex := r.executor(exec)

	query := fmt.Sprintf(`
		UPDATE %s
		SET last_checked_at = $1, next_check_at = $2, updated_at = NOW()
		WHERE id = ANY($3)
	`, constants.TableMonitoredJourneys)

	_, err := ex.ExecContext(ctx, query, checkedAt, nextCheckAt, pq.Array(ids))
	return err
}

// Delete removes a journey; FK cascade removes its alerts.
func (r *JourneyRepository) Delete(ctx context.Context, exec Executor, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, constants.TableMonitoredJourneys)
	_, err := r.executor(exec).ExecContext(ctx, query, id)
	return err
}

func selectJourneyQuery() string {
	return fmt.Sprintf(`
		SELECT id, journey_id, user_id, service_date, origin_code, destination_code,
		       scheduled_departure, scheduled_arrival, rid, monitoring_status,
		       last_checked_at, next_check_at, created_at, updated_at
		FROM %s`, constants.TableMonitoredJourneys)
}

func (r *JourneyRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*models.MonitoredJourney, error) {
	row := r.conn.QueryRowContext(ctx, query, args...)
	j, err := scanJourneyRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *JourneyRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]models.MonitoredJourney, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitored journeys: %w", err)
	}
	defer rows.Close()

	var out []models.MonitoredJourney
	for rows.Next() {
		j, err := scanJourneyRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monitored journey: %w", err)
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJourneyRow(row rowScanner) (*models.MonitoredJourney, error) {
	var j models.MonitoredJourney
	var status string
	if err := row.Scan(
		&j.ID, &j.JourneyID, &j.UserID, &j.ServiceDate, &j.OriginCode, &j.DestinationCode,
		&j.ScheduledDeparture, &j.ScheduledArrival, &j.RID, &status,
		&j.LastCheckedAt, &j.NextCheckAt, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.MonitoringStatus = models.MonitoringStatus(status)
	return &j, nil
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name() == pqUniqueViolation
	}
	return false
}
