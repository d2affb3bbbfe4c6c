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

// OutboxRepository is the Outbox Store: an append-only event log
// living in the same database as the rows whose changes it narrates.
type OutboxRepository struct {
	conn *database.Connection
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(conn *database.Connection) *OutboxRepository {
	return &OutboxRepository{conn: conn}
}

func (r *OutboxRepository) executor(exec Executor) Executor {
	if exec != nil {
		return exec
	}
	return r.conn
}

// Create inserts a new outbox row with status pending and retry_count 0.
func (r *OutboxRepository) Create(ctx context.Context, exec Executor, event models.OutboxEvent) (string, error) {
	ex := r.executor(exec)

	id := event.ID
	if id == "" {
		id = idgen.New()
	}
	correlationID := event.CorrelationID
	if correlationID == "" {
		correlationID = idgen.New()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(id, aggregate_id, aggregate_type, event_type, payload, correlation_id, status, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, NOW())
	`, constants.TableOutbox)

	_, err := ex.ExecContext(ctx, query,
		id, event.AggregateID, event.AggregateType, event.EventType,
		event.Payload, correlationID, constants.OutboxStatusPending,
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue outbox event: %w", err)
	}

	return id, nil
}

// FindPending returns the oldest `limit` pending rows, FIFO by
// created_at.
func (r *OutboxRepository) FindPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	query := fmt.Sprintf(`
		SELECT id, aggregate_id, aggregate_type, event_type, payload, correlation_id, status, retry_count, created_at
		FROM %s
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, constants.TableOutbox)

	return r.scanEvents(ctx, query, constants.OutboxStatusPending, limit)
}

// FindPendingForProcessing returns the oldest `limit` pending rows,
// locking each with FOR UPDATE SKIP LOCKED so that two concurrent relay
// workers never pick up the same row. Must run inside tx.
func (r *OutboxRepository) FindPendingForProcessing(ctx context.Context, tx *sql.Tx, limit int) ([]models.OutboxEvent, error) {
	query := fmt.Sprintf(`
		SELECT id, aggregate_id, aggregate_type, event_type, payload, correlation_id, status, retry_count, created_at
		FROM %s
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, constants.TableOutbox)

	rows, err := tx.QueryContext(ctx, query, constants.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query lockable pending events: %w", err)
	}
	defer rows.Close()

	return scanEventRows(rows)
}

// FindFailedForRetry returns failed rows with retry_count < maxAttempts,
// FIFO.
func (r *OutboxRepository) FindFailedForRetry(ctx context.Context, maxAttempts int) ([]models.OutboxEvent, error) {
	query := fmt.Sprintf(`
		SELECT id, aggregate_id, aggregate_type, event_type, payload, correlation_id, status, retry_count, created_at
		FROM %s
		WHERE status = $1 AND retry_count < $2
		ORDER BY created_at ASC
	`, constants.TableOutbox)

	return r.scanEvents(ctx, query, constants.OutboxStatusFailed, maxAttempts)
}

// MarkProcessed sets status=processed, processed_at=now.
func (r *OutboxRepository) MarkProcessed(ctx context.Context, exec Executor, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $1, processed_at = NOW() WHERE id = $2`, constants.TableOutbox)
	_, err := r.executor(exec).ExecContext(ctx, query, constants.OutboxStatusProcessed, id)
	return err
}

// MarkFailed sets status=failed, increments retry_count, and stores msg.
func (r *OutboxRepository) MarkFailed(ctx context.Context, exec Executor, id string, msg string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, retry_count = retry_count + 1, error_message = $2
		WHERE id = $3
	`, constants.TableOutbox)
	_, err := r.executor(exec).ExecContext(ctx, query, constants.OutboxStatusFailed, msg, id)
	return err
}

// ResetToPending clears error_message and sets status=pending, used
// before a bounded retry.
func (r *OutboxRepository) ResetToPending(ctx context.Context, exec Executor, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $1, error_message = NULL WHERE id = $2`, constants.TableOutbox)
	_, err := r.executor(exec).ExecContext(ctx, query, constants.OutboxStatusPending, id)
	return err
}

// CleanupOld deletes processed rows older than retentionDays. Pending
// and failed rows are never deleted.
func (r *OutboxRepository) CleanupOld(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	query := fmt.Sprintf(`DELETE FROM %s WHERE status = $1 AND created_at < $2`, constants.TableOutbox)

	result, err := r.conn.ExecContext(ctx, query, constants.OutboxStatusProcessed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up processed outbox rows: %w", err)
	}
	return result.RowsAffected()
}

func (r *OutboxRepository) scanEvents(ctx context.Context, query string, args ...interface{}) ([]models.OutboxEvent, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()
	return scanEventRows(rows)
}

func scanEventRows(rows *sql.Rows) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	for rows.Next() {
		var e models.OutboxEvent
		var status string
		if err := rows.Scan(
			&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType,
			&e.Payload, &e.CorrelationID, &status, &e.RetryCount, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		e.Status = models.OutboxStatus(status)
		events = append(events, e)
	}
	return events, rows.Err()
}
