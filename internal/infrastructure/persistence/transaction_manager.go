package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/railrepay/delaytracker/internal/infrastructure/database"
)

// txContextKey is the key for storing a transaction in a context.Context.
type txContextKey struct{}

// TransactionManager handles database transactions, threading them
// through context.Context and retrying automatically on Postgres
// serialization failures.
type TransactionManager struct {
	db *database.Connection
}

// NewTransactionManager creates a new TransactionManager.
func NewTransactionManager(db *database.Connection) *TransactionManager {
	return &TransactionManager{db: db}
}

// WithTransaction executes fn within a database transaction. The
// transaction is rolled back if fn returns an error or panics, and
// committed if fn returns nil.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// WithRetry executes fn within a transaction, making up to maxRetries
// attempts in total with exponential backoff between them on a Postgres
// serialization failure or deadlock. Any other error is returned
// immediately without retry.
func (tm *TransactionManager) WithRetry(ctx context.Context, maxRetries int, fn func(tx *sql.Tx) error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := tm.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}

		lastErr = err
		if !isSerializationFailure(err) {
			return err
		}

		if attempt < maxRetries-1 {
			backoff := time.Millisecond * time.Duration(100*(1<<uint(attempt)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("transaction failed after %d attempts: %w", maxRetries, lastErr)
}

// InjectTx stores tx in ctx so downstream repository calls can find it
// via ExtractTx without an explicit parameter.
func (tm *TransactionManager) InjectTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// ExtractTx returns the transaction previously injected into ctx, or
// nil if none is present.
func (tm *TransactionManager) ExtractTx(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(txContextKey{}).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// isSerializationFailure reports whether err is a Postgres
// serialization_failure (SQLSTATE 40001) or deadlock_detected (40P01),
// the two conditions worth retrying automatically.
func isSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "40001") ||
		strings.Contains(msg, "40p01") ||
		strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "deadlock detected")
}
