package services

import (
	"context"
	"database/sql"

	"github.com/railrepay/delaytracker/internal/infrastructure/database"
	"github.com/railrepay/delaytracker/internal/infrastructure/persistence"
)

// perJourneyCommitRetries bounds the retry loop in withTx. Two
// concurrent orchestrator runs can conflict writing the same journey's
// outbox rows; a couple of retries clears a transient serialization
// failure without masking a real one.
const perJourneyCommitRetries = 3

// withTx runs fn inside a transaction on db, with the *sql.Tx exposed
// as an Executor, retrying on a Postgres serialization failure or
// deadlock via persistence.TransactionManager. Every per-journey commit
// in the orchestrator goes through this so that the alert insert,
// status change, and outbox writes either all land or none do.
func withTx(ctx context.Context, db *database.Connection, fn func(tx persistence.Executor, txCtx context.Context) error) error {
	tm := persistence.NewTransactionManager(db)
	return tm.WithRetry(ctx, perJourneyCommitRetries, func(tx *sql.Tx) error {
		return fn(tx, ctx)
	})
}
