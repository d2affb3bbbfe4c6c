package persistence

import (
	"context"
	"database/sql"
)

// Executor is satisfied by both *sql.DB and *sql.Tx (and by
// *database.Connection), letting every repository method accept an
// optional transaction handle so callers can thread one transaction
// through several repository calls when needed.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
