// Package database wraps the process-wide Postgres connection pool.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// Connection wraps a *sql.DB. sql.DB is already thread-safe and manages
// its own connection pool; we do not add another layer of locking on
// top of it.
type Connection struct {
	db *sql.DB
}

var (
	instance *Connection
	once     sync.Once
	initErr  error
)

// GetInstance returns the singleton Postgres connection, opening it on
// first call.
func GetInstance(dsn string) (*Connection, error) {
	once.Do(func() {
		instance, initErr = newConnection(dsn)
	})
	return instance, initErr
}

func newConnection(dsn string) (*Connection, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(3 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{db: db}, nil
}

// DB returns the underlying *sql.DB for operations that need direct
// access.
func (c *Connection) DB() *sql.DB { return c.db }

// NewForTesting wraps an already-open *sql.DB (typically a sqlmock
// stub) without touching the process-wide singleton.
func NewForTesting(db *sql.DB) *Connection { return &Connection{db: db} }

// Begin starts a new transaction.
func (c *Connection) Begin() (*sql.Tx, error) { return c.db.Begin() }

// BeginTx starts a new transaction with context and options.
func (c *Connection) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, opts)
}

// ExecContext executes an INSERT/UPDATE/DELETE with context.
func (c *Connection) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

// QueryContext executes a SELECT with context.
func (c *Connection) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a SELECT returning at most one row, with
// context.
func (c *Connection) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

// Close closes the connection pool.
func (c *Connection) Close() error { return c.db.Close() }
