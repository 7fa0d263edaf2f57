// Package database defines the execution primitive the engine runs rendered
// statements through, with adapters for database/sql and pgx.
package database

import "context"

// Result summarizes an executed statement.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Rows iterates a result set. Values yields the raw driver values of the
// current row in column order.
type Rows interface {
	Next() bool
	Values() ([]any, error)
	Columns() ([]string, error)
	Err() error
	Close() error
}

// Executor runs statements with positional arguments.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Tx is a transaction boundary.
type Tx interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Database is a connection pool able to start transactions.
type Database interface {
	Executor
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close() error
}
