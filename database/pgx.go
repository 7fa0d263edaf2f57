package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoLastInsertId is returned by results of drivers that cannot report a
// generated key without a RETURNING clause.
var ErrNoLastInsertId = errors.New("database: LastInsertId not supported")

// pgxQuerier is the subset of pgxpool.Pool and pgx.Tx used here.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func pgxExec(ctx context.Context, q pgxQuerier, query string, args []any) (Result, error) {
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &PgxResult{cmdTag: tag}, nil
}

func pgxQuery(ctx context.Context, q pgxQuerier, query string, args []any) (Rows, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &PgxRows{rows: rows}, nil
}

// PgxDatabase implements Database for pgxpool.Pool. pgx prepares and caches
// statements per connection on its own.
type PgxDatabase struct {
	pool *pgxpool.Pool
}

func NewPgxDatabase(pool *pgxpool.Pool) *PgxDatabase {
	return &PgxDatabase{pool: pool}
}

// Pool returns the underlying pool.
func (p *PgxDatabase) Pool() *pgxpool.Pool { return p.pool }

func (p *PgxDatabase) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return pgxExec(ctx, p.pool, query, args)
}

func (p *PgxDatabase) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return pgxQuery(ctx, p.pool, query, args)
}

func (p *PgxDatabase) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &PgxTx{tx: tx}, nil
}

func (p *PgxDatabase) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *PgxDatabase) Close() error {
	p.pool.Close()
	return nil
}

// PgxTx implements Tx for pgx.Tx.
type PgxTx struct {
	tx pgx.Tx
}

func (t *PgxTx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return pgxExec(ctx, t.tx, query, args)
}

func (t *PgxTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return pgxQuery(ctx, t.tx, query, args)
}

func (t *PgxTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *PgxTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// PgxRows implements Rows for pgx.Rows.
type PgxRows struct {
	rows pgx.Rows
}

func (p *PgxRows) Next() bool             { return p.rows.Next() }
func (p *PgxRows) Values() ([]any, error) { return p.rows.Values() }
func (p *PgxRows) Err() error             { return p.rows.Err() }
func (p *PgxRows) Close() error           { p.rows.Close(); return nil }

// Columns returns the column names.
func (p *PgxRows) Columns() ([]string, error) {
	fields := p.rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}
	return columns, nil
}

// PgxResult implements Result for pgx command tags.
type PgxResult struct {
	cmdTag pgconn.CommandTag
}

func (r *PgxResult) LastInsertId() (int64, error) { return 0, ErrNoLastInsertId }
func (r *PgxResult) RowsAffected() (int64, error) { return r.cmdTag.RowsAffected(), nil }

var (
	_ Database = (*PgxDatabase)(nil)
	_ Tx       = (*PgxTx)(nil)
)
