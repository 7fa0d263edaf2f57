package database

import (
	"context"
	"database/sql"

	"github.com/Konsultn-Engineering/tabular/cache"
)

// SqlDatabase implements Database for *sql.DB.
type SqlDatabase struct {
	db    *sql.DB
	stmts *cache.StatementCache
}

// NewSqlDatabase wraps db. Statements are prepared and kept in stmts when it
// is not nil.
func NewSqlDatabase(db *sql.DB, stmts *cache.StatementCache) *SqlDatabase {
	return &SqlDatabase{db: db, stmts: stmts}
}

// DB returns the underlying pool.
func (s *SqlDatabase) DB() *sql.DB { return s.db }

// Exec executes a statement without returning rows.
func (s *SqlDatabase) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	if s.stmts != nil {
		stmt, release, err := s.stmts.Acquire(ctx, s.db, query)
		if err != nil {
			return nil, err
		}
		defer release()
		return stmt.ExecContext(ctx, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

// Query executes a statement that returns rows.
func (s *SqlDatabase) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	if s.stmts == nil {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		return &SqlRows{rows: rows}, nil
	}

	stmt, release, err := s.stmts.Acquire(ctx, s.db, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		release()
		return nil, err
	}
	return &SqlRows{rows: rows, release: release}, nil
}

// Begin starts a transaction.
func (s *SqlDatabase) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &SqlTx{tx: tx, stmts: s.stmts}, nil
}

// Ping verifies the connection to the database is alive.
func (s *SqlDatabase) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes cached statements, then the pool.
func (s *SqlDatabase) Close() error {
	if s.stmts != nil {
		_ = s.stmts.Close()
	}
	return s.db.Close()
}

// SqlTx implements Tx for *sql.Tx. Cached statements are rebound to the
// transaction.
type SqlTx struct {
	tx    *sql.Tx
	stmts *cache.StatementCache
}

// stmt rebinds the cached statement for query to the transaction. The
// cached statement is held until release is called.
func (t *SqlTx) stmt(ctx context.Context, query string) (*sql.Stmt, cache.Release) {
	if t.stmts == nil {
		return nil, nil
	}
	if stmt, release, ok := t.stmts.Lookup(query); ok {
		return t.tx.StmtContext(ctx, stmt), release
	}
	return nil, nil
}

func (t *SqlTx) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	if stmt, release := t.stmt(ctx, query); stmt != nil {
		defer release()
		return stmt.ExecContext(ctx, args...)
	}
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *SqlTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	stmt, release := t.stmt(ctx, query)
	if stmt == nil {
		rows, err := t.tx.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		return &SqlRows{rows: rows}, nil
	}

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		release()
		return nil, err
	}
	return &SqlRows{rows: rows, release: release}, nil
}

func (t *SqlTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *SqlTx) Rollback(context.Context) error { return t.tx.Rollback() }

// SqlRows implements Rows for *sql.Rows.
type SqlRows struct {
	rows    *sql.Rows
	dest    []any
	ptrs    []any
	release cache.Release
}

// Next prepares the next result row for reading.
func (s *SqlRows) Next() bool { return s.rows.Next() }

// Values scans the current row into fresh driver values.
func (s *SqlRows) Values() ([]any, error) {
	if s.ptrs == nil {
		cols, err := s.rows.Columns()
		if err != nil {
			return nil, err
		}
		s.dest = make([]any, len(cols))
		s.ptrs = make([]any, len(cols))
		for i := range s.dest {
			s.ptrs[i] = &s.dest[i]
		}
	}
	if err := s.rows.Scan(s.ptrs...); err != nil {
		return nil, err
	}
	out := make([]any, len(s.dest))
	copy(out, s.dest)
	return out, nil
}

// Columns returns the column names.
func (s *SqlRows) Columns() ([]string, error) { return s.rows.Columns() }

func (s *SqlRows) Err() error { return s.rows.Err() }

// Close closes the rows and hands their statement back to the cache.
func (s *SqlRows) Close() error {
	err := s.rows.Close()
	if s.release != nil {
		s.release()
	}
	return err
}

var (
	_ Database = (*SqlDatabase)(nil)
	_ Tx       = (*SqlTx)(nil)
)
