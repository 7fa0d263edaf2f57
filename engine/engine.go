// Package engine executes statements built from converters against a
// database.
//
// The engine renders every statement through its dialect, hands the bound
// values to the executor in placeholder order and recovers result rows with
// the converter that built the query:
//
//	eng := engine.New(dialect.SQLite, db)
//	if _, err := eng.CreateTable(ctx, pairs, nil, true); err != nil {
//	    return err
//	}
//	_, err := eng.Insert(ctx, pairs, nil, Pair{A: 2, B: true})
//	found, err := engine.SelectAll[Pair](ctx, eng.From(pairs, nil))
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/convert"
	"github.com/Konsultn-Engineering/tabular/database"
	"github.com/Konsultn-Engineering/tabular/dialect"
)

type Engine struct {
	dialect *dialect.Dialect
	db      database.Database
	log     *slog.Logger
	slow    time.Duration
	stats   QueryStats
}

type Option func(*Engine)

// WithLogger sets the logger receiving statement logs.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSlowQueryThreshold logs statements taking at least d as warnings. Zero
// disables the check.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(e *Engine) { e.slow = d }
}

func New(d *dialect.Dialect, db database.Database, opts ...Option) *Engine {
	e := &Engine{dialect: d, db: db, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Dialect() *dialect.Dialect { return e.dialect }
func (e *Engine) DB() database.Database     { return e.db }

// Stats returns a snapshot of the statement counters.
func (e *Engine) Stats() StatsSnapshot { return e.stats.Stats() }

// Close closes the database.
func (e *Engine) Close() error { return e.db.Close() }

// session returns a session running outside any transaction.
func (e *Engine) session() *Session {
	return &Session{engine: e, exec: e.db}
}

func (e *Engine) Exec(ctx context.Context, stmt ast.Statement) (database.Result, error) {
	return e.session().Exec(ctx, stmt)
}

func (e *Engine) CreateTable(ctx context.Context, conv convert.Converter, table *ast.Table, ifNotExists bool) (database.Result, error) {
	return e.session().CreateTable(ctx, conv, table, ifNotExists)
}

func (e *Engine) DropTable(ctx context.Context, conv convert.Converter, table *ast.Table, ifExists bool) (database.Result, error) {
	return e.session().DropTable(ctx, conv, table, ifExists)
}

func (e *Engine) Insert(ctx context.Context, conv convert.Converter, table *ast.Table, instances ...any) (database.Result, error) {
	return e.session().Insert(ctx, conv, table, instances...)
}

func (e *Engine) Update(ctx context.Context, conv convert.Converter, table *ast.Table, instance any) (int64, error) {
	return e.session().Update(ctx, conv, table, instance)
}

func (e *Engine) Delete(ctx context.Context, conv convert.Converter, table *ast.Table, instance any) (int64, error) {
	return e.session().Delete(ctx, conv, table, instance)
}

func (e *Engine) DeleteWhere(ctx context.Context, conv convert.Converter, table *ast.Table, where ast.Expr) (int64, error) {
	return e.session().DeleteWhere(ctx, conv, table, where)
}

// From starts a query over the table of conv. A nil table means the
// converter's default table.
func (e *Engine) From(conv convert.Converter, table *ast.Table) *Finder {
	return e.session().From(conv, table)
}

// Transaction runs fn in a transaction. It commits when fn returns nil and
// rolls back when fn fails or panics; the callbacks registered on the session
// run after the outcome is settled.
func (e *Engine) Transaction(ctx context.Context, fn func(*Session) error) error {
	return e.session().Transaction(ctx, fn)
}
