package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/convert"
	"github.com/Konsultn-Engineering/tabular/database"
	"github.com/Konsultn-Engineering/tabular/dialect"
)

// Session runs statements on the database or inside one transaction.
type Session struct {
	engine *Engine
	exec   database.Executor
	tx     database.Tx

	mu         sync.Mutex
	onCommit   []func()
	onRollback []func()
}

// InTransaction reports whether the session runs inside a transaction.
func (s *Session) InTransaction() bool { return s.tx != nil }

// OnCommit registers fn to run after the transaction commits. Outside a
// transaction fn runs immediately, since every statement commits on its own.
func (s *Session) OnCommit(fn func()) {
	if s.tx == nil {
		fn()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCommit = append(s.onCommit, fn)
}

// OnRollback registers fn to run after the transaction rolls back. Outside a
// transaction it is never called.
func (s *Session) OnRollback(fn func()) {
	if s.tx == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRollback = append(s.onRollback, fn)
}

// settle runs the callbacks of the outcome in registration order.
func (s *Session) settle(committed bool) {
	s.mu.Lock()
	callbacks := s.onRollback
	if committed {
		callbacks = s.onCommit
	}
	s.onCommit, s.onRollback = nil, nil
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Transaction runs fn in a transaction. A session already inside one runs fn
// in it.
func (s *Session) Transaction(ctx context.Context, fn func(*Session) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.engine.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	inner := &Session{engine: s.engine, exec: tx, tx: tx}
	s.engine.log.Debug("transaction started")

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			inner.settle(false)
			panic(p)
		}
	}()

	if err := fn(inner); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		s.engine.log.Debug("transaction rolled back", "error", err)
		inner.settle(false)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		inner.settle(false)
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.engine.log.Debug("transaction committed")
	inner.settle(true)
	return nil
}

// =========================================================================
// Execution
// =========================================================================

func (s *Session) render(stmt ast.Statement) (*dialect.Statement, error) {
	if stmt == nil {
		return nil, fmt.Errorf("nil statement")
	}
	return s.engine.dialect.Render(stmt)
}

// observe logs and counts one executed statement.
func (s *Session) observe(ctx context.Context, query bool, stmt *dialect.Statement, start time.Time, err error) {
	e := s.engine
	elapsed := time.Since(start)
	slow := e.slow > 0 && elapsed >= e.slow
	e.stats.record(query, elapsed, slow, err)

	e.log.DebugContext(ctx, "statement executed",
		"sql", stmt.SQL, "args", len(stmt.Args), "duration", elapsed, "tx", s.tx != nil)
	if slow {
		e.log.WarnContext(ctx, "slow statement", "sql", stmt.SQL, "duration", elapsed, "threshold", e.slow)
	}
}

// Exec renders and executes a statement that returns no rows.
func (s *Session) Exec(ctx context.Context, stmt ast.Statement) (database.Result, error) {
	rendered, err := s.render(stmt)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := s.exec.Exec(ctx, rendered.SQL, rendered.Any()...)
	s.observe(ctx, false, rendered, start, err)
	if err != nil {
		return nil, fmt.Errorf("exec %s: %w", stmt.Type(), err)
	}
	return res, nil
}

// Query renders and executes a statement returning rows. The caller closes
// the rows.
func (s *Session) Query(ctx context.Context, stmt ast.Statement) (database.Rows, error) {
	rendered, err := s.render(stmt)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := s.exec.Query(ctx, rendered.SQL, rendered.Any()...)
	s.observe(ctx, true, rendered, start, err)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", stmt.Type(), err)
	}
	return rows, nil
}

func tableOf(conv convert.Converter, table *ast.Table) *ast.Table {
	if table == nil {
		return convert.DefaultTable(conv)
	}
	return table
}

func affected(res database.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// =========================================================================
// Statements
// =========================================================================

func (s *Session) CreateTable(ctx context.Context, conv convert.Converter, table *ast.Table, ifNotExists bool) (database.Result, error) {
	stmt, err := convert.CreateTable(conv, tableOf(conv, table), ifNotExists)
	if err != nil {
		return nil, err
	}
	return s.Exec(ctx, stmt)
}

func (s *Session) DropTable(ctx context.Context, conv convert.Converter, table *ast.Table, ifExists bool) (database.Result, error) {
	stmt, err := convert.DropTable(tableOf(conv, table), ifExists)
	if err != nil {
		return nil, err
	}
	return s.Exec(ctx, stmt)
}

// Insert stores instances in one statement. Nothing is executed when any
// instance fails validation.
func (s *Session) Insert(ctx context.Context, conv convert.Converter, table *ast.Table, instances ...any) (database.Result, error) {
	stmt, err := convert.Insert(conv, tableOf(conv, table), instances...)
	if err != nil {
		return nil, err
	}
	return s.Exec(ctx, stmt)
}

// Update rewrites the row holding instance and returns the number of rows
// changed.
func (s *Session) Update(ctx context.Context, conv convert.Converter, table *ast.Table, instance any) (int64, error) {
	stmt, err := convert.Update(conv, tableOf(conv, table), instance)
	if err != nil {
		return 0, err
	}
	res, err := s.Exec(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return affected(res)
}

// Delete removes the row holding instance by its primary key.
func (s *Session) Delete(ctx context.Context, conv convert.Converter, table *ast.Table, instance any) (int64, error) {
	stmt, err := convert.Delete(conv, tableOf(conv, table), instance)
	if err != nil {
		return 0, err
	}
	res, err := s.Exec(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return affected(res)
}

// DeleteWhere removes the rows matching where; a nil where empties the table.
func (s *Session) DeleteWhere(ctx context.Context, conv convert.Converter, table *ast.Table, where ast.Expr) (int64, error) {
	stmt, err := ast.NewDelete(tableOf(conv, table), where)
	if err != nil {
		return 0, err
	}
	res, err := s.Exec(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return affected(res)
}

// From starts a query over the table of conv.
func (s *Session) From(conv convert.Converter, table *ast.Table) *Finder {
	return &Finder{session: s, conv: conv, table: tableOf(conv, table), limit: -1, offset: -1}
}
