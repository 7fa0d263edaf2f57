package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/convert"
	"github.com/Konsultn-Engineering/tabular/errs"
)

// Finder builds and runs a select over the columns of one converter. Errors
// raised while chaining are reported by the terminal call.
type Finder struct {
	session  *Session
	conv     convert.Converter
	table    *ast.Table
	where    ast.Expr
	terms    []*ast.OrderingTerm
	limit    int
	offset   int
	provided any
	err      error
}

func (f *Finder) clone() *Finder {
	c := *f
	c.terms = append([]*ast.OrderingTerm(nil), f.terms...)
	return &c
}

// Where adds a condition. Conditions are joined with AND.
func (f *Finder) Where(cond ast.Expr) *Finder {
	f = f.clone()
	if f.err != nil || cond == nil {
		return f
	}
	if f.where == nil {
		f.where = cond
		return f
	}
	f.where, f.err = ast.NewBinary(f.where, ast.OpAnd, cond)
	return f
}

// Match adds a condition matching the columns of instance, converted by conv
// and named under prefix.
func (f *Finder) Match(conv convert.Converter, instance any, prefix string) *Finder {
	cond, err := convert.Where(conv, instance, prefix)
	if err != nil {
		f = f.clone()
		f.err = errors.Join(f.err, err)
		return f
	}
	return f.Where(cond)
}

// Order appends an ordering term.
func (f *Finder) Order(expr ast.Expr, ascending bool) *Finder {
	f = f.clone()
	term, err := ast.NewOrderingTerm(expr, ascending)
	if err != nil {
		f.err = errors.Join(f.err, err)
		return f
	}
	f.terms = append(f.terms, term)
	return f
}

func (f *Finder) Limit(n int) *Finder {
	f = f.clone()
	f.limit = n
	return f
}

func (f *Finder) Offset(n int) *Finder {
	f = f.clone()
	f.offset = n
	return f
}

// Provide sets the context handed to the converter on recovery.
func (f *Finder) Provide(provided any) *Finder {
	f = f.clone()
	f.provided = provided
	return f
}

// Statement builds the select.
func (f *Finder) Statement() (ast.Statement, error) {
	if f.err != nil {
		return nil, f.err
	}
	sel, err := convert.Select(f.conv, f.table, f.where)
	if err != nil {
		return nil, err
	}
	if len(f.terms) == 0 && f.limit < 0 && f.offset < 0 {
		return sel, nil
	}

	var orderBy *ast.OrderBy
	if len(f.terms) > 0 {
		if orderBy, err = ast.NewOrderBy(f.terms...); err != nil {
			return nil, err
		}
	}
	return ast.NewOrderedSelect(sel, orderBy, f.limit, f.offset)
}

// All returns every value recovered from the result. Rows describing no
// value are skipped.
func (f *Finder) All(ctx context.Context) ([]any, error) {
	stmt, err := f.Statement()
	if err != nil {
		return nil, err
	}
	rows, err := f.session.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		v, err := convert.Recover(f.conv, raw, f.provided)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// One returns the first recovered value. ok is false when there is none.
func (f *Finder) One(ctx context.Context) (v any, ok bool, err error) {
	found, err := f.Limit(1).All(ctx)
	if err != nil || len(found) == 0 {
		return nil, false, err
	}
	return found[0], true, nil
}

// SelectAll runs f and returns the recovered values as T.
func SelectAll[T any](ctx context.Context, f *Finder) ([]T, error) {
	found, err := f.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(found))
	for i, v := range found {
		t, ok := v.(T)
		if !ok {
			return nil, errs.Internal("select "+f.conv.TypeName(), "recovered %T, want %T", v, t)
		}
		out[i] = t
	}
	return out, nil
}

// SelectOne runs f limited to one row.
func SelectOne[T any](ctx context.Context, f *Finder) (T, bool, error) {
	var zero T
	v, ok, err := f.One(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, false, errs.Internal("select "+f.conv.TypeName(), "recovered %T, want %T", v, zero)
	}
	return t, true, nil
}
