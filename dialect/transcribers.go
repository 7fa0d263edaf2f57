package dialect

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/errs"
	"github.com/Konsultn-Engineering/tabular/value"
)

// Typed adapts a transcriber for one concrete node type.
func Typed[T ast.Node](f func(d *Dialect, w *Writer, n T, parameterizable bool) error) Transcriber {
	return func(d *Dialect, w *Writer, n ast.Node, parameterizable bool) error {
		t, ok := n.(T)
		if !ok {
			return errs.Internal(n.Type().String(), "dialect %s: unexpected node %T", d.name, n)
		}
		return f(d, w, t, parameterizable)
	}
}

// Text returns a transcriber that always writes s.
func Text(s string) Transcriber {
	return func(_ *Dialect, w *Writer, _ ast.Node, _ bool) error {
		w.WriteString(s)
		return nil
	}
}

// LiteralTranscriber binds a literal when parameterizable and writes
// inline(value) otherwise.
func LiteralTranscriber(inline func(value.Value) string) Transcriber {
	return Typed(func(d *Dialect, w *Writer, l *ast.Literal, parameterizable bool) error {
		if parameterizable {
			return d.Transcribe(w, w.Bind(l.Value()), false)
		}
		// SQL has no literal spelling of NaN or the infinities
		if v := l.Value(); v.Kind() == value.KindFloat && (math.IsNaN(v.Float()) || math.IsInf(v.Float(), 0)) {
			return errs.Internal(l.Type().String(), "dialect %s cannot inline %v", d.name, v.Float())
		}
		w.WriteString(inline(l.Value()))
		return nil
	})
}

// IdentifierTranscriber quotes names with q, doubling embedded quotes.
func IdentifierTranscriber(q string) Transcriber {
	return Typed(func(_ *Dialect, w *Writer, id ast.Identifier, _ bool) error {
		w.WriteString(q)
		w.WriteString(strings.ReplaceAll(id.Name(), q, q+q))
		w.WriteString(q)
		return nil
	})
}

// DataTypeTranscriber writes the name returned by spell.
func DataTypeTranscriber(spell func(ast.DataType) string) Transcriber {
	return Typed(func(d *Dialect, w *Writer, dt ast.DataType, _ bool) error {
		name := spell(dt)
		if name == "" {
			return errs.Internal(ast.NodeDataType.String(), "dialect %s cannot declare %s columns", d.name, dt)
		}
		w.WriteString(name)
		return nil
	})
}

// PrimaryKeyTranscriber writes a column-level primary key with the given
// auto-increment spelling placed before or after PRIMARY KEY.
func PrimaryKeyTranscriber(autoBefore, autoAfter string) Transcriber {
	return Typed(func(d *Dialect, w *Writer, pk *ast.PrimaryKeyConstraint, _ bool) error {
		if err := d.constraintName(w, pk.Name()); err != nil {
			return err
		}
		if cols := pk.Columns(); len(cols) > 0 {
			w.WriteString("PRIMARY KEY (")
			if err := d.identifiers(w, cols); err != nil {
				return err
			}
			w.WriteString(")")
			return nil
		}
		if pk.IsAutoIncrement() && autoBefore != "" {
			w.WriteString(autoBefore + " ")
		}
		w.WriteString("PRIMARY KEY")
		if pk.IsAutoIncrement() && autoAfter != "" {
			w.WriteString(" " + autoAfter)
		}
		return nil
	})
}

// SelectTranscriber renders a select; parenthesized wraps the source list.
func SelectTranscriber(parenthesized bool) Transcriber {
	return Typed(func(d *Dialect, w *Writer, s *ast.Select, p bool) error {
		w.WriteString("SELECT ")
		if err := join(d, w, s.Columns(), p); err != nil {
			return err
		}
		w.WriteString(" FROM ")
		if parenthesized {
			w.WriteString("(")
		}
		if err := join(d, w, s.Sources(), p); err != nil {
			return err
		}
		if parenthesized {
			w.WriteString(")")
		}
		return d.where(w, s.Where(), p)
	})
}

// Identifier writes name as a quoted identifier.
func (d *Dialect) Identifier(w *Writer, name string) error {
	return d.Transcribe(w, ast.Ident(name), false)
}

func (d *Dialect) identifiers(w *Writer, names []string) error {
	for i, n := range names {
		if i > 0 {
			w.WriteString(", ")
		}
		if err := d.Identifier(w, n); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dialect) constraintName(w *Writer, name string) error {
	if name == "" {
		return nil
	}
	w.WriteString("CONSTRAINT ")
	if err := d.Identifier(w, name); err != nil {
		return err
	}
	w.WriteString(" ")
	return nil
}

// paren writes n between parentheses.
func (d *Dialect) paren(w *Writer, n ast.Node, p bool) error {
	w.WriteString("(")
	if err := d.Transcribe(w, n, p); err != nil {
		return err
	}
	w.WriteString(")")
	return nil
}

func (d *Dialect) where(w *Writer, cond ast.Expr, p bool) error {
	if cond == nil {
		return nil
	}
	w.WriteString(" WHERE ")
	return d.Transcribe(w, cond, p)
}

func join[T ast.Node](d *Dialect, w *Writer, nodes []T, p bool) error {
	for i, n := range nodes {
		if i > 0 {
			w.WriteString(", ")
		}
		if err := d.Transcribe(w, n, p); err != nil {
			return err
		}
	}
	return nil
}

// QuoteString wraps s in single quotes, doubling embedded quotes.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// InlineValue is the standard inline spelling of a literal value.
func InlineValue(v value.Value) string {
	switch v.Kind() {
	case value.KindBool:
		if v.Bool() {
			return "TRUE"
		}
		return "FALSE"
	case value.KindInt:
		return strconv.FormatInt(v.Int(), 10)
	case value.KindFloat:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case value.KindString:
		return QuoteString(v.Str())
	case value.KindBinary:
		return "X'" + strings.ToUpper(hex.EncodeToString(v.Bytes())) + "'"
	}
	return "NULL"
}
