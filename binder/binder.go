// Package binder moves values between converters and statements in schema
// order.
//
// An Encoder collects exactly one value per schema column while a converter
// walks an object; a Decoder hands the raw values of a result row back, one
// column at a time, coerced to each column's type. Both fail loudly when the
// number of values and columns disagree.
package binder

import (
	"unicode/utf8"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/errs"
	"github.com/Konsultn-Engineering/tabular/schema"
	"github.com/Konsultn-Engineering/tabular/value"
)

// Encoder is the store direction of the binder.
type Encoder struct {
	schema *schema.Schema
	values []value.Value
}

func NewEncoder(s *schema.Schema) *Encoder {
	return &Encoder{schema: s, values: make([]value.Value, 0, s.Len())}
}

// Schema returns the schema being encoded.
func (e *Encoder) Schema() *schema.Schema { return e.schema }

// Position returns the index of the next column to be pushed.
func (e *Encoder) Position() int { return len(e.values) }

// Push binds v to the next column. A value of the wrong kind is an internal
// error; a value violating the column's length or checks is a validation
// error.
func (e *Encoder) Push(v value.Value) error {
	if len(e.values) >= e.schema.Len() {
		return errs.Internal("encode "+e.schema.TypeName(), "value pushed past the %d schema columns", e.schema.Len())
	}
	col := e.schema.Column(len(e.values))
	if !v.IsNull() {
		if !kindMatches(v.Kind(), col.DataType()) {
			return errs.Internal("encode "+e.schema.TypeName(), "column %s: %s value for %s column", col.Name(), v.Kind(), col.DataType())
		}
		if reason := e.validate(v, col); reason != "" {
			return &errs.ValidationError{Type: e.schema.TypeName(), Column: col.Name(), Value: v.String(), Reason: reason}
		}
	}
	e.values = append(e.values, v)
	return nil
}

// PushNull binds null to the next n columns.
func (e *Encoder) PushNull(n int) error {
	for range n {
		if err := e.Push(value.Null()); err != nil {
			return err
		}
	}
	return nil
}

// Finish returns the bound values once every column has one.
func (e *Encoder) Finish() ([]value.Value, error) {
	if len(e.values) != e.schema.Len() {
		return nil, errs.Internal("encode "+e.schema.TypeName(), "%d values for %d columns", len(e.values), e.schema.Len())
	}
	return e.values, nil
}

func (e *Encoder) validate(v value.Value, col schema.Column) string {
	dt := col.DataType()
	switch {
	case dt.Kind().IsInteger() && dt.Kind().Bits() < 64:
		bits := dt.Kind().Bits()
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if v.Int() < lo || v.Int() > hi {
			return "overflows " + dt.String()
		}
	case dt.Kind() == ast.TypeString && dt.Length() > 0:
		if utf8.RuneCountInString(v.Str()) > dt.Length() {
			return "longer than " + dt.String()
		}
	case dt.Kind() == ast.TypeBinary && dt.Length() > 0:
		if len(v.Bytes()) > dt.Length() {
			return "longer than " + dt.String()
		}
	}
	if chk, ok := col.Validate(v); !ok {
		return chk.String()
	}
	return ""
}

func kindMatches(k value.Kind, dt ast.DataType) bool {
	switch dt.Kind() {
	case ast.TypeBoolean:
		return k == value.KindBool
	case ast.TypeInt8, ast.TypeInt16, ast.TypeInt32, ast.TypeInt64:
		return k == value.KindInt
	case ast.TypeFloat32, ast.TypeFloat64:
		return k == value.KindFloat
	case ast.TypeString:
		return k == value.KindString
	case ast.TypeBinary:
		return k == value.KindBinary
	}
	return false
}

// Decoder is the recover direction of the binder.
type Decoder struct {
	schema *schema.Schema
	row    []any
	pos    int
}

// NewDecoder wraps one result row. The row must be exactly as wide as the
// schema.
func NewDecoder(s *schema.Schema, row []any) (*Decoder, error) {
	if len(row) != s.Len() {
		return nil, errs.Internal("decode "+s.TypeName(), "row has %d values for %d columns", len(row), s.Len())
	}
	return &Decoder{schema: s, row: row}, nil
}

// Schema returns the schema being decoded.
func (d *Decoder) Schema() *schema.Schema { return d.schema }

// Position returns the index of the next column to be pulled.
func (d *Decoder) Position() int { return d.pos }

// Remaining returns the number of columns not yet pulled.
func (d *Decoder) Remaining() int { return len(d.row) - d.pos }

// Next pulls the next column, coerced to its declared type.
func (d *Decoder) Next() (value.Value, error) {
	if d.pos >= len(d.row) {
		return value.Value{}, errs.Internal("decode "+d.schema.TypeName(), "value pulled past the %d schema columns", len(d.row))
	}
	col := d.schema.Column(d.pos)
	raw := d.row[d.pos]
	d.pos++

	v, err := Coerce(raw, col.DataType())
	if err != nil {
		return value.Value{}, &errs.RecoveryError{Type: d.schema.TypeName(), Field: col.Name(), Raw: raw, Err: err}
	}
	return v, nil
}

// NullRun reports whether the next n raw values are all null.
func (d *Decoder) NullRun(n int) bool {
	if n <= 0 || d.pos+n > len(d.row) {
		return false
	}
	for _, raw := range d.row[d.pos : d.pos+n] {
		if raw != nil {
			return false
		}
	}
	return true
}

// Skip discards the next n columns.
func (d *Decoder) Skip(n int) error {
	if n < 0 || d.pos+n > len(d.row) {
		return errs.Internal("decode "+d.schema.TypeName(), "cannot skip %d of %d remaining columns", n, d.Remaining())
	}
	d.pos += n
	return nil
}

// Finish fails unless every column was pulled or skipped.
func (d *Decoder) Finish() error {
	if d.pos != len(d.row) {
		return errs.Internal("decode "+d.schema.TypeName(), "%d of %d columns left unread", d.Remaining(), len(d.row))
	}
	return nil
}
