package convert

import (
	"errors"
	"reflect"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/binder"
	"github.com/Konsultn-Engineering/tabular/errs"
	"github.com/Konsultn-Engineering/tabular/schema"
)

// ProvideFunc derives the context handed to a field's converter from the
// fields recovered before it and the context of the enclosing value.
type ProvideFunc func(recovered []any, provided any) any

type fieldOptions struct {
	annotations string
	provide     ProvideFunc
}

type FieldOption func(*fieldOptions)

// Annotate attaches annotations (see schema.Annotations) to a field.
func Annotate(annotations string) FieldOption {
	return func(o *fieldOptions) { o.annotations = annotations }
}

// Provide sets how the field's recovery context is derived. Without it the
// field receives the context of the enclosing value.
func Provide(f ProvideFunc) FieldOption {
	return func(o *fieldOptions) { o.provide = f }
}

// FieldSpec declares one field of a Struct.
type FieldSpec[T any] struct {
	name string
	conv Converter
	get  func(T) any
	fieldOptions
}

// Field declares a field named name, converted by conv and read from an
// instance with get.
func Field[T any](name string, conv Converter, get func(T) any, opts ...FieldOption) FieldSpec[T] {
	f := FieldSpec[T]{name: name, conv: conv, get: get}
	for _, opt := range opts {
		opt(&f.fieldOptions)
	}
	return f
}

// BuildFunc constructs an instance from its recovered field values, in field
// order. Values of absent nullable fields are nil.
type BuildFunc[T any] func(values []any, provided any) (T, error)

// Struct converts a structured type field by field.
type Struct[T any] struct {
	name     string
	fields   []FieldSpec[T]
	build    BuildFunc[T]
	identity []int
}

// NewStruct declares a structured converter. The identity of the type is its
// primary fields, or its first field when none is primary: a row whose
// identity is null recovers as absent.
func NewStruct[T any](name string, build BuildFunc[T], fields ...FieldSpec[T]) (*Struct[T], error) {
	if len(fields) == 0 {
		return nil, errs.Structural("struct "+name, "no fields")
	}
	if build == nil {
		return nil, errs.Structural("struct "+name, "no build function")
	}
	s := &Struct[T]{name: name, build: build}
	for i, f := range fields {
		if f.conv == nil || f.get == nil {
			return nil, errs.Structural("struct "+name, "field %s: missing converter or accessor", f.name)
		}
		ann, _, err := schema.ParseAnnotations(f.annotations)
		if err != nil {
			return nil, errs.Structural("struct "+name, "field %s: %v", f.name, err)
		}
		if ann.Primary {
			s.identity = append(s.identity, i)
		}
	}
	if len(s.identity) == 0 {
		s.identity = []int{0}
	}
	s.fields = append(s.fields, fields...)
	if _, err := schema.Derive(s); err != nil {
		return nil, err
	}
	return s, nil
}

// MustStruct is NewStruct for package-level declarations. It panics on error.
func MustStruct[T any](name string, build BuildFunc[T], fields ...FieldSpec[T]) *Struct[T] {
	s, err := NewStruct(name, build, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Struct[T]) TypeName() string   { return s.name }
func (s *Struct[T]) Type() ast.DataType { return ast.TypeOf(ast.TypeTuple) }

func (s *Struct[T]) Fields() []schema.Field {
	out := make([]schema.Field, len(s.fields))
	for i, f := range s.fields {
		out[i] = schema.Field{Name: f.name, Type: f.conv.Type(), Annotations: f.annotations}
		if f.conv.Fields() != nil {
			out[i].Nested = f.conv
		}
	}
	return out
}

func (s *Struct[T]) isIdentity(i int) bool {
	for _, id := range s.identity {
		if id == i {
			return true
		}
	}
	return false
}

// Convert accepts T, *T or nil. A nil instance binds null to every column.
func (s *Struct[T]) Convert(v any, enc *binder.Encoder) error {
	var inst T
	switch t := v.(type) {
	case nil:
		return s.convertNull(enc)
	case T:
		inst = t
	case *T:
		if t == nil {
			return s.convertNull(enc)
		}
		inst = *t
	default:
		return errs.Internal("convert "+s.name, "cannot convert %T", v)
	}

	for _, f := range s.fields {
		fv := f.get(inst)
		if isNil(fv) {
			col, ok := nextColumn(enc)
			if ok && !col.Nullable() && !col.AutoIncrement() {
				return &errs.ValidationError{Type: s.name, Column: col.Name(), Value: "NULL", Reason: "must not be null"}
			}
		}
		if err := f.conv.Convert(fv, enc); err != nil {
			return err
		}
	}
	return nil
}

func (s *Struct[T]) convertNull(enc *binder.Encoder) error {
	n, err := width(s)
	if err != nil {
		return err
	}
	return enc.PushNull(n)
}

// Recover pulls the fields in order. Each field's context is derived from the
// fields recovered before it. A null identity or an all-null run of columns
// yields nil.
func (s *Struct[T]) Recover(dec *binder.Decoder, provided any) (any, error) {
	n, err := width(s)
	if err != nil {
		return nil, err
	}
	start := dec.Position()
	if dec.NullRun(n) {
		return nil, dec.Skip(n)
	}

	recovered := make([]any, 0, len(s.fields))
	for i, f := range s.fields {
		ctx := provided
		if f.provide != nil {
			ctx = f.provide(recovered, provided)
		}

		col, ok := decoderNext(dec)
		v, err := f.conv.Recover(dec, ctx)
		if err != nil {
			return nil, err
		}
		if v == nil {
			if s.isIdentity(i) {
				return nil, dec.Skip(start + n - dec.Position())
			}
			if ok && !col.Nullable() {
				return nil, &errs.RecoveryError{Type: s.name, Field: f.name, Err: errors.New("null in non-nullable field")}
			}
		}
		recovered = append(recovered, v)
	}

	inst, err := s.build(recovered, provided)
	if err != nil {
		return nil, &errs.RecoveryError{Type: s.name, Err: err}
	}
	return inst, nil
}

func nextColumn(enc *binder.Encoder) (schema.Column, bool) {
	if pos := enc.Position(); pos < enc.Schema().Len() {
		return enc.Schema().Column(pos), true
	}
	return schema.Column{}, false
}

func decoderNext(dec *binder.Decoder) (schema.Column, bool) {
	if dec.Remaining() > 0 {
		return dec.Schema().Column(dec.Position()), true
	}
	return schema.Column{}, false
}

// isNil reports nil interfaces and nil pointers.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Checked wraps conv so that recovered values must pass check against the
// recovery context. A failing check is a recovery error.
func Checked(conv Converter, check func(v any, provided any) error) Converter {
	return &checked{Converter: conv, check: check}
}

type checked struct {
	Converter
	check func(v any, provided any) error
}

func (c *checked) Recover(dec *binder.Decoder, provided any) (any, error) {
	field := decoderColumn(dec)
	v, err := c.Converter.Recover(dec, provided)
	if err != nil || v == nil {
		return v, err
	}
	if err := c.check(v, provided); err != nil {
		return nil, &errs.RecoveryError{Type: c.TypeName(), Field: field, Raw: v, Err: err}
	}
	return v, nil
}
