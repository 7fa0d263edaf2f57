// Package convert turns objects into ordered bound values and back.
//
// Converters are declared explicitly: leaf converters map one Go type to one
// column, and a Struct lists its fields in order, each with the converter of
// its type. The schema of a converter, the values it binds and the values it
// recovers all follow that single field order.
//
//	var pairs = convert.MustStruct("Pair",
//	    func(v []any, _ any) (Pair, error) {
//	        return Pair{A: v[0].(int32), B: v[1].(bool)}, nil
//	    },
//	    convert.Field("a", convert.Int32, func(p Pair) any { return p.A }),
//	    convert.Field("b", convert.Bool, func(p Pair) any { return p.B }),
//	)
package convert

import (
	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/binder"
	"github.com/Konsultn-Engineering/tabular/errs"
	"github.com/Konsultn-Engineering/tabular/schema"
	"github.com/Konsultn-Engineering/tabular/value"
)

// Converter maps values of one type to a run of schema columns.
type Converter interface {
	// TypeName names the converted type.
	TypeName() string
	// Type is the column type of a leaf converter or a tuple.
	Type() ast.DataType
	// Fields lists the fields of a structured type; leaves return nil.
	Fields() []schema.Field
	// Convert pushes the columns of v to enc. A nil v pushes nulls.
	Convert(v any, enc *binder.Encoder) error
	// Recover pulls the columns of one value from dec. It returns nil when
	// the value is absent. provided is context supplied by the caller or by
	// earlier sibling fields.
	Recover(dec *binder.Decoder, provided any) (any, error)
}

// leafDescription presents a leaf converter as a one-column type.
type leafDescription struct {
	conv Converter
}

func (l leafDescription) TypeName() string { return l.conv.TypeName() }
func (l leafDescription) Fields() []schema.Field {
	return []schema.Field{{Name: "value", Type: l.conv.Type()}}
}

// SchemaOf returns the column schema of conv. A leaf converter yields a
// single column named "value".
func SchemaOf(conv Converter) (*schema.Schema, error) {
	if conv.Fields() == nil {
		return schema.Derive(leafDescription{conv: conv})
	}
	return schema.Derive(conv)
}

// Convert binds instance to the columns of conv's schema. Values are only
// returned when every column was bound and validated.
func Convert(conv Converter, instance any) ([]value.Value, error) {
	s, err := SchemaOf(conv)
	if err != nil {
		return nil, err
	}
	enc := binder.NewEncoder(s)
	if err := conv.Convert(instance, enc); err != nil {
		return nil, err
	}
	return enc.Finish()
}

// Recover rebuilds a value from one result row laid out in schema order. It
// returns nil when the row describes no value.
func Recover(conv Converter, row []any, provided any) (any, error) {
	s, err := SchemaOf(conv)
	if err != nil {
		return nil, err
	}
	dec, err := binder.NewDecoder(s, row)
	if err != nil {
		return nil, err
	}
	v, err := conv.Recover(dec, provided)
	if err != nil {
		return nil, err
	}
	if err := dec.Finish(); err != nil {
		return nil, err
	}
	return v, nil
}

// RecoverAs is Recover with a typed result. ok is false when the row
// describes no value.
func RecoverAs[T any](conv Converter, row []any, provided any) (v T, ok bool, err error) {
	raw, err := Recover(conv, row, provided)
	if err != nil || raw == nil {
		return v, false, err
	}
	v, ok = raw.(T)
	if !ok {
		return v, false, errs.Internal("recover "+conv.TypeName(), "recovered %T, want %T", raw, v)
	}
	return v, true, nil
}

// width returns the number of columns conv occupies.
func width(conv Converter) (int, error) {
	if conv.Fields() == nil {
		return 1, nil
	}
	s, err := schema.Derive(conv)
	if err != nil {
		return 0, err
	}
	return s.Len(), nil
}

func encoderColumn(enc *binder.Encoder) string {
	if pos := enc.Position(); pos < enc.Schema().Len() {
		return enc.Schema().Column(pos).Name()
	}
	return ""
}

func decoderColumn(dec *binder.Decoder) string {
	if dec.Remaining() > 0 {
		return dec.Schema().Column(dec.Position()).Name()
	}
	return ""
}
