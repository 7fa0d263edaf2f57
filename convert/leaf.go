package convert

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/binder"
	"github.com/Konsultn-Engineering/tabular/errs"
	"github.com/Konsultn-Engineering/tabular/schema"
	"github.com/Konsultn-Engineering/tabular/value"
)

// Leaf converts a Go value of type V to a single column.
type Leaf[V any] struct {
	name   string
	typ    ast.DataType
	encode func(V) (value.Value, error)
	decode func(value.Value) (V, error)
}

// NewLeaf declares a leaf converter. encode must produce a value whose kind
// matches typ; decode receives non-null values already coerced to typ.
func NewLeaf[V any](name string, typ ast.DataType, encode func(V) (value.Value, error), decode func(value.Value) (V, error)) *Leaf[V] {
	return &Leaf[V]{name: name, typ: typ, encode: encode, decode: decode}
}

func (l *Leaf[V]) TypeName() string       { return l.name }
func (l *Leaf[V]) Type() ast.DataType     { return l.typ }
func (l *Leaf[V]) Fields() []schema.Field { return nil }

// Convert accepts V, *V or nil.
func (l *Leaf[V]) Convert(v any, enc *binder.Encoder) error {
	var val V
	switch t := v.(type) {
	case nil:
		return enc.Push(value.Null())
	case V:
		val = t
	case *V:
		if t == nil {
			return enc.Push(value.Null())
		}
		val = *t
	default:
		return errs.Internal("convert "+l.name, "cannot convert %T", v)
	}

	bound, err := l.encode(val)
	if err != nil {
		return &errs.ValidationError{Type: l.name, Column: encoderColumn(enc), Value: fmt.Sprint(val), Reason: err.Error()}
	}
	return enc.Push(bound)
}

func (l *Leaf[V]) Recover(dec *binder.Decoder, _ any) (any, error) {
	field := decoderColumn(dec)
	v, err := dec.Next()
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	out, err := l.decode(v)
	if err != nil {
		return nil, &errs.RecoveryError{Type: l.name, Field: field, Raw: v.Any(), Err: err}
	}
	return out, nil
}

func ints[V ~int | ~int8 | ~int16 | ~int32 | ~int64](name string, kind ast.TypeKind) *Leaf[V] {
	return NewLeaf(name, ast.TypeOf(kind),
		func(v V) (value.Value, error) { return value.Int(int64(v)), nil },
		func(v value.Value) (V, error) { return V(v.Int()), nil },
	)
}

func floats[V ~float32 | ~float64](name string, kind ast.TypeKind) *Leaf[V] {
	return NewLeaf(name, ast.TypeOf(kind),
		func(v V) (value.Value, error) { return value.Float(float64(v)), nil },
		func(v value.Value) (V, error) { return V(v.Float()), nil },
	)
}

var (
	Bool = NewLeaf("bool", ast.TypeOf(ast.TypeBoolean),
		func(b bool) (value.Value, error) { return value.Bool(b), nil },
		func(v value.Value) (bool, error) { return v.Bool(), nil },
	)

	Int8  = ints[int8]("int8", ast.TypeInt8)
	Int16 = ints[int16]("int16", ast.TypeInt16)
	Int32 = ints[int32]("int32", ast.TypeInt32)
	Int64 = ints[int64]("int64", ast.TypeInt64)
	Int   = ints[int]("int", ast.TypeInt64)

	Float32 = floats[float32]("float32", ast.TypeFloat32)
	Float64 = floats[float64]("float64", ast.TypeFloat64)

	// Text is an unbounded string.
	Text = String(0)

	// Blob is an unbounded byte slice.
	Blob = Bytes(0)

	// Time stores instants as Unix nanoseconds. Recovered times are in UTC;
	// instants outside the years 1678 to 2262 are rejected.
	Time = NewLeaf("time", ast.TypeOf(ast.TypeInt64),
		func(t time.Time) (value.Value, error) {
			if t.Before(minTime) || t.After(maxTime) {
				return value.Value{}, fmt.Errorf("outside the range of Unix nanoseconds")
			}
			return value.Int(t.UnixNano()), nil
		},
		func(v value.Value) (time.Time, error) { return time.Unix(0, v.Int()).UTC(), nil },
	)

	// UUID stores identifiers in their canonical 36 character form.
	UUID = NewLeaf("uuid", mustType(ast.TypeString, 36),
		func(id uuid.UUID) (value.Value, error) { return value.String(id.String()), nil },
		func(v value.Value) (uuid.UUID, error) { return uuid.Parse(v.Str()) },
	)

	// ULID stores identifiers in their 26 character Crockford base32 form.
	ULID = NewLeaf("ulid", mustType(ast.TypeString, ulid.EncodedSize),
		func(id ulid.ULID) (value.Value, error) { return value.String(id.String()), nil },
		func(v value.Value) (ulid.ULID, error) { return ulid.ParseStrict(v.Str()) },
	)
)

var (
	minTime = time.Unix(0, math.MinInt64)
	maxTime = time.Unix(0, math.MaxInt64)
)

// String returns a converter for strings of at most length characters; zero
// means unbounded.
func String(length int) *Leaf[string] {
	name := "string"
	if length > 0 {
		name = fmt.Sprintf("string(%d)", length)
	}
	return NewLeaf(name, mustType(ast.TypeString, length),
		func(s string) (value.Value, error) { return value.String(s), nil },
		func(v value.Value) (string, error) { return v.Str(), nil },
	)
}

// Bytes returns a converter for byte slices of at most length bytes; zero
// means unbounded.
func Bytes(length int) *Leaf[[]byte] {
	name := "bytes"
	if length > 0 {
		name = fmt.Sprintf("bytes(%d)", length)
	}
	return NewLeaf(name, mustType(ast.TypeBinary, length),
		func(b []byte) (value.Value, error) { return value.Binary(b), nil },
		func(v value.Value) ([]byte, error) { return v.Bytes(), nil },
	)
}

func mustType(kind ast.TypeKind, length int) ast.DataType {
	dt, err := ast.NewDataType(kind, length)
	if err != nil {
		panic(err)
	}
	return dt
}
