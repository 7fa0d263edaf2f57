package binder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/errs"
	"github.com/Konsultn-Engineering/tabular/schema"
	"github.com/Konsultn-Engineering/tabular/value"
)

type desc struct {
	name   string
	fields []schema.Field
}

func (d *desc) TypeName() string       { return d.name }
func (d *desc) Fields() []schema.Field { return d.fields }

var student = &desc{name: "Student", fields: []schema.Field{
	{Name: "id", Type: ast.TypeOf(ast.TypeInt64), Annotations: "primary"},
	{Name: "name", Type: must(ast.NewDataType(ast.TypeString, 5))},
	{Name: "age", Type: ast.TypeOf(ast.TypeInt8), Annotations: "non_negative"},
	{Name: "active", Type: ast.TypeOf(ast.TypeBoolean), Annotations: "nullable"},
}}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func studentSchema(t *testing.T) *schema.Schema {
	s, err := schema.Derive(student)
	require.NoError(t, err)
	return s
}

func TestEncoderCollectsInOrder(t *testing.T) {
	enc := NewEncoder(studentSchema(t))
	require.NoError(t, enc.Push(value.Int(1)))
	require.NoError(t, enc.Push(value.String("ada")))
	require.NoError(t, enc.Push(value.Int(36)))
	assert.Equal(t, 3, enc.Position())
	require.NoError(t, enc.PushNull(1))

	got, err := enc.Finish()
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(1), value.String("ada"), value.Int(36), value.Null()}, got)
}

func TestEncoderArity(t *testing.T) {
	enc := NewEncoder(studentSchema(t))
	require.NoError(t, enc.Push(value.Int(1)))
	_, err := enc.Finish()
	assert.ErrorIs(t, err, errs.ErrInternal)

	require.NoError(t, enc.PushNull(3))
	err = enc.Push(value.Int(5))
	assert.ErrorIs(t, err, errs.ErrInternal)
}

func TestEncoderRejects(t *testing.T) {
	tests := []struct {
		name     string
		prefix   []value.Value
		value    value.Value
		sentinel error
	}{
		{"wrong kind", nil, value.String("1"), errs.ErrInternal},
		{"too long", []value.Value{value.Int(1)}, value.String("grace" + "!"), errs.ErrValidation},
		{"overflow", []value.Value{value.Int(1), value.String("x")}, value.Int(300), errs.ErrValidation},
		{"check", []value.Value{value.Int(1), value.String("x")}, value.Int(-1), errs.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewEncoder(studentSchema(t))
			for _, v := range tt.prefix {
				require.NoError(t, enc.Push(v))
			}
			err := enc.Push(tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestValidationErrorNamesColumn(t *testing.T) {
	enc := NewEncoder(studentSchema(t))
	require.NoError(t, enc.Push(value.Int(1)))
	require.NoError(t, enc.Push(value.String("x")))
	err := enc.Push(value.Int(-4))

	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Student", verr.Type)
	assert.Equal(t, "age", verr.Column)
	assert.Equal(t, "-4", verr.Value)
	assert.Equal(t, "must be non-negative", verr.Reason)
}

func TestDecoderCoercesPerColumn(t *testing.T) {
	dec, err := NewDecoder(studentSchema(t), []any{int32(7), []byte("ada"), "12", int64(1)})
	require.NoError(t, err)

	var got []value.Value
	for dec.Remaining() > 0 {
		v, err := dec.Next()
		require.NoError(t, err)
		got = append(got, v)
	}
	require.NoError(t, dec.Finish())
	assert.Equal(t, []value.Value{value.Int(7), value.String("ada"), value.Int(12), value.Bool(true)}, got)
}

func TestDecoderErrors(t *testing.T) {
	s := studentSchema(t)

	_, err := NewDecoder(s, []any{1, 2})
	assert.ErrorIs(t, err, errs.ErrInternal)

	dec, err := NewDecoder(s, []any{"seven", nil, nil, nil})
	require.NoError(t, err)
	_, err = dec.Next()
	var rerr *errs.RecoveryError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "id", rerr.Field)
	assert.Equal(t, "seven", rerr.Raw)

	require.NoError(t, dec.Skip(2))
	assert.ErrorIs(t, dec.Finish(), errs.ErrInternal)
	assert.ErrorIs(t, dec.Skip(2), errs.ErrInternal)
	require.NoError(t, dec.Skip(1))
	require.NoError(t, dec.Finish())
	_, err = dec.Next()
	assert.ErrorIs(t, err, errs.ErrInternal)
}

func TestCoerce(t *testing.T) {
	stamp := time.UnixMilli(1700000000123)
	tests := []struct {
		name string
		raw  any
		kind ast.TypeKind
		want value.Value
		fail bool
	}{
		{"nil", nil, ast.TypeInt32, value.Null(), false},
		{"bool from bool", true, ast.TypeBoolean, value.Bool(true), false},
		{"bool from int", int64(0), ast.TypeBoolean, value.Bool(false), false},
		{"bool from text", []byte("t"), ast.TypeBoolean, value.Bool(true), false},
		{"bool from 2", int64(2), ast.TypeBoolean, value.Value{}, true},
		{"int from int16", int16(-3), ast.TypeInt64, value.Int(-3), false},
		{"int from uint32", uint32(9), ast.TypeInt64, value.Int(9), false},
		{"int from float", 4.0, ast.TypeInt32, value.Int(4), false},
		{"int from fraction", 4.5, ast.TypeInt32, value.Value{}, true},
		{"int overflow", int64(128), ast.TypeInt8, value.Value{}, true},
		{"int from bytes", []byte(" 42"), ast.TypeInt16, value.Int(42), false},
		{"int from time", stamp, ast.TypeInt64, value.Int(1700000000123), false},
		{"int from huge uint", uint64(1 << 63), ast.TypeInt64, value.Value{}, true},
		{"float from int", int64(3), ast.TypeFloat64, value.Float(3), false},
		{"float from text", "2.5", ast.TypeFloat32, value.Float(2.5), false},
		{"string from bytes", []byte("hi"), ast.TypeString, value.String("hi"), false},
		{"string from int", 5, ast.TypeString, value.Value{}, true},
		{"binary from string", "ab", ast.TypeBinary, value.Binary([]byte("ab")), false},
		{"tuple", 1, ast.TypeTuple, value.Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.raw, ast.TypeOf(tt.kind))
			if tt.fail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}
