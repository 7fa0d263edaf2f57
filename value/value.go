// Package value defines the discriminated values carried between statements,
// the execution primitive and object reconstruction.
package value

import (
	"bytes"
	"encoding/hex"
	"strconv"
)

// Kind discriminates the payload of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBinary
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "boolean",
	KindInt:    "integer",
	KindFloat:  "float",
	KindString: "string",
	KindBinary: "binary",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is an immutable bound value. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

func Null() Value           { return Value{} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }

func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.i = 1
	}
	return v
}

// Binary copies b so later writes to the caller's slice are not observed.
func Binary(b []byte) Value {
	if b == nil {
		return Value{kind: KindBinary, b: []byte{}}
	}
	return Value{kind: KindBinary, b: bytes.Clone(b)}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) Bool() bool     { return v.i != 0 }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string    { return v.s }

// Bytes returns a copy of the binary payload.
func (v Value) Bytes() []byte { return bytes.Clone(v.b) }

// Number returns the numeric payload as float64 for integer and float values.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Any returns the value as a driver argument.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.i != 0
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBinary:
		return bytes.Clone(v.b)
	}
	return nil
}

// Equal reports whether both values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool, KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBinary:
		return bytes.Equal(v.b, o.b)
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindBinary:
		return "x'" + hex.EncodeToString(v.b) + "'"
	}
	return "NULL"
}

// Args converts values to driver arguments, preserving order.
func Args(values []Value) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v.Any()
	}
	return args
}
