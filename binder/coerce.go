package binder

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/value"
)

// Coerce converts a raw driver value to a bound value of type dt. Drivers
// disagree on representations (SQLite returns booleans as integers, MySQL's
// text protocol returns everything as bytes) so each target accepts every
// lossless source.
func Coerce(raw any, dt ast.DataType) (value.Value, error) {
	if raw == nil {
		return value.Null(), nil
	}
	switch k := dt.Kind(); {
	case k == ast.TypeBoolean:
		return coerceBool(raw)
	case k.IsInteger():
		return coerceInt(raw, k.Bits())
	case k == ast.TypeFloat32 || k == ast.TypeFloat64:
		return coerceFloat(raw)
	case k == ast.TypeString:
		return coerceString(raw)
	case k == ast.TypeBinary:
		return coerceBinary(raw)
	}
	return value.Value{}, fmt.Errorf("cannot decode into %s", dt)
}

// ===================
// BOOL
// ===================
func coerceBool(raw any) (value.Value, error) {
	switch v := raw.(type) {
	case bool:
		return value.Bool(v), nil
	case string:
		return parseBool(v)
	case []byte:
		return parseBool(string(v))
	}
	if i, ok := asInt64(raw); ok {
		switch i {
		case 0:
			return value.Bool(false), nil
		case 1:
			return value.Bool(true), nil
		}
		return value.Value{}, fmt.Errorf("integer %d is not a boolean", i)
	}
	return value.Value{}, fmt.Errorf("cannot convert %T to boolean", raw)
}

func parseBool(s string) (value.Value, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true":
		return value.Bool(true), nil
	case "0", "f", "false":
		return value.Bool(false), nil
	}
	return value.Value{}, fmt.Errorf("%q is not a boolean", s)
}

// ===================
// INTEGER
// ===================
func coerceInt(raw any, bits int) (value.Value, error) {
	var (
		i   int64
		err error
	)
	switch v := raw.(type) {
	case string:
		i, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case []byte:
		i, err = strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	case bool:
		if v {
			i = 1
		}
	case float32:
		i, err = integral(float64(v))
	case float64:
		i, err = integral(v)
	case uint64:
		if v > math.MaxInt64 {
			err = fmt.Errorf("%d overflows int64", v)
		}
		i = int64(v)
	case time.Time:
		i = v.UnixMilli()
	default:
		var ok bool
		if i, ok = asInt64(raw); !ok {
			return value.Value{}, fmt.Errorf("cannot convert %T to integer", raw)
		}
	}
	if err != nil {
		return value.Value{}, err
	}
	if bits < 64 {
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if i < lo || i > hi {
			return value.Value{}, fmt.Errorf("%d overflows int%d", i, bits)
		}
	}
	return value.Int(i), nil
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

// asInt64 widens the signed and unsigned integer types that fit in int64.
func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), v <= math.MaxInt64
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	}
	return 0, false
}

// ===================
// FLOAT
// ===================
func coerceFloat(raw any) (value.Value, error) {
	switch v := raw.(type) {
	case float64:
		return value.Float(v), nil
	case float32:
		return value.Float(float64(v)), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.Float(f), nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.Float(f), nil
	}
	if i, ok := asInt64(raw); ok {
		return value.Float(float64(i)), nil
	}
	return value.Value{}, fmt.Errorf("cannot convert %T to float", raw)
}

// ===================
// STRING / BINARY
// ===================
func coerceString(raw any) (value.Value, error) {
	switch v := raw.(type) {
	case string:
		return value.String(v), nil
	case []byte:
		return value.String(string(v)), nil
	case fmt.Stringer:
		return value.String(v.String()), nil
	}
	return value.Value{}, fmt.Errorf("cannot convert %T to string", raw)
}

func coerceBinary(raw any) (value.Value, error) {
	switch v := raw.(type) {
	case []byte:
		return value.Binary(v), nil
	case string:
		return value.Binary([]byte(v)), nil
	}
	return value.Value{}, fmt.Errorf("cannot convert %T to binary", raw)
}
