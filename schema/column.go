package schema

import (
	"encoding/hex"
	"math"
	"slices"
	"strconv"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/value"
)

type CheckKind int

const (
	CheckMin CheckKind = iota
	CheckMax
	CheckPositive
	CheckNonNegative
	CheckNegative
	CheckNonPositive
	CheckMultipleOf
)

// Check is a numeric condition a column value must satisfy.
type Check struct {
	Kind  CheckKind
	Bound float64
}

// Test reports whether v satisfies the check. Null and non-numeric values
// pass; nullability and typing are enforced elsewhere.
func (c Check) Test(v value.Value) bool {
	n, ok := v.Number()
	if !ok {
		return true
	}
	switch c.Kind {
	case CheckMin:
		return n >= c.Bound
	case CheckMax:
		return n <= c.Bound
	case CheckPositive:
		return n > 0
	case CheckNonNegative:
		return n >= 0
	case CheckNegative:
		return n < 0
	case CheckNonPositive:
		return n <= 0
	case CheckMultipleOf:
		return math.Mod(n, c.Bound) == 0
	}
	return true
}

func (c Check) String() string {
	bound := strconv.FormatFloat(c.Bound, 'f', -1, 64)
	switch c.Kind {
	case CheckMin:
		return "must be at least " + bound
	case CheckMax:
		return "must be at most " + bound
	case CheckPositive:
		return "must be positive"
	case CheckNonNegative:
		return "must be non-negative"
	case CheckNegative:
		return "must be negative"
	case CheckNonPositive:
		return "must be non-positive"
	case CheckMultipleOf:
		return "must be a multiple of " + bound
	}
	return "unknown check"
}

// Column describes one column of a schema.
type Column struct {
	name          string
	path          []string
	dataType      ast.DataType
	nullable      bool
	primary       bool
	autoIncrement bool
	unique        bool
	def           *value.Value
	checks        []Check
	ref           *Reference
}

// Name is the flattened column name.
func (c Column) Name() string { return c.name }

// Path lists the field names leading from the root type to this column.
func (c Column) Path() []string { return slices.Clone(c.path) }

func (c Column) DataType() ast.DataType { return c.dataType }
func (c Column) Nullable() bool         { return c.nullable }
func (c Column) Primary() bool          { return c.primary }
func (c Column) AutoIncrement() bool    { return c.autoIncrement }
func (c Column) Unique() bool           { return c.unique }
func (c Column) Checks() []Check        { return slices.Clone(c.checks) }

// Default returns the declared default value, if any.
func (c Column) Default() (value.Value, bool) {
	if c.def == nil {
		return value.Null(), false
	}
	return *c.def, true
}

// Reference returns the column-level foreign key target, if any.
func (c Column) Reference() *Reference { return c.ref }

// Renamed returns a copy of c named prefix_name.
func (c Column) Renamed(prefix string) Column {
	c.name = JoinName(prefix, c.name)
	return c
}

// Validate returns the first check v violates.
func (c Column) Validate(v value.Value) (Check, bool) {
	for _, chk := range c.checks {
		if !chk.Test(v) {
			return chk, false
		}
	}
	return Check{}, true
}

// parseDefault reads a default literal for the column's type.
func parseDefault(raw string, dt ast.DataType) (value.Value, error) {
	switch dt.Kind() {
	case ast.TypeBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(b), nil
	case ast.TypeInt8, ast.TypeInt16, ast.TypeInt32, ast.TypeInt64:
		i, err := strconv.ParseInt(raw, 10, dt.Kind().Bits())
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(i), nil
	case ast.TypeFloat32, ast.TypeFloat64:
		f, err := strconv.ParseFloat(raw, dt.Kind().Bits())
		if err != nil {
			return value.Value{}, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return value.Value{}, strconv.ErrRange
		}
		return value.Float(f), nil
	case ast.TypeString:
		if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
			raw = raw[1 : len(raw)-1]
		}
		return value.String(raw), nil
	case ast.TypeBinary:
		b, err := hex.DecodeString(raw)
		if err != nil {
			return value.Value{}, err
		}
		return value.Binary(b), nil
	}
	return value.Value{}, strconv.ErrSyntax
}
