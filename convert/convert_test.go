package convert

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/dialect"
	"github.com/Konsultn-Engineering/tabular/errs"
	"github.com/Konsultn-Engineering/tabular/value"
)

// =========================================================================
// Test Types
// =========================================================================

type Pair struct {
	A int32
	B bool
}

type Point struct {
	X, Y int64
}

type Segment struct {
	ID       int64
	From     Point
	To       *Point
	Label    *string
	Recorded time.Time
}

type Price struct {
	Currency string
	Cents    int64
}

type Order struct {
	ID       uuid.UUID
	Currency string
	Total    Price
}

var pairs = MustStruct("Pair",
	func(v []any, _ any) (Pair, error) {
		return Pair{A: v[0].(int32), B: v[1].(bool)}, nil
	},
	Field("a", Int32, func(p Pair) any { return p.A }),
	Field("b", Bool, func(p Pair) any { return p.B }),
)

var points = MustStruct("Point",
	func(v []any, _ any) (Point, error) {
		return Point{X: v[0].(int64), Y: v[1].(int64)}, nil
	},
	Field("x", Int64, func(p Point) any { return p.X }),
	Field("y", Int64, func(p Point) any { return p.Y }),
)

var segments = MustStruct("Segment",
	func(v []any, _ any) (Segment, error) {
		s := Segment{ID: v[0].(int64), From: v[1].(Point), Recorded: v[4].(time.Time)}
		if v[2] != nil {
			to := v[2].(Point)
			s.To = &to
		}
		if v[3] != nil {
			label := v[3].(string)
			s.Label = &label
		}
		return s, nil
	},
	Field("id", Int64, func(s Segment) any { return s.ID }, Annotate("primary;auto_increment")),
	Field("from", points, func(s Segment) any { return s.From }),
	Field("to", points, func(s Segment) any { return s.To }, Annotate("nullable")),
	Field("label", String(16), func(s Segment) any { return s.Label }, Annotate("nullable")),
	Field("recorded", Time, func(s Segment) any { return s.Recorded }),
)

// prices recover their currency from the enclosing order.
var prices = MustStruct("Price",
	func(v []any, provided any) (Price, error) {
		currency, ok := provided.(string)
		if !ok {
			return Price{}, fmt.Errorf("no currency in context")
		}
		return Price{Currency: currency, Cents: v[0].(int64)}, nil
	},
	Field("cents", Checked(Int64, func(v any, provided any) error {
		if provided == "JPY" && v.(int64)%100 != 0 {
			return fmt.Errorf("JPY has no minor unit")
		}
		return nil
	}), func(p Price) any { return p.Cents }),
)

var orders = MustStruct("Order",
	func(v []any, _ any) (Order, error) {
		return Order{ID: v[0].(uuid.UUID), Currency: v[1].(string), Total: v[2].(Price)}, nil
	},
	Field("id", UUID, func(o Order) any { return o.ID }, Annotate("primary")),
	Field("currency", String(3), func(o Order) any { return o.Currency }),
	Field("total", prices, func(o Order) any { return o.Total },
		Provide(func(recovered []any, _ any) any { return recovered[1] })),
)

func render(t *testing.T, d *dialect.Dialect, n ast.Node) *dialect.Statement {
	t.Helper()
	stmt, err := d.Render(n)
	require.NoError(t, err)
	return stmt
}

// =========================================================================
// Convert / Recover
// =========================================================================

func TestPairInsert(t *testing.T) {
	vals, err := Convert(pairs, Pair{A: 2, B: true})
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(2), value.Bool(true)}, vals)

	ins, err := Insert(pairs, DefaultTable(pairs), Pair{A: 2, B: true})
	require.NoError(t, err)

	stmt := render(t, dialect.Base, ins)
	assert.Equal(t, `INSERT INTO "pairs" ("a", "b") VALUES (?, ?)`, stmt.SQL)
	assert.Equal(t, []value.Value{value.Int(2), value.Bool(true)}, stmt.Args)

	stmt = render(t, dialect.Postgres, ins)
	assert.Equal(t, `INSERT INTO "pairs" ("a", "b") VALUES ($1, $2)`, stmt.SQL)
	assert.Equal(t, stmt.Placeholders, len(stmt.Args))
}

func TestRoundTrip(t *testing.T) {
	label := "north"
	in := Segment{
		ID:       7,
		From:     Point{X: 1, Y: 2},
		To:       &Point{X: 3, Y: 4},
		Label:    &label,
		Recorded: time.UnixMilli(1700000000123),
	}

	vals, err := Convert(segments, in)
	require.NoError(t, err)
	require.Len(t, vals, 7)

	out, ok, err := RecoverAs[Segment](segments, value.Args(vals), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.From, out.From)
	assert.Equal(t, in.To, out.To)
	assert.Equal(t, in.Label, out.Label)
	assert.True(t, in.Recorded.Equal(out.Recorded))
}

func TestTimeKeepsNanoseconds(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
	}{
		{"nanosecond instant", time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.UTC)},
		{"before the epoch", time.Date(1901, 12, 13, 20, 45, 52, 1, time.UTC)},
		{"other location", time.Date(2024, 6, 1, 12, 0, 0, 999, time.FixedZone("CEST", 2*3600))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals, err := Convert(Time, tt.in)
			require.NoError(t, err)
			out, ok, err := RecoverAs[time.Time](Time, value.Args(vals), nil)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, tt.in.Equal(out), "got %s", out)
			assert.Equal(t, time.UTC, out.Location())
		})
	}
}

func TestTimeRejectsUnrepresentableInstants(t *testing.T) {
	_, err := Convert(Time, time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errs.IsValidation(err))
}

func TestRecoverCoercesDriverValues(t *testing.T) {
	out, ok, err := RecoverAs[Pair](pairs, []any{int64(2), int64(1)}, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Pair{A: 2, B: true}, out)

	out, ok, err = RecoverAs[Pair](pairs, []any{"-3", "false"}, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Pair{A: -3, B: false}, out)
}

func TestNilConvertsToNulls(t *testing.T) {
	for _, in := range []any{nil, (*Segment)(nil)} {
		vals, err := Convert(segments, in)
		require.NoError(t, err)
		require.Len(t, vals, 7)
		for _, v := range vals {
			assert.True(t, v.IsNull())
		}
	}
}

func TestAllNullRowIsAbsent(t *testing.T) {
	out, err := Recover(segments, make([]any, 7), nil)
	require.NoError(t, err)
	assert.Nil(t, out)

	_, ok, err := RecoverAs[Segment](segments, make([]any, 7), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNullIdentityIsAbsent(t *testing.T) {
	row := []any{nil, int64(1), int64(2), nil, nil, nil, int64(0)}
	out, err := Recover(segments, row, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestNestedNullableFieldIsAbsent(t *testing.T) {
	row := []any{int64(1), int64(1), int64(2), nil, nil, nil, int64(0)}
	out, ok, err := RecoverAs[Segment](segments, row, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, out.To)
	assert.Nil(t, out.Label)
	assert.Equal(t, Point{X: 1, Y: 2}, out.From)
}

func TestNullInNonNullableFieldFails(t *testing.T) {
	row := []any{int64(1), nil, int64(2), nil, nil, nil, int64(0)}
	_, err := Recover(segments, row, nil)
	require.Error(t, err)
	assert.True(t, errs.IsRecovery(err))

	var re *errs.RecoveryError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "from", re.Field)
}

func TestRecoverArityMismatch(t *testing.T) {
	_, err := Recover(pairs, []any{int64(1)}, nil)
	assert.True(t, errs.IsInternal(err))
}

func TestRecoverNamesFailingColumn(t *testing.T) {
	_, err := Recover(pairs, []any{"two", true}, nil)
	require.Error(t, err)

	var re *errs.RecoveryError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "a", re.Field)
	assert.Equal(t, "two", re.Raw)
}

func TestSchemaFlattensNestedFields(t *testing.T) {
	s, err := SchemaOf(segments)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "from_x", "from_y", "to_x", "to_y", "label", "recorded"}, s.Names())
	assert.Equal(t, []string{"id"}, s.PrimaryKey())
	assert.True(t, s.Column(3).Nullable())
	assert.False(t, s.Column(1).Nullable())

	again, err := SchemaOf(segments)
	require.NoError(t, err)
	assert.Same(t, s, again)
}

func TestLeafSchema(t *testing.T) {
	s, err := SchemaOf(Int64)
	require.NoError(t, err)
	assert.Equal(t, []string{"value"}, s.Names())

	vals, err := Convert(Int64, int64(5))
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Int(5)}, vals)
}

// =========================================================================
// Validation
// =========================================================================

type Reading struct {
	Sensor *string
	Value  int32
}

var readings = MustStruct("Reading",
	func(v []any, _ any) (Reading, error) {
		sensor := v[0].(string)
		return Reading{Sensor: &sensor, Value: v[1].(int32)}, nil
	},
	Field("sensor", String(4), func(r Reading) any { return r.Sensor }),
	Field("value", Int32, func(r Reading) any { return r.Value }, Annotate("min:0;max:100")),
)

func TestConvertRejects(t *testing.T) {
	long := "thermometer"
	ok := "t1"
	tests := []struct {
		name   string
		in     Reading
		column string
	}{
		{"null in non-nullable field", Reading{Sensor: nil, Value: 5}, "sensor"},
		{"string too long", Reading{Sensor: &long, Value: 5}, "sensor"},
		{"check violated", Reading{Sensor: &ok, Value: 101}, "value"},
		{"negative", Reading{Sensor: &ok, Value: -1}, "value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals, err := Convert(readings, tt.in)
			assert.Nil(t, vals)
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))

			var ve *errs.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.column, ve.Column)
		})
	}
}

func TestConvertRejectsForeignType(t *testing.T) {
	_, err := Convert(pairs, Point{})
	assert.True(t, errs.IsInternal(err))
}

func TestAutoIncrementMayBeNull(t *testing.T) {
	type Row struct{ ID *int64 }
	rows := MustStruct("Row",
		func(v []any, _ any) (Row, error) { return Row{}, nil },
		Field("id", Int64, func(r Row) any { return r.ID }, Annotate("primary;auto_increment")),
	)
	vals, err := Convert(rows, Row{})
	require.NoError(t, err)
	assert.True(t, vals[0].IsNull())
}

func TestNewStructRejectsMalformed(t *testing.T) {
	build := func([]any, any) (Pair, error) { return Pair{}, nil }

	_, err := NewStruct[Pair]("Empty", build)
	assert.True(t, errs.IsStructural(err))

	_, err = NewStruct("NoBuild", nil, Field("a", Int32, func(p Pair) any { return p.A }))
	assert.True(t, errs.IsStructural(err))

	_, err = NewStruct("Dup", build,
		Field("a", Int32, func(p Pair) any { return p.A }),
		Field("a", Bool, func(p Pair) any { return p.B }),
	)
	assert.True(t, errs.IsStructural(err))

	_, err = NewStruct("BadDefault", build,
		Field("a", Int32, func(p Pair) any { return p.A }, Annotate("default:abc")),
	)
	assert.True(t, errs.IsStructural(err))
}

// =========================================================================
// Provided Context
// =========================================================================

func TestProvidedContextFromEarlierFields(t *testing.T) {
	id := uuid.MustParse("6f1c1a8e-0a3b-4a4e-9d55-2f0a0c1c9b10")
	in := Order{ID: id, Currency: "EUR", Total: Price{Currency: "EUR", Cents: 1250}}

	vals, err := Convert(orders, in)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.String(id.String()), value.String("EUR"), value.Int(1250)}, vals)

	out, ok, err := RecoverAs[Order](orders, value.Args(vals), nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestCheckedUsesProvidedContext(t *testing.T) {
	row := []any{"6f1c1a8e-0a3b-4a4e-9d55-2f0a0c1c9b10", "JPY", int64(1250)}
	_, err := Recover(orders, row, nil)
	require.Error(t, err)

	var re *errs.RecoveryError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "total_cents", re.Field)

	row[2] = int64(1200)
	out, ok, err := RecoverAs[Order](orders, row, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Price{Currency: "JPY", Cents: 1200}, out.Total)
}

func TestBuildErrorIsRecoveryError(t *testing.T) {
	_, err := Recover(prices, []any{int64(1)}, nil)
	assert.True(t, errs.IsRecovery(err))

	out, err := Recover(prices, []any{int64(1)}, "USD")
	require.NoError(t, err)
	assert.Equal(t, Price{Currency: "USD", Cents: 1}, out)
}

// =========================================================================
// Leaves
// =========================================================================

func TestIdentifierLeaves(t *testing.T) {
	u, err := NewUUID()
	require.NoError(t, err)
	vals, err := Convert(UUID, u)
	require.NoError(t, err)
	back, err := Recover(UUID, value.Args(vals), nil)
	require.NoError(t, err)
	assert.Equal(t, u, back)

	first, err := NewULID()
	require.NoError(t, err)
	second, err := NewULID()
	require.NoError(t, err)
	assert.Less(t, first.Compare(second), 0)

	vals, err = Convert(ULID, second)
	require.NoError(t, err)
	back, err = Recover(ULID, value.Args(vals), nil)
	require.NoError(t, err)
	assert.Equal(t, second, back.(ulid.ULID))

	_, err = Recover(UUID, []any{"not-a-uuid"}, nil)
	assert.True(t, errs.IsRecovery(err))
}

func TestBytesLeaf(t *testing.T) {
	vals, err := Convert(Bytes(2), []byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.Binary([]byte{1, 2})}, vals)

	_, err = Convert(Bytes(2), []byte{1, 2, 3})
	assert.True(t, errs.IsValidation(err))
}

// =========================================================================
// Statements
// =========================================================================

func TestCreateTableFromConverter(t *testing.T) {
	ct, err := CreateTable(pairs, DefaultTable(pairs), true)
	require.NoError(t, err)
	stmt := render(t, dialect.Base, ct)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "pairs" ("a" INT NOT NULL, "b" BOOLEAN NOT NULL)`, stmt.SQL)
	assert.Empty(t, stmt.Args)

	dt, err := DropTable(DefaultTable(pairs), true)
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE IF EXISTS "pairs"`, render(t, dialect.Base, dt).SQL)
}

func TestInsertSkipsUnassignedAutoIncrement(t *testing.T) {
	ins, err := Insert(segments, DefaultTable(segments), Segment{From: Point{X: 1, Y: 2}})
	require.NoError(t, err)

	stmt := render(t, dialect.Base, ins)
	assert.Equal(t, `INSERT INTO "segments" ("from_x", "from_y", "to_x", "to_y", "label", "recorded") VALUES (?, ?, ?, ?, ?, ?)`, stmt.SQL)
	assert.Len(t, stmt.Args, 6)

	ins, err = Insert(pairs, DefaultTable(pairs), Pair{A: 1}, Pair{A: 2, B: true})
	require.NoError(t, err)
	stmt = render(t, dialect.Base, ins)
	assert.Equal(t, `INSERT INTO "pairs" ("a", "b") VALUES (?, ?), (?, ?)`, stmt.SQL)
	assert.Equal(t, 4, stmt.Placeholders)
}

func TestWhereWithPrefix(t *testing.T) {
	where, err := Where(points, Point{X: 1, Y: 2}, "from")
	require.NoError(t, err)
	sel, err := Select(segments, DefaultTable(segments), where)
	require.NoError(t, err)

	stmt := render(t, dialect.Base, sel)
	assert.Equal(t,
		`SELECT "id", "from_x", "from_y", "to_x", "to_y", "label", "recorded" FROM ("segments") `+
			`WHERE (("from_x") = (?)) AND (("from_y") = (?))`, stmt.SQL)
	assert.Equal(t, []value.Value{value.Int(1), value.Int(2)}, stmt.Args)

	where, err = Where(points, nil, "to")
	require.NoError(t, err)
	stmt = render(t, dialect.Base, where)
	assert.Equal(t, `(("to_x") IS NULL) AND (("to_y") IS NULL)`, stmt.SQL)
	assert.Empty(t, stmt.Args)

	where, err = Where(Int64, int64(3), "id")
	require.NoError(t, err)
	assert.Equal(t, `("id") = (?)`, render(t, dialect.Base, where).SQL)
}

func TestUpdateAndDeleteByKey(t *testing.T) {
	in := Segment{ID: 9, From: Point{X: 1, Y: 2}, Recorded: time.UnixMilli(5)}

	upd, err := Update(segments, DefaultTable(segments), in)
	require.NoError(t, err)
	stmt := render(t, dialect.Base, upd)
	assert.Equal(t,
		`UPDATE "segments" SET "from_x" = ?, "from_y" = ?, "to_x" = ?, "to_y" = ?, "label" = ?, "recorded" = ? WHERE ("id") = (?)`,
		stmt.SQL)
	assert.Equal(t, value.Int(9), stmt.Args[len(stmt.Args)-1])
	assert.Equal(t, stmt.Placeholders, len(stmt.Args))

	del, err := Delete(segments, DefaultTable(segments), in)
	require.NoError(t, err)
	stmt = render(t, dialect.Postgres, del)
	assert.Equal(t, `DELETE FROM "segments" WHERE ("id") = ($1)`, stmt.SQL)

	_, err = Delete(pairs, DefaultTable(pairs), Pair{})
	assert.True(t, errs.IsStructural(err))
}
