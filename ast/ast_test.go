package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/tabular/errs"
)

func TestNodeTypeNames(t *testing.T) {
	for _, nt := range NodeTypes() {
		assert.NotEmpty(t, nt.String())
		assert.NotContains(t, nt.String(), "node(")
	}
	assert.Equal(t, "node(999)", NodeType(999).String())
}

func TestLiteralTypeFollowsValueKind(t *testing.T) {
	tests := []struct {
		lit  *Literal
		want NodeType
	}{
		{Null(), NodeNullLiteral},
		{Bool(true), NodeBoolLiteral},
		{Int(1), NodeIntLiteral},
		{Float(1.5), NodeFloatLiteral},
		{String("x"), NodeStringLiteral},
		{Binary([]byte{1}), NodeBinaryLiteral},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lit.Type())
		})
	}
}

func TestConstructorsRejectMalformedShapes(t *testing.T) {
	col := Col("a")
	tbl := Tbl("t")

	tests := []struct {
		name  string
		build func() error
	}{
		{"between without lower", func() error { _, err := NewBetween(col, nil, Int(1)); return err }},
		{"between without upper", func() error { _, err := NewBetween(col, Int(1), nil); return err }},
		{"between without target", func() error { _, err := NewBetween(nil, Int(0), Int(1)); return err }},
		{"order by without terms", func() error { _, err := NewOrderBy(); return err }},
		{"ordering term without expr", func() error { _, err := NewOrderingTerm(nil, true); return err }},
		{"select without sources", func() error { _, err := NewSelect([]Expr{col}, nil, nil); return err }},
		{"select with empty projection", func() error { _, err := NewSelect(nil, []*Table{tbl}, nil); return err }},
		{"select mixing all", func() error { _, err := NewSelect([]Expr{All, col}, []*Table{tbl}, nil); return err }},
		{"unknown unary operator", func() error { _, err := NewUnary("SQRT", col); return err }},
		{"unknown binary operator", func() error { _, err := NewBinary(col, "<=>", Int(1)); return err }},
		{"binary without operand", func() error { _, err := NewBinary(col, OpEqual, nil); return err }},
		{"in with empty list", func() error { _, err := NewIn(col); return err }},
		{"empty values", func() error { _, err := NewValues(); return err }},
		{"insert width mismatch", func() error {
			row, _ := NewValues(Int(1))
			_, err := NewInsert(tbl, Cols("a", "b"), row)
			return err
		}},
		{"insert without rows", func() error { _, err := NewInsert(tbl, Cols("a")); return err }},
		{"update without assignments", func() error { _, err := NewUpdate(tbl, nil, nil); return err }},
		{"create table without columns", func() error { _, err := NewCreateTable(tbl, false, nil); return err }},
		{"offset without limit", func() error {
			sel, _ := SelectAll(nil, tbl)
			_, err := NewOrderedSelect(sel, nil, -1, 5)
			return err
		}},
		{"tuple column", func() error { _, err := NewColumnDef("a", TypeOf(TypeTuple), true, nil); return err }},
		{"length on integer", func() error { _, err := NewDataType(TypeInt32, 4); return err }},
		{"column-level constraint with columns", func() error {
			_, err := NewColumnDef("a", TypeOf(TypeInt32), true, nil, NewUnique("a"))
			return err
		}},
		{"foreign key arity", func() error {
			_, err := NewForeignKey([]string{"a", "b"}, tbl, []string{"x"}, NoAction, NoAction)
			return err
		}},
		{"empty column name", func() error { _, err := NewColumn("t", ""); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrStructural)
		})
	}
}

func TestCreateTableChecksConstraintColumns(t *testing.T) {
	a, err := NewColumnDef("a", TypeOf(TypeInt32), true, nil)
	require.NoError(t, err)
	b, err := NewColumnDef("b", TypeOf(TypeBoolean), true, Bool(true))
	require.NoError(t, err)

	_, err = NewCreateTable(Tbl("t"), true, []*ColumnDef{a, b}, NewPrimaryKey("a", "b"))
	require.NoError(t, err)

	_, err = NewCreateTable(Tbl("t"), true, []*ColumnDef{a, b}, NewUnique("c"))
	assert.ErrorIs(t, err, errs.ErrStructural)

	_, err = NewCreateTable(Tbl("t"), true, []*ColumnDef{a, a})
	assert.ErrorIs(t, err, errs.ErrStructural)

	_, err = NewCreateTable(Tbl("t"), true, []*ColumnDef{a}, NewPrimaryKey())
	assert.ErrorIs(t, err, errs.ErrStructural)
}

func TestNodesDoNotAliasCallerSlices(t *testing.T) {
	cols := Cols("a", "b")
	row, err := NewValues(Int(1), Int(2))
	require.NoError(t, err)
	ins, err := NewInsert(Tbl("t"), cols, row)
	require.NoError(t, err)

	cols[0] = Col("z")
	assert.Equal(t, "a", ins.Columns()[0].Name())

	got := ins.Columns()
	got[1] = Col("y")
	assert.Equal(t, "b", ins.Columns()[1].Name())
}

func TestConstraintCopiesOnModify(t *testing.T) {
	pk := NewPrimaryKey()
	auto := pk.AutoIncrement().Named("pk")

	assert.False(t, pk.IsAutoIncrement())
	assert.Empty(t, pk.Name())
	assert.True(t, auto.IsAutoIncrement())
	assert.Equal(t, "pk", auto.Name())
}

func TestConjunction(t *testing.T) {
	a, _ := NewBinary(Col("a"), OpEqual, Int(1))
	b, _ := NewBinary(Col("b"), OpEqual, Int(2))
	c, _ := NewBinary(Col("c"), OpEqual, Int(3))

	single, err := Conjunction(a)
	require.NoError(t, err)
	assert.Same(t, a, single)

	all, err := Conjunction(a, b, c)
	require.NoError(t, err)
	outer := all.(*BinaryExpr)
	assert.Equal(t, OpAnd, outer.Operator())
	assert.Same(t, c, outer.Right())
	inner := outer.Left().(*BinaryExpr)
	assert.Same(t, a, inner.Left())
	assert.Same(t, b, inner.Right())

	_, err = Conjunction()
	assert.ErrorIs(t, err, errs.ErrStructural)
}

func TestParseForeignKeyAction(t *testing.T) {
	tests := map[string]ForeignKeyAction{
		"cascade":     Cascade,
		"SET NULL":    SetNull,
		"set_default": SetDefault,
		"Restrict":    Restrict,
		"no_action":   NoAction,
	}
	for in, want := range tests {
		got, ok := ParseForeignKeyAction(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseForeignKeyAction("explode")
	assert.False(t, ok)
}

func TestOrderedSelectPaging(t *testing.T) {
	sel, err := SelectAll(nil, Tbl("t"))
	require.NoError(t, err)

	o, err := NewOrderedSelect(sel, nil, 10, 20)
	require.NoError(t, err)
	limit, ok := o.Limit()
	assert.True(t, ok)
	assert.Equal(t, 10, limit)
	offset, ok := o.Offset()
	assert.True(t, ok)
	assert.Equal(t, 20, offset)

	o, err = NewOrderedSelect(sel, nil, -1, -1)
	require.NoError(t, err)
	_, ok = o.Limit()
	assert.False(t, ok)
}

func TestOrderedSelectOffsetWithoutLimit(t *testing.T) {
	sel, err := SelectAll(nil, Tbl("t"))
	require.NoError(t, err)

	tests := []struct {
		name          string
		limit, offset int
		wantOffset    bool
		wantErr       bool
	}{
		{"neither", -1, -1, false, false},
		{"zero offset", -1, 0, false, false},
		{"positive offset", -1, 5, false, true},
		{"zero offset with limit", 3, 0, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := NewOrderedSelect(sel, nil, tt.limit, tt.offset)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrStructural)
				return
			}
			require.NoError(t, err)
			_, ok := o.Offset()
			assert.Equal(t, tt.wantOffset, ok)
		})
	}
}
