package dialect

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/errs"
	"github.com/Konsultn-Engineering/tabular/value"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func testTable() *ast.Table { return must(ast.NewTable("default", "test_table")) }

func orderedSelect() *ast.OrderedSelect {
	sel := must(ast.SelectAll(nil, testTable()))
	term := must(ast.NewOrderingTerm(ast.Col("first_column"), false))
	return must(ast.NewOrderedSelect(sel, must(ast.NewOrderBy(term)), 10, 20))
}

func createTable() *ast.CreateTable {
	first := must(ast.NewColumnDef("first_column", ast.TypeOf(ast.TypeInt32), true, nil,
		ast.NewPrimaryKey().AutoIncrement()))
	second := must(ast.NewColumnDef("second_column", ast.TypeOf(ast.TypeBoolean), true, ast.Bool(true)))
	between := must(ast.NewBetween(ast.Col("third_column"), ast.String("hello"), ast.String("world")))
	third := must(ast.NewColumnDef("third_column", must(ast.NewDataType(ast.TypeString, 64)), true, nil,
		must(ast.NewCheck(between))))
	fk := must(ast.NewForeignKey([]string{"first_column"}, testTable(), []string{"first_column"},
		ast.Restrict, ast.Cascade)).Named("self_reference")
	return must(ast.NewCreateTable(testTable(), true, []*ast.ColumnDef{first, second, third}, fk))
}

func TestRenderOrderedSelect(t *testing.T) {
	stmt, err := Base.Render(orderedSelect())
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM ("default"."test_table") ORDER BY "first_column" DESC LIMIT 10 OFFSET 20`, stmt.SQL)
	assert.Zero(t, stmt.Placeholders)
	assert.Empty(t, stmt.Args)

	stmt, err = Postgres.Render(orderedSelect())
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "default"."test_table" ORDER BY "first_column" DESC LIMIT 10 OFFSET 20`, stmt.SQL)
}

func TestRenderCreateTable(t *testing.T) {
	tests := []struct {
		dialect *Dialect
		want    string
	}{
		{Base, `CREATE TABLE IF NOT EXISTS "default"."test_table" (` +
			`"first_column" INT NOT NULL PRIMARY KEY AUTOINCREMENT, ` +
			`"second_column" BOOLEAN NOT NULL DEFAULT TRUE, ` +
			`"third_column" VARCHAR(64) NOT NULL CHECK (("third_column") BETWEEN ('hello') AND ('world')), ` +
			`CONSTRAINT "self_reference" FOREIGN KEY ("first_column") REFERENCES "default"."test_table" ("first_column") ON DELETE RESTRICT ON UPDATE CASCADE)`},
		{SQLite, `CREATE TABLE IF NOT EXISTS "default"."test_table" (` +
			`"first_column" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT, ` +
			`"second_column" BOOLEAN NOT NULL DEFAULT 1, ` +
			`"third_column" VARCHAR(64) NOT NULL CHECK (("third_column") BETWEEN ('hello') AND ('world')), ` +
			`CONSTRAINT "self_reference" FOREIGN KEY ("first_column") REFERENCES "default"."test_table" ("first_column") ON DELETE RESTRICT ON UPDATE CASCADE)`},
		{Postgres, `CREATE TABLE IF NOT EXISTS "default"."test_table" (` +
			`"first_column" INT NOT NULL GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY, ` +
			`"second_column" BOOLEAN NOT NULL DEFAULT TRUE, ` +
			`"third_column" VARCHAR(64) NOT NULL CHECK (("third_column") BETWEEN ('hello') AND ('world')), ` +
			`CONSTRAINT "self_reference" FOREIGN KEY ("first_column") REFERENCES "default"."test_table" ("first_column") ON DELETE RESTRICT ON UPDATE CASCADE)`},
		{MySQL, "CREATE TABLE IF NOT EXISTS `default`.`test_table` (" +
			"`first_column` INT NOT NULL AUTO_INCREMENT PRIMARY KEY, " +
			"`second_column` BOOLEAN NOT NULL DEFAULT TRUE, " +
			"`third_column` VARCHAR(64) NOT NULL CHECK ((`third_column`) BETWEEN ('hello') AND ('world')), " +
			"CONSTRAINT `self_reference` FOREIGN KEY (`first_column`) REFERENCES `default`.`test_table` (`first_column`) ON DELETE RESTRICT ON UPDATE CASCADE)"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name(), func(t *testing.T) {
			stmt, err := tt.dialect.Render(createTable())
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.SQL)
			assert.Zero(t, stmt.Placeholders, "declarations never bind")
		})
	}
}

func pairInsert() *ast.Insert {
	row := must(ast.NewValues(ast.Int(2), ast.Bool(true)))
	return must(ast.NewInsert(ast.Tbl("t"), ast.Cols("a", "b"), row))
}

func TestRenderInsertBindsInOrder(t *testing.T) {
	stmt, err := Base.Render(pairInsert())
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "t" ("a", "b") VALUES (?, ?)`, stmt.SQL)
	assert.Equal(t, 2, stmt.Placeholders)
	assert.Equal(t, []value.Value{value.Int(2), value.Bool(true)}, stmt.Args)
	assert.Equal(t, []any{int64(2), true}, stmt.Any())

	stmt, err = Postgres.Render(pairInsert())
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "t" ("a", "b") VALUES ($1, $2)`, stmt.SQL)
}

func TestRenderInlineLeavesNoPlaceholders(t *testing.T) {
	stmt, err := Base.RenderInline(pairInsert())
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "t" ("a", "b") VALUES (2, TRUE)`, stmt.SQL)
	assert.Zero(t, stmt.Placeholders)

	stmt, err = SQLite.RenderInline(pairInsert())
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "t" ("a", "b") VALUES (2, 1)`, stmt.SQL)
}

func TestPlaceholderCountMatchesBoundValues(t *testing.T) {
	cond := must(ast.NewBinary(
		must(ast.NewBinary(ast.Col("a"), ast.OpEqual, ast.Int(1))),
		ast.OpAnd,
		must(ast.NewIn(ast.Col("b"), ast.String("x"), ast.String("y"), ast.Null())),
	))
	set := []*ast.Assignment{
		must(ast.NewAssignment(ast.Col("c"), ast.Float(1.5))),
		must(ast.NewAssignment(ast.Col("d"), ast.Binary([]byte{0xca, 0xfe}))),
	}
	stmts := []ast.Node{
		must(ast.NewUpdate(ast.Tbl("t"), set, cond)),
		must(ast.NewDelete(ast.Tbl("t"), cond)),
		must(ast.SelectAll(cond, ast.Tbl("t"))),
		pairInsert(),
	}

	for _, d := range []*Dialect{Base, SQLite, Postgres, MySQL, TiDB} {
		for _, s := range stmts {
			stmt, err := d.Render(s)
			require.NoError(t, err, "%s %s", d, s.Type())
			assert.Equal(t, stmt.Placeholders, len(stmt.Args), "%s %s", d, s.Type())
		}
	}

	stmt, err := Base.Render(stmts[0])
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "t" SET "c" = ?, "d" = ? WHERE (("a") = (?)) AND (("b") IN (?, ?, ?))`, stmt.SQL)
	assert.Equal(t, []value.Value{
		value.Float(1.5), value.Binary([]byte{0xca, 0xfe}),
		value.Int(1), value.String("x"), value.String("y"), value.Null(),
	}, stmt.Args)

	stmt, err = Postgres.Render(stmts[1])
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "t" WHERE (("a") = ($1)) AND (("b") IN ($2, $3, $4))`, stmt.SQL)
}

func TestBooleanOverrideChangesOnlyBooleans(t *testing.T) {
	nodes := []ast.Node{
		ast.Null(), ast.Int(-3), ast.Float(2.25), ast.String("it's"), ast.Binary([]byte{1, 255}),
		ast.Col("x"), testTable(),
		must(ast.NewUnary(ast.OpNot, ast.Col("x"))),
		must(ast.NewUnary(ast.OpIsNull, ast.Col("x"))),
		must(ast.NewBetween(ast.Col("x"), ast.Int(1), ast.Int(2))),
		orderedSelect(),
	}
	for _, n := range nodes {
		base, err := Base.RenderInline(n)
		require.NoError(t, err)
		sqlite, err := SQLite.RenderInline(n)
		require.NoError(t, err)
		assert.Equal(t, base.SQL, sqlite.SQL, n.Type().String())
	}

	for in, want := range map[bool]string{true: "1", false: "0"} {
		stmt, err := SQLite.RenderInline(ast.Bool(in))
		require.NoError(t, err)
		assert.Equal(t, want, stmt.SQL)
	}
	stmt, err := Base.RenderInline(ast.Bool(false))
	require.NoError(t, err)
	assert.Equal(t, "FALSE", stmt.SQL)
}

func TestInlineLiterals(t *testing.T) {
	tests := []struct {
		dialect *Dialect
		node    ast.Node
		want    string
	}{
		{Base, ast.String("it's"), `'it''s'`},
		{MySQL, ast.String(`a\b'c`), `'a\\b''c'`},
		{Base, ast.Binary([]byte{0xde, 0xad}), `X'DEAD'`},
		{Postgres, ast.Binary([]byte{0xde, 0xad}), `'\xdead'`},
		{Base, ast.Float(0.1), `0.1`},
		{Base, ast.Null(), `NULL`},
		{Base, ast.Ident(`we"ird`), `"we""ird"`},
		{MySQL, ast.Ident("we`ird"), "`we``ird`"},
		{Base, must(ast.NewUnary(ast.OpAbs, ast.Col("x"))), `ABS("x")`},
		{Base, must(ast.NewUnary(ast.OpIsNotNull, ast.Col("x"))), `("x") IS NOT NULL`},
		{Base, must(ast.NewDropTable(ast.Tbl("t"), true)), `DROP TABLE IF EXISTS "t"`},
		{MySQL, ast.TypeOf(ast.TypeFloat64), `DOUBLE`},
		{Postgres, ast.TypeOf(ast.TypeBinary), `BYTEA`},
		{TiDB, ast.NewPrimaryKey().AutoIncrement(), `PRIMARY KEY AUTO_RANDOM`},
		{TiDB, ast.Ident("x"), "`x`"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.Name()+"/"+tt.want, func(t *testing.T) {
			stmt, err := tt.dialect.RenderInline(tt.node)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stmt.SQL)
		})
	}
}

func TestInlineNonFiniteFloatIsInternal(t *testing.T) {
	tests := []struct {
		name string
		f    float64
	}{
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"negative inf", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, d := range []*Dialect{Base, SQLite, Postgres, MySQL} {
				_, err := d.RenderInline(ast.Float(tt.f))
				require.Error(t, err, d.Name())
				assert.ErrorIs(t, err, errs.ErrInternal)
			}

			// bound as a parameter the value is left to the driver
			stmt, err := Base.Render(ast.Float(tt.f))
			require.NoError(t, err)
			assert.Equal(t, "?", stmt.SQL)
		})
	}
}

func TestUnregisteredNodeIsInternal(t *testing.T) {
	d := New("partial", nil).Register(ast.NodeColumn, Typed(transcribeColumn))
	_, err := d.Render(ast.Col("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInternal)
	assert.NotErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, err.Error(), "identifier")
}

func TestMismatchedBindingIsInternal(t *testing.T) {
	// a literal transcriber that binds without writing a placeholder
	d := New("broken", Base).Register(ast.NodeIntLiteral, Typed(func(_ *Dialect, w *Writer, l *ast.Literal, _ bool) error {
		w.Bind(l.Value())
		w.WriteString("?")
		return nil
	}))
	_, err := d.Render(pairInsert())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInternal)
}

func TestRegisterAfterFreezePanics(t *testing.T) {
	d := New("custom", Base)
	_, err := d.Render(ast.Col("x"))
	require.NoError(t, err)
	assert.True(t, d.Frozen())
	assert.Panics(t, func() { d.Register(ast.NodeColumn, Text("x")) })
	assert.Panics(t, func() { Base.Register(ast.NodeColumn, Text("x")) })
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"base", "sqlite", "postgres", "mysql", "tidb"} {
		d, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
		assert.Empty(t, d.Missing(), name)
	}
	_, err := Get("oracle")
	assert.Error(t, err)
	assert.Contains(t, Names(), "sqlite")
}
