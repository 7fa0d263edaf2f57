package convert

import (
	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/errs"
	"github.com/Konsultn-Engineering/tabular/schema"
	"github.com/Konsultn-Engineering/tabular/value"
)

// DefaultTable names the table holding values of conv: the snake_case plural
// of its type name.
func DefaultTable(conv Converter) *ast.Table {
	return ast.Tbl(schema.TableName(conv.TypeName()))
}

// CreateTable declares a table for conv's schema.
func CreateTable(conv Converter, table *ast.Table, ifNotExists bool) (*ast.CreateTable, error) {
	s, err := SchemaOf(conv)
	if err != nil {
		return nil, err
	}
	return s.CreateTable(table, ifNotExists)
}

func DropTable(table *ast.Table, ifExists bool) (*ast.DropTable, error) {
	return ast.NewDropTable(table, ifExists)
}

// Insert builds one row per instance. Auto-increment columns that are null or
// zero in every row are left out so the database assigns them.
func Insert(conv Converter, table *ast.Table, instances ...any) (*ast.Insert, error) {
	s, err := SchemaOf(conv)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, errs.Structural(ast.NodeInsert.String(), "no rows")
	}

	rows := make([][]value.Value, len(instances))
	for i, inst := range instances {
		if rows[i], err = Convert(conv, inst); err != nil {
			return nil, err
		}
	}

	var keep []int
	for i, col := range s.Columns() {
		if col.AutoIncrement() && unassigned(rows, i) {
			continue
		}
		keep = append(keep, i)
	}

	columns := make([]*ast.Column, len(keep))
	for j, i := range keep {
		columns[j] = ast.Col(s.Column(i).Name())
	}
	values := make([]*ast.Values, len(rows))
	for r, row := range rows {
		exprs := make([]ast.Expr, len(keep))
		for j, i := range keep {
			exprs[j] = ast.NewLiteral(row[i])
		}
		if values[r], err = ast.NewValues(exprs...); err != nil {
			return nil, err
		}
	}
	return ast.NewInsert(table, columns, values...)
}

func unassigned(rows [][]value.Value, col int) bool {
	for _, row := range rows {
		if v := row[col]; !v.IsNull() && v.Int() != 0 {
			return false
		}
	}
	return true
}

// Where matches rows whose columns equal the converted instance. Columns are
// named prefix_column when prefix is set, which selects by a value embedded
// in another type. Null columns match with IS NULL.
func Where(conv Converter, instance any, prefix string) (ast.Expr, error) {
	names, vals, err := columnValues(conv, instance, prefix)
	if err != nil {
		return nil, err
	}
	conds := make([]ast.Expr, len(names))
	for i, name := range names {
		if conds[i], err = equals(name, vals[i]); err != nil {
			return nil, err
		}
	}
	return ast.Conjunction(conds...)
}

// WhereKey matches the row holding instance by its primary key.
func WhereKey(conv Converter, instance any) (ast.Expr, error) {
	s, vals, err := schemaValues(conv, instance)
	if err != nil {
		return nil, err
	}
	pk := s.PrimaryKey()
	if len(pk) == 0 {
		return nil, errs.Structural("schema "+s.TypeName(), "no primary key")
	}
	conds := make([]ast.Expr, len(pk))
	for i, name := range pk {
		if conds[i], err = equals(name, vals[s.Index(name)]); err != nil {
			return nil, err
		}
	}
	return ast.Conjunction(conds...)
}

// Update sets every non-key column of the row holding instance.
func Update(conv Converter, table *ast.Table, instance any) (*ast.Update, error) {
	s, vals, err := schemaValues(conv, instance)
	if err != nil {
		return nil, err
	}
	var assignments []*ast.Assignment
	for i, col := range s.Columns() {
		if col.Primary() {
			continue
		}
		a, err := ast.NewAssignment(ast.Col(col.Name()), ast.NewLiteral(vals[i]))
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	where, err := WhereKey(conv, instance)
	if err != nil {
		return nil, err
	}
	return ast.NewUpdate(table, assignments, where)
}

// Delete removes the row holding instance by its primary key.
func Delete(conv Converter, table *ast.Table, instance any) (*ast.Delete, error) {
	where, err := WhereKey(conv, instance)
	if err != nil {
		return nil, err
	}
	return ast.NewDelete(table, where)
}

// Select projects the columns of conv in schema order, so every result row
// can be handed to Recover unchanged. where may be nil.
func Select(conv Converter, table *ast.Table, where ast.Expr) (*ast.Select, error) {
	s, err := SchemaOf(conv)
	if err != nil {
		return nil, err
	}
	cols := make([]ast.Expr, s.Len())
	for i, name := range s.Names() {
		cols[i] = ast.Col(name)
	}
	return ast.NewSelect(cols, []*ast.Table{table}, where)
}

func schemaValues(conv Converter, instance any) (*schema.Schema, []value.Value, error) {
	s, err := SchemaOf(conv)
	if err != nil {
		return nil, nil, err
	}
	vals, err := Convert(conv, instance)
	if err != nil {
		return nil, nil, err
	}
	return s, vals, nil
}

// columnValues pairs the column names of conv, under prefix, with the values
// of instance. The single column of a leaf converter is named by the prefix.
func columnValues(conv Converter, instance any, prefix string) ([]string, []value.Value, error) {
	s, vals, err := schemaValues(conv, instance)
	if err != nil {
		return nil, nil, err
	}
	if conv.Fields() == nil && prefix != "" {
		return []string{prefix}, vals, nil
	}
	return s.Prefixed(prefix).Names(), vals, nil
}

func equals(column string, v value.Value) (ast.Expr, error) {
	if v.IsNull() {
		return ast.NewUnary(ast.OpIsNull, ast.Col(column))
	}
	return ast.NewBinary(ast.Col(column), ast.OpEqual, ast.NewLiteral(v))
}
