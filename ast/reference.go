package ast

import "github.com/Konsultn-Engineering/tabular/errs"

// Table names a table, optionally inside a schema.
type Table struct {
	schema string
	name   string
}

func NewTable(schema, name string) (*Table, error) {
	if name == "" {
		return nil, errs.Structural(NodeTable.String(), "empty name")
	}
	return &Table{schema: schema, name: name}, nil
}

// Tbl is NewTable without a schema for names known to be valid. It panics on
// an empty name.
func Tbl(name string) *Table {
	t, err := NewTable("", name)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Schema() string { return t.schema }
func (t *Table) Name() string   { return t.name }
func (*Table) Type() NodeType   { return NodeTable }

// Column references a column, optionally qualified by its table.
type Column struct {
	table string
	name  string
}

func NewColumn(table, name string) (*Column, error) {
	if name == "" {
		return nil, errs.Structural(NodeColumn.String(), "empty name")
	}
	return &Column{table: table, name: name}, nil
}

// Col is NewColumn without a qualifier. It panics on an empty name.
func Col(name string) *Column {
	c, err := NewColumn("", name)
	if err != nil {
		panic(err)
	}
	return c
}

// Cols references each of names in order.
func Cols(names ...string) []*Column {
	out := make([]*Column, len(names))
	for i, n := range names {
		out[i] = Col(n)
	}
	return out
}

func (c *Column) Table() string { return c.table }
func (c *Column) Name() string  { return c.name }
func (*Column) Type() NodeType  { return NodeColumn }
func (*Column) expr()           {}

// AllColumns is the "*" projection marker.
type AllColumns struct{}

// All is the shared all-columns marker.
var All = AllColumns{}

func (AllColumns) Type() NodeType { return NodeAllColumns }
func (AllColumns) expr()          {}
