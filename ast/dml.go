package ast

import (
	"slices"

	"github.com/Konsultn-Engineering/tabular/errs"
)

type Assignment struct {
	column *Column
	value  Expr
}

func NewAssignment(column *Column, value Expr) (*Assignment, error) {
	if column == nil {
		return nil, errs.Structural(NodeAssignment.String(), "missing column")
	}
	if value == nil {
		return nil, errs.Structural(NodeAssignment.String(), "column %s: missing value", column.name)
	}
	return &Assignment{column: column, value: value}, nil
}

func (a *Assignment) Column() *Column { return a.column }
func (a *Assignment) Value() Expr     { return a.value }
func (*Assignment) Type() NodeType    { return NodeAssignment }

// Values is one parenthesized row of an insert.
type Values struct {
	exprs []Expr
}

func NewValues(exprs ...Expr) (*Values, error) {
	if len(exprs) == 0 {
		return nil, errs.Structural(NodeValues.String(), "empty row")
	}
	if slices.Contains(exprs, nil) {
		return nil, errs.Structural(NodeValues.String(), "nil value")
	}
	return &Values{exprs: slices.Clone(exprs)}, nil
}

func (v *Values) Exprs() []Expr { return slices.Clone(v.exprs) }
func (v *Values) Len() int      { return len(v.exprs) }
func (*Values) Type() NodeType  { return NodeValues }

type Insert struct {
	table   *Table
	columns []*Column
	rows    []*Values
}

// NewInsert requires at least one row, each as wide as the column list.
func NewInsert(table *Table, columns []*Column, rows ...*Values) (*Insert, error) {
	node := NodeInsert.String()
	if table == nil {
		return nil, errs.Structural(node, "missing table")
	}
	if len(columns) == 0 {
		return nil, errs.Structural(node, "table %s: no columns", table.name)
	}
	if slices.Contains(columns, nil) {
		return nil, errs.Structural(node, "table %s: nil column", table.name)
	}
	if len(rows) == 0 {
		return nil, errs.Structural(node, "table %s: no rows", table.name)
	}
	for i, r := range rows {
		if r == nil {
			return nil, errs.Structural(node, "table %s: nil row %d", table.name, i)
		}
		if r.Len() != len(columns) {
			return nil, errs.Structural(node, "table %s: row %d has %d values for %d columns", table.name, i, r.Len(), len(columns))
		}
	}
	return &Insert{table: table, columns: slices.Clone(columns), rows: slices.Clone(rows)}, nil
}

func (i *Insert) Table() *Table      { return i.table }
func (i *Insert) Columns() []*Column { return slices.Clone(i.columns) }
func (i *Insert) Rows() []*Values    { return slices.Clone(i.rows) }
func (*Insert) Type() NodeType       { return NodeInsert }
func (*Insert) statement()           {}

type Update struct {
	table       *Table
	assignments []*Assignment
	where       Expr
}

// NewUpdate builds an update; a nil where updates every row.
func NewUpdate(table *Table, assignments []*Assignment, where Expr) (*Update, error) {
	node := NodeUpdate.String()
	if table == nil {
		return nil, errs.Structural(node, "missing table")
	}
	if len(assignments) == 0 {
		return nil, errs.Structural(node, "table %s: no assignments", table.name)
	}
	if slices.Contains(assignments, nil) {
		return nil, errs.Structural(node, "table %s: nil assignment", table.name)
	}
	return &Update{table: table, assignments: slices.Clone(assignments), where: where}, nil
}

func (u *Update) Table() *Table              { return u.table }
func (u *Update) Assignments() []*Assignment { return slices.Clone(u.assignments) }
func (u *Update) Where() Expr                { return u.where }
func (*Update) Type() NodeType               { return NodeUpdate }
func (*Update) statement()                   {}

type Delete struct {
	table *Table
	where Expr
}

// NewDelete builds a delete; a nil where deletes every row.
func NewDelete(table *Table, where Expr) (*Delete, error) {
	if table == nil {
		return nil, errs.Structural(NodeDelete.String(), "missing table")
	}
	return &Delete{table: table, where: where}, nil
}

func (d *Delete) Table() *Table { return d.table }
func (d *Delete) Where() Expr   { return d.where }
func (*Delete) Type() NodeType  { return NodeDelete }
func (*Delete) statement()      {}

type Select struct {
	columns []Expr
	sources []*Table
	where   Expr
}

// NewSelect projects columns from sources. The projection is either All on
// its own or a non-empty list of expressions.
func NewSelect(columns []Expr, sources []*Table, where Expr) (*Select, error) {
	node := NodeSelect.String()
	if len(sources) == 0 {
		return nil, errs.Structural(node, "no sources")
	}
	if slices.Contains(sources, nil) {
		return nil, errs.Structural(node, "nil source")
	}
	if len(columns) == 0 {
		return nil, errs.Structural(node, "empty projection")
	}
	for _, c := range columns {
		if c == nil {
			return nil, errs.Structural(node, "nil projected column")
		}
		if c.Type() == NodeAllColumns && len(columns) > 1 {
			return nil, errs.Structural(node, "all-columns marker mixed with other columns")
		}
	}
	return &Select{columns: slices.Clone(columns), sources: slices.Clone(sources), where: where}, nil
}

// SelectAll is NewSelect with the all-columns projection.
func SelectAll(where Expr, sources ...*Table) (*Select, error) {
	return NewSelect([]Expr{All}, sources, where)
}

func (s *Select) Columns() []Expr   { return slices.Clone(s.columns) }
func (s *Select) Sources() []*Table { return slices.Clone(s.sources) }
func (s *Select) Where() Expr       { return s.where }
func (*Select) Type() NodeType      { return NodeSelect }
func (*Select) statement()          {}

type OrderingTerm struct {
	expr      Expr
	ascending bool
}

func NewOrderingTerm(expr Expr, ascending bool) (*OrderingTerm, error) {
	if expr == nil {
		return nil, errs.Structural(NodeOrderingTerm.String(), "missing expression")
	}
	return &OrderingTerm{expr: expr, ascending: ascending}, nil
}

func (o *OrderingTerm) Expr() Expr      { return o.expr }
func (o *OrderingTerm) Ascending() bool { return o.ascending }
func (*OrderingTerm) Type() NodeType    { return NodeOrderingTerm }

type OrderBy struct {
	terms []*OrderingTerm
}

func NewOrderBy(terms ...*OrderingTerm) (*OrderBy, error) {
	if len(terms) == 0 {
		return nil, errs.Structural(NodeOrderBy.String(), "no terms")
	}
	if slices.Contains(terms, nil) {
		return nil, errs.Structural(NodeOrderBy.String(), "nil term")
	}
	return &OrderBy{terms: slices.Clone(terms)}, nil
}

func (o *OrderBy) Terms() []*OrderingTerm { return slices.Clone(o.terms) }
func (*OrderBy) Type() NodeType           { return NodeOrderBy }

type OrderedSelect struct {
	sel     *Select
	orderBy *OrderBy
	limit   int
	offset  int
}

// NewOrderedSelect wraps sel with an optional ordering and paging. Pass -1 to
// omit the limit or the offset. Without a limit an offset of 0 is omitted too
// and a positive offset is rejected.
func NewOrderedSelect(sel *Select, orderBy *OrderBy, limit, offset int) (*OrderedSelect, error) {
	node := NodeOrderedSelect.String()
	if sel == nil {
		return nil, errs.Structural(node, "missing select")
	}
	if limit < 0 && offset == 0 {
		offset = -1
	}
	if offset > 0 && limit < 0 {
		return nil, errs.Structural(node, "offset %d without limit", offset)
	}
	return &OrderedSelect{sel: sel, orderBy: orderBy, limit: limit, offset: offset}, nil
}

func (o *OrderedSelect) Select() *Select   { return o.sel }
func (o *OrderedSelect) OrderBy() *OrderBy { return o.orderBy }

// Limit returns the row limit and whether one is set.
func (o *OrderedSelect) Limit() (int, bool) { return o.limit, o.limit >= 0 }

// Offset returns the row offset and whether one is set.
func (o *OrderedSelect) Offset() (int, bool) { return o.offset, o.offset >= 0 }

func (*OrderedSelect) Type() NodeType { return NodeOrderedSelect }
func (*OrderedSelect) statement()     {}
