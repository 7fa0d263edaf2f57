package ast

import (
	"slices"
	"strconv"

	"github.com/Konsultn-Engineering/tabular/errs"
)

type TypeKind int

const (
	TypeBoolean TypeKind = iota
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeBinary
	// TypeTuple marks a nested structured field. It never reaches DDL: its
	// columns are flattened into the parent.
	TypeTuple
)

var typeKindNames = [...]string{
	TypeBoolean: "boolean",
	TypeInt8:    "int8",
	TypeInt16:   "int16",
	TypeInt32:   "int32",
	TypeInt64:   "int64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeBinary:  "binary",
	TypeTuple:   "tuple",
}

func (k TypeKind) String() string {
	if k >= 0 && int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "unknown"
}

// IsInteger reports whether k is one of the integer widths.
func (k TypeKind) IsInteger() bool { return k >= TypeInt8 && k <= TypeInt64 }

// Bits returns the width of integer and float kinds, 0 otherwise.
func (k TypeKind) Bits() int {
	switch k {
	case TypeInt8:
		return 8
	case TypeInt16:
		return 16
	case TypeInt32, TypeFloat32:
		return 32
	case TypeInt64, TypeFloat64:
		return 64
	}
	return 0
}

// DataType is the semantic type of a column. Length bounds strings and binary
// values; zero means unbounded.
type DataType struct {
	kind   TypeKind
	length int
}

func NewDataType(kind TypeKind, length int) (DataType, error) {
	if kind < TypeBoolean || kind > TypeTuple {
		return DataType{}, errs.Structural(NodeDataType.String(), "unknown kind %d", int(kind))
	}
	if length < 0 {
		return DataType{}, errs.Structural(NodeDataType.String(), "negative length %d", length)
	}
	if length > 0 && kind != TypeString && kind != TypeBinary {
		return DataType{}, errs.Structural(NodeDataType.String(), "%s takes no length", kind)
	}
	return DataType{kind: kind, length: length}, nil
}

// TypeOf returns the unbounded data type of kind.
func TypeOf(kind TypeKind) DataType { return DataType{kind: kind} }

func (d DataType) Kind() TypeKind { return d.kind }
func (d DataType) Length() int    { return d.length }
func (DataType) Type() NodeType   { return NodeDataType }
func (d DataType) String() string {
	if d.length > 0 {
		return d.kind.String() + "(" + strconv.Itoa(d.length) + ")"
	}
	return d.kind.String()
}

type ForeignKeyAction int

const (
	NoAction ForeignKeyAction = iota
	Restrict
	Cascade
	SetNull
	SetDefault
)

var actionNames = [...]string{
	NoAction:   "NO ACTION",
	Restrict:   "RESTRICT",
	Cascade:    "CASCADE",
	SetNull:    "SET NULL",
	SetDefault: "SET DEFAULT",
}

func (a ForeignKeyAction) String() string {
	if a >= 0 && int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "NO ACTION"
}

// ParseForeignKeyAction accepts the SQL spelling in any case, with spaces or
// underscores.
func ParseForeignKeyAction(s string) (ForeignKeyAction, bool) {
	norm := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_':
			c = ' '
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		norm = append(norm, c)
	}
	for i, name := range actionNames {
		if name == string(norm) {
			return ForeignKeyAction(i), true
		}
	}
	return NoAction, false
}

// Constraints below are column-level when they list no columns and
// table-level otherwise. Names are optional.

type UniqueConstraint struct {
	name    string
	columns []string
}

func NewUnique(columns ...string) *UniqueConstraint {
	return &UniqueConstraint{columns: slices.Clone(columns)}
}

func (u *UniqueConstraint) Named(name string) *UniqueConstraint {
	c := *u
	c.name = name
	return &c
}

func (u *UniqueConstraint) Name() string      { return u.name }
func (u *UniqueConstraint) Columns() []string { return slices.Clone(u.columns) }
func (*UniqueConstraint) Type() NodeType      { return NodeUniqueConstraint }
func (*UniqueConstraint) constraint()         {}

type PrimaryKeyConstraint struct {
	name          string
	columns       []string
	autoIncrement bool
}

func NewPrimaryKey(columns ...string) *PrimaryKeyConstraint {
	return &PrimaryKeyConstraint{columns: slices.Clone(columns)}
}

func (p *PrimaryKeyConstraint) Named(name string) *PrimaryKeyConstraint {
	c := *p
	c.name = name
	return &c
}

// AutoIncrement returns a copy of the constraint with generated keys.
func (p *PrimaryKeyConstraint) AutoIncrement() *PrimaryKeyConstraint {
	c := *p
	c.autoIncrement = true
	return &c
}

func (p *PrimaryKeyConstraint) Name() string          { return p.name }
func (p *PrimaryKeyConstraint) Columns() []string     { return slices.Clone(p.columns) }
func (p *PrimaryKeyConstraint) IsAutoIncrement() bool { return p.autoIncrement }
func (*PrimaryKeyConstraint) Type() NodeType          { return NodePrimaryKeyConstraint }
func (*PrimaryKeyConstraint) constraint()             {}

type ForeignKeyConstraint struct {
	name       string
	columns    []string
	refTable   *Table
	refColumns []string
	onDelete   ForeignKeyAction
	onUpdate   ForeignKeyAction
}

func NewForeignKey(columns []string, refTable *Table, refColumns []string, onDelete, onUpdate ForeignKeyAction) (*ForeignKeyConstraint, error) {
	node := NodeForeignKeyConstraint.String()
	if refTable == nil {
		return nil, errs.Structural(node, "missing referenced table")
	}
	if len(refColumns) == 0 {
		return nil, errs.Structural(node, "no referenced columns")
	}
	if len(columns) > 0 && len(columns) != len(refColumns) {
		return nil, errs.Structural(node, "%d columns reference %d columns", len(columns), len(refColumns))
	}
	if len(columns) == 0 && len(refColumns) != 1 {
		return nil, errs.Structural(node, "a column-level reference must name one column")
	}
	return &ForeignKeyConstraint{
		columns:    slices.Clone(columns),
		refTable:   refTable,
		refColumns: slices.Clone(refColumns),
		onDelete:   onDelete,
		onUpdate:   onUpdate,
	}, nil
}

func (f *ForeignKeyConstraint) Named(name string) *ForeignKeyConstraint {
	c := *f
	c.name = name
	return &c
}

func (f *ForeignKeyConstraint) Name() string               { return f.name }
func (f *ForeignKeyConstraint) Columns() []string          { return slices.Clone(f.columns) }
func (f *ForeignKeyConstraint) RefTable() *Table           { return f.refTable }
func (f *ForeignKeyConstraint) RefColumns() []string       { return slices.Clone(f.refColumns) }
func (f *ForeignKeyConstraint) OnDelete() ForeignKeyAction { return f.onDelete }
func (f *ForeignKeyConstraint) OnUpdate() ForeignKeyAction { return f.onUpdate }
func (*ForeignKeyConstraint) Type() NodeType               { return NodeForeignKeyConstraint }
func (*ForeignKeyConstraint) constraint()                  {}

type CheckConstraint struct {
	name      string
	condition Expr
}

func NewCheck(condition Expr) (*CheckConstraint, error) {
	if condition == nil {
		return nil, errs.Structural(NodeCheckConstraint.String(), "missing condition")
	}
	return &CheckConstraint{condition: condition}, nil
}

func (c *CheckConstraint) Named(name string) *CheckConstraint {
	cp := *c
	cp.name = name
	return &cp
}

func (c *CheckConstraint) Name() string    { return c.name }
func (c *CheckConstraint) Condition() Expr { return c.condition }
func (*CheckConstraint) Type() NodeType    { return NodeCheckConstraint }
func (*CheckConstraint) constraint()       {}

// constraintColumns returns the columns a constraint lists, if any.
func constraintColumns(c Constraint) []string {
	switch c := c.(type) {
	case *UniqueConstraint:
		return c.columns
	case *PrimaryKeyConstraint:
		return c.columns
	case *ForeignKeyConstraint:
		return c.columns
	}
	return nil
}

type ColumnDef struct {
	name        string
	dataType    DataType
	notNull     bool
	def         *Literal
	constraints []Constraint
}

// NewColumnDef declares a column. Default may be nil. Constraints must be
// column-level.
func NewColumnDef(name string, dataType DataType, notNull bool, def *Literal, constraints ...Constraint) (*ColumnDef, error) {
	node := NodeColumnDef.String()
	if name == "" {
		return nil, errs.Structural(node, "empty name")
	}
	if dataType.kind == TypeTuple {
		return nil, errs.Structural(node, "column %s: tuple types must be flattened", name)
	}
	for _, c := range constraints {
		if c == nil {
			return nil, errs.Structural(node, "column %s: nil constraint", name)
		}
		if len(constraintColumns(c)) > 0 {
			return nil, errs.Structural(node, "column %s: %s lists columns", name, c.Type())
		}
	}
	return &ColumnDef{
		name:        name,
		dataType:    dataType,
		notNull:     notNull,
		def:         def,
		constraints: slices.Clone(constraints),
	}, nil
}

func (c *ColumnDef) Name() string              { return c.name }
func (c *ColumnDef) DataType() DataType        { return c.dataType }
func (c *ColumnDef) NotNull() bool             { return c.notNull }
func (c *ColumnDef) Default() *Literal         { return c.def }
func (c *ColumnDef) Constraints() []Constraint { return slices.Clone(c.constraints) }
func (*ColumnDef) Type() NodeType              { return NodeColumnDef }

type CreateTable struct {
	table       *Table
	ifNotExists bool
	columns     []*ColumnDef
	constraints []Constraint
}

// NewCreateTable validates that every table-level constraint names declared
// columns only.
func NewCreateTable(table *Table, ifNotExists bool, columns []*ColumnDef, constraints ...Constraint) (*CreateTable, error) {
	node := NodeCreateTable.String()
	if table == nil {
		return nil, errs.Structural(node, "missing table")
	}
	if len(columns) == 0 {
		return nil, errs.Structural(node, "table %s has no columns", table.name)
	}
	declared := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c == nil {
			return nil, errs.Structural(node, "table %s: nil column", table.name)
		}
		if _, dup := declared[c.name]; dup {
			return nil, errs.Structural(node, "table %s: duplicate column %s", table.name, c.name)
		}
		declared[c.name] = struct{}{}
	}
	for _, c := range constraints {
		if c == nil {
			return nil, errs.Structural(node, "table %s: nil constraint", table.name)
		}
		cols := constraintColumns(c)
		if _, isCheck := c.(*CheckConstraint); !isCheck && len(cols) == 0 {
			return nil, errs.Structural(node, "table %s: %s lists no columns", table.name, c.Type())
		}
		for _, col := range cols {
			if _, ok := declared[col]; !ok {
				return nil, errs.Structural(node, "table %s: %s names unknown column %s", table.name, c.Type(), col)
			}
		}
	}
	return &CreateTable{
		table:       table,
		ifNotExists: ifNotExists,
		columns:     slices.Clone(columns),
		constraints: slices.Clone(constraints),
	}, nil
}

func (c *CreateTable) Table() *Table             { return c.table }
func (c *CreateTable) IfNotExists() bool         { return c.ifNotExists }
func (c *CreateTable) Columns() []*ColumnDef     { return slices.Clone(c.columns) }
func (c *CreateTable) Constraints() []Constraint { return slices.Clone(c.constraints) }
func (*CreateTable) Type() NodeType              { return NodeCreateTable }
func (*CreateTable) statement()                  {}

type DropTable struct {
	table    *Table
	ifExists bool
}

func NewDropTable(table *Table, ifExists bool) (*DropTable, error) {
	if table == nil {
		return nil, errs.Structural(NodeDropTable.String(), "missing table")
	}
	return &DropTable{table: table, ifExists: ifExists}, nil
}

func (d *DropTable) Table() *Table  { return d.table }
func (d *DropTable) IfExists() bool { return d.ifExists }
func (*DropTable) Type() NodeType   { return NodeDropTable }
func (*DropTable) statement()       {}
