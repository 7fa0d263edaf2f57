package schema

import (
	"math"

	"github.com/Konsultn-Engineering/tabular/ast"
)

// CreateTable declares a table holding the columns of s. A single primary key
// column is declared inline, a composite one at table level.
func (s *Schema) CreateTable(table *ast.Table, ifNotExists bool) (*ast.CreateTable, error) {
	defs := make([]*ast.ColumnDef, 0, len(s.columns))
	for _, c := range s.columns {
		def, err := s.columnDef(c)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	var constraints []ast.Constraint
	if len(s.primaryKey) > 1 {
		constraints = append(constraints, ast.NewPrimaryKey(s.primaryKey...))
	}
	for _, fk := range s.foreignKeys {
		con, err := ast.NewForeignKey(fk.Columns, fk.Table, fk.Reference.Columns, fk.OnDelete, fk.OnUpdate)
		if err != nil {
			return nil, err
		}
		if fk.Name != "" {
			con = con.Named(fk.Name)
		}
		constraints = append(constraints, con)
	}
	return ast.NewCreateTable(table, ifNotExists, defs, constraints...)
}

// DropTable drops the table created by CreateTable.
func (s *Schema) DropTable(table *ast.Table, ifExists bool) (*ast.DropTable, error) {
	return ast.NewDropTable(table, ifExists)
}

func (s *Schema) columnDef(c Column) (*ast.ColumnDef, error) {
	var constraints []ast.Constraint
	if c.primary && len(s.primaryKey) == 1 {
		pk := ast.NewPrimaryKey()
		if c.autoIncrement {
			pk = pk.AutoIncrement()
		}
		constraints = append(constraints, pk)
	}
	if c.unique {
		constraints = append(constraints, ast.NewUnique())
	}

	conds, err := CheckExprs(ast.Col(c.name), c.dataType.Kind(), c.checks)
	if err != nil {
		return nil, err
	}
	for _, cond := range conds {
		chk, err := ast.NewCheck(cond)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, chk)
	}

	if c.ref != nil {
		fk, err := ast.NewForeignKey(nil, c.ref.Table, c.ref.Columns, c.ref.OnDelete, c.ref.OnUpdate)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, fk)
	}

	var def *ast.Literal
	if v, ok := c.Default(); ok {
		def = ast.NewLiteral(v)
	}
	return ast.NewColumnDef(c.name, c.dataType, !c.nullable, def, constraints...)
}

// CheckExprs turns checks into conditions on target. A min and max pair
// becomes a single BETWEEN.
func CheckExprs(target ast.Expr, kind ast.TypeKind, checks []Check) ([]ast.Expr, error) {
	var (
		out    []ast.Expr
		lo, hi *Check
	)
	for i := range checks {
		c := checks[i]
		var (
			cond ast.Expr
			err  error
		)
		switch c.Kind {
		case CheckMin:
			lo = &c
			continue
		case CheckMax:
			hi = &c
			continue
		case CheckPositive:
			cond, err = ast.NewBinary(target, ast.OpGreater, bound(kind, 0))
		case CheckNonNegative:
			cond, err = ast.NewBinary(target, ast.OpGreaterOrEqual, bound(kind, 0))
		case CheckNegative:
			cond, err = ast.NewBinary(target, ast.OpLess, bound(kind, 0))
		case CheckNonPositive:
			cond, err = ast.NewBinary(target, ast.OpLessOrEqual, bound(kind, 0))
		case CheckMultipleOf:
			var mod ast.Expr
			mod, err = ast.NewBinary(target, ast.OpModulo, bound(kind, c.Bound))
			if err == nil {
				cond, err = ast.NewBinary(mod, ast.OpEqual, bound(kind, 0))
			}
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}

	var rangeCond ast.Expr
	var err error
	switch {
	case lo != nil && hi != nil:
		rangeCond, err = ast.NewBetween(target, bound(kind, lo.Bound), bound(kind, hi.Bound))
	case lo != nil:
		rangeCond, err = ast.NewBinary(target, ast.OpGreaterOrEqual, bound(kind, lo.Bound))
	case hi != nil:
		rangeCond, err = ast.NewBinary(target, ast.OpLessOrEqual, bound(kind, hi.Bound))
	}
	if err != nil {
		return nil, err
	}
	if rangeCond != nil {
		out = append([]ast.Expr{rangeCond}, out...)
	}
	return out, nil
}

// bound renders a check bound as an integer literal for integer columns.
func bound(kind ast.TypeKind, b float64) *ast.Literal {
	if kind.IsInteger() && b == math.Trunc(b) {
		return ast.Int(int64(b))
	}
	return ast.Float(b)
}
