package dialect

import (
	"strconv"

	"github.com/Konsultn-Engineering/tabular/ast"
)

// Base is the root dialect. It renders standard SQL with double-quoted
// identifiers and "?" placeholders.
var Base = newBase()

func newBase() *Dialect {
	d := New("base", nil)

	literal := LiteralTranscriber(InlineValue)
	for _, nt := range []ast.NodeType{
		ast.NodeNullLiteral, ast.NodeBoolLiteral, ast.NodeIntLiteral,
		ast.NodeFloatLiteral, ast.NodeStringLiteral, ast.NodeBinaryLiteral,
	} {
		d.Register(nt, literal)
	}

	d.Register(ast.NodeParameter, Text("?"))
	d.Register(ast.NodeIdentifier, IdentifierTranscriber(`"`))
	d.Register(ast.NodeAllColumns, Text("*"))
	d.Register(ast.NodeColumn, Typed(transcribeColumn))
	d.Register(ast.NodeTable, Typed(transcribeTable))
	d.Register(ast.NodeUnaryExpr, Typed(transcribeUnary))
	d.Register(ast.NodeBinaryExpr, Typed(transcribeBinary))
	d.Register(ast.NodeBetweenExpr, Typed(transcribeBetween))
	d.Register(ast.NodeInExpr, Typed(transcribeIn))
	d.Register(ast.NodeOrderingTerm, Typed(transcribeOrderingTerm))
	d.Register(ast.NodeOrderBy, Typed(transcribeOrderBy))
	d.Register(ast.NodeDataType, DataTypeTranscriber(baseTypeName))
	d.Register(ast.NodeColumnDef, Typed(transcribeColumnDef))
	d.Register(ast.NodeUniqueConstraint, Typed(transcribeUnique))
	d.Register(ast.NodePrimaryKeyConstraint, PrimaryKeyTranscriber("", "AUTOINCREMENT"))
	d.Register(ast.NodeForeignKeyConstraint, Typed(transcribeForeignKey))
	d.Register(ast.NodeCheckConstraint, Typed(transcribeCheck))
	d.Register(ast.NodeAssignment, Typed(transcribeAssignment))
	d.Register(ast.NodeValues, Typed(transcribeValues))
	d.Register(ast.NodeCreateTable, Typed(transcribeCreateTable))
	d.Register(ast.NodeDropTable, Typed(transcribeDropTable))
	d.Register(ast.NodeInsert, Typed(transcribeInsert))
	d.Register(ast.NodeUpdate, Typed(transcribeUpdate))
	d.Register(ast.NodeDelete, Typed(transcribeDelete))
	d.Register(ast.NodeSelect, SelectTranscriber(true))
	d.Register(ast.NodeOrderedSelect, Typed(transcribeOrderedSelect))

	return d
}

func baseTypeName(dt ast.DataType) string {
	switch dt.Kind() {
	case ast.TypeBoolean:
		return "BOOLEAN"
	case ast.TypeInt8:
		return "TINYINT"
	case ast.TypeInt16:
		return "SMALLINT"
	case ast.TypeInt32:
		return "INT"
	case ast.TypeInt64:
		return "BIGINT"
	case ast.TypeFloat32:
		return "REAL"
	case ast.TypeFloat64:
		return "DOUBLE PRECISION"
	case ast.TypeString:
		if dt.Length() > 0 {
			return "VARCHAR(" + strconv.Itoa(dt.Length()) + ")"
		}
		return "TEXT"
	case ast.TypeBinary:
		return "BLOB"
	}
	return ""
}

func transcribeColumn(d *Dialect, w *Writer, c *ast.Column, _ bool) error {
	if c.Table() != "" {
		if err := d.Identifier(w, c.Table()); err != nil {
			return err
		}
		w.WriteString(".")
	}
	return d.Identifier(w, c.Name())
}

func transcribeTable(d *Dialect, w *Writer, t *ast.Table, _ bool) error {
	if t.Schema() != "" {
		if err := d.Identifier(w, t.Schema()); err != nil {
			return err
		}
		w.WriteString(".")
	}
	return d.Identifier(w, t.Name())
}

func transcribeUnary(d *Dialect, w *Writer, u *ast.UnaryExpr, p bool) error {
	if u.Operator().Postfix() {
		if err := d.paren(w, u.Operand(), p); err != nil {
			return err
		}
		w.WriteString(" " + string(u.Operator()))
		return nil
	}
	w.WriteString(string(u.Operator()))
	return d.paren(w, u.Operand(), p)
}

func transcribeBinary(d *Dialect, w *Writer, b *ast.BinaryExpr, p bool) error {
	if err := d.paren(w, b.Left(), p); err != nil {
		return err
	}
	w.WriteString(" " + string(b.Operator()) + " ")
	return d.paren(w, b.Right(), p)
}

func transcribeBetween(d *Dialect, w *Writer, b *ast.BetweenExpr, p bool) error {
	if err := d.paren(w, b.Target(), p); err != nil {
		return err
	}
	w.WriteString(" BETWEEN ")
	if err := d.paren(w, b.Lower(), p); err != nil {
		return err
	}
	w.WriteString(" AND ")
	return d.paren(w, b.Upper(), p)
}

func transcribeIn(d *Dialect, w *Writer, in *ast.InExpr, p bool) error {
	if err := d.paren(w, in.Target(), p); err != nil {
		return err
	}
	w.WriteString(" IN (")
	if err := join(d, w, in.List(), p); err != nil {
		return err
	}
	w.WriteString(")")
	return nil
}

func transcribeOrderingTerm(d *Dialect, w *Writer, o *ast.OrderingTerm, p bool) error {
	if err := d.Transcribe(w, o.Expr(), p); err != nil {
		return err
	}
	if o.Ascending() {
		w.WriteString(" ASC")
	} else {
		w.WriteString(" DESC")
	}
	return nil
}

func transcribeOrderBy(d *Dialect, w *Writer, o *ast.OrderBy, p bool) error {
	w.WriteString("ORDER BY ")
	return join(d, w, o.Terms(), p)
}

// Declarations never bind: some backends reject parameters in DDL.
func transcribeColumnDef(d *Dialect, w *Writer, c *ast.ColumnDef, _ bool) error {
	if err := d.Identifier(w, c.Name()); err != nil {
		return err
	}
	w.WriteString(" ")
	if err := d.Transcribe(w, c.DataType(), false); err != nil {
		return err
	}
	if c.NotNull() {
		w.WriteString(" NOT NULL")
	}
	if def := c.Default(); def != nil {
		w.WriteString(" DEFAULT ")
		if err := d.Transcribe(w, def, false); err != nil {
			return err
		}
	}
	for _, con := range c.Constraints() {
		w.WriteString(" ")
		if err := d.Transcribe(w, con, false); err != nil {
			return err
		}
	}
	return nil
}

func transcribeUnique(d *Dialect, w *Writer, u *ast.UniqueConstraint, _ bool) error {
	if err := d.constraintName(w, u.Name()); err != nil {
		return err
	}
	w.WriteString("UNIQUE")
	if cols := u.Columns(); len(cols) > 0 {
		w.WriteString(" (")
		if err := d.identifiers(w, cols); err != nil {
			return err
		}
		w.WriteString(")")
	}
	return nil
}

func transcribeForeignKey(d *Dialect, w *Writer, f *ast.ForeignKeyConstraint, _ bool) error {
	if err := d.constraintName(w, f.Name()); err != nil {
		return err
	}
	if cols := f.Columns(); len(cols) > 0 {
		w.WriteString("FOREIGN KEY (")
		if err := d.identifiers(w, cols); err != nil {
			return err
		}
		w.WriteString(") ")
	}
	w.WriteString("REFERENCES ")
	if err := d.Transcribe(w, f.RefTable(), false); err != nil {
		return err
	}
	w.WriteString(" (")
	if err := d.identifiers(w, f.RefColumns()); err != nil {
		return err
	}
	w.WriteString(")")
	if f.OnDelete() != ast.NoAction {
		w.WriteString(" ON DELETE " + f.OnDelete().String())
	}
	if f.OnUpdate() != ast.NoAction {
		w.WriteString(" ON UPDATE " + f.OnUpdate().String())
	}
	return nil
}

func transcribeCheck(d *Dialect, w *Writer, c *ast.CheckConstraint, _ bool) error {
	if err := d.constraintName(w, c.Name()); err != nil {
		return err
	}
	w.WriteString("CHECK ")
	return d.paren(w, c.Condition(), false)
}

func transcribeAssignment(d *Dialect, w *Writer, a *ast.Assignment, p bool) error {
	if err := d.Identifier(w, a.Column().Name()); err != nil {
		return err
	}
	w.WriteString(" = ")
	return d.Transcribe(w, a.Value(), p)
}

func transcribeValues(d *Dialect, w *Writer, v *ast.Values, p bool) error {
	w.WriteString("(")
	if err := join(d, w, v.Exprs(), p); err != nil {
		return err
	}
	w.WriteString(")")
	return nil
}

func transcribeCreateTable(d *Dialect, w *Writer, c *ast.CreateTable, _ bool) error {
	w.WriteString("CREATE TABLE ")
	if c.IfNotExists() {
		w.WriteString("IF NOT EXISTS ")
	}
	if err := d.Transcribe(w, c.Table(), false); err != nil {
		return err
	}
	w.WriteString(" (")
	if err := join(d, w, c.Columns(), false); err != nil {
		return err
	}
	for _, con := range c.Constraints() {
		w.WriteString(", ")
		if err := d.Transcribe(w, con, false); err != nil {
			return err
		}
	}
	w.WriteString(")")
	return nil
}

func transcribeDropTable(d *Dialect, w *Writer, t *ast.DropTable, _ bool) error {
	w.WriteString("DROP TABLE ")
	if t.IfExists() {
		w.WriteString("IF EXISTS ")
	}
	return d.Transcribe(w, t.Table(), false)
}

func transcribeInsert(d *Dialect, w *Writer, ins *ast.Insert, p bool) error {
	w.WriteString("INSERT INTO ")
	if err := d.Transcribe(w, ins.Table(), p); err != nil {
		return err
	}
	w.WriteString(" (")
	for i, c := range ins.Columns() {
		if i > 0 {
			w.WriteString(", ")
		}
		if err := d.Identifier(w, c.Name()); err != nil {
			return err
		}
	}
	w.WriteString(") VALUES ")
	return join(d, w, ins.Rows(), p)
}

func transcribeUpdate(d *Dialect, w *Writer, u *ast.Update, p bool) error {
	w.WriteString("UPDATE ")
	if err := d.Transcribe(w, u.Table(), p); err != nil {
		return err
	}
	w.WriteString(" SET ")
	if err := join(d, w, u.Assignments(), p); err != nil {
		return err
	}
	return d.where(w, u.Where(), p)
}

func transcribeDelete(d *Dialect, w *Writer, del *ast.Delete, p bool) error {
	w.WriteString("DELETE FROM ")
	if err := d.Transcribe(w, del.Table(), p); err != nil {
		return err
	}
	return d.where(w, del.Where(), p)
}

// Limit and offset are always inlined.
func transcribeOrderedSelect(d *Dialect, w *Writer, o *ast.OrderedSelect, p bool) error {
	if err := d.Transcribe(w, o.Select(), p); err != nil {
		return err
	}
	if ob := o.OrderBy(); ob != nil {
		w.WriteString(" ")
		if err := d.Transcribe(w, ob, p); err != nil {
			return err
		}
	}
	if limit, ok := o.Limit(); ok {
		w.WriteString(" LIMIT " + strconv.Itoa(limit))
	}
	if offset, ok := o.Offset(); ok {
		w.WriteString(" OFFSET " + strconv.Itoa(offset))
	}
	return nil
}
