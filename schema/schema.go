// Package schema derives ordered column descriptors from explicit type
// descriptions.
//
// A Description lists the fields of a structured type in declaration order.
// Derive flattens nested structured fields into their parent, naming each
// nested column parent_child, and attaches the constraints declared through
// field annotations. The resulting column order is the order in which values
// are bound on write and recovered on read, so it is computed exactly once per
// description and cached for the life of the process.
package schema

import (
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/errs"
)

// maxDepth bounds nesting so a self-referential description fails instead of
// recursing forever.
const maxDepth = 32

// Description is the static shape of a structured type.
type Description interface {
	// TypeName names the type in diagnostics and default table names.
	TypeName() string
	// Fields lists the fields in declaration order.
	Fields() []Field
}

// Field is one declared field of a Description.
type Field struct {
	Name        string
	Type        ast.DataType
	Annotations string
	// Nested describes the field's own fields when Type is a tuple.
	Nested Description
}

// ForeignKey is a table-level foreign key over one or more columns.
type ForeignKey struct {
	Name    string
	Columns []string
	Reference
}

// Schema is the ordered column sequence of a type.
type Schema struct {
	typeName    string
	columns     []Column
	primaryKey  []string
	foreignKeys []ForeignKey
}

func (s *Schema) TypeName() string { return s.typeName }
func (s *Schema) Len() int         { return len(s.columns) }

// Columns returns the columns in binding order.
func (s *Schema) Columns() []Column { return slices.Clone(s.columns) }

// Column returns the i-th column.
func (s *Schema) Column(i int) Column { return s.columns[i] }

// Names returns the column names in binding order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.name
	}
	return names
}

// Index returns the position of the named column or -1.
func (s *Schema) Index(name string) int {
	return slices.IndexFunc(s.columns, func(c Column) bool { return c.name == name })
}

// PrimaryKey returns the primary key columns in declaration order.
func (s *Schema) PrimaryKey() []string { return slices.Clone(s.primaryKey) }

// ForeignKeys returns the table-level foreign keys.
func (s *Schema) ForeignKeys() []ForeignKey { return slices.Clone(s.foreignKeys) }

// Prefixed returns a copy of s with every column renamed prefix_name. It is
// used when the columns of a type are embedded in another table.
func (s *Schema) Prefixed(prefix string) *Schema {
	if prefix == "" {
		return s
	}
	out := &Schema{typeName: s.typeName, columns: make([]Column, len(s.columns))}
	for i, c := range s.columns {
		out.columns[i] = c.Renamed(prefix)
	}
	for _, pk := range s.primaryKey {
		out.primaryKey = append(out.primaryKey, JoinName(prefix, pk))
	}
	for _, fk := range s.foreignKeys {
		cols := make([]string, len(fk.Columns))
		for i, c := range fk.Columns {
			cols[i] = JoinName(prefix, c)
		}
		fk.Columns = cols
		out.foreignKeys = append(out.foreignKeys, fk)
	}
	return out
}

// =========================================================================
// Logging
// =========================================================================

var logger atomic.Pointer[slog.Logger]

// SetLogger sets the logger receiving derivation diagnostics. A nil logger
// restores slog.Default.
func SetLogger(l *slog.Logger) { logger.Store(l) }

func log() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// =========================================================================
// Derivation
// =========================================================================

var cache sync.Map // map[Description]*Schema

// Derive returns the schema of desc. Results are cached per description when
// the description is comparable; concurrent first derivations may both run,
// but every caller observes the same published schema.
func Derive(desc Description) (*Schema, error) {
	if desc == nil {
		return nil, errs.Structural("schema", "nil description")
	}
	cacheable := reflect.TypeOf(desc).Comparable()
	if cacheable {
		if s, ok := cache.Load(desc); ok {
			return s.(*Schema), nil
		}
	}

	s, err := derive(desc)
	if err != nil {
		return nil, err
	}

	if cacheable {
		actual, _ := cache.LoadOrStore(desc, s)
		return actual.(*Schema), nil
	}
	return s, nil
}

type deriver struct {
	typeName string
	columns  []Column
	fks      []ForeignKey
	names    map[string]struct{}
}

func derive(desc Description) (*Schema, error) {
	d := &deriver{typeName: desc.TypeName(), names: map[string]struct{}{}}
	if err := d.walk(desc, "", nil, false, false, 0); err != nil {
		return nil, err
	}
	if len(d.columns) == 0 {
		return nil, d.fail("no columns")
	}

	s := &Schema{typeName: d.typeName, columns: d.columns, foreignKeys: d.fks}
	for _, c := range d.columns {
		if c.primary {
			s.primaryKey = append(s.primaryKey, c.name)
		}
	}
	if len(s.primaryKey) > 1 {
		for i := range s.columns {
			if s.columns[i].autoIncrement {
				log().Warn("ignoring auto_increment on composite primary key",
					"type", d.typeName, "column", s.columns[i].name)
				s.columns[i].autoIncrement = false
			}
		}
	}
	return s, nil
}

func (d *deriver) fail(format string, args ...any) error {
	return errs.Structural("schema "+d.typeName, format, args...)
}

func (d *deriver) warn(path []string, msg, annotation string) {
	log().Warn(msg, "type", d.typeName, "field", strings.Join(path, "."), "annotation", annotation)
}

func (d *deriver) walk(desc Description, prefix string, path []string, nullable, primary bool, depth int) error {
	if depth > maxDepth {
		return d.fail("nesting deeper than %d at %s", maxDepth, strings.Join(path, "."))
	}

	for _, f := range desc.Fields() {
		fieldPath := append(slices.Clone(path), f.Name)
		where := strings.Join(fieldPath, ".")

		ann, unknown, err := ParseAnnotations(f.Annotations)
		if err != nil {
			return d.fail("field %s: %v", where, err)
		}
		for _, u := range unknown {
			d.warn(fieldPath, "ignoring unknown annotation", u)
		}

		name := ann.Name
		if name == "" {
			name = ColumnName(f.Name)
		}
		if name == "" {
			return d.fail("field %d of %s has no name", len(fieldPath), desc.TypeName())
		}
		full := JoinName(prefix, name)

		if f.Type.Kind() == ast.TypeTuple {
			if err := d.nested(f, ann, full, fieldPath, nullable, primary, depth); err != nil {
				return err
			}
			continue
		}
		if f.Nested != nil {
			return d.fail("field %s: nested description on %s field", where, f.Type)
		}
		if err := d.leaf(f, ann, full, fieldPath, nullable, primary); err != nil {
			return err
		}
	}
	return nil
}

func (d *deriver) nested(f Field, ann Annotations, full string, path []string, nullable, primary bool, depth int) error {
	where := strings.Join(path, ".")
	if f.Nested == nil {
		return d.fail("field %s: tuple without description", where)
	}
	if ann.Unique {
		d.warn(path, "ignoring annotation on nested field", "unique")
	}
	if ann.AutoIncrement {
		d.warn(path, "ignoring annotation on nested field", "auto_increment")
	}
	if ann.Default != nil {
		d.warn(path, "ignoring annotation on nested field", "default")
	}
	if len(ann.Checks) > 0 {
		d.warn(path, "ignoring annotation on nested field", "checks")
	}

	start := len(d.columns)
	if err := d.walk(f.Nested, full, path, nullable || ann.Nullable, primary || ann.Primary, depth+1); err != nil {
		return err
	}
	if ann.References == "" {
		return nil
	}

	group := d.columns[start:]
	local := make([]string, len(group))
	relative := make([]string, len(group))
	for i, c := range group {
		local[i] = c.name
		relative[i] = strings.TrimPrefix(c.name, full+"_")
	}
	table, refColumns, err := parseReference(ann.References, relative)
	if err != nil {
		return d.fail("field %s: %v", where, err)
	}
	ref := Reference{Table: table, Columns: refColumns, OnDelete: ann.OnDelete, OnUpdate: ann.OnUpdate}
	if len(group) == 1 && ann.Constraint == "" {
		d.columns[start].ref = &ref
		return nil
	}
	d.fks = append(d.fks, ForeignKey{Name: ann.Constraint, Columns: local, Reference: ref})
	return nil
}

func (d *deriver) leaf(f Field, ann Annotations, full string, path []string, nullable, primary bool) error {
	where := strings.Join(path, ".")
	if _, dup := d.names[full]; dup {
		return d.fail("duplicate column %s (field %s)", full, where)
	}
	d.names[full] = struct{}{}

	isPrimary := primary || ann.Primary
	col := Column{
		name:     full,
		path:     path,
		dataType: f.Type,
		nullable: (nullable || ann.Nullable) && !isPrimary,
		primary:  isPrimary,
		unique:   ann.Unique,
	}

	kind := f.Type.Kind()
	numeric := kind.IsInteger() || kind == ast.TypeFloat32 || kind == ast.TypeFloat64
	if ann.AutoIncrement {
		if kind.IsInteger() && isPrimary {
			col.autoIncrement = true
		} else {
			d.warn(path, "auto_increment requires an integer primary key", "auto_increment")
		}
	}
	if len(ann.Checks) > 0 {
		if numeric {
			col.checks = slices.Clone(ann.Checks)
		} else {
			d.warn(path, "ignoring numeric checks on "+f.Type.String()+" field", "checks")
		}
	}
	if ann.Default != nil {
		v, err := parseDefault(*ann.Default, f.Type)
		if err != nil {
			return d.fail("field %s: default %q is not a valid %s", where, *ann.Default, f.Type)
		}
		col.def = &v
	}
	if ann.References != "" {
		table, refColumns, err := parseReference(ann.References, nil)
		if err != nil {
			return d.fail("field %s: %v", where, err)
		}
		ref := Reference{Table: table, Columns: refColumns, OnDelete: ann.OnDelete, OnUpdate: ann.OnUpdate}
		if ann.Constraint != "" {
			d.fks = append(d.fks, ForeignKey{Name: ann.Constraint, Columns: []string{full}, Reference: ref})
		} else {
			col.ref = &ref
		}
	}

	d.columns = append(d.columns, col)
	return nil
}
