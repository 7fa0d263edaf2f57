package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Konsultn-Engineering/tabular/ast"
)

// Annotations is the parsed form of a field's annotation string.
//
// Supported syntax, options separated by ';':
//
//	`name:custom_name`                       // explicit column name
//	`primary`, `auto_increment`              // primary key, generated keys
//	`unique`, `nullable`                     // column constraints
//	`default:42`                             // inline default literal
//	`min:0;max:100`                          // range check (BETWEEN)
//	`positive`, `non_negative`               // sign checks
//	`negative`, `non_positive`
//	`multiple_of:5`                          // divisibility check
//	`references:users.id`                    // foreign key (schema.table.column)
//	`on_delete:cascade;on_update:restrict`   // foreign key actions
//	`constraint:fk_owner`                    // foreign key constraint name
type Annotations struct {
	Name          string
	Primary       bool
	AutoIncrement bool
	Unique        bool
	Nullable      bool
	Default       *string
	Checks        []Check
	References    string
	OnDelete      ast.ForeignKeyAction
	OnUpdate      ast.ForeignKeyAction
	Constraint    string
}

// ParseAnnotations parses an annotation string. Unknown options are returned
// separately so the caller can report them; malformed values of known options
// are errors.
func ParseAnnotations(tag string) (Annotations, []string, error) {
	var (
		ann     Annotations
		unknown []string
	)
	for _, option := range strings.Split(tag, ";") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}

		key, val, hasValue := strings.Cut(option, ":")
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		if !hasValue {
			if !ann.parseFlag(key) {
				unknown = append(unknown, option)
			}
			continue
		}

		known, err := ann.parseKeyValue(key, val)
		if err != nil {
			return Annotations{}, nil, fmt.Errorf("annotation %q: %w", option, err)
		}
		if !known {
			unknown = append(unknown, option)
		}
	}
	return ann, unknown, nil
}

// parseFlag handles options without values.
func (a *Annotations) parseFlag(flag string) bool {
	switch flag {
	case "primary", "primary_key":
		a.Primary = true
	case "auto_increment", "autoincrement":
		a.AutoIncrement = true
	case "unique":
		a.Unique = true
	case "nullable", "null":
		a.Nullable = true
	case "positive":
		a.Checks = append(a.Checks, Check{Kind: CheckPositive})
	case "non_negative":
		a.Checks = append(a.Checks, Check{Kind: CheckNonNegative})
	case "negative":
		a.Checks = append(a.Checks, Check{Kind: CheckNegative})
	case "non_positive":
		a.Checks = append(a.Checks, Check{Kind: CheckNonPositive})
	default:
		return false
	}
	return true
}

// parseKeyValue handles key:value options.
func (a *Annotations) parseKeyValue(key, val string) (bool, error) {
	switch key {
	case "name", "column":
		if val == "" {
			return true, fmt.Errorf("empty name")
		}
		a.Name = val
	case "default":
		v := val
		a.Default = &v
	case "min", "max", "multiple_of":
		bound, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return true, fmt.Errorf("%s must be a number", key)
		}
		kind := map[string]CheckKind{"min": CheckMin, "max": CheckMax, "multiple_of": CheckMultipleOf}[key]
		if kind == CheckMultipleOf && bound <= 0 {
			return true, fmt.Errorf("multiple_of must be positive")
		}
		a.Checks = append(a.Checks, Check{Kind: kind, Bound: bound})
	case "references", "fk":
		if val == "" {
			return true, fmt.Errorf("empty reference")
		}
		a.References = val
	case "on_delete", "on_update":
		action, ok := ast.ParseForeignKeyAction(val)
		if !ok {
			return true, fmt.Errorf("unknown action %q", val)
		}
		if key == "on_delete" {
			a.OnDelete = action
		} else {
			a.OnUpdate = action
		}
	case "constraint":
		a.Constraint = val
	default:
		return false, nil
	}
	return true, nil
}

// Reference is the target of a foreign key.
type Reference struct {
	Table    *ast.Table
	Columns  []string
	OnDelete ast.ForeignKeyAction
	OnUpdate ast.ForeignKeyAction
}

// parseReference resolves "schema.table.column", "table.column" or, when
// columns are supplied by a nested type, "schema.table" and "table".
func parseReference(target string, nestedColumns []string) (*ast.Table, []string, error) {
	parts := strings.Split(target, ".")
	var schemaName, table string
	var columns []string

	if nestedColumns != nil {
		switch len(parts) {
		case 1:
			table = parts[0]
		case 2:
			schemaName, table = parts[0], parts[1]
		default:
			return nil, nil, fmt.Errorf("reference %q: want [schema.]table for a nested field", target)
		}
		columns = nestedColumns
	} else {
		switch len(parts) {
		case 2:
			table, columns = parts[0], []string{parts[1]}
		case 3:
			schemaName, table, columns = parts[0], parts[1], []string{parts[2]}
		default:
			return nil, nil, fmt.Errorf("reference %q: want [schema.]table.column", target)
		}
	}

	t, err := ast.NewTable(schemaName, table)
	if err != nil {
		return nil, nil, err
	}
	return t, columns, nil
}
