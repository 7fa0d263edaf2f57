package dialect

import (
	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/value"
)

// SQLite prints booleans as 1 and 0 and declares every integer width as
// INTEGER, the only type AUTOINCREMENT accepts.
var SQLite = New("sqlite", Base).
	Register(ast.NodeBoolLiteral, LiteralTranscriber(func(v value.Value) string {
		if v.Bool() {
			return "1"
		}
		return "0"
	})).
	Register(ast.NodeDataType, DataTypeTranscriber(func(dt ast.DataType) string {
		if dt.Kind().IsInteger() {
			return "INTEGER"
		}
		return baseTypeName(dt)
	}))
