package dialect

import (
	"strconv"
	"strings"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/value"
)

var mysqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `''`)

// MySQL quotes identifiers with backticks and treats backslashes in string
// literals as escapes.
var MySQL = New("mysql", Base).
	Register(ast.NodeIdentifier, IdentifierTranscriber("`")).
	Register(ast.NodeStringLiteral, LiteralTranscriber(func(v value.Value) string {
		return "'" + mysqlEscaper.Replace(v.Str()) + "'"
	})).
	Register(ast.NodeDataType, DataTypeTranscriber(func(dt ast.DataType) string {
		switch dt.Kind() {
		case ast.TypeFloat64:
			return "DOUBLE"
		case ast.TypeBinary:
			if dt.Length() > 0 {
				return "VARBINARY(" + strconv.Itoa(dt.Length()) + ")"
			}
			return "BLOB"
		}
		return baseTypeName(dt)
	})).
	Register(ast.NodePrimaryKeyConstraint, PrimaryKeyTranscriber("AUTO_INCREMENT", ""))

// TiDB speaks the MySQL dialect but allocates generated keys with
// AUTO_RANDOM to spread writes across regions.
var TiDB = New("tidb", MySQL).
	Register(ast.NodePrimaryKeyConstraint, PrimaryKeyTranscriber("", "AUTO_RANDOM"))
