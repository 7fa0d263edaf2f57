package dialect

import (
	"encoding/hex"
	"strconv"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/value"
)

// Postgres numbers its placeholders, has no TINYINT or BLOB and rejects a
// parenthesized FROM list.
var Postgres = New("postgres", Base).
	Register(ast.NodeParameter, Typed(func(_ *Dialect, w *Writer, p ast.Parameter, _ bool) error {
		w.WriteString("$" + strconv.Itoa(p.Position()))
		return nil
	})).
	Register(ast.NodeBinaryLiteral, LiteralTranscriber(func(v value.Value) string {
		return `'\x` + hex.EncodeToString(v.Bytes()) + `'`
	})).
	Register(ast.NodeDataType, DataTypeTranscriber(func(dt ast.DataType) string {
		switch dt.Kind() {
		case ast.TypeInt8:
			return "SMALLINT"
		case ast.TypeBinary:
			return "BYTEA"
		}
		return baseTypeName(dt)
	})).
	Register(ast.NodePrimaryKeyConstraint, PrimaryKeyTranscriber("GENERATED BY DEFAULT AS IDENTITY", "")).
	Register(ast.NodeSelect, SelectTranscriber(false))
