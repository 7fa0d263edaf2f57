package dialect

import (
	"strings"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/value"
)

// Writer accumulates statement text together with the values bound to it.
type Writer struct {
	sb           strings.Builder
	args         []value.Value
	placeholders int
}

func (w *Writer) reset() {
	w.sb.Reset()
	w.args = w.args[:0]
	w.placeholders = 0
}

func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

func (w *Writer) WriteByte(c byte) error {
	return w.sb.WriteByte(c)
}

// Bind appends v to the bound values and returns the parameter node standing
// for it. The caller must transcribe that node next.
func (w *Writer) Bind(v value.Value) ast.Parameter {
	w.args = append(w.args, v)
	return ast.NewParameter(len(w.args))
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.sb.Len() }
