package ast

import "github.com/Konsultn-Engineering/tabular/value"

// Literal is a constant. Its node type follows the kind of the wrapped value,
// so a dialect may render e.g. boolean literals differently from integers.
type Literal struct {
	val value.Value
}

func NewLiteral(v value.Value) *Literal { return &Literal{val: v} }

func Null() *Literal           { return NewLiteral(value.Null()) }
func Bool(b bool) *Literal     { return NewLiteral(value.Bool(b)) }
func Int(i int64) *Literal     { return NewLiteral(value.Int(i)) }
func Float(f float64) *Literal { return NewLiteral(value.Float(f)) }
func String(s string) *Literal { return NewLiteral(value.String(s)) }
func Binary(b []byte) *Literal { return NewLiteral(value.Binary(b)) }

func (l *Literal) Value() value.Value { return l.val }

func (l *Literal) Type() NodeType {
	switch l.val.Kind() {
	case value.KindBool:
		return NodeBoolLiteral
	case value.KindInt:
		return NodeIntLiteral
	case value.KindFloat:
		return NodeFloatLiteral
	case value.KindString:
		return NodeStringLiteral
	case value.KindBinary:
		return NodeBinaryLiteral
	}
	return NodeNullLiteral
}

func (*Literal) expr() {}

// Parameter is the placeholder emitted for a parameterized literal.
// Position is 1-based and counts placeholders in rendering order.
type Parameter struct {
	position int
}

func NewParameter(position int) Parameter { return Parameter{position: position} }

func (p Parameter) Position() int { return p.position }
func (Parameter) Type() NodeType  { return NodeParameter }

// Identifier is a single name that a dialect quotes.
type Identifier struct {
	name string
}

func Ident(name string) Identifier { return Identifier{name: name} }

func (i Identifier) Name() string { return i.name }
func (Identifier) Type() NodeType { return NodeIdentifier }
