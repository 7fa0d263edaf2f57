package ast

import (
	"slices"

	"github.com/Konsultn-Engineering/tabular/errs"
)

type UnaryOperator string

const (
	OpNot       UnaryOperator = "NOT"
	OpNegate    UnaryOperator = "-"
	OpAbs       UnaryOperator = "ABS"
	OpRound     UnaryOperator = "ROUND"
	OpIsNull    UnaryOperator = "IS NULL"
	OpIsNotNull UnaryOperator = "IS NOT NULL"
)

// Postfix reports whether the operator follows its operand.
func (op UnaryOperator) Postfix() bool {
	return op == OpIsNull || op == OpIsNotNull
}

func (op UnaryOperator) valid() bool {
	switch op {
	case OpNot, OpNegate, OpAbs, OpRound, OpIsNull, OpIsNotNull:
		return true
	}
	return false
}

type BinaryOperator string

// Comparison
const (
	OpEqual          BinaryOperator = "="
	OpNotEqual       BinaryOperator = "<>"
	OpLess           BinaryOperator = "<"
	OpLessOrEqual    BinaryOperator = "<="
	OpGreater        BinaryOperator = ">"
	OpGreaterOrEqual BinaryOperator = ">="
	OpLike           BinaryOperator = "LIKE"
)

// Logical
const (
	OpAnd BinaryOperator = "AND"
	OpOr  BinaryOperator = "OR"
)

// Arithmetic
const (
	OpAdd      BinaryOperator = "+"
	OpSubtract BinaryOperator = "-"
	OpMultiply BinaryOperator = "*"
	OpDivide   BinaryOperator = "/"
	OpModulo   BinaryOperator = "%"
	OpConcat   BinaryOperator = "||"
)

func (op BinaryOperator) valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual, OpLike,
		OpAnd, OpOr, OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulo, OpConcat:
		return true
	}
	return false
}

type UnaryExpr struct {
	op      UnaryOperator
	operand Expr
}

func NewUnary(op UnaryOperator, operand Expr) (*UnaryExpr, error) {
	if !op.valid() {
		return nil, errs.Structural(NodeUnaryExpr.String(), "unknown operator %q", string(op))
	}
	if operand == nil {
		return nil, errs.Structural(NodeUnaryExpr.String(), "missing operand")
	}
	return &UnaryExpr{op: op, operand: operand}, nil
}

func (u *UnaryExpr) Operator() UnaryOperator { return u.op }
func (u *UnaryExpr) Operand() Expr           { return u.operand }
func (*UnaryExpr) Type() NodeType            { return NodeUnaryExpr }
func (*UnaryExpr) expr()                     {}

type BinaryExpr struct {
	op          BinaryOperator
	left, right Expr
}

func NewBinary(left Expr, op BinaryOperator, right Expr) (*BinaryExpr, error) {
	if !op.valid() {
		return nil, errs.Structural(NodeBinaryExpr.String(), "unknown operator %q", string(op))
	}
	if left == nil || right == nil {
		return nil, errs.Structural(NodeBinaryExpr.String(), "missing operand for %s", string(op))
	}
	return &BinaryExpr{op: op, left: left, right: right}, nil
}

func (b *BinaryExpr) Operator() BinaryOperator { return b.op }
func (b *BinaryExpr) Left() Expr               { return b.left }
func (b *BinaryExpr) Right() Expr              { return b.right }
func (*BinaryExpr) Type() NodeType             { return NodeBinaryExpr }
func (*BinaryExpr) expr()                      {}

// Conjunction joins conditions with AND, left to right. A single condition is
// returned as is.
func Conjunction(conds ...Expr) (Expr, error) {
	if len(conds) == 0 {
		return nil, errs.Structural(NodeBinaryExpr.String(), "empty conjunction")
	}
	acc := conds[0]
	for _, c := range conds[1:] {
		b, err := NewBinary(acc, OpAnd, c)
		if err != nil {
			return nil, err
		}
		acc = b
	}
	if acc == nil {
		return nil, errs.Structural(NodeBinaryExpr.String(), "missing operand for AND")
	}
	return acc, nil
}

type BetweenExpr struct {
	target, lower, upper Expr
}

func NewBetween(target, lower, upper Expr) (*BetweenExpr, error) {
	switch {
	case target == nil:
		return nil, errs.Structural(NodeBetweenExpr.String(), "missing target")
	case lower == nil:
		return nil, errs.Structural(NodeBetweenExpr.String(), "missing lower bound")
	case upper == nil:
		return nil, errs.Structural(NodeBetweenExpr.String(), "missing upper bound")
	}
	return &BetweenExpr{target: target, lower: lower, upper: upper}, nil
}

func (b *BetweenExpr) Target() Expr { return b.target }
func (b *BetweenExpr) Lower() Expr  { return b.lower }
func (b *BetweenExpr) Upper() Expr  { return b.upper }
func (*BetweenExpr) Type() NodeType { return NodeBetweenExpr }
func (*BetweenExpr) expr()          {}

type InExpr struct {
	target Expr
	list   []Expr
}

func NewIn(target Expr, list ...Expr) (*InExpr, error) {
	if target == nil {
		return nil, errs.Structural(NodeInExpr.String(), "missing target")
	}
	if len(list) == 0 {
		return nil, errs.Structural(NodeInExpr.String(), "empty list")
	}
	if slices.Contains(list, nil) {
		return nil, errs.Structural(NodeInExpr.String(), "nil list element")
	}
	return &InExpr{target: target, list: slices.Clone(list)}, nil
}

func (in *InExpr) Target() Expr { return in.target }
func (in *InExpr) List() []Expr { return slices.Clone(in.list) }
func (*InExpr) Type() NodeType  { return NodeInExpr }
func (*InExpr) expr()           {}
