// Package ast models SQL statements as immutable syntax trees.
//
// Nodes are built through constructors that validate their shape, expose
// their children through accessors only and never alias slices passed in by
// the caller. Rendering is not a concern of this package: every node reports
// its NodeType and a dialect looks up the transcriber registered for it.
package ast

import "strconv"

type NodeType int

const (
	NodeNullLiteral NodeType = iota
	NodeBoolLiteral
	NodeIntLiteral
	NodeFloatLiteral
	NodeStringLiteral
	NodeBinaryLiteral
	NodeParameter
	NodeIdentifier
	NodeColumn
	NodeTable
	NodeAllColumns
	NodeUnaryExpr
	NodeBinaryExpr
	NodeBetweenExpr
	NodeInExpr
	NodeOrderingTerm
	NodeOrderBy
	NodeDataType
	NodeColumnDef
	NodeUniqueConstraint
	NodePrimaryKeyConstraint
	NodeForeignKeyConstraint
	NodeCheckConstraint
	NodeAssignment
	NodeValues
	NodeCreateTable
	NodeDropTable
	NodeInsert
	NodeUpdate
	NodeDelete
	NodeSelect
	NodeOrderedSelect

	nodeTypeCount
)

var nodeTypeNames = [...]string{
	NodeNullLiteral:          "null literal",
	NodeBoolLiteral:          "boolean literal",
	NodeIntLiteral:           "integer literal",
	NodeFloatLiteral:         "float literal",
	NodeStringLiteral:        "string literal",
	NodeBinaryLiteral:        "binary literal",
	NodeParameter:            "parameter",
	NodeIdentifier:           "identifier",
	NodeColumn:               "column",
	NodeTable:                "table",
	NodeAllColumns:           "all columns",
	NodeUnaryExpr:            "unary expression",
	NodeBinaryExpr:           "binary expression",
	NodeBetweenExpr:          "between expression",
	NodeInExpr:               "in expression",
	NodeOrderingTerm:         "ordering term",
	NodeOrderBy:              "order by",
	NodeDataType:             "data type",
	NodeColumnDef:            "column declaration",
	NodeUniqueConstraint:     "unique constraint",
	NodePrimaryKeyConstraint: "primary key constraint",
	NodeForeignKeyConstraint: "foreign key constraint",
	NodeCheckConstraint:      "check constraint",
	NodeAssignment:           "assignment",
	NodeValues:               "values",
	NodeCreateTable:          "create table",
	NodeDropTable:            "drop table",
	NodeInsert:               "insert",
	NodeUpdate:               "update",
	NodeDelete:               "delete",
	NodeSelect:               "select",
	NodeOrderedSelect:        "ordered select",
}

func (t NodeType) String() string {
	if t >= 0 && t < nodeTypeCount {
		return nodeTypeNames[t]
	}
	return "node(" + strconv.Itoa(int(t)) + ")"
}

// NodeTypes returns every node kind known to this package, in declaration order.
func NodeTypes() []NodeType {
	types := make([]NodeType, nodeTypeCount)
	for i := range types {
		types[i] = NodeType(i)
	}
	return types
}

type Node interface {
	Type() NodeType
}

// Expr is a node usable where an expression is expected.
type Expr interface {
	Node
	expr()
}

// Constraint is a column or table constraint node.
type Constraint interface {
	Node
	constraint()
}

// Statement is a node that can be executed on its own.
type Statement interface {
	Node
	statement()
}
