package ast

import (
	"strings"

	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
	"mercator-hq/exceller/pkg/transform/value"
)

// Kind is the wire tag of a node.
type Kind string

const (
	KindLiteral Kind = "literal"
	KindExpr    Kind = "expr"
	KindTuple   Kind = "tuple"
	KindList    Kind = "list"
	KindObject  Kind = "object"
)

// Kinds lists every node kind.
var Kinds = []Kind{KindLiteral, KindExpr, KindTuple, KindList, KindObject}

var kindAliases = map[string]Kind{
	"literal":    KindLiteral,
	"expr":       KindExpr,
	"expression": KindExpr,
	"tuple":      KindTuple,
	"list":       KindList,
	"object":     KindObject,
}

// ParseKind maps a wire tag to a Kind. Tags are case-insensitive and the long
// form "expression" is accepted for expr.
func ParseKind(tag string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(tag)]; ok {
		return k, nil
	}
	return "", schemaerrors.New(schemaerrors.KindSchemaDefinition,
		"unknown node type %q: must be one of literal, expr, tuple, list, object", tag)
}

// Node is a schema node. The set of implementations is closed.
type Node interface {
	Kind() Kind
	Meta() *Common
	node()
}

// Common holds the members every node kind may carry.
type Common struct {
	// Ctx holds context defaults. Caller supplied context wins over them.
	Ctx *value.Map

	// Plugins are folded, in order, into the plugin registry.
	Plugins []PluginDescriptor

	// If is the inclusion guard evaluated by the parent object, tuple or list
	// node. A nil or empty guard always includes the node.
	If Expr

	// Computed are sub-schemas resolved once, on first resolution, and merged
	// into the context under their keys.
	Computed []Field

	// Location is the node's position in its source document.
	Location schemaerrors.Location
}

// Meta returns the shared members.
func (c *Common) Meta() *Common { return c }

// HasGuard reports whether the node carries a non-empty guard.
func (c *Common) HasGuard() bool { return len(c.If) > 0 }

// LiteralNode resolves to Value verbatim.
type LiteralNode struct {
	Common
	Value any
}

// ExprNode resolves by evaluating Expr.
type ExprNode struct {
	Common
	Expr Expr
}

// TupleNode resolves to a value.Tuple of its included items.
type TupleNode struct {
	Common
	Items []Node
}

// ListNode resolves Each once per element of the Iter result.
type ListNode struct {
	Common
	Iter Expr
	Each Node
}

// ObjectNode resolves to a *value.Map of its included fields.
type ObjectNode struct {
	Common
	Fields []Field
}

// Field is a named child node. Order is significant.
type Field struct {
	Key  string
	Node Node
}

func (*LiteralNode) Kind() Kind { return KindLiteral }
func (*ExprNode) Kind() Kind    { return KindExpr }
func (*TupleNode) Kind() Kind   { return KindTuple }
func (*ListNode) Kind() Kind    { return KindList }
func (*ObjectNode) Kind() Kind  { return KindObject }

func (*LiteralNode) node() {}
func (*ExprNode) node()    {}
func (*TupleNode) node()   {}
func (*ListNode) node()    {}
func (*ObjectNode) node()  {}
