package ast

import (
	"mercator-hq/exceller/pkg/transform/value"
)

// Literal returns a node resolving to v.
func Literal(v any) *LiteralNode {
	return &LiteralNode{Value: v}
}

// Expression returns a node evaluating the expression built from tokens.
func Expression(tokens ...any) *ExprNode {
	return &ExprNode{Expr: Expr(tokens)}
}

// Tuple returns a node resolving each item in order.
func Tuple(items ...Node) *TupleNode {
	return &TupleNode{Items: items}
}

// List returns a node resolving each once per element of iter.
func List(iter Expr, each Node) *ListNode {
	return &ListNode{Iter: iter, Each: each}
}

// Object returns a node resolving fields in order.
func Object(fields ...Field) *ObjectNode {
	return &ObjectNode{Fields: fields}
}

// F pairs a key with a node.
func F(key string, node Node) Field {
	return Field{Key: key, Node: node}
}

// WithIf sets the inclusion guard of n.
func WithIf[N Node](n N, guard Expr) N {
	n.Meta().If = guard
	return n
}

// WithCtx sets the context defaults of n. kv alternates keys and values as
// in value.MapOf.
func WithCtx[N Node](n N, kv ...any) N {
	n.Meta().Ctx = value.MapOf(kv...)
	return n
}

// WithPlugins appends plugin descriptors to n.
func WithPlugins[N Node](n N, descriptors ...PluginDescriptor) N {
	m := n.Meta()
	m.Plugins = append(m.Plugins, descriptors...)
	return n
}

// WithComputed appends computed fields to n.
func WithComputed[N Node](n N, fields ...Field) N {
	m := n.Meta()
	m.Computed = append(m.Computed, fields...)
	return n
}
