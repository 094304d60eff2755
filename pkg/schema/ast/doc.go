// Package ast defines the typed representation of a transformation schema.
//
// A schema is a tree of nodes. Each node is one of five kinds, modelled as a
// closed set of concrete types implementing Node:
//
//	*LiteralNode   returns its payload verbatim
//	*ExprNode      evaluates a prefix-notation expression
//	*TupleNode     resolves an ordered, fixed-size sequence of child nodes
//	*ListNode      iterates an expression result, resolving a child per element
//	*ObjectNode    resolves an ordered mapping of keys to child nodes
//
// Every node also carries the optional members shared by all kinds (context
// defaults, plugin descriptors, an inclusion guard and computed fields) in
// Common.
//
// Schemas are usually produced by the parser package from YAML or JSON
// documents. The builder functions in this package construct them directly:
//
//	schema := ast.Object(
//	    ast.F("id", ast.Expression("concat", "id_", ast.E("str", "$0.loop_index"))),
//	    ast.F("val", ast.Expression("$0.loop_item")),
//	)
package ast
