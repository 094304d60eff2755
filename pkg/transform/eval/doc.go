// Package eval evaluates prefix-notation expressions against a context and a
// plugin registry.
//
// An expression is a non-empty sequence. A single element is a reference
// token resolved directly:
//
//	["$0.rec"]                  context lookup
//	["$1.datetime:datetime"]    plugin lookup, optionally selecting an attribute
//	["hello"]                   any other string is a literal
//
// Longer expressions apply the operator in element 0 to the remaining
// elements, which are evaluated eagerly from left to right. Operators resolve
// in this order:
//
//  1. "if", selecting the second or third element on the truthiness of the
//     first argument. All three arguments are evaluated.
//  2. A nested expression evaluated to obtain a callable.
//  3. ".name", a method of the first argument. The receiver is removed from
//     the argument list before the call.
//  4. "$1.name:attr", a callable plugin or plugin attribute.
//  5. Any other name, looked up among the general operators (comparisons,
//     arithmetic and string operators) and then among the builtin functions.
//
// The operator and builtin tables are built once and never mutated.
package eval
