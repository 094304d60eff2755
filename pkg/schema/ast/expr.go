package ast

import (
	"mercator-hq/exceller/pkg/transform/value"
)

// Expr is a prefix-notation expression. A single element is a reference
// token; otherwise element 0 is the operator and the rest are arguments.
// Elements are nested Expr values, reference strings or literal values.
type Expr []any

// E builds an Expr from tokens.
func E(tokens ...any) Expr {
	return Expr(tokens)
}

// Values converts the expression to plain value-domain lists, so nested
// expressions render and compare like any other list.
func (e Expr) Values() []any {
	out := make([]any, len(e))
	for i, tok := range e {
		if sub, ok := tok.(Expr); ok {
			out[i] = sub.Values()
			continue
		}
		out[i] = tok
	}
	return out
}

// String renders the expression as compact JSON.
func (e Expr) String() string {
	return value.Repr(e.Values())
}
