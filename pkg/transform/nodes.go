package transform

import (
	"mercator-hq/exceller/pkg/schema/ast"
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
	"mercator-hq/exceller/pkg/transform/value"
)

// LiteralTransformer returns its payload verbatim.
type LiteralTransformer struct {
	*base
	node *ast.LiteralNode
}

// Resolve implements Transformer.
func (t *LiteralTransformer) Resolve() (any, error) {
	return t.run(func() (any, error) {
		return t.node.Value, nil
	})
}

// ExprTransformer evaluates its expression.
type ExprTransformer struct {
	*base
	node *ast.ExprNode
}

// Resolve implements Transformer.
func (t *ExprTransformer) Resolve() (any, error) {
	return t.run(func() (any, error) {
		return t.opts.evaluator.Evaluate(t.node.Expr, t.ctx, t.reg)
	})
}

// TupleTransformer resolves its included items in order.
type TupleTransformer struct {
	*base
	node *ast.TupleNode
}

// Resolve implements Transformer.
func (t *TupleTransformer) Resolve() (any, error) {
	return t.run(func() (any, error) {
		out := make(value.Tuple, 0, len(t.node.Items))
		for _, item := range t.node.Items {
			ok, err := t.included(item, t.ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			v, err := t.child(item, t.ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	})
}

// ListTransformer resolves its each node once per element of the iter
// expression result.
type ListTransformer struct {
	*base
	node *ast.ListNode
}

// Resolve implements Transformer.
func (t *ListTransformer) Resolve() (any, error) {
	return t.run(func() (any, error) {
		target, err := t.opts.evaluator.Evaluate(t.node.Iter, t.ctx, t.reg)
		if err != nil {
			return nil, err
		}
		items, ok := value.Items(target)
		if !ok {
			return nil, schemaerrors.New(schemaerrors.KindNotIterable,
				"invalid `iter` definition, %s is not iterable", t.node.Iter)
		}

		t.opts.logger.Debug("iterating list", "items", len(items))

		out := make([]any, 0, len(items))
		for i, item := range items {
			derived := t.ctx.Clone()
			derived.Set(LoopIndex, int64(i))
			derived.Set(LoopItem, item)

			ok, err := t.included(t.node.Each, derived)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			v, err := t.child(t.node.Each, derived)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	})
}

// ObjectTransformer resolves its included fields, preserving key order.
type ObjectTransformer struct {
	*base
	node *ast.ObjectNode
}

// Resolve implements Transformer.
func (t *ObjectTransformer) Resolve() (any, error) {
	return t.run(func() (any, error) {
		out := value.NewMap()
		for _, f := range t.node.Fields {
			ok, err := t.included(f.Node, t.ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			v, err := t.child(f.Node, t.ctx)
			if err != nil {
				return nil, err
			}
			out.Set(f.Key, v)
		}
		return out, nil
	})
}
