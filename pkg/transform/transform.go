package transform

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"mercator-hq/exceller/pkg/schema/ast"
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
	"mercator-hq/exceller/pkg/transform/plugin"
	"mercator-hq/exceller/pkg/transform/value"
)

// Reserved context bindings of list iterations.
const (
	LoopIndex = "loop_index"
	LoopItem  = "loop_item"
)

// Transformer resolves one schema node.
type Transformer interface {
	// Resolve returns the value described by the node. Computed fields are
	// resolved on the first call only.
	Resolve() (any, error)

	// Node returns the schema node.
	Node() ast.Node

	// Context returns the transformer's context.
	Context() *value.Map

	// Registry returns the transformer's plugin registry.
	Registry() *plugin.Registry
}

// New builds a Transformer for node. ctx is merged over the node's context
// defaults, and the node's plugin descriptors bind over caps of the same
// name. Plugin descriptor failures are returned here, not from Resolve.
func New(node ast.Node, ctx map[string]any, caps map[string]any, opts ...Option) (Transformer, error) {
	external, err := NewContext(ctx)
	if err != nil {
		return nil, err
	}
	seed, err := NewRegistry(caps)
	if err != nil {
		return nil, err
	}
	return makeTransformer(node, external, seed, newOptions(opts))
}

// NewWithRegistry is New for callers holding an already normalized context
// and a built registry.
func NewWithRegistry(node ast.Node, ctx *value.Map, reg *plugin.Registry, opts ...Option) (Transformer, error) {
	return makeTransformer(node, ctx, reg, newOptions(opts))
}

// ResolveDocument builds a Transformer for node and resolves it once.
func ResolveDocument(node ast.Node, ctx map[string]any, caps map[string]any, opts ...Option) (any, error) {
	t, err := New(node, ctx, caps, opts...)
	if err != nil {
		return nil, err
	}
	return t.Resolve()
}

// NewContext converts host values into a context.
func NewContext(ctx map[string]any) (*value.Map, error) {
	if ctx == nil {
		return value.NewMap(), nil
	}
	v, err := value.Normalize(ctx)
	if err != nil {
		return nil, schemaerrors.Wrap(schemaerrors.KindSchemaDefinition, err, "invalid context: %v", err)
	}
	return v.(*value.Map), nil
}

// NewRegistry converts host capabilities into a registry. Plain Go functions
// of the form func(...any) (any, error) are wrapped as callables.
func NewRegistry(caps map[string]any) (*plugin.Registry, error) {
	normalized := make(map[string]any, len(caps))
	for name, c := range caps {
		v, err := value.Normalize(c)
		if err != nil {
			return nil, schemaerrors.Wrap(schemaerrors.KindPluginDefinition, err, "plugin %q: %v", name, err)
		}
		if f, ok := v.(value.Func); ok && f.Name == "" {
			f.Name = name
			v = f
		}
		normalized[name] = v
	}
	return plugin.NewRegistry(normalized), nil
}

// makeTransformer dispatches on the node kind.
func makeTransformer(node ast.Node, ctx *value.Map, caps *plugin.Registry, o *options) (Transformer, error) {
	if node == nil {
		return nil, schemaerrors.New(schemaerrors.KindSchemaDefinition, "schema node is nil")
	}
	meta := node.Meta()

	reg, err := buildRegistry(meta.Plugins, caps, o)
	if err != nil {
		return nil, locate(err, meta.Location)
	}
	b := &base{
		node: node,
		ctx:  meta.Ctx.Merge(ctx),
		reg:  reg,
		opts: o,
	}

	switch n := node.(type) {
	case *ast.LiteralNode:
		return &LiteralTransformer{base: b, node: n}, nil
	case *ast.ExprNode:
		return &ExprTransformer{base: b, node: n}, nil
	case *ast.TupleNode:
		return &TupleTransformer{base: b, node: n}, nil
	case *ast.ListNode:
		return &ListTransformer{base: b, node: n}, nil
	case *ast.ObjectNode:
		return &ObjectTransformer{base: b, node: n}, nil
	default:
		return nil, schemaerrors.New(schemaerrors.KindSchemaDefinition, "unknown node kind %T", node)
	}
}

// base holds the state shared by every node kind.
type base struct {
	node ast.Node
	ctx  *value.Map
	reg  *plugin.Registry
	opts *options

	computedOnce sync.Once
	computedErr  error
}

func (b *base) Node() ast.Node             { return b.node }
func (b *base) Context() *value.Map        { return b.ctx }
func (b *base) Registry() *plugin.Registry { return b.reg }

// run resolves computed fields once and then calls resolve.
func (b *base) run(resolve func() (any, error)) (any, error) {
	start := time.Now()

	b.computedOnce.Do(func() {
		b.computedErr = b.resolveComputed()
	})

	var (
		out any
		err = b.computedErr
	)
	if err == nil {
		out, err = resolve()
	}
	if err != nil {
		err = locate(err, b.node.Meta().Location)
		out = nil
	}

	if b.opts.observer != nil {
		b.opts.observer.ObserveResolve(b.node.Kind(), time.Since(start), err)
	}
	return out, err
}

// resolveComputed resolves every computed field against the pre-merge
// context and merges the results in declaration order.
func (b *base) resolveComputed() error {
	fields := b.node.Meta().Computed
	if len(fields) == 0 {
		return nil
	}

	results := make([]any, len(fields))
	for i, f := range fields {
		v, err := b.child(f.Node, b.ctx)
		if err != nil {
			return fmt.Errorf("computed field %q: %w", f.Key, err)
		}
		results[i] = v
	}
	for i, f := range fields {
		b.ctx.Set(f.Key, results[i])
	}

	b.opts.logger.Debug("computed fields merged", "count", len(fields), "kind", b.node.Kind())
	return nil
}

// child builds and resolves a fresh Transformer for node.
func (b *base) child(node ast.Node, ctx *value.Map) (any, error) {
	t, err := makeTransformer(node, ctx, b.reg, b.opts)
	if err != nil {
		return nil, err
	}
	return t.Resolve()
}

// included evaluates the guard of node against ctx. Nodes without a guard are
// always included.
func (b *base) included(node ast.Node, ctx *value.Map) (bool, error) {
	if node == nil || !node.Meta().HasGuard() {
		return true, nil
	}
	v, err := b.opts.evaluator.Evaluate(node.Meta().If, ctx, b.reg)
	if err != nil {
		return false, locate(err, node.Meta().Location)
	}
	return value.Truthy(v), nil
}

// locate attaches loc to err when the error carries no location yet.
func locate(err error, loc schemaerrors.Location) error {
	if !loc.IsValid() {
		return err
	}
	var e *schemaerrors.Error
	if stderrors.As(err, &e) && !e.Location.IsValid() {
		e.Location = loc
	}
	return err
}
