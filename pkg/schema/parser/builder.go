package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"mercator-hq/exceller/pkg/schema/ast"
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
	"mercator-hq/exceller/pkg/transform/value"
)

// Keys of a node mapping.
const (
	keyType        = "type"
	keyKind        = "kind"
	keyMapping     = "mapping"
	keyCtx         = "ctx"
	keyPlugins     = "plugins"
	keyIf          = "if"
	keyComputed    = "computed"
	keyDescription = "description"
	keyIter        = "iter"
	keyEach        = "each"
)

var nodeKeys = []string{keyType, keyKind, keyMapping, keyCtx, keyPlugins, keyIf, keyComputed, keyDescription}

// builder constructs ast nodes from YAML nodes, collecting structural errors
// instead of stopping at the first one.
type builder struct {
	source   string
	maxDepth int
	errors   *schemaerrors.ErrorList
}

func newBuilder(source string, maxDepth int) *builder {
	return &builder{
		source:   source,
		maxDepth: maxDepth,
		errors:   schemaerrors.NewErrorList(),
	}
}

func (b *builder) location(n *yaml.Node) schemaerrors.Location {
	if n == nil {
		return schemaerrors.Location{File: b.source}
	}
	return schemaerrors.Location{File: b.source, Line: n.Line, Column: n.Column}
}

func (b *builder) fail(kind schemaerrors.Kind, n *yaml.Node, format string, args ...any) *schemaerrors.Error {
	err := schemaerrors.New(kind, format, args...).At(b.location(n))
	b.errors.Add(err)
	return err
}

// buildNode builds the node described by the mapping n. It returns nil after
// recording an error.
func (b *builder) buildNode(n *yaml.Node, depth int) ast.Node {
	n = resolve(n)
	if n == nil {
		b.fail(schemaerrors.KindSchemaDefinition, nil, "Schema node is empty")
		return nil
	}
	if depth > b.maxDepth {
		b.fail(schemaerrors.KindSchemaDefinition, n, "Schema nesting exceeds maximum depth %d", b.maxDepth)
		return nil
	}
	if n.Kind != yaml.MappingNode {
		b.fail(schemaerrors.KindSchemaDefinition, n, "Schema node must be a mapping, got %s", describe(n))
		return nil
	}

	fields := mappingEntries(n)
	for _, e := range fields {
		if !contains(nodeKeys, e.key) {
			b.fail(schemaerrors.KindSchemaDefinition, e.keyNode, "Unknown node field %q", e.key).
				WithSuggestion(schemaerrors.Suggest(e.key, nodeKeys))
		}
	}

	tagNode := lookup(fields, keyType)
	if tagNode == nil {
		tagNode = lookup(fields, keyKind)
	}
	if tagNode == nil {
		b.fail(schemaerrors.KindSchemaDefinition, n, "Schema node is missing `type`").
			WithSuggestion("Set type to one of literal, expr, tuple, list, object")
		return nil
	}
	tag := resolve(tagNode)
	if tag.Kind != yaml.ScalarNode {
		b.fail(schemaerrors.KindSchemaDefinition, tag, "Node type must be a string, got %s", describe(tag))
		return nil
	}
	kind, err := ast.ParseKind(tag.Value)
	if err != nil {
		names := make([]string, len(ast.Kinds))
		for i, k := range ast.Kinds {
			names[i] = string(k)
		}
		b.fail(schemaerrors.KindSchemaDefinition, tag, "%s", schemaerrors.MessageOf(err)).
			WithSuggestion(schemaerrors.Suggest(tag.Value, names))
		return nil
	}

	mapping := lookup(fields, keyMapping)
	if mapping == nil {
		b.fail(schemaerrors.KindSchemaDefinition, n, "%s node is missing `mapping`", kind)
		return nil
	}

	var node ast.Node
	switch kind {
	case ast.KindLiteral:
		v, err := toValue(mapping)
		if err != nil {
			b.fail(schemaerrors.KindSchemaDefinition, mapping, "Invalid literal: %v", err)
			return nil
		}
		node = &ast.LiteralNode{Value: v}
	case ast.KindExpr:
		expr, ok := b.buildExpr(mapping, "mapping")
		if !ok {
			return nil
		}
		node = &ast.ExprNode{Expr: expr}
	case ast.KindTuple:
		node = b.buildTuple(mapping, depth)
	case ast.KindList:
		node = b.buildList(mapping, depth)
	case ast.KindObject:
		node = b.buildObject(mapping, depth)
	}
	if node == nil {
		return nil
	}

	meta := node.Meta()
	meta.Location = b.location(n)
	if ctx := lookup(fields, keyCtx); ctx != nil {
		meta.Ctx = b.buildCtx(ctx)
	}
	if plugins := lookup(fields, keyPlugins); plugins != nil {
		meta.Plugins = b.buildPlugins(plugins)
	}
	if guard := lookup(fields, keyIf); guard != nil && !isNull(guard) {
		if expr, ok := b.buildExpr(guard, "if"); ok {
			meta.If = expr
		}
	}
	if computed := lookup(fields, keyComputed); computed != nil && !isNull(computed) {
		meta.Computed = b.buildFields(computed, depth, "computed")
	}
	return node
}

func (b *builder) buildTuple(n *yaml.Node, depth int) ast.Node {
	n = resolve(n)
	if n.Kind != yaml.SequenceNode {
		b.fail(schemaerrors.KindSchemaDefinition, n, "tuple mapping must be a sequence of nodes, got %s", describe(n))
		return nil
	}
	items := make([]ast.Node, 0, len(n.Content))
	for _, item := range n.Content {
		if child := b.buildNode(item, depth+1); child != nil {
			items = append(items, child)
		}
	}
	return &ast.TupleNode{Items: items}
}

func (b *builder) buildList(n *yaml.Node, depth int) ast.Node {
	n = resolve(n)
	if n.Kind != yaml.MappingNode {
		b.fail(schemaerrors.KindSchemaDefinition, n, "list mapping must be a mapping with `iter` and `each`, got %s", describe(n))
		return nil
	}
	entries := mappingEntries(n)
	iterNode, eachNode := lookup(entries, keyIter), lookup(entries, keyEach)
	if iterNode == nil || eachNode == nil {
		b.fail(schemaerrors.KindSchemaDefinition, n, "list mapping requires both `iter` and `each`")
		return nil
	}
	for _, e := range entries {
		if e.key != keyIter && e.key != keyEach {
			b.fail(schemaerrors.KindSchemaDefinition, e.keyNode, "Unknown list mapping field %q", e.key).
				WithSuggestion(schemaerrors.Suggest(e.key, []string{keyIter, keyEach}))
		}
	}

	iter, ok := b.buildExpr(iterNode, "iter")
	each := b.buildNode(eachNode, depth+1)
	if !ok || each == nil {
		return nil
	}
	return &ast.ListNode{Iter: iter, Each: each}
}

func (b *builder) buildObject(n *yaml.Node, depth int) ast.Node {
	n = resolve(n)
	if n.Kind != yaml.MappingNode {
		b.fail(schemaerrors.KindSchemaDefinition, n, "object mapping must be a mapping of keys to nodes, got %s", describe(n))
		return nil
	}
	return &ast.ObjectNode{Fields: b.buildFields(n, depth, "mapping")}
}

// buildFields builds an ordered key to node mapping.
func (b *builder) buildFields(n *yaml.Node, depth int, what string) []ast.Field {
	n = resolve(n)
	if n.Kind != yaml.MappingNode {
		b.fail(schemaerrors.KindSchemaDefinition, n, "%s must be a mapping of keys to nodes, got %s", what, describe(n))
		return nil
	}
	entries := mappingEntries(n)
	fields := make([]ast.Field, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.key] {
			b.fail(schemaerrors.KindSchemaDefinition, e.keyNode, "Duplicate key %q in %s", e.key, what)
			continue
		}
		seen[e.key] = true
		if child := b.buildNode(e.value, depth+1); child != nil {
			fields = append(fields, ast.F(e.key, child))
		}
	}
	return fields
}

func (b *builder) buildCtx(n *yaml.Node) *value.Map {
	n = resolve(n)
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		b.fail(schemaerrors.KindSchemaDefinition, n, "ctx must be a mapping, got %s", describe(n))
		return nil
	}
	v, err := toValue(n)
	if err != nil {
		b.fail(schemaerrors.KindSchemaDefinition, n, "Invalid ctx: %v", err)
		return nil
	}
	return v.(*value.Map)
}

// buildExpr converts a sequence into an expression. Nested sequences become
// nested expressions.
func (b *builder) buildExpr(n *yaml.Node, what string) (ast.Expr, bool) {
	n = resolve(n)
	if n.Kind != yaml.SequenceNode {
		b.fail(schemaerrors.KindSchemaDefinition, n, "%s must be an expression sequence, got %s", what, describe(n))
		return nil, false
	}
	expr, err := toExpr(n)
	if err != nil {
		b.fail(schemaerrors.KindSchemaDefinition, n, "Invalid %s expression: %v", what, err)
		return nil, false
	}
	return expr, true
}

func (b *builder) buildPlugins(n *yaml.Node) []ast.PluginDescriptor {
	n = resolve(n)
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		b.fail(schemaerrors.KindPluginDefinition, n, "plugins must be a sequence of descriptors, got %s", describe(n))
		return nil
	}
	out := make([]ast.PluginDescriptor, 0, len(n.Content))
	for _, item := range n.Content {
		if d := b.buildDescriptor(item); d != nil {
			out = append(out, d)
		}
	}
	return out
}

// buildDescriptor accepts an import path string, an expression or a single
// entry mapping binding either of those under an explicit name.
func (b *builder) buildDescriptor(n *yaml.Node) ast.PluginDescriptor {
	n = resolve(n)
	switch {
	case isString(n):
		return ast.ImportPath{Path: n.Value}
	case n.Kind == yaml.SequenceNode:
		expr, err := toExpr(n)
		if err != nil {
			b.fail(schemaerrors.KindPluginDefinition, n, "Invalid plugin expression: %v", err)
			return nil
		}
		return ast.ExprPlugin{Expr: expr}
	case n.Kind == yaml.MappingNode && len(n.Content) == 2:
		name, src := resolve(n.Content[0]), resolve(n.Content[1])
		switch {
		case isString(src):
			return ast.NamedPlugin{Name: name.Value, Source: ast.ImportPath{Path: src.Value}}
		case src.Kind == yaml.SequenceNode:
			expr, err := toExpr(src)
			if err == nil {
				return ast.NamedPlugin{Name: name.Value, Source: ast.ExprPlugin{Expr: expr}}
			}
		}
	}

	b.fail(schemaerrors.KindPluginDefinition, n, "%s", render(n))
	return nil
}

// render prints n as a value for error messages.
func render(n *yaml.Node) string {
	v, err := toValue(n)
	if err != nil {
		return fmt.Sprintf("<%s>", describe(n))
	}
	return value.ToString(v)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
