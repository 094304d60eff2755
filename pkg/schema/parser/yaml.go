package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"mercator-hq/exceller/pkg/schema/ast"
	"mercator-hq/exceller/pkg/transform/value"
)

type entry struct {
	key     string
	keyNode *yaml.Node
	value   *yaml.Node
}

// resolve unwraps document and alias nodes.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func mappingEntries(n *yaml.Node) []entry {
	out := make([]entry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolve(n.Content[i])
		out = append(out, entry{key: k.Value, keyNode: k, value: n.Content[i+1]})
	}
	return out
}

func lookup(entries []entry, key string) *yaml.Node {
	for _, e := range entries {
		if e.key == key {
			return e.value
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	n = resolve(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func isString(n *yaml.Node) bool {
	return n != nil && n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str"
}

func describe(n *yaml.Node) string {
	n = resolve(n)
	if n == nil {
		return "nothing"
	}
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return "null"
		case "!!str":
			return fmt.Sprintf("string %q", n.Value)
		}
		return n.Value
	}
	return "unknown node"
}

// toValue converts n into the value domain. Mappings become ordered maps.
func toValue(n *yaml.Node) (any, error) {
	return value.FromYAML(n)
}

// toExpr converts a sequence into an expression.
func toExpr(n *yaml.Node) (ast.Expr, error) {
	expr := make(ast.Expr, len(n.Content))
	for i, item := range n.Content {
		item = resolve(item)
		if item != nil && item.Kind == yaml.SequenceNode {
			sub, err := toExpr(item)
			if err != nil {
				return nil, err
			}
			expr[i] = sub
			continue
		}
		v, err := toValue(item)
		if err != nil {
			return nil, err
		}
		expr[i] = v
	}
	return expr, nil
}
