package value

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a decoded YAML node into the value domain. Mapping key
// order is preserved, merge keys are applied and aliases are followed.
func FromYAML(n *yaml.Node) (any, error) {
	n = unwrapYAML(n)
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return yamlScalar(n)
	case yaml.SequenceNode:
		out := make([]any, len(n.Content))
		for i, item := range n.Content {
			v, err := FromYAML(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := unwrapYAML(n.Content[i])
			if key == nil || key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", n.Content[i].Line)
			}
			if key.Value == "<<" && key.ShortTag() == "!!merge" {
				if err := mergeYAML(m, n.Content[i+1]); err != nil {
					return nil, err
				}
				continue
			}
			v, err := FromYAML(n.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key.Value, err)
			}
			m.Set(key.Value, v)
		}
		return m, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

func unwrapYAML(n *yaml.Node) *yaml.Node {
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

// mergeYAML applies a merge key. Keys already present win.
func mergeYAML(m *Map, n *yaml.Node) error {
	v, err := FromYAML(n)
	if err != nil {
		return err
	}
	sources := []any{v}
	if list, ok := v.([]any); ok {
		sources = list
	}
	for _, src := range sources {
		sm, ok := src.(*Map)
		if !ok {
			return fmt.Errorf("line %d: merge key requires a mapping", n.Line)
		}
		sm.Range(func(k string, item any) bool {
			if !m.Has(k) {
				m.Set(k, item)
			}
			return true
		})
	}
	return nil
}

func yamlScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		err := n.Decode(&b)
		return b, err
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			var f float64
			if ferr := n.Decode(&f); ferr != nil {
				return nil, err
			}
			return f, nil
		}
		return i, nil
	case "!!float":
		var f float64
		err := n.Decode(&f)
		return f, err
	default:
		return n.Value, nil
	}
}
