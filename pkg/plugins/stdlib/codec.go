package stdlib

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/exceller/pkg/transform/value"
)

// JSONModule returns the json module.
func JSONModule() *value.Namespace {
	return module("json", map[string]func(args []any) (any, error){
		"dumps": func(args []any) (any, error) {
			if err := arity(args, 1, 2); err != nil {
				return nil, err
			}
			indent, err := optInt(args, 1, 0)
			if err != nil {
				return nil, err
			}
			if indent > maxWidth {
				return nil, errWidth
			}
			var out []byte
			if indent > 0 {
				out, err = json.MarshalIndent(args[0], "", strings.Repeat(" ", int(indent)))
			} else {
				out, err = json.Marshal(args[0])
			}
			if err != nil {
				return nil, err
			}
			return string(out), nil
		},
		"loads": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			return DecodeJSON([]byte(s))
		},
	}, nil)
}

// DecodeJSON decodes a single JSON document into the value domain, keeping
// object key order. Integral numbers decode as Int.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("extra data after JSON document")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := value.NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key must be a string")
				}
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, v)
			}
			_, err := dec.Token()
			return m, err
		case '[':
			out := make([]any, 0)
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			_, err := dec.Token()
			return out, err
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	default:
		return t, nil
	}
}

// YAMLModule returns the yaml module.
func YAMLModule() *value.Namespace {
	return module("yaml", map[string]func(args []any) (any, error){
		"dump": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			out, err := yaml.Marshal(args[0])
			if err != nil {
				return nil, err
			}
			return string(out), nil
		},
		"load": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			var n yaml.Node
			if err := yaml.Unmarshal([]byte(s), &n); err != nil {
				return nil, err
			}
			return value.FromYAML(&n)
		},
	}, nil)
}
