package value

import (
	"fmt"
	"reflect"
	"sort"
)

// Kind classifies a value of the closed domain.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindTuple
	KindMap
	KindCapability
)

var kindNames = map[Kind]string{
	KindInvalid:    "invalid",
	KindNull:       "null",
	KindBool:       "bool",
	KindInt:        "int",
	KindFloat:      "float",
	KindString:     "string",
	KindList:       "list",
	KindTuple:      "tuple",
	KindMap:        "map",
	KindCapability: "capability",
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsNumber reports whether the kind is Int or Float.
func (k Kind) IsNumber() bool {
	return k == KindInt || k == KindFloat
}

// Tuple is an ordered, fixed-size sequence. It is kept distinct from plain
// lists so that tuple node results can be told apart from list node results.
type Tuple []any

// KindOf classifies v. Values outside the domain report KindInvalid.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case []any:
		return KindList
	case Tuple:
		return KindTuple
	case *Map:
		return KindMap
	case Attributer, Caller:
		return KindCapability
	default:
		return KindInvalid
	}
}

// IsValid reports whether v belongs to the closed value domain. Containers are
// checked shallowly.
func IsValid(v any) bool {
	return KindOf(v) != KindInvalid
}

// Normalize converts a host value into the closed domain. Integers of every
// width become int64, float32 becomes float64, map[string]any becomes a *Map
// with sorted keys, and slices become []any. Values that are already in the
// domain are returned unchanged, containers included.
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, int64, float64, string, *Map, Attributer, Caller:
		return v, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case float32:
		return float64(val), nil
	case []any:
		return normalizeSlice(val)
	case Tuple:
		items, err := normalizeSlice(val)
		if err != nil {
			return nil, err
		}
		return Tuple(items), nil
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, nil
	case map[string]any:
		return normalizeMap(val)
	case func(args ...any) (any, error):
		return Func{Fn: func(args []any) (any, error) { return val(args...) }}, nil
	case func(args []any) (any, error):
		return Func{Fn: val}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return Normalize(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item, err := Normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			item, err := Normalize(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m.Set(k, item)
		}
		return m, nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}

	return nil, fmt.Errorf("unsupported value type %T", v)
}

func normalizeSlice(items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		n, err := Normalize(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func normalizeMap(in map[string]any) (*Map, error) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := NewMap()
	for _, k := range keys {
		item, err := Normalize(in[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		m.Set(k, item)
	}
	return m, nil
}

// ToNative converts a domain value into plain Go values: *Map becomes
// map[string]any and Tuple becomes []any. Capabilities are returned as is.
func ToNative(v any) any {
	switch val := v.(type) {
	case *Map:
		out := make(map[string]any, val.Len())
		val.Range(func(k string, item any) bool {
			out[k] = ToNative(item)
			return true
		})
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = ToNative(item)
		}
		return out
	case Tuple:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = ToNative(item)
		}
		return out
	default:
		return v
	}
}

// Items returns the elements of an iterable value: lists and tuples yield
// their elements, maps yield their keys in order and strings yield one string
// per rune. The second result is false for values that cannot be iterated.
func Items(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case Tuple:
		return []any(val), true
	case *Map:
		keys := val.Keys()
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, true
	case string:
		out := make([]any, 0, len(val))
		for _, r := range val {
			out = append(out, string(r))
		}
		return out, true
	case Iterable:
		return val.Items(), true
	default:
		return nil, false
	}
}

// Iterable is implemented by capabilities that can be iterated by list nodes.
type Iterable interface {
	Items() []any
}
