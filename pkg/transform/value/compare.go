package value

import (
	"fmt"
	"reflect"
	"strings"
)

// Truthy reports the truthiness of v. Null, false, numeric zero, the empty
// string and empty containers are falsy; everything else is truthy.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case int64:
		return val != 0
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case Tuple:
		return len(val) > 0
	case *Map:
		return val.Len() > 0
	case interface{ Truthy() bool }:
		return val.Truthy()
	default:
		return true
	}
}

// Equaler is implemented by capabilities with their own notion of equality.
type Equaler interface {
	EqualValue(other any) bool
}

// Equal reports deep equality. Integers and floats compare by numeric value,
// lists and tuples never equal each other.
func Equal(a, b any) bool {
	if an, ok := AsFloat(a); ok {
		if bn, ok := AsFloat(b); ok {
			return an == bn
		}
		return false
	}

	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		return ok && equalSlices(av, bv)
	case Tuple:
		bv, ok := b.(Tuple)
		return ok && equalSlices(av, bv)
	case *Map:
		bv, ok := b.(*Map)
		return ok && av.Equal(bv)
	case Equaler:
		return av.EqualValue(b)
	default:
		if eq, ok := b.(Equaler); ok {
			return eq.EqualValue(a)
		}
		ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
		if ta != tb || !ta.Comparable() {
			return false
		}
		return a == b
	}
}

func equalSlices(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Comparer is implemented by capabilities that support ordering.
type Comparer interface {
	CompareValue(other any) (int, error)
}

// Compare orders a and b, returning -1, 0 or 1. Numbers compare numerically,
// strings lexically and sequences element by element. Values of unrelated
// kinds cannot be ordered.
func Compare(a, b any) (int, error) {
	if an, ok := numeric(a); ok {
		bn, ok := numeric(b)
		if !ok {
			return 0, fmt.Errorf("cannot compare %s with %s", KindOf(a), KindOf(b))
		}
		switch {
		case an < bn:
			return -1, nil
		case an > bn:
			return 1, nil
		}
		return 0, nil
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare string with %s", KindOf(b))
		}
		return strings.Compare(av, bv), nil
	case []any:
		bv, ok := b.([]any)
		if !ok {
			return 0, fmt.Errorf("cannot compare list with %s", KindOf(b))
		}
		return compareSlices(av, bv)
	case Tuple:
		bv, ok := b.(Tuple)
		if !ok {
			return 0, fmt.Errorf("cannot compare tuple with %s", KindOf(b))
		}
		return compareSlices(av, bv)
	case Comparer:
		return av.CompareValue(b)
	}
	return 0, fmt.Errorf("cannot compare %s with %s", KindOf(a), KindOf(b))
}

func compareSlices(a, b []any) (int, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		c, err := Compare(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	switch {
	case len(a) < len(b):
		return -1, nil
	case len(a) > len(b):
		return 1, nil
	}
	return 0, nil
}

// numeric widens numbers and booleans to float64 for ordering.
func numeric(v any) (float64, bool) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return AsFloat(v)
}

// AsFloat returns v as a float64 when v is an Int or a Float.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// AsInt returns v as an int64 when v is an Int, or a Float without a
// fractional part.
func AsInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
