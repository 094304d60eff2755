package eval

import (
	"fmt"
	"sort"

	"mercator-hq/exceller/pkg/transform/value"
)

type impl func(args []any) (any, error)

// table wraps every implementation in a value.Func carrying its name.
func table(entries map[string]impl) map[string]value.Func {
	out := make(map[string]value.Func, len(entries))
	for name, fn := range entries {
		out[name] = value.NewFunc(name, fn)
	}
	return out
}

// FunctionNames returns the names of all general operators and builtins in
// sorted order.
func FunctionNames() []string {
	names := make([]string, 0, len(operators)+len(builtins))
	for k := range operators {
		names = append(names, k)
	}
	for k := range builtins {
		if _, dup := operators[k]; !dup {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// IsOperator reports whether name is a general operator.
func IsOperator(name string) bool {
	_, ok := operators[name]
	return ok
}

// IsBuiltin reports whether name is a builtin function.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

func want(args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

func wantRange(args []any, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return want(args, lo)
		}
		return fmt.Errorf("expected %d to %d arguments, got %d", lo, hi, len(args))
	}
	return nil
}

func wantAtLeast(args []any, n int) error {
	if len(args) < n {
		return fmt.Errorf("expected at least %d argument(s), got %d", n, len(args))
	}
	return nil
}

func stringArg(args []any, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("argument %d must be a string, got %s", i+1, value.KindOf(args[i]))
	}
	return s, nil
}

func intArg(args []any, i int) (int64, error) {
	switch n := args[i].(type) {
	case int64:
		return n, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("argument %d must be an int, got %s", i+1, value.KindOf(args[i]))
}

func iterArg(args []any, i int) ([]any, error) {
	items, ok := value.Items(args[i])
	if !ok {
		return nil, fmt.Errorf("%s is not iterable", value.KindOf(args[i]))
	}
	return items, nil
}

func callArg(args []any, i int) (value.Caller, error) {
	c, ok := args[i].(value.Caller)
	if !ok {
		return nil, fmt.Errorf("argument %d must be callable, got %s", i+1, value.KindOf(args[i]))
	}
	return c, nil
}

// number is a numeric operand. Booleans count as the integers 0 and 1.
type number struct {
	i     int64
	f     float64
	isInt bool
}

func toNumber(v any) (number, bool) {
	switch n := v.(type) {
	case int64:
		return number{i: n, f: float64(n), isInt: true}, true
	case float64:
		return number{f: n}, true
	case bool:
		if n {
			return number{i: 1, f: 1, isInt: true}, true
		}
		return number{isInt: true}, true
	}
	return number{}, false
}

func (n number) value() any {
	if n.isInt {
		return n.i
	}
	return n.f
}

func numberArg(args []any, i int) (number, error) {
	n, ok := toNumber(args[i])
	if !ok {
		return number{}, fmt.Errorf("argument %d must be a number, got %s", i+1, value.KindOf(args[i]))
	}
	return n, nil
}

func kinds(a, b any) string {
	return value.KindOf(a).String() + " and " + value.KindOf(b).String()
}
