package eval

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"mercator-hq/exceller/pkg/transform/plugin"
	"mercator-hq/exceller/pkg/transform/value"
)

// operators is the general-operator namespace: comparisons, arithmetic,
// sequence operators and the string matchers.
var operators = table(map[string]impl{
	"lt": compareOp(func(c int) bool { return c < 0 }),
	"le": compareOp(func(c int) bool { return c <= 0 }),
	"gt": compareOp(func(c int) bool { return c > 0 }),
	"ge": compareOp(func(c int) bool { return c >= 0 }),
	"eq": func(args []any) (any, error) {
		if err := want(args, 2); err != nil {
			return nil, err
		}
		return value.Equal(args[0], args[1]), nil
	},
	"ne": func(args []any) (any, error) {
		if err := want(args, 2); err != nil {
			return nil, err
		}
		return !value.Equal(args[0], args[1]), nil
	},
	"not_": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		return !value.Truthy(args[0]), nil
	},
	"truth": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		return value.Truthy(args[0]), nil
	},
	"is_": func(args []any) (any, error) {
		if err := want(args, 2); err != nil {
			return nil, err
		}
		return identical(args[0], args[1]), nil
	},
	"is_not": func(args []any) (any, error) {
		if err := want(args, 2); err != nil {
			return nil, err
		}
		return !identical(args[0], args[1]), nil
	},

	"abs":      unaryNumeric(func(n number) any { return absNumber(n) }),
	"neg":      unaryNumeric(func(n number) any { return negNumber(n) }),
	"pos":      unaryNumeric(func(n number) any { return n.value() }),
	"add":      binary(add),
	"sub":      binary(sub),
	"mul":      binary(mul),
	"truediv":  binary(truediv),
	"floordiv": binary(floordiv),
	"mod":      binary(mod),
	"pow":      binary(pow),

	"and_":   bitwise("and_", func(a, b int64) int64 { return a & b }, func(a, b bool) bool { return a && b }),
	"or_":    bitwise("or_", func(a, b int64) int64 { return a | b }, func(a, b bool) bool { return a || b }),
	"xor":    bitwise("xor", func(a, b int64) int64 { return a ^ b }, func(a, b bool) bool { return a != b }),
	"lshift": shift(func(a int64, s uint) int64 { return a << s }),
	"rshift": shift(func(a int64, s uint) int64 { return a >> s }),
	"invert": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		n, err := intArg(args, 0)
		if err != nil {
			return nil, err
		}
		return ^n, nil
	},

	"concat":     binary(concat),
	"contains":   binary(contains),
	"countOf":    binary(countOf),
	"indexOf":    binary(indexOf),
	"getitem":    binary(getItem),
	"itemgetter": itemGetter,
	"attrgetter": attrGetter,

	"matches": binary(func(a, b any) (any, error) {
		pattern, ok := b.(string)
		if !ok {
			return nil, fmt.Errorf("matches requires a string pattern")
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		return re.MatchString(value.ToString(a)), nil
	}),
	"startswith": binary(func(a, b any) (any, error) {
		return strings.HasPrefix(value.ToString(a), value.ToString(b)), nil
	}),
	"endswith": binary(func(a, b any) (any, error) {
		return strings.HasSuffix(value.ToString(a), value.ToString(b)), nil
	}),
	"in": binary(func(a, b any) (any, error) {
		return contains(b, a)
	}),
	"not_in": binary(func(a, b any) (any, error) {
		in, err := contains(b, a)
		if err != nil {
			return nil, err
		}
		return !in.(bool), nil
	}),
})

func compareOp(test func(int) bool) impl {
	return func(args []any) (any, error) {
		if err := want(args, 2); err != nil {
			return nil, err
		}
		c, err := value.Compare(args[0], args[1])
		if err != nil {
			return nil, err
		}
		return test(c), nil
	}
}

func binary(fn func(a, b any) (any, error)) impl {
	return func(args []any) (any, error) {
		if err := want(args, 2); err != nil {
			return nil, err
		}
		return fn(args[0], args[1])
	}
}

func unaryNumeric(fn func(number) any) impl {
	return func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		n, err := numberArg(args, 0)
		if err != nil {
			return nil, err
		}
		return fn(n), nil
	}
}

// identical approximates object identity: scalars compare by value, maps by
// pointer and sequences by backing array.
func identical(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool, int64, float64, string:
		return a == b
	case *value.Map:
		bv, ok := b.(*value.Map)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		return ok && sameBacking(av, bv)
	case value.Tuple:
		bv, ok := b.(value.Tuple)
		return ok && sameBacking(av, bv)
	}
	return value.Equal(a, b)
}

func sameBacking(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

func absNumber(n number) any {
	if n.isInt {
		if n.i < 0 {
			return -n.i
		}
		return n.i
	}
	return math.Abs(n.f)
}

func negNumber(n number) any {
	if n.isInt {
		return -n.i
	}
	return -n.f
}

func numbers(a, b any) (number, number, bool) {
	x, ok := toNumber(a)
	if !ok {
		return number{}, number{}, false
	}
	y, ok := toNumber(b)
	if !ok {
		return number{}, number{}, false
	}
	return x, y, true
}

func add(a, b any) (any, error) {
	if x, y, ok := numbers(a, b); ok {
		if x.isInt && y.isInt {
			if sum := x.i + y.i; (sum > x.i) == (y.i > 0) {
				return sum, nil
			}
			return x.f + y.f, nil
		}
		return x.f + y.f, nil
	}
	if v, err := concat(a, b); err == nil {
		return v, nil
	}
	if x, ok := a.(value.Adder); ok {
		return x.AddValue(b)
	}
	if y, ok := b.(value.Adder); ok {
		return y.AddValue(a)
	}
	return nil, fmt.Errorf("unsupported operand types for add: %s", kinds(a, b))
}

func sub(a, b any) (any, error) {
	x, y, ok := numbers(a, b)
	if !ok {
		if s, isSub := a.(value.Subtracter); isSub {
			return s.SubValue(b)
		}
		return nil, fmt.Errorf("unsupported operand types for sub: %s", kinds(a, b))
	}
	if x.isInt && y.isInt {
		if diff := x.i - y.i; (diff < x.i) == (y.i > 0) {
			return diff, nil
		}
	}
	return x.f - y.f, nil
}

func mul(a, b any) (any, error) {
	if x, y, ok := numbers(a, b); ok {
		if x.isInt && y.isInt {
			if p, ok := mulInt(x.i, y.i); ok {
				return p, nil
			}
		}
		return x.f * y.f, nil
	}

	seq, count := a, b
	if _, isInt := a.(int64); isInt {
		seq, count = b, a
	}
	n, ok := count.(int64)
	if !ok {
		return nil, fmt.Errorf("unsupported operand types for mul: %s", kinds(a, b))
	}
	if n < 0 {
		n = 0
	}
	switch s := seq.(type) {
	case string:
		if err := checkRepeat(len(s), n); err != nil {
			return nil, err
		}
		return strings.Repeat(s, int(n)), nil
	case []any:
		if err := checkRepeat(len(s), n); err != nil {
			return nil, err
		}
		return repeat(s, int(n)), nil
	case value.Tuple:
		if err := checkRepeat(len(s), n); err != nil {
			return nil, err
		}
		return value.Tuple(repeat(s, int(n))), nil
	}
	return nil, fmt.Errorf("unsupported operand types for mul: %s", kinds(a, b))
}

// maxRepeat bounds the length of strings and lists built by repetition.
const maxRepeat = 1 << 24

func checkRepeat(size int, n int64) error {
	if size == 0 || n == 0 {
		return nil
	}
	if n > maxRepeat || int64(size) > maxRepeat/n {
		return fmt.Errorf("repeated sequence too long: %d items times %d exceeds %d", size, n, maxRepeat)
	}
	return nil
}

// mulInt reports false when a*b overflows int64.
func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return p, true
}

func repeat(items []any, n int) []any {
	if len(items) == 0 {
		return []any{}
	}
	out := make([]any, 0, len(items)*n)
	for i := 0; i < n; i++ {
		out = append(out, items...)
	}
	return out
}

func truediv(a, b any) (any, error) {
	x, y, ok := numbers(a, b)
	if !ok {
		return nil, fmt.Errorf("unsupported operand types for truediv: %s", kinds(a, b))
	}
	if y.f == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return x.f / y.f, nil
}

func floordiv(a, b any) (any, error) {
	x, y, ok := numbers(a, b)
	if !ok {
		return nil, fmt.Errorf("unsupported operand types for floordiv: %s", kinds(a, b))
	}
	if x.isInt && y.isInt {
		if y.i == 0 {
			return nil, fmt.Errorf("integer division or modulo by zero")
		}
		q := x.i / y.i
		if x.i%y.i != 0 && (x.i < 0) != (y.i < 0) {
			q--
		}
		return q, nil
	}
	if y.f == 0 {
		return nil, fmt.Errorf("float floor division by zero")
	}
	return math.Floor(x.f / y.f), nil
}

func mod(a, b any) (any, error) {
	x, y, ok := numbers(a, b)
	if !ok {
		return nil, fmt.Errorf("unsupported operand types for mod: %s", kinds(a, b))
	}
	if x.isInt && y.isInt {
		if y.i == 0 {
			return nil, fmt.Errorf("integer division or modulo by zero")
		}
		r := x.i % y.i
		if r != 0 && (r < 0) != (y.i < 0) {
			r += y.i
		}
		return r, nil
	}
	if y.f == 0 {
		return nil, fmt.Errorf("float modulo by zero")
	}
	r := math.Mod(x.f, y.f)
	if r != 0 && (r < 0) != (y.f < 0) {
		r += y.f
	}
	return r, nil
}

func pow(a, b any) (any, error) {
	x, y, ok := numbers(a, b)
	if !ok {
		return nil, fmt.Errorf("unsupported operand types for pow: %s", kinds(a, b))
	}
	if x.isInt && y.isInt && y.i >= 0 {
		if result, ok := powInt(x.i, y.i); ok {
			return result, nil
		}
	}
	return math.Pow(x.f, y.f), nil
}

// powInt reports false when base**exp overflows int64.
func powInt(base, exp int64) (int64, bool) {
	result := int64(1)
	for exp > 0 {
		var ok bool
		if exp&1 == 1 {
			if result, ok = mulInt(result, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return result, true
}

func bitwise(name string, ints func(a, b int64) int64, bools func(a, b bool) bool) impl {
	return binary(func(a, b any) (any, error) {
		ab, aIsBool := a.(bool)
		bb, bIsBool := b.(bool)
		if aIsBool && bIsBool {
			return bools(ab, bb), nil
		}
		x, y, ok := numbers(a, b)
		if !ok || !x.isInt || !y.isInt {
			return nil, fmt.Errorf("unsupported operand types for %s: %s", name, kinds(a, b))
		}
		return ints(x.i, y.i), nil
	})
}

func shift(fn func(a int64, s uint) int64) impl {
	return func(args []any) (any, error) {
		if err := want(args, 2); err != nil {
			return nil, err
		}
		a, err := intArg(args, 0)
		if err != nil {
			return nil, err
		}
		s, err := intArg(args, 1)
		if err != nil {
			return nil, err
		}
		if s < 0 {
			return nil, fmt.Errorf("negative shift count")
		}
		return fn(a, uint(s)), nil
	}
}

func concat(a, b any) (any, error) {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av + bv, nil
		}
	case []any:
		if bv, ok := b.([]any); ok {
			out := make([]any, 0, len(av)+len(bv))
			return append(append(out, av...), bv...), nil
		}
	case value.Tuple:
		if bv, ok := b.(value.Tuple); ok {
			out := make(value.Tuple, 0, len(av)+len(bv))
			return append(append(out, av...), bv...), nil
		}
	}
	return nil, fmt.Errorf("can only concatenate sequences of the same kind, got %s", kinds(a, b))
}

// contains reports whether item is in container.
func contains(container, item any) (any, error) {
	switch c := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("'in <string>' requires string as left operand, not %s", value.KindOf(item))
		}
		return strings.Contains(c, s), nil
	case *value.Map:
		k, ok := item.(string)
		return ok && c.Has(k), nil
	}
	items, ok := value.Items(container)
	if !ok {
		return nil, fmt.Errorf("argument of kind %s is not iterable", value.KindOf(container))
	}
	for _, v := range items {
		if value.Equal(v, item) {
			return true, nil
		}
	}
	return false, nil
}

func countOf(container, item any) (any, error) {
	items, ok := value.Items(container)
	if !ok {
		return nil, fmt.Errorf("argument of kind %s is not iterable", value.KindOf(container))
	}
	var n int64
	for _, v := range items {
		if value.Equal(v, item) {
			n++
		}
	}
	return n, nil
}

func indexOf(container, item any) (any, error) {
	items, ok := value.Items(container)
	if !ok {
		return nil, fmt.Errorf("argument of kind %s is not iterable", value.KindOf(container))
	}
	for i, v := range items {
		if value.Equal(v, item) {
			return int64(i), nil
		}
	}
	return nil, fmt.Errorf("sequence.index(x): x not in sequence")
}

// getItem indexes maps by key and sequences by position. Negative positions
// count from the end.
func getItem(container, key any) (any, error) {
	switch c := container.(type) {
	case *value.Map:
		k, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("map keys are strings, got %s", value.KindOf(key))
		}
		v, ok := c.Get(k)
		if !ok {
			return nil, fmt.Errorf("key %q not found", k)
		}
		return v, nil
	case []any:
		return index(c, key)
	case value.Tuple:
		return index(c, key)
	case string:
		runes := []rune(c)
		items := make([]any, len(runes))
		for i, r := range runes {
			items[i] = string(r)
		}
		return index(items, key)
	}
	return nil, fmt.Errorf("%s is not subscriptable", value.KindOf(container))
}

func index(items []any, key any) (any, error) {
	i, ok := value.AsInt(key)
	if !ok {
		return nil, fmt.Errorf("indices must be integers, got %s", value.KindOf(key))
	}
	if i < 0 {
		i += int64(len(items))
	}
	if i < 0 || i >= int64(len(items)) {
		return nil, fmt.Errorf("index out of range")
	}
	return items[i], nil
}

func itemGetter(args []any) (any, error) {
	if err := wantAtLeast(args, 1); err != nil {
		return nil, err
	}
	keys := append([]any(nil), args...)
	return value.NewFunc("itemgetter", func(in []any) (any, error) {
		if err := want(in, 1); err != nil {
			return nil, err
		}
		if len(keys) == 1 {
			return getItem(in[0], keys[0])
		}
		out := make(value.Tuple, len(keys))
		for i, k := range keys {
			v, err := getItem(in[0], k)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}), nil
}

func attrGetter(args []any) (any, error) {
	if err := want(args, 1); err != nil {
		return nil, err
	}
	path, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	return value.NewFunc("attrgetter", func(in []any) (any, error) {
		if err := want(in, 1); err != nil {
			return nil, err
		}
		return getAttrPath(in[0], path)
	}), nil
}

// getAttrPath follows a dotted attribute path.
func getAttrPath(v any, path string) (any, error) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		next, err := plugin.GetAttr(cur, containerName(cur), part)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// containerName names v in attribute errors.
func containerName(v any) string {
	if name := plugin.NameOf(v); name != "" {
		return name
	}
	s := value.Repr(v)
	if utf8.RuneCountInString(s) > 40 {
		s = string([]rune(s)[:40]) + "..."
	}
	return s
}
