package eval

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"mercator-hq/exceller/pkg/transform/plugin"
	"mercator-hq/exceller/pkg/transform/value"
)

// maxRange bounds the size of lists produced by range.
const maxRange = 1 << 20

// builtins is the builtin-function namespace consulted after the general
// operators.
var builtins = table(map[string]impl{
	"str": func(args []any) (any, error) {
		if err := wantRange(args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return "", nil
		}
		return value.ToString(args[0]), nil
	},
	"repr": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		return value.Repr(args[0]), nil
	},
	"int":   toInt,
	"float": toFloat,
	"bool": func(args []any) (any, error) {
		if err := wantRange(args, 0, 1); err != nil {
			return nil, err
		}
		return len(args) == 1 && value.Truthy(args[0]), nil
	},
	"len": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		switch v := args[0].(type) {
		case string:
			return int64(len([]rune(v))), nil
		case *value.Map:
			return int64(v.Len()), nil
		}
		items, ok := value.Items(args[0])
		if !ok {
			return nil, fmt.Errorf("object of kind %s has no len()", value.KindOf(args[0]))
		}
		return int64(len(items)), nil
	},
	"abs":   unaryNumeric(func(n number) any { return absNumber(n) }),
	"min":   extremum("min", func(c int) bool { return c < 0 }),
	"max":   extremum("max", func(c int) bool { return c > 0 }),
	"sum":   sum,
	"round": round,
	"sorted": func(args []any) (any, error) {
		if err := wantRange(args, 1, 2); err != nil {
			return nil, err
		}
		items, err := iterArg(args, 0)
		if err != nil {
			return nil, err
		}
		reverse := len(args) == 2 && value.Truthy(args[1])
		return sortItems(items, reverse)
	},
	"reversed": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		items, err := iterArg(args, 0)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, v := range items {
			out[len(items)-1-i] = v
		}
		return out, nil
	},
	"list": func(args []any) (any, error) {
		if err := wantRange(args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return []any{}, nil
		}
		items, err := iterArg(args, 0)
		if err != nil {
			return nil, err
		}
		return append([]any{}, items...), nil
	},
	"tuple": func(args []any) (any, error) {
		if err := wantRange(args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return value.Tuple{}, nil
		}
		items, err := iterArg(args, 0)
		if err != nil {
			return nil, err
		}
		return append(value.Tuple{}, items...), nil
	},
	"dict":      dict,
	"range":     rangeOf,
	"enumerate": enumerate,
	"zip":       zip,
	"any": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		items, err := iterArg(args, 0)
		if err != nil {
			return nil, err
		}
		for _, v := range items {
			if value.Truthy(v) {
				return true, nil
			}
		}
		return false, nil
	},
	"all": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		items, err := iterArg(args, 0)
		if err != nil {
			return nil, err
		}
		for _, v := range items {
			if !value.Truthy(v) {
				return false, nil
			}
		}
		return true, nil
	},
	"getattr": func(args []any) (any, error) {
		if err := wantRange(args, 2, 3); err != nil {
			return nil, err
		}
		name, err := stringArg(args, 1)
		if err != nil {
			return nil, err
		}
		v, err := plugin.GetAttr(args[0], containerName(args[0]), name)
		if err != nil && len(args) == 3 {
			return args[2], nil
		}
		return v, err
	},
	"hasattr": func(args []any) (any, error) {
		if err := want(args, 2); err != nil {
			return nil, err
		}
		name, err := stringArg(args, 1)
		if err != nil {
			return nil, err
		}
		_, err = plugin.GetAttr(args[0], "", name)
		return err == nil, nil
	},
	"ord": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		s, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}
		runes := []rune(s)
		if len(runes) != 1 {
			return nil, fmt.Errorf("ord() expected a character, but string of length %d found", len(runes))
		}
		return int64(runes[0]), nil
	},
	"chr": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		n, err := intArg(args, 0)
		if err != nil {
			return nil, err
		}
		if n < 0 || n > 0x10FFFF {
			return nil, fmt.Errorf("chr() arg not in range(0x110000)")
		}
		return string(rune(n)), nil
	},
	"hex": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		n, err := intArg(args, 0)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return "-0x" + strconv.FormatInt(-n, 16), nil
		}
		return "0x" + strconv.FormatInt(n, 16), nil
	},
	"map": func(args []any) (any, error) {
		if err := want(args, 2); err != nil {
			return nil, err
		}
		fn, err := callArg(args, 0)
		if err != nil {
			return nil, err
		}
		items, err := iterArg(args, 1)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, v := range items {
			if out[i], err = fn.Call([]any{v}); err != nil {
				return nil, err
			}
		}
		return out, nil
	},
	"filter": func(args []any) (any, error) {
		if err := want(args, 2); err != nil {
			return nil, err
		}
		items, err := iterArg(args, 1)
		if err != nil {
			return nil, err
		}
		var fn value.Caller
		if args[0] != nil {
			if fn, err = callArg(args, 0); err != nil {
				return nil, err
			}
		}
		out := make([]any, 0, len(items))
		for _, v := range items {
			keep := v
			if fn != nil {
				if keep, err = fn.Call([]any{v}); err != nil {
					return nil, err
				}
			}
			if value.Truthy(keep) {
				out = append(out, v)
			}
		}
		return out, nil
	},
	"type": func(args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		return value.KindOf(args[0]).String(), nil
	},
	"isinstance": func(args []any) (any, error) {
		if err := want(args, 2); err != nil {
			return nil, err
		}
		names := []any{args[1]}
		if items, ok := value.Items(args[1]); ok && value.KindOf(args[1]) != value.KindString {
			names = items
		}
		for _, n := range names {
			s, ok := n.(string)
			if !ok {
				return nil, fmt.Errorf("isinstance() kind names must be strings")
			}
			if kindMatches(args[0], s) {
				return true, nil
			}
		}
		return false, nil
	},
})

var kindAliases = map[string]value.Kind{
	"none": value.KindNull,
	"str":  value.KindString,
	"dict": value.KindMap,
}

func kindMatches(v any, name string) bool {
	k := value.KindOf(v)
	name = strings.ToLower(name)
	if name == "number" {
		return k.IsNumber()
	}
	if alias, ok := kindAliases[name]; ok {
		return k == alias
	}
	return k.String() == name
}

func toInt(args []any) (any, error) {
	if err := wantRange(args, 0, 2); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return int64(0), nil
	}
	switch v := args[0].(type) {
	case int64:
		return v, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("cannot convert float %s to integer", value.FormatFloat(v))
		}
		return int64(v), nil
	case string:
		base := int64(10)
		if len(args) == 2 {
			b, err := intArg(args, 1)
			if err != nil {
				return nil, err
			}
			base = b
		}
		s := strings.ReplaceAll(strings.TrimSpace(v), "_", "")
		n, err := strconv.ParseInt(s, int(base), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal for int() with base %d: %q", base, v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("int() argument must be a string or a number, not %s", value.KindOf(args[0]))
}

func toFloat(args []any) (any, error) {
	if err := wantRange(args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return float64(0), nil
	}
	if n, ok := toNumber(args[0]); ok {
		return n.f, nil
	}
	if s, ok := args[0].(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("could not convert string to float: %q", s)
		}
		return f, nil
	}
	return nil, fmt.Errorf("float() argument must be a string or a number, not %s", value.KindOf(args[0]))
}

func extremum(name string, better func(int) bool) impl {
	return func(args []any) (any, error) {
		if err := wantAtLeast(args, 1); err != nil {
			return nil, err
		}
		items := args
		if len(args) == 1 {
			var err error
			if items, err = iterArg(args, 0); err != nil {
				return nil, err
			}
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%s() arg is an empty sequence", name)
		}
		best := items[0]
		for _, v := range items[1:] {
			c, err := value.Compare(v, best)
			if err != nil {
				return nil, err
			}
			if better(c) {
				best = v
			}
		}
		return best, nil
	}
}

func sum(args []any) (any, error) {
	if err := wantRange(args, 1, 2); err != nil {
		return nil, err
	}
	items, err := iterArg(args, 0)
	if err != nil {
		return nil, err
	}
	var total any = int64(0)
	if len(args) == 2 {
		total = args[1]
	}
	for _, v := range items {
		if total, err = add(total, v); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// round rounds half to even. Without a digit count the result is an int.
func round(args []any) (any, error) {
	if err := wantRange(args, 1, 2); err != nil {
		return nil, err
	}
	n, err := numberArg(args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 || args[1] == nil {
		if n.isInt {
			return n.i, nil
		}
		return int64(math.RoundToEven(n.f)), nil
	}
	digits, err := intArg(args, 1)
	if err != nil {
		return nil, err
	}
	if n.isInt && digits >= 0 {
		return n.i, nil
	}
	scale := math.Pow(10, float64(digits))
	return math.RoundToEven(n.f*scale) / scale, nil
}

func sortItems(items []any, reverse bool) (any, error) {
	out := append([]any{}, items...)
	var cmpErr error
	sort.SliceStable(out, func(i, j int) bool {
		c, err := value.Compare(out[i], out[j])
		if err != nil && cmpErr == nil {
			cmpErr = err
		}
		if reverse {
			return c > 0
		}
		return c < 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	return out, nil
}

func dict(args []any) (any, error) {
	if err := wantRange(args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return value.NewMap(), nil
	}
	if m, ok := args[0].(*value.Map); ok {
		return m.Clone(), nil
	}
	items, err := iterArg(args, 0)
	if err != nil {
		return nil, err
	}
	out := value.NewMap()
	for i, item := range items {
		pair, ok := value.Items(item)
		if !ok || len(pair) != 2 || value.KindOf(item) == value.KindString {
			return nil, fmt.Errorf("dictionary update sequence element #%d is not a pair", i)
		}
		key, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("dictionary keys must be strings, got %s", value.KindOf(pair[0]))
		}
		out.Set(key, pair[1])
	}
	return out, nil
}

func rangeOf(args []any) (any, error) {
	if err := wantRange(args, 1, 3); err != nil {
		return nil, err
	}
	bounds := make([]int64, len(args))
	for i := range args {
		n, err := intArg(args, i)
		if err != nil {
			return nil, err
		}
		bounds[i] = n
	}
	start, stop, step := int64(0), bounds[0], int64(1)
	if len(bounds) >= 2 {
		start, stop = bounds[0], bounds[1]
	}
	if len(bounds) == 3 {
		step = bounds[2]
	}
	if step == 0 {
		return nil, fmt.Errorf("range() arg 3 must not be zero")
	}

	out := make([]any, 0)
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		if len(out) >= maxRange {
			return nil, fmt.Errorf("range() produces more than %d items", maxRange)
		}
		out = append(out, i)
	}
	return out, nil
}

func enumerate(args []any) (any, error) {
	if err := wantRange(args, 1, 2); err != nil {
		return nil, err
	}
	items, err := iterArg(args, 0)
	if err != nil {
		return nil, err
	}
	start := int64(0)
	if len(args) == 2 {
		if start, err = intArg(args, 1); err != nil {
			return nil, err
		}
	}
	out := make([]any, len(items))
	for i, v := range items {
		out[i] = value.Tuple{start + int64(i), v}
	}
	return out, nil
}

func zip(args []any) (any, error) {
	seqs := make([][]any, len(args))
	shortest := -1
	for i := range args {
		items, err := iterArg(args, i)
		if err != nil {
			return nil, err
		}
		seqs[i] = items
		if shortest < 0 || len(items) < shortest {
			shortest = len(items)
		}
	}
	if shortest < 0 {
		return []any{}, nil
	}
	out := make([]any, shortest)
	for i := 0; i < shortest; i++ {
		row := make(value.Tuple, len(seqs))
		for j, s := range seqs {
			row[j] = s[i]
		}
		out[i] = row
	}
	return out, nil
}
