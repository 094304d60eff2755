package eval

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"mercator-hq/exceller/pkg/transform/value"
)

// dunderAliases maps receiver-method names whose operator name differs.
var dunderAliases = map[string]string{
	"and":  "and_",
	"or":   "or_",
	"not":  "not_",
	"div":  "truediv",
	"bool": "truth",
}

// lookupMethod resolves method name on recv. The result, when found, is
// applied to the remaining arguments.
func lookupMethod(recv any, name string) (any, bool) {
	if op, ok := strings.CutPrefix(name, "__"); ok {
		if op, ok = strings.CutSuffix(op, "__"); ok && op != "" {
			return dunder(recv, op)
		}
	}

	if a, ok := recv.(value.Attributer); ok {
		return a.Attr(name)
	}

	var methods map[string]method
	switch recv.(type) {
	case string:
		methods = stringMethods
	case *value.Map:
		methods = mapMethods
	case []any, value.Tuple:
		methods = sequenceMethods
	}
	m, ok := methods[name]
	if !ok {
		return nil, false
	}
	return bind(name, recv, m), true
}

// dunder binds the operator behind a "__op__" method name to recv.
func dunder(recv any, op string) (any, bool) {
	if alias, ok := dunderAliases[op]; ok {
		op = alias
	}
	fn, ok := operators[op]
	if !ok {
		fn, ok = builtins[op]
	}
	if !ok {
		return nil, false
	}
	return bind("__"+op+"__", recv, func(recv any, args []any) (any, error) {
		return fn.Call(append([]any{recv}, args...))
	}), true
}

type method func(recv any, args []any) (any, error)

func bind(name string, recv any, m method) value.Func {
	return value.NewFunc(name, func(args []any) (any, error) {
		return m(recv, args)
	})
}

func stringMethod(fn func(s string, args []any) (any, error)) method {
	return func(recv any, args []any) (any, error) {
		return fn(recv.(string), args)
	}
}

func noArgs(fn func(s string) any) method {
	return stringMethod(func(s string, args []any) (any, error) {
		if err := want(args, 0); err != nil {
			return nil, err
		}
		return fn(s), nil
	})
}

func trimMethod(trim func(s, cutset string) string, trimSpace func(s string) string) method {
	return stringMethod(func(s string, args []any) (any, error) {
		if err := wantRange(args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 || args[0] == nil {
			return trimSpace(s), nil
		}
		chars, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}
		return trim(s, chars), nil
	})
}

var stringMethods = map[string]method{
	"upper":      noArgs(func(s string) any { return strings.ToUpper(s) }),
	"lower":      noArgs(func(s string) any { return strings.ToLower(s) }),
	"title":      noArgs(func(s string) any { return title(s) }),
	"capitalize": noArgs(func(s string) any { return capitalize(s) }),
	"isdigit": noArgs(func(s string) any {
		return s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
	}),
	"isalpha": noArgs(func(s string) any {
		return s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) < 0
	}),
	"isspace": noArgs(func(s string) any {
		return s != "" && strings.TrimSpace(s) == ""
	}),
	"strip": trimMethod(strings.Trim, strings.TrimSpace),
	"lstrip": trimMethod(strings.TrimLeft, func(s string) string {
		return strings.TrimLeftFunc(s, unicode.IsSpace)
	}),
	"rstrip": trimMethod(strings.TrimRight, func(s string) string {
		return strings.TrimRightFunc(s, unicode.IsSpace)
	}),
	"split": stringMethod(func(s string, args []any) (any, error) {
		if err := wantRange(args, 0, 2); err != nil {
			return nil, err
		}
		limit := int64(-1)
		if len(args) == 2 {
			n, err := intArg(args, 1)
			if err != nil {
				return nil, err
			}
			limit = n
		}
		var parts []string
		if len(args) == 0 || args[0] == nil {
			parts = splitFields(s, limit)
		} else {
			sep, err := stringArg(args, 0)
			if err != nil {
				return nil, err
			}
			if sep == "" {
				return nil, fmt.Errorf("empty separator")
			}
			n := -1
			if limit >= 0 {
				n = int(limit) + 1
			}
			parts = strings.SplitN(s, sep, n)
		}
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	}),
	"join": stringMethod(func(s string, args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		items, err := iterArg(args, 0)
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(items))
		for i, item := range items {
			p, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("sequence item %d: expected string, %s found", i, value.KindOf(item))
			}
			parts[i] = p
		}
		return strings.Join(parts, s), nil
	}),
	"replace": stringMethod(func(s string, args []any) (any, error) {
		if err := wantRange(args, 2, 3); err != nil {
			return nil, err
		}
		old, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}
		repl, err := stringArg(args, 1)
		if err != nil {
			return nil, err
		}
		n := int64(-1)
		if len(args) == 3 {
			if n, err = intArg(args, 2); err != nil {
				return nil, err
			}
		}
		return strings.Replace(s, old, repl, int(n)), nil
	}),
	"startswith": stringMethod(func(s string, args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		return matchAffix(s, args[0], strings.HasPrefix)
	}),
	"endswith": stringMethod(func(s string, args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		return matchAffix(s, args[0], strings.HasSuffix)
	}),
	"find": stringMethod(func(s string, args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		sub, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}
		i := strings.Index(s, sub)
		if i < 0 {
			return int64(-1), nil
		}
		return int64(len([]rune(s[:i]))), nil
	}),
	"count": stringMethod(func(s string, args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		sub, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}
		if sub == "" {
			return int64(len([]rune(s)) + 1), nil
		}
		return int64(strings.Count(s, sub)), nil
	}),
	"zfill": stringMethod(func(s string, args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		width, err := intArg(args, 0)
		if err != nil {
			return nil, err
		}
		sign := ""
		if s != "" && (s[0] == '-' || s[0] == '+') {
			sign, s = s[:1], s[1:]
		}
		if width > maxRepeat {
			return nil, fmt.Errorf("zfill() width %d exceeds %d", width, maxRepeat)
		}
		pad := int(width) - len([]rune(s)) - len(sign)
		if pad <= 0 {
			return sign + s, nil
		}
		return sign + strings.Repeat("0", pad) + s, nil
	}),
	"format": stringMethod(format),
}

// splitFields splits on runs of whitespace, performing at most limit splits
// when limit is not negative.
func splitFields(s string, limit int64) []string {
	if limit < 0 {
		return strings.Fields(s)
	}
	var parts []string
	rest := strings.TrimLeftFunc(s, unicode.IsSpace)
	for rest != "" && int64(len(parts)) < limit {
		i := strings.IndexFunc(rest, unicode.IsSpace)
		if i < 0 {
			break
		}
		parts = append(parts, rest[:i])
		rest = strings.TrimLeftFunc(rest[i:], unicode.IsSpace)
	}
	if rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

func matchAffix(s string, affix any, match func(s, affix string) bool) (any, error) {
	if a, ok := affix.(string); ok {
		return match(s, a), nil
	}
	items, ok := value.Items(affix)
	if !ok {
		return nil, fmt.Errorf("affix must be a string or a sequence of strings, not %s", value.KindOf(affix))
	}
	for _, item := range items {
		a, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("affix must be a string or a sequence of strings, not %s", value.KindOf(item))
		}
		if match(s, a) {
			return true, nil
		}
	}
	return false, nil
}

func title(s string) string {
	var sb strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		sb.WriteRune(r)
	}
	return sb.String()
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}

// format substitutes "{}" with successive arguments, "{n}" with argument n
// and "{name}" with the entry of a single map argument. "{{" and "}}" are
// literal braces.
func format(s string, args []any) (any, error) {
	var sb strings.Builder
	next := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '}' {
			if i+1 < len(s) && s[i+1] == '}' {
				i++
			}
			sb.WriteByte('}')
			continue
		}
		if c != '{' {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(s) && s[i+1] == '{' {
			sb.WriteByte('{')
			i++
			continue
		}
		end := strings.IndexByte(s[i:], '}')
		if end < 0 {
			return nil, fmt.Errorf("single '{' encountered in format string")
		}
		field := s[i+1 : i+end]
		i += end

		var v any
		switch {
		case field == "":
			if next >= len(args) {
				return nil, fmt.Errorf("replacement index %d out of range", next)
			}
			v = args[next]
			next++
		case isIndex(field):
			n, _ := strconv.Atoi(field)
			if n >= len(args) {
				return nil, fmt.Errorf("replacement index %d out of range", n)
			}
			v = args[n]
		default:
			var m *value.Map
			if len(args) > 0 {
				m, _ = args[len(args)-1].(*value.Map)
			}
			val, ok := m.Get(field)
			if !ok {
				return nil, fmt.Errorf("key %q not found", field)
			}
			v = val
		}
		sb.WriteString(value.ToString(v))
	}
	return sb.String(), nil
}

func isIndex(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

var mapMethods = map[string]method{
	"get": func(recv any, args []any) (any, error) {
		if err := wantRange(args, 1, 2); err != nil {
			return nil, err
		}
		key, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}
		if v, ok := recv.(*value.Map).Get(key); ok {
			return v, nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, nil
	},
	"keys": func(recv any, args []any) (any, error) {
		if err := want(args, 0); err != nil {
			return nil, err
		}
		keys := recv.(*value.Map).Keys()
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, nil
	},
	"values": func(recv any, args []any) (any, error) {
		if err := want(args, 0); err != nil {
			return nil, err
		}
		m := recv.(*value.Map)
		out := make([]any, 0, m.Len())
		m.Range(func(_ string, v any) bool {
			out = append(out, v)
			return true
		})
		return out, nil
	},
	"items": func(recv any, args []any) (any, error) {
		if err := want(args, 0); err != nil {
			return nil, err
		}
		m := recv.(*value.Map)
		out := make([]any, 0, m.Len())
		m.Range(func(k string, v any) bool {
			out = append(out, value.Tuple{k, v})
			return true
		})
		return out, nil
	},
}

var sequenceMethods = map[string]method{
	"index": func(recv any, args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		return indexOf(recv, args[0])
	},
	"count": func(recv any, args []any) (any, error) {
		if err := want(args, 1); err != nil {
			return nil, err
		}
		return countOf(recv, args[0])
	},
}
