package stdlib

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"mercator-hq/exceller/pkg/transform/value"
)

var patternCache sync.Map // string -> *regexp.Regexp

func compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// backrefs rewrites \1 style group references to the ${1} form.
var backrefs = regexp.MustCompile(`\\(\d+)`)

// Match is the result of a successful regular expression match.
type Match struct {
	re    *regexp.Regexp
	s     string
	index []int
}

func newMatch(re *regexp.Regexp, s string, index []int) any {
	if index == nil {
		return nil
	}
	return &Match{re: re, s: s, index: index}
}

func (m *Match) group(i int) any {
	if i < 0 || 2*i+1 >= len(m.index) || m.index[2*i] < 0 {
		return nil
	}
	return m.s[m.index[2*i]:m.index[2*i+1]]
}

func (m *Match) groupIndex(arg any) (int, error) {
	switch g := arg.(type) {
	case string:
		i := m.re.SubexpIndex(g)
		if i < 0 {
			return 0, fmt.Errorf("no such group %q", g)
		}
		return i, nil
	default:
		n, ok := value.AsInt(g)
		if !ok || n < 0 || int(n) > m.re.NumSubexp() {
			return 0, fmt.Errorf("no such group %s", value.Repr(arg))
		}
		return int(n), nil
	}
}

// Attr implements value.Attributer.
func (m *Match) Attr(name string) (any, bool) {
	switch name {
	case "group":
		return value.NewFunc("Match.group", func(args []any) (any, error) {
			if len(args) == 0 {
				return m.group(0), nil
			}
			out := make(value.Tuple, 0, len(args))
			for _, a := range args {
				i, err := m.groupIndex(a)
				if err != nil {
					return nil, err
				}
				out = append(out, m.group(i))
			}
			if len(out) == 1 {
				return out[0], nil
			}
			return out, nil
		}), true
	case "groups":
		return value.NewFunc("Match.groups", func(args []any) (any, error) {
			out := make(value.Tuple, 0, m.re.NumSubexp())
			for i := 1; i <= m.re.NumSubexp(); i++ {
				out = append(out, m.group(i))
			}
			return out, nil
		}), true
	case "groupdict":
		return value.NewFunc("Match.groupdict", func(args []any) (any, error) {
			d := value.NewMap()
			for i, name := range m.re.SubexpNames() {
				if name != "" {
					d.Set(name, m.group(i))
				}
			}
			return d, nil
		}), true
	case "start", "end":
		offset := 0
		if name == "end" {
			offset = 1
		}
		return value.NewFunc("Match."+name, func(args []any) (any, error) {
			i := 0
			if len(args) > 0 {
				var err error
				if i, err = m.groupIndex(args[0]); err != nil {
					return nil, err
				}
			}
			return int64(m.index[2*i+offset]), nil
		}), true
	case "string":
		return m.s, true
	}
	return nil, false
}

// Truthy implements truthiness; a match is always truthy.
func (m *Match) Truthy() bool { return true }

func (m *Match) String() string {
	return fmt.Sprintf("<match %s>", value.Repr(m.group(0)))
}

// MarshalJSON renders the matched text.
func (m *Match) MarshalJSON() ([]byte, error) {
	return []byte(value.Repr(m.group(0))), nil
}

func patternAndString(args []any) (*regexp.Regexp, string, error) {
	pattern, err := str(args, 0)
	if err != nil {
		return nil, "", err
	}
	s, err := str(args, 1)
	if err != nil {
		return nil, "", err
	}
	re, err := compile(pattern)
	return re, s, err
}

// RegexpModule returns the re module. Patterns use RE2 syntax.
func RegexpModule() *value.Namespace {
	return module("re", map[string]func(args []any) (any, error){
		"match": func(args []any) (any, error) {
			if err := arity(args, 2, 2); err != nil {
				return nil, err
			}
			re, s, err := patternAndString(args)
			if err != nil {
				return nil, err
			}
			idx := re.FindStringSubmatchIndex(s)
			if idx == nil || idx[0] != 0 {
				return nil, nil
			}
			return newMatch(re, s, idx), nil
		},
		"fullmatch": func(args []any) (any, error) {
			if err := arity(args, 2, 2); err != nil {
				return nil, err
			}
			pattern, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			s, err := str(args, 1)
			if err != nil {
				return nil, err
			}
			re, err := compile(`^(?:` + pattern + `)$`)
			if err != nil {
				return nil, err
			}
			return newMatch(re, s, re.FindStringSubmatchIndex(s)), nil
		},
		"search": func(args []any) (any, error) {
			if err := arity(args, 2, 2); err != nil {
				return nil, err
			}
			re, s, err := patternAndString(args)
			if err != nil {
				return nil, err
			}
			return newMatch(re, s, re.FindStringSubmatchIndex(s)), nil
		},
		"findall": func(args []any) (any, error) {
			if err := arity(args, 2, 2); err != nil {
				return nil, err
			}
			re, s, err := patternAndString(args)
			if err != nil {
				return nil, err
			}
			out := make([]any, 0)
			for _, sub := range re.FindAllStringSubmatch(s, -1) {
				switch len(sub) {
				case 1:
					out = append(out, sub[0])
				case 2:
					out = append(out, sub[1])
				default:
					groups := make(value.Tuple, 0, len(sub)-1)
					for _, g := range sub[1:] {
						groups = append(groups, g)
					}
					out = append(out, groups)
				}
			}
			return out, nil
		},
		"sub": func(args []any) (any, error) {
			if err := arity(args, 3, 4); err != nil {
				return nil, err
			}
			pattern, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			repl, err := str(args, 1)
			if err != nil {
				return nil, err
			}
			s, err := str(args, 2)
			if err != nil {
				return nil, err
			}
			count, err := optInt(args, 3, 0)
			if err != nil {
				return nil, err
			}
			re, err := compile(pattern)
			if err != nil {
				return nil, err
			}
			template := backrefs.ReplaceAllString(strings.ReplaceAll(repl, "$", "$$"), "$${$1}")
			if count <= 0 {
				return re.ReplaceAllString(s, template), nil
			}
			var sb strings.Builder
			last := 0
			for _, idx := range re.FindAllStringSubmatchIndex(s, int(count)) {
				sb.WriteString(s[last:idx[0]])
				sb.Write(re.ExpandString(nil, template, s, idx))
				last = idx[1]
			}
			sb.WriteString(s[last:])
			return sb.String(), nil
		},
		"split": func(args []any) (any, error) {
			if err := arity(args, 2, 3); err != nil {
				return nil, err
			}
			re, s, err := patternAndString(args)
			if err != nil {
				return nil, err
			}
			limit, err := optInt(args, 2, 0)
			if err != nil {
				return nil, err
			}
			n := -1
			if limit > 0 {
				n = int(limit) + 1
			}
			parts := re.Split(s, n)
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out, nil
		},
		"escape": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			s, err := str(args, 0)
			if err != nil {
				return nil, err
			}
			return regexp.QuoteMeta(s), nil
		},
	}, nil)
}
