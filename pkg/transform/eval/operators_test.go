package eval

import (
	"math"
	"testing"

	"mercator-hq/exceller/pkg/transform/value"
)

func call(t *testing.T, name string, args ...any) (any, error) {
	t.Helper()
	fn, ok := operators[name]
	if !ok {
		if fn, ok = builtins[name]; !ok {
			t.Fatalf("no function %q", name)
		}
	}
	return fn.Call(args)
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name string
		op   string
		args []any
		want any
	}{
		{"int add", "add", []any{int64(2), int64(3)}, int64(5)},
		{"mixed add", "add", []any{int64(2), 0.5}, 2.5},
		{"string add", "add", []any{"a", "b"}, "ab"},
		{"list add", "add", []any{[]any{int64(1)}, []any{int64(2)}}, []any{int64(1), int64(2)}},
		{"bool counts as int", "add", []any{true, int64(1)}, int64(2)},
		{"sub", "sub", []any{int64(2), int64(5)}, int64(-3)},
		{"string repeat", "mul", []any{"ab", int64(2)}, "abab"},
		{"int first repeat", "mul", []any{int64(2), []any{"x"}}, []any{"x", "x"}},
		{"truediv", "truediv", []any{int64(7), int64(2)}, 3.5},
		{"floordiv floors", "floordiv", []any{int64(-7), int64(2)}, int64(-4)},
		{"mod follows divisor", "mod", []any{int64(-7), int64(3)}, int64(2)},
		{"float mod", "mod", []any{7.5, int64(-2)}, -0.5},
		{"int pow", "pow", []any{int64(2), int64(10)}, int64(1024)},
		{"negative pow", "pow", []any{int64(2), int64(-1)}, 0.5},
		{"pow overflow promotes to float", "pow", []any{int64(2), int64(64)}, float64(1 << 64)},
		{"pow at int limit", "pow", []any{int64(-2), int64(63)}, int64(-1 << 63)},
		{"mul overflow promotes to float", "mul", []any{int64(1 << 62), int64(4)}, float64(1 << 64)},
		{"add overflow promotes to float", "add", []any{int64(1<<63 - 1), int64(1)}, float64(1 << 63)},
		{"sub overflow promotes to float", "sub", []any{int64(-1 << 63), int64(1)}, -float64(1 << 63)},
		{"negative repeat", "mul", []any{"ab", int64(-3)}, ""},
		{"empty repeat is unbounded", "mul", []any{[]any{}, int64(1 << 62)}, []any{}},
		{"neg", "neg", []any{int64(4)}, int64(-4)},
		{"abs", "abs", []any{-2.5}, 2.5},
		{"and_ bools", "and_", []any{true, false}, false},
		{"and_ ints", "and_", []any{int64(6), int64(3)}, int64(2)},
		{"xor", "xor", []any{int64(6), int64(3)}, int64(5)},
		{"lshift", "lshift", []any{int64(1), int64(4)}, int64(16)},
		{"invert", "invert", []any{int64(0)}, int64(-1)},
		{"eq numeric", "eq", []any{int64(1), 1.0}, true},
		{"ne", "ne", []any{"a", "b"}, true},
		{"le", "le", []any{"a", "a"}, true},
		{"gt tuples", "gt", []any{value.Tuple{int64(1), int64(3)}, value.Tuple{int64(1), int64(2)}}, true},
		{"not_", "not_", []any{""}, true},
		{"truth", "truth", []any{[]any{nil}}, true},
		{"is_ null", "is_", []any{nil, nil}, true},
		{"is_not", "is_not", []any{int64(1), nil}, true},
		{"contains string", "contains", []any{"haystack", "st"}, true},
		{"contains map key", "contains", []any{value.MapOf("k", int64(1)), "k"}, true},
		{"countOf", "countOf", []any{[]any{int64(1), int64(1), int64(2)}, int64(1)}, int64(2)},
		{"indexOf", "indexOf", []any{value.Tuple{"a", "b"}, "b"}, int64(1)},
		{"getitem negative", "getitem", []any{[]any{"a", "b", "c"}, int64(-1)}, "c"},
		{"getitem string", "getitem", []any{"héllo", int64(1)}, "é"},
		{"getitem map", "getitem", []any{value.MapOf("k", "v"), "k"}, "v"},
		{"startswith", "startswith", []any{"prefix-x", "prefix"}, true},
		{"endswith", "endswith", []any{"x.json", ".yaml"}, false},
		{"matches", "matches", []any{"ab-12", `^\w+-\d+$`}, true},
		{"in", "in", []any{"b", []any{"a", "b"}}, true},
		{"not_in", "not_in", []any{"z", []any{"a", "b"}}, true},
		{"concat tuples", "concat", []any{value.Tuple{int64(1)}, value.Tuple{int64(2)}}, value.Tuple{int64(1), int64(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(t, tt.op, tt.args...)
			if err != nil {
				t.Fatalf("%s%s error = %v", tt.op, value.Repr(tt.args), err)
			}
			if !value.Equal(got, tt.want) || value.KindOf(got) != value.KindOf(tt.want) {
				t.Errorf("%s%s = %s (%s), want %s (%s)", tt.op, value.Repr(tt.args),
					value.Repr(got), value.KindOf(got), value.Repr(tt.want), value.KindOf(tt.want))
			}
		})
	}
}

func TestOperators_Errors(t *testing.T) {
	tests := []struct {
		name string
		op   string
		args []any
	}{
		{"arity", "lt", []any{int64(1)}},
		{"compare kinds", "lt", []any{"1", int64(1)}},
		{"int modulo by zero", "mod", []any{int64(1), int64(0)}},
		{"truediv by zero", "truediv", []any{1.0, 0.0}},
		{"add map", "add", []any{value.NewMap(), int64(1)}},
		{"concat kinds", "concat", []any{"a", []any{"b"}}},
		{"getitem out of range", "getitem", []any{[]any{}, int64(0)}},
		{"getitem missing key", "getitem", []any{value.MapOf("a", int64(1)), "b"}},
		{"indexOf missing", "indexOf", []any{[]any{"a"}, "b"}},
		{"negative shift", "lshift", []any{int64(1), int64(-1)}},
		{"bad regex", "matches", []any{"a", "("}},
		{"contains int in string", "contains", []any{"abc", int64(1)}},
		{"string repeat too long", "mul", []any{"ab", int64(1 << 62)}},
		{"list repeat too long", "mul", []any{[]any{"ab"}, int64(1 << 62)}},
		{"tuple repeat too long", "mul", []any{int64(1 << 23), value.Tuple{"a", "b", "c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := call(t, tt.op, tt.args...); err == nil {
				t.Errorf("%s%s expected error", tt.op, value.Repr(tt.args))
			}
		})
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []any
		want any
	}{
		{"str", "str", []any{value.MapOf("foo", int64(1))}, `{"foo":1}`},
		{"repr string", "repr", []any{"x"}, `"x"`},
		{"int from string", "int", []any{" 42 "}, int64(42)},
		{"int with base", "int", []any{"ff", int64(16)}, int64(255)},
		{"int truncates", "int", []any{-2.9}, int64(-2)},
		{"float from string", "float", []any{"1.5"}, 1.5},
		{"bool", "bool", []any{"x"}, true},
		{"len string", "len", []any{"héllo"}, int64(5)},
		{"min", "min", []any{int64(3), int64(1), int64(2)}, int64(1)},
		{"max of list", "max", []any{[]any{"a", "c", "b"}}, "c"},
		{"sum", "sum", []any{[]any{int64(1), int64(2), 0.5}}, 3.5},
		{"round half even", "round", []any{2.5}, int64(2)},
		{"round digits", "round", []any{1.2345, int64(2)}, 1.23},
		{"sorted reverse", "sorted", []any{[]any{int64(1), int64(3), int64(2)}, true}, []any{int64(3), int64(2), int64(1)}},
		{"reversed", "reversed", []any{value.Tuple{"a", "b"}}, []any{"b", "a"}},
		{"list of string", "list", []any{"ab"}, []any{"a", "b"}},
		{"tuple", "tuple", []any{[]any{int64(1)}}, value.Tuple{int64(1)}},
		{"dict of pairs", "dict", []any{[]any{value.Tuple{"a", int64(1)}}}, value.MapOf("a", int64(1))},
		{"range", "range", []any{int64(1), int64(7), int64(3)}, []any{int64(1), int64(4)}},
		{"enumerate", "enumerate", []any{[]any{"x"}, int64(1)}, []any{value.Tuple{int64(1), "x"}}},
		{"zip", "zip", []any{[]any{int64(1), int64(2)}, []any{"a"}}, []any{value.Tuple{int64(1), "a"}}},
		{"any", "any", []any{[]any{int64(0), ""}}, false},
		{"all", "all", []any{[]any{int64(1), "x"}}, true},
		{"ord", "ord", []any{"é"}, int64(233)},
		{"chr", "chr", []any{int64(65)}, "A"},
		{"hex", "hex", []any{int64(-255)}, "-0xff"},
		{"type", "type", []any{value.Tuple{}}, "tuple"},
		{"isinstance", "isinstance", []any{"x", "str"}, true},
		{"hasattr", "hasattr", []any{value.NewNamespace("m", map[string]any{"a": int64(1)}), "a"}, true},
		{"getattr default", "getattr", []any{int64(1), "real", "none"}, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(t, tt.fn, tt.args...)
			if err != nil {
				t.Fatalf("%s%s error = %v", tt.fn, value.Repr(tt.args), err)
			}
			if !value.Equal(got, tt.want) {
				t.Errorf("%s%s = %s, want %s", tt.fn, value.Repr(tt.args), value.Repr(got), value.Repr(tt.want))
			}
		})
	}
}

func TestBuiltins_Callables(t *testing.T) {
	double := value.NewFunc("double", func(args []any) (any, error) {
		return args[0].(int64) * 2, nil
	})
	got, err := call(t, "map", double, []any{int64(1), int64(2)})
	if err != nil {
		t.Fatal(err)
	}
	if !value.Equal(got, []any{int64(2), int64(4)}) {
		t.Errorf("map() = %s", value.Repr(got))
	}

	got, err = call(t, "filter", nil, []any{int64(0), int64(3), ""})
	if err != nil {
		t.Fatal(err)
	}
	if !value.Equal(got, []any{int64(3)}) {
		t.Errorf("filter(null) = %s", value.Repr(got))
	}

	if _, err := call(t, "range", int64(math.MaxInt32)); err == nil {
		t.Error("range() accepted an oversized result")
	}
}

func TestMethods(t *testing.T) {
	tests := []struct {
		name   string
		recv   any
		method string
		args   []any
		want   any
	}{
		{"title", "hello wORLD", "title", nil, "Hello World"},
		{"capitalize", "hELLO", "capitalize", nil, "Hello"},
		{"strip chars", "--x--", "strip", []any{"-"}, "x"},
		{"split whitespace limit", "a  b c", "split", []any{nil, int64(1)}, []any{"a", "b c"}},
		{"join", ",", "join", []any{[]any{"a", "b"}}, "a,b"},
		{"replace count", "aaa", "replace", []any{"a", "b", int64(2)}, "bba"},
		{"startswith tuple", "img.png", "endswith", []any{value.Tuple{".jpg", ".png"}}, true},
		{"find rune index", "héllo", "find", []any{"l"}, int64(2)},
		{"zfill sign", "-42", "zfill", []any{int64(5)}, "-0042"},
		{"format index", "{1}{0}", "format", []any{"a", "b"}, "ba"},
		{"format braces", "{{}}", "format", nil, "{}"},
		{"isdigit", "123", "isdigit", nil, true},
		{"map items", value.MapOf("a", int64(1)), "items", nil, []any{value.Tuple{"a", int64(1)}}},
		{"map get missing", value.MapOf("a", int64(1)), "get", []any{"b"}, nil},
		{"list count", []any{"a", "a"}, "count", []any{"a"}, int64(2)},
		{"dunder and", true, "__and__", []any{false}, false},
		{"dunder len", "abc", "__len__", nil, int64(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, ok := lookupMethod(tt.recv, tt.method)
			if !ok {
				t.Fatalf("lookupMethod(%s, %q) not found", value.Repr(tt.recv), tt.method)
			}
			got, err := fn.(value.Caller).Call(tt.args)
			if err != nil {
				t.Fatalf("%s.%s() error = %v", value.Repr(tt.recv), tt.method, err)
			}
			if !value.Equal(got, tt.want) {
				t.Errorf("%s.%s() = %s, want %s", value.Repr(tt.recv), tt.method, value.Repr(got), value.Repr(tt.want))
			}
		})
	}

	if _, ok := lookupMethod(int64(1), "bar"); ok {
		t.Error("lookupMethod(1, bar) found a method")
	}
	if _, ok := lookupMethod("x", "__nope__"); ok {
		t.Error("lookupMethod found an unknown dunder")
	}
}

func TestMethods_Errors(t *testing.T) {
	tests := []struct {
		name   string
		recv   any
		method string
		args   []any
	}{
		{"zfill width too large", "1", "zfill", []any{int64(1 << 62)}},
		{"zfill non-int width", "1", "zfill", []any{"5"}},
		{"split with too many args", "a b", "split", []any{" ", int64(1), int64(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, ok := lookupMethod(tt.recv, tt.method)
			if !ok {
				t.Fatalf("lookupMethod(%s, %q) not found", value.Repr(tt.recv), tt.method)
			}
			if _, err := fn.(value.Caller).Call(tt.args); err == nil {
				t.Errorf("%s.%s%s expected error", value.Repr(tt.recv), tt.method, value.Repr(tt.args))
			}
		})
	}
}
