package plugin

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/exceller/pkg/transform/value"
)

func TestRegistry_With(t *testing.T) {
	base := NewRegistry(map[string]any{"a": int64(1)})
	next := base.With("a", int64(2)).With("b", int64(3))

	if v, _ := base.Lookup("a"); v != int64(1) {
		t.Errorf("base a = %v, want 1", v)
	}
	if v, _ := next.Lookup("a"); v != int64(2) {
		t.Errorf("next a = %v, want 2", v)
	}
	if diff := cmp.Diff([]string{"a", "b"}, next.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if next.Len() != 2 {
		t.Errorf("Len() = %d, want 2", next.Len())
	}
}

func TestRegistry_Nil(t *testing.T) {
	var r *Registry
	if _, ok := r.Lookup("x"); ok {
		t.Error("nil registry Lookup found a binding")
	}
	if r.Len() != 0 || r.Names() != nil || len(r.Map()) != 0 {
		t.Error("nil registry is not empty")
	}
	if v, ok := r.With("x", int64(1)).Lookup("x"); !ok || v != int64(1) {
		t.Errorf("With on nil registry = %v, %v", v, ok)
	}
}

func TestRegistry_MapIsCopy(t *testing.T) {
	r := NewRegistry(map[string]any{"a": int64(1)})
	m := r.Map()
	m["a"] = int64(9)
	if v, _ := r.Lookup("a"); v != int64(1) {
		t.Errorf("Map() aliased the registry: a = %v", v)
	}
}

func TestNameOf(t *testing.T) {
	tests := []struct {
		name string
		cap  any
		want string
	}{
		{"func", value.NewFunc("f", nil), "f"},
		{"namespace", value.NewNamespace("ns", nil), "ns"},
		{"plain value", int64(1), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NameOf(tt.cap); got != tt.want {
				t.Errorf("NameOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		path, module, attr string
	}{
		{"datetime", "datetime", ""},
		{"datetime:datetime", "datetime", "datetime"},
		{"datetime:datetime.strptime", "datetime", "datetime.strptime"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			module, attr := ParsePath(tt.path)
			if module != tt.module || attr != tt.attr {
				t.Errorf("ParsePath(%q) = %q, %q", tt.path, module, attr)
			}
		})
	}
}

func TestModuleLoader(t *testing.T) {
	inner := value.NewNamespace("inner", map[string]any{"leaf": "found"})
	outer := value.NewNamespace("outer", map[string]any{"inner": inner})
	l := NewModuleLoader(map[string]any{"outer": outer})

	tests := []struct {
		name      string
		path      string
		want      any
		wantError any
	}{
		{name: "module", path: "outer", want: outer},
		{name: "attribute", path: "outer:inner", want: inner},
		{name: "dotted attribute", path: "outer:inner.leaf", want: "found"},
		{name: "missing module", path: "nope", wantError: &ModuleNotFoundError{Module: "nope"}},
		{name: "missing attribute", path: "outer:inner.gone", wantError: &AttributeError{Container: "inner", Attr: "gone"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Load(tt.path)
			if tt.wantError != nil {
				if diff := cmp.Diff(tt.wantError, err); diff != "" {
					t.Errorf("Load(%q) error mismatch (-want +got):\n%s", tt.path, diff)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Load(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	l.Unregister("outer")
	l.Register("other", int64(1))
	if diff := cmp.Diff([]string{"other"}, l.Modules()); diff != "" {
		t.Errorf("Modules() mismatch (-want +got):\n%s", diff)
	}
}

func TestChainLoader(t *testing.T) {
	failing := LoaderFunc(func(path string) (any, error) {
		if path == "broken" {
			return nil, errors.New("load failed")
		}
		return nil, &ModuleNotFoundError{Module: path}
	})
	chain := ChainLoader{failing, NewModuleLoader(map[string]any{"m": int64(7)})}

	if v, err := chain.Load("m"); err != nil || v != int64(7) {
		t.Errorf("Load(m) = %v, %v", v, err)
	}
	if _, err := chain.Load("broken"); err == nil || err.Error() != "load failed" {
		t.Errorf("Load(broken) error = %v, want the first loader's failure", err)
	}
	var missing *ModuleNotFoundError
	if _, err := chain.Load("x:y"); !errors.As(err, &missing) || missing.Module != "x" {
		t.Errorf("Load(x:y) error = %v", err)
	}
	if _, err := NopLoader.Load("anything"); !errors.As(err, &missing) {
		t.Errorf("NopLoader error = %v", err)
	}
}
