package value

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Attributer is implemented by namespace-like capabilities that expose named
// attributes. It replaces reflective attribute lookup: a receiver only has
// the attributes it chooses to report.
type Attributer interface {
	Attr(name string) (any, bool)
}

// Caller is implemented by invocable capabilities. Arguments are passed
// positionally, already evaluated.
type Caller interface {
	Call(args []any) (any, error)
}

// Named is implemented by capabilities with a conventional name. Plugin
// descriptors that do not name their binding explicitly bind the capability
// under this name.
type Named interface {
	CapabilityName() string
}

// Func is a named callable capability.
type Func struct {
	Name string
	Fn   func(args []any) (any, error)
}

// NewFunc returns a Func named name.
func NewFunc(name string, fn func(args []any) (any, error)) Func {
	return Func{Name: name, Fn: fn}
}

// Call invokes the function.
func (f Func) Call(args []any) (any, error) {
	if f.Fn == nil {
		return nil, fmt.Errorf("function %s has no implementation", f.Name)
	}
	return f.Fn(args)
}

// CapabilityName implements Named.
func (f Func) CapabilityName() string {
	return f.Name
}

func (f Func) String() string {
	if f.Name == "" {
		return "<function>"
	}
	return "<function " + f.Name + ">"
}

// MarshalJSON renders the function as its description string.
func (f Func) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// Namespace is a named bag of attributes. When Ctor is set the namespace is
// also callable, which is how class-like capabilities (a constructor with
// static methods) are modelled.
type Namespace struct {
	Name  string
	Attrs map[string]any
	Ctor  func(args []any) (any, error)
}

// NewNamespace returns a namespace with the given attributes.
func NewNamespace(name string, attrs map[string]any) *Namespace {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return &Namespace{Name: name, Attrs: attrs}
}

// Attr implements Attributer.
func (n *Namespace) Attr(name string) (any, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// AttrNames returns the attribute names in sorted order.
func (n *Namespace) AttrNames() []string {
	names := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Call invokes the constructor.
func (n *Namespace) Call(args []any) (any, error) {
	if n.Ctor == nil {
		return nil, fmt.Errorf("%s is not callable", n.Name)
	}
	return n.Ctor(args)
}

// CapabilityName implements Named.
func (n *Namespace) CapabilityName() string {
	return n.Name
}

func (n *Namespace) String() string {
	return "<namespace " + n.Name + ">"
}

// MarshalJSON renders the namespace as its description string.
func (n *Namespace) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// Adder is implemented by capabilities supporting the add operator, such as
// dates and durations.
type Adder interface {
	AddValue(other any) (any, error)
}

// Subtracter is implemented by capabilities supporting the sub operator.
type Subtracter interface {
	SubValue(other any) (any, error)
}
