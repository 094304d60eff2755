package plugin

import (
	"sort"

	"mercator-hq/exceller/pkg/transform/value"
)

// Registry maps plugin names to capabilities. A Registry is never mutated
// after it is built; With returns a copy.
type Registry struct {
	caps map[string]any
}

// NewRegistry returns a registry holding a copy of caps.
func NewRegistry(caps map[string]any) *Registry {
	r := &Registry{caps: make(map[string]any, len(caps))}
	for name, c := range caps {
		r.caps[name] = c
	}
	return r
}

// Lookup returns the capability bound under name.
func (r *Registry) Lookup(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.caps[name]
	return c, ok
}

// With returns a copy of the registry with cap bound under name. An existing
// binding of the same name is replaced.
func (r *Registry) With(name string, cap any) *Registry {
	out := &Registry{caps: make(map[string]any, r.Len()+1)}
	if r != nil {
		for k, v := range r.caps {
			out.caps[k] = v
		}
	}
	out.caps[name] = cap
	return out
}

// Names returns the bound names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.caps))
	for k := range r.caps {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.caps)
}

// Map returns a copy of the bindings.
func (r *Registry) Map() map[string]any {
	out := make(map[string]any, r.Len())
	if r != nil {
		for k, v := range r.caps {
			out[k] = v
		}
	}
	return out
}

// NameOf returns the conventional name of a capability, or "" when it has
// none.
func NameOf(cap any) string {
	if n, ok := cap.(value.Named); ok {
		return n.CapabilityName()
	}
	return ""
}
