package plugin

import (
	"fmt"
	"sort"
	"strings"

	"mercator-hq/exceller/pkg/transform/value"
)

// Loader resolves an import path into a capability.
type Loader interface {
	Load(path string) (any, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (any, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (any, error) {
	return f(path)
}

// ModuleNotFoundError reports an import path whose module is unknown.
type ModuleNotFoundError struct {
	Module string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("no module named %q", e.Module)
}

// AttributeError reports an attribute missing on a resolved capability.
type AttributeError struct {
	Container string
	Attr      string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s has no attribute %q", e.Container, e.Attr)
}

// ParsePath splits "module:attr" into its parts. attr is empty when the path
// names a whole module.
func ParsePath(path string) (module, attr string) {
	module, attr, _ = strings.Cut(path, ":")
	return module, attr
}

// GetAttr returns attribute name of cap. container names cap in the returned
// *AttributeError.
func GetAttr(cap any, container, name string) (any, error) {
	if a, ok := cap.(value.Attributer); ok {
		if v, ok := a.Attr(name); ok {
			return v, nil
		}
	}
	return nil, &AttributeError{Container: container, Attr: name}
}

// ModuleLoader resolves import paths against a fixed table of modules.
// Attribute paths may be dotted: "datetime:datetime.strptime".
type ModuleLoader struct {
	modules map[string]any
}

// NewModuleLoader returns a loader serving modules.
func NewModuleLoader(modules map[string]any) *ModuleLoader {
	l := &ModuleLoader{modules: make(map[string]any, len(modules))}
	for name, m := range modules {
		l.modules[name] = m
	}
	return l
}

// Register adds or replaces a module.
func (l *ModuleLoader) Register(name string, module any) {
	l.modules[name] = module
}

// Unregister removes a module.
func (l *ModuleLoader) Unregister(name string) {
	delete(l.modules, name)
}

// Modules returns the module names in sorted order.
func (l *ModuleLoader) Modules() []string {
	names := make([]string, 0, len(l.modules))
	for k := range l.modules {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Load implements Loader.
func (l *ModuleLoader) Load(path string) (any, error) {
	moduleName, attr := ParsePath(path)
	mod, ok := l.modules[moduleName]
	if !ok {
		return nil, &ModuleNotFoundError{Module: moduleName}
	}
	if attr == "" {
		return mod, nil
	}

	cur, container := mod, moduleName
	for _, part := range strings.Split(attr, ".") {
		next, err := GetAttr(cur, container, part)
		if err != nil {
			return nil, err
		}
		cur, container = next, part
	}
	return cur, nil
}

// ChainLoader tries each loader in order. A loader reporting
// ModuleNotFoundError passes to the next; any other result is final.
type ChainLoader []Loader

// Load implements Loader.
func (c ChainLoader) Load(path string) (any, error) {
	for _, l := range c {
		v, err := l.Load(path)
		if _, missing := err.(*ModuleNotFoundError); missing {
			continue
		}
		return v, err
	}
	module, _ := ParsePath(path)
	return nil, &ModuleNotFoundError{Module: module}
}

// NopLoader knows no modules.
var NopLoader Loader = LoaderFunc(func(path string) (any, error) {
	module, _ := ParsePath(path)
	return nil, &ModuleNotFoundError{Module: module}
})
