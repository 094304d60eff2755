package stdlib

import (
	"errors"
	"fmt"
	"sort"

	"mercator-hq/exceller/pkg/transform/plugin"
	"mercator-hq/exceller/pkg/transform/value"
)

// Modules returns a fresh table of every built-in module keyed by import
// name.
func Modules() map[string]any {
	return map[string]any{
		"datetime": DatetimeModule(),
		"json":     JSONModule(),
		"yaml":     YAMLModule(),
		"math":     MathModule(),
		"re":       RegexpModule(),
		"uuid":     UUIDModule(),
		"base64":   Base64Module(),
		"strings":  StringsModule(),
	}
}

// ModuleNames returns the import names of the built-in modules.
func ModuleNames() []string {
	mods := Modules()
	names := make([]string, 0, len(mods))
	for name := range mods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Loader returns a loader serving the built-in modules, minus disabled.
func Loader(disabled ...string) *plugin.ModuleLoader {
	l := plugin.NewModuleLoader(Modules())
	for _, name := range disabled {
		l.Unregister(name)
	}
	return l
}

func module(name string, funcs map[string]func(args []any) (any, error), consts map[string]any) *value.Namespace {
	attrs := make(map[string]any, len(funcs)+len(consts))
	for fname, fn := range funcs {
		attrs[fname] = value.NewFunc(name+"."+fname, fn)
	}
	for k, v := range consts {
		attrs[k] = v
	}
	return value.NewNamespace(name, attrs)
}

func arity(args []any, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("expected %d argument(s), got %d", lo, len(args))
		}
		return fmt.Errorf("expected %d to %d arguments, got %d", lo, hi, len(args))
	}
	return nil
}

// nullary checks the arguments of a function taking none. Expressions cannot
// spell a call without arguments, so a single null argument is accepted:
// ["$1.uuid:uuid4", null].
func nullary(args []any) error {
	if len(args) == 0 || (len(args) == 1 && args[0] == nil) {
		return nil
	}
	return fmt.Errorf("expected no arguments, got %d", len(args))
}

func str(args []any, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("argument %d must be a string, got %s", i+1, value.KindOf(args[i]))
	}
	return s, nil
}

func integer(args []any, i int) (int64, error) {
	n, ok := value.AsInt(args[i])
	if !ok {
		return 0, fmt.Errorf("argument %d must be an int, got %s", i+1, value.KindOf(args[i]))
	}
	return n, nil
}

func float(args []any, i int) (float64, error) {
	switch n := args[i].(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("argument %d must be a number, got %s", i+1, value.KindOf(args[i]))
}

// optInt returns argument i as an int, or def when it is absent or null.
func optInt(args []any, i int, def int64) (int64, error) {
	if i >= len(args) || args[i] == nil {
		return def, nil
	}
	return integer(args, i)
}

// maxWidth bounds padding widths and indents.
const maxWidth = 1 << 20

var (
	errInvalidUTF8 = errors.New("decoded payload is not valid UTF-8")
	errFillChar    = errors.New("fill character must be exactly one character")
	errWidth       = errors.New("width too large")
)
