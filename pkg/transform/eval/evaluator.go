package eval

import (
	stderrors "errors"
	"log/slog"
	"strings"

	"mercator-hq/exceller/pkg/schema/ast"
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
	"mercator-hq/exceller/pkg/transform/plugin"
	"mercator-hq/exceller/pkg/transform/value"
)

const (
	contextPrefix = "$0."
	pluginPrefix  = "$1."
)

// Evaluator evaluates expressions. The zero value is not usable; use
// NewEvaluator.
type Evaluator struct {
	logger *slog.Logger
}

// NewEvaluator creates an evaluator logging to logger.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{logger: logger}
}

var defaultEvaluator = NewEvaluator(nil)

// Evaluate evaluates expr with the default evaluator.
func Evaluate(expr ast.Expr, ctx *value.Map, reg *plugin.Registry) (any, error) {
	return defaultEvaluator.Evaluate(expr, ctx, reg)
}

// Evaluate evaluates expr against ctx and reg. A nil ctx or reg behaves as
// empty.
func (e *Evaluator) Evaluate(expr ast.Expr, ctx *value.Map, reg *plugin.Registry) (any, error) {
	if len(expr) == 0 {
		return nil, schemaerrors.New(schemaerrors.KindEmptyExpression, "Expr can't be empty")
	}
	if len(expr) == 1 {
		return e.resolveArg(expr[0], ctx, reg)
	}

	args := make([]any, 0, len(expr)-1)
	for _, tok := range expr[1:] {
		v, err := e.resolveArg(tok, ctx, reg)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	op := expr[0]
	if op == "if" {
		if len(args) != 3 {
			return nil, schemaerrors.New(schemaerrors.KindInvocation,
				"if expects 3 arguments (condition, then, else), got %d", len(args))
		}
		if value.Truthy(args[0]) {
			return args[1], nil
		}
		return args[2], nil
	}

	fn, name, args, err := e.resolveOperator(op, expr, args, ctx, reg)
	if err != nil {
		return nil, err
	}
	return invoke(name, fn, args)
}

// resolveOperator returns the callable named by op together with the
// arguments it is applied to.
func (e *Evaluator) resolveOperator(op any, expr ast.Expr, args []any, ctx *value.Map, reg *plugin.Registry) (any, string, []any, error) {
	switch tok := op.(type) {
	case ast.Expr:
		fn, err := e.Evaluate(tok, ctx, reg)
		return fn, tok.String(), args, err
	case []any:
		fn, err := e.Evaluate(ast.Expr(tok), ctx, reg)
		return fn, ast.Expr(tok).String(), args, err
	case string:
		switch {
		case strings.HasPrefix(tok, "."):
			method := tok[1:]
			fn, ok := lookupMethod(args[0], method)
			if !ok {
				return nil, "", nil, schemaerrors.New(schemaerrors.KindFunctionNotFound,
					"Method `%s` not found in %s", method, value.ToString(args[0]))
			}
			return fn, method, args[1:], nil
		case strings.HasPrefix(tok, pluginPrefix):
			fn, err := resolvePlugin(tok[len(pluginPrefix):], reg, true)
			if err == nil {
				e.logger.Debug("invoking plugin", "plugin", tok[len(pluginPrefix):], "args", len(args))
			}
			return fn, tok[len(pluginPrefix):], args, err
		}
		if fn, ok := operators[tok]; ok {
			return fn, tok, args, nil
		}
		if fn, ok := builtins[tok]; ok {
			return fn, tok, args, nil
		}
		return nil, "", nil, schemaerrors.New(schemaerrors.KindFunctionNotFound,
			"Function `%s` is not supported", tok).WithSuggestion(schemaerrors.Suggest(tok, FunctionNames()))
	default:
		return nil, "", nil, schemaerrors.New(schemaerrors.KindFunctionNotFound,
			"Function `%s` is not supported", value.Repr(op))
	}
}

// resolveArg resolves a single token: nested expressions are evaluated,
// references are dereferenced and anything else is a literal.
func (e *Evaluator) resolveArg(tok any, ctx *value.Map, reg *plugin.Registry) (any, error) {
	switch t := tok.(type) {
	case ast.Expr:
		return e.Evaluate(t, ctx, reg)
	case []any:
		return e.Evaluate(ast.Expr(t), ctx, reg)
	case string:
		switch {
		case strings.HasPrefix(t, contextPrefix):
			key := t[len(contextPrefix):]
			v, ok := ctx.Get(key)
			if !ok {
				return nil, schemaerrors.New(schemaerrors.KindContextKey, "No attribute `%s` in context", key)
			}
			return v, nil
		case strings.HasPrefix(t, pluginPrefix):
			return resolvePlugin(t[len(pluginPrefix):], reg, false)
		}
		return t, nil
	}

	v, err := value.Normalize(tok)
	if err != nil {
		return nil, schemaerrors.Wrap(schemaerrors.KindSchemaDefinition, err, "invalid expression token %v: %v", tok, err)
	}
	return v, nil
}

// resolvePlugin dereferences "name" or "name:attr" in reg. In call position
// "name.attr" is accepted as well when no plugin is bound under the full
// name.
func resolvePlugin(path string, reg *plugin.Registry, call bool) (any, error) {
	name, attr, _ := strings.Cut(path, ":")
	capability, ok := reg.Lookup(name)
	if !ok && call && attr == "" {
		if n, a, dotted := strings.Cut(name, "."); dotted {
			if c, found := reg.Lookup(n); found {
				name, attr, capability, ok = n, a, c, true
			}
		}
	}
	if !ok {
		return nil, schemaerrors.New(schemaerrors.KindPluginNotFound, "%s", name).
			WithSuggestion(schemaerrors.Suggest(name, reg.Names()))
	}
	if attr == "" {
		return capability, nil
	}

	v, err := plugin.GetAttr(capability, name, attr)
	if err != nil {
		return nil, schemaerrors.Wrap(schemaerrors.KindAttributeNotFound, err,
			"No attribute `%s` in plugin `%s`", attr, path)
	}
	return v, nil
}

// invoke applies fn to args. Errors returned by the callable are reported
// as invocation errors unless they already carry a kind.
func invoke(name string, fn any, args []any) (any, error) {
	c, ok := fn.(value.Caller)
	if !ok {
		return nil, schemaerrors.New(schemaerrors.KindInvocation, "`%s` is not callable: %s", name, value.Repr(fn))
	}

	out, err := c.Call(args)
	if err != nil {
		var typed *schemaerrors.Error
		if stderrors.As(err, &typed) {
			return nil, err
		}
		var attrErr *plugin.AttributeError
		if stderrors.As(err, &attrErr) {
			return nil, schemaerrors.Wrap(schemaerrors.KindAttributeNotFound, err,
				"No attribute `%s` on `%s`", attrErr.Attr, attrErr.Container)
		}
		return nil, schemaerrors.Wrap(schemaerrors.KindInvocation, err, "%s: %v", name, err)
	}

	v, err := value.Normalize(out)
	if err != nil {
		return nil, schemaerrors.Wrap(schemaerrors.KindInvocation, err, "%s returned %v", name, err)
	}
	return v, nil
}
