package transform

import (
	stderrors "errors"
	"strings"

	"mercator-hq/exceller/pkg/schema/ast"
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
	"mercator-hq/exceller/pkg/transform/plugin"
	"mercator-hq/exceller/pkg/transform/value"
)

// BuildRegistry folds descriptors, left to right, over seed. Later bindings
// replace earlier ones of the same name. Expression descriptors are evaluated
// against the registry built so far with an empty context.
func BuildRegistry(descriptors []ast.PluginDescriptor, seed *plugin.Registry, opts ...Option) (*plugin.Registry, error) {
	return buildRegistry(descriptors, seed, newOptions(opts))
}

func buildRegistry(descriptors []ast.PluginDescriptor, seed *plugin.Registry, o *options) (*plugin.Registry, error) {
	if len(descriptors) == 0 {
		if seed == nil {
			return plugin.NewRegistry(nil), nil
		}
		return seed, nil
	}

	reg := seed
	for _, d := range descriptors {
		name, capability, err := resolveDescriptor(d, reg, o)
		if err != nil {
			return nil, pluginError(err)
		}
		o.logger.Debug("plugin bound", "name", name, "descriptor", d.String())
		reg = reg.With(name, capability)
	}
	return reg, nil
}

// resolveDescriptor returns the binding produced by d.
func resolveDescriptor(d ast.PluginDescriptor, reg *plugin.Registry, o *options) (string, any, error) {
	switch desc := d.(type) {
	case ast.ImportPath:
		capability, err := o.loader.Load(desc.Path)
		if err != nil {
			return "", nil, err
		}
		return importName(desc.Path, capability), capability, nil

	case ast.ExprPlugin:
		capability, err := o.evaluator.Evaluate(desc.Expr, value.NewMap(), reg)
		if err != nil {
			return "", nil, err
		}
		name := plugin.NameOf(capability)
		if name == "" {
			return "", nil, schemaerrors.New(schemaerrors.KindPluginDefinition,
				"plugin %s produced %s which has no name, bind it as {name: %s}",
				desc.Expr, value.Repr(capability), desc.Expr)
		}
		return name, capability, nil

	case ast.NamedPlugin:
		if desc.Name == "" {
			return "", nil, schemaerrors.New(schemaerrors.KindPluginDefinition, "%s", desc.String())
		}
		switch desc.Source.(type) {
		case ast.ImportPath, ast.ExprPlugin:
		default:
			return "", nil, schemaerrors.New(schemaerrors.KindPluginDefinition, "%s", desc.String())
		}
		_, capability, err := resolveDescriptor(desc.Source, reg, o)
		if err != nil {
			return "", nil, err
		}
		return desc.Name, capability, nil
	}

	return "", nil, schemaerrors.New(schemaerrors.KindPluginDefinition, "%v", d)
}

// importName is the name an import-path capability is bound under: its
// conventional name, or else the last attribute or the module name.
func importName(path string, capability any) string {
	if name := plugin.NameOf(capability); name != "" {
		return name
	}
	module, attr := plugin.ParsePath(path)
	if attr == "" {
		return module
	}
	if i := strings.LastIndexByte(attr, '.'); i >= 0 {
		return attr[i+1:]
	}
	return attr
}

// pluginError reports loader failures as plugin definition errors.
func pluginError(err error) error {
	var missing *plugin.ModuleNotFoundError
	if stderrors.As(err, &missing) {
		return schemaerrors.Wrap(schemaerrors.KindPluginDefinition, err,
			"No module/package `%s` installed", missing.Module)
	}
	var attrErr *plugin.AttributeError
	if stderrors.As(err, &attrErr) {
		return schemaerrors.Wrap(schemaerrors.KindPluginDefinition, err,
			"No attribute `%s` on module/package `%s`", attrErr.Attr, attrErr.Container)
	}
	var typed *schemaerrors.Error
	if stderrors.As(err, &typed) {
		return err
	}
	return schemaerrors.Wrap(schemaerrors.KindPluginDefinition, err, "%v", err)
}
