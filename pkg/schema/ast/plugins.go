package ast

// PluginDescriptor declares a capability to fold into the plugin registry.
// Implementations are ImportPath, ExprPlugin and NamedPlugin.
type PluginDescriptor interface {
	descriptor()
	String() string
}

// ImportPath names a capability resolved by the injected loader and bound
// under its conventional name. Paths take the form "module" or
// "module:attribute".
type ImportPath struct {
	Path string
}

// ExprPlugin is an expression evaluated against the registry built so far.
// The produced value is bound under its conventional name.
type ExprPlugin struct {
	Expr Expr
}

// NamedPlugin binds Source explicitly under Name. Source is an ImportPath or
// an ExprPlugin.
type NamedPlugin struct {
	Name   string
	Source PluginDescriptor
}

func (ImportPath) descriptor()  {}
func (ExprPlugin) descriptor()  {}
func (NamedPlugin) descriptor() {}

func (p ImportPath) String() string { return p.Path }
func (p ExprPlugin) String() string { return p.Expr.String() }

func (p NamedPlugin) String() string {
	src := "<nil>"
	if p.Source != nil {
		src = p.Source.String()
	}
	return p.Name + "=" + src
}
