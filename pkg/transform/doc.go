// Package transform resolves schema nodes into values.
//
// A Transformer is bound to one schema node, its Context and its plugin
// Registry. Construction merges the node's context defaults under the
// caller's context, folds the node's plugin descriptors over the caller's
// capabilities and fails early on plugin resolution errors. Resolve then
// evaluates the node:
//
//	schema := ast.WithCtx(ast.Object(
//	    ast.F("greeting", ast.Expression("concat", "hello ", "$0.name")),
//	), "name", "world")
//
//	t, err := transform.New(schema, nil, nil)
//	if err != nil {
//	    return err
//	}
//	out, err := t.Resolve() // {"greeting": "hello world"}
//
// Object, tuple and list nodes build a fresh child Transformer for every
// member or element they resolve. Computed fields are resolved on the first
// call to Resolve and merged into the Context for the lifetime of the
// instance.
package transform
