// Package errors defines the error taxonomy shared by schema parsing, plugin
// registry construction and transformation.
//
// Every failure is reported as an *Error carrying a Kind. Callers branch on
// the kind with the standard library:
//
//	if errors.Is(err, schemaerrors.ErrContextKey) {
//	    // an expression referenced a context name that is not bound
//	}
//
// # Kinds
//
//   - KindSchemaDefinition: unknown node kind or malformed node shape
//   - KindPluginDefinition: a plugin descriptor could not be resolved into a capability
//   - KindPluginNotFound:   an expression referenced an unregistered plugin
//   - KindContextKey:       an expression referenced an unbound context name
//   - KindAttributeNotFound: a plugin reference named a missing attribute
//   - KindFunctionNotFound: an operator or receiver method could not be resolved
//   - KindNotIterable:      a list node's iter expression did not yield an iterable
//   - KindEmptyExpression:  an expression was the empty sequence
//   - KindInvocation:       a callable rejected its arguments
//   - KindSyntax, KindIO:   a schema document could not be read or parsed
//
// # Suggestions
//
// Unknown function names carry a "Did you mean" hint computed with Levenshtein
// distance over the known names. The hint lives in Error.Suggestion and never
// alters Error.Message.
//
// # Source context
//
// Errors raised while parsing a schema file carry a Location. AddContextToError
// reads the surrounding lines from the file for display by the CLI.
package errors
