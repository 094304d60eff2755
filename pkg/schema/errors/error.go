package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind categorizes an error.
type Kind string

const (
	KindSyntax            Kind = "syntax"              // schema document is not valid YAML/JSON
	KindIO                Kind = "io"                  // schema document could not be read
	KindSchemaDefinition  Kind = "schema_definition"   // unknown node kind, malformed node
	KindPluginDefinition  Kind = "plugin_definition"   // plugin descriptor could not be resolved
	KindPluginNotFound    Kind = "plugin_not_found"    // $1.name not in the registry
	KindContextKey        Kind = "context_key"         // $0.name not in the context
	KindAttributeNotFound Kind = "attribute_not_found" // $1.name:attr attribute missing
	KindFunctionNotFound  Kind = "function_not_found"  // operator or .method unresolvable
	KindNotIterable       Kind = "not_iterable"        // list iter target not iterable
	KindEmptyExpression   Kind = "empty_expression"    // expression is []
	KindInvocation        Kind = "invocation"          // callable rejected its arguments
)

type sentinel Kind

func (s sentinel) Error() string { return string(s) }

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrSyntax            error = sentinel(KindSyntax)
	ErrIO                error = sentinel(KindIO)
	ErrSchemaDefinition  error = sentinel(KindSchemaDefinition)
	ErrPluginDefinition  error = sentinel(KindPluginDefinition)
	ErrPluginNotFound    error = sentinel(KindPluginNotFound)
	ErrContextKey        error = sentinel(KindContextKey)
	ErrAttributeNotFound error = sentinel(KindAttributeNotFound)
	ErrFunctionNotFound  error = sentinel(KindFunctionNotFound)
	ErrNotIterable       error = sentinel(KindNotIterable)
	ErrEmptyExpression   error = sentinel(KindEmptyExpression)
	ErrInvocation        error = sentinel(KindInvocation)
)

// Error is a typed error with optional source location and suggestion.
type Error struct {
	Kind       Kind     // Category of error
	Message    string   // Error message
	Location   Location // Source location, when the error came from a schema file
	Context    string   // Surrounding lines of the schema file
	Suggestion string   // Suggested fix (optional)
	Cause      error    // Underlying error (optional)
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// At sets the location and returns the error.
func (e *Error) At(loc Location) *Error {
	e.Location = loc
	return e
}

// WithSuggestion sets the suggestion and returns the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// Error implements the error interface. Errors without location or
// suggestion render on one line.
func (e *Error) Error() string {
	if !e.Location.IsValid() && e.Suggestion == "" && e.Context == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Kind, e.Message))

	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("  --> %s\n", e.Location.String()))
	}

	if e.Context != "" {
		sb.WriteString("  |\n")
		sb.WriteString(e.Context)
		sb.WriteString("  |\n")
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", e.Suggestion))
	}

	return sb.String()
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s, ok := target.(sentinel)
	return ok && Kind(s) == e.Kind
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the message of the first *Error in err's chain, falling
// back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// ErrorList accumulates errors found while parsing a schema document instead
// of failing on the first one.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error.
func (el *ErrorList) AddError(kind Kind, message string, location Location) {
	el.Add(&Error{
		Kind:     kind,
		Message:  message,
		Location: location,
	})
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	if el.Count() == 1 {
		return el.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n\n", el.Count()))

	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("Error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// Is matches when any accumulated error matches target.
func (el *ErrorList) Is(target error) bool {
	for _, err := range el.Errors {
		if err.Is(target) {
			return true
		}
	}
	return false
}

// ToError returns nil if the error list is empty. A list holding a single
// error returns that error directly.
func (el *ErrorList) ToError() error {
	switch el.Count() {
	case 0:
		return nil
	case 1:
		return el.Errors[0]
	}
	return el
}

// ByKind returns all errors of the given kind.
func (el *ErrorList) ByKind(kind Kind) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Kind == kind {
			result = append(result, err)
		}
	}
	return result
}
