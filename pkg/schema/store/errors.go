package store

import (
	"fmt"
	"strings"
)

// LoadError reports a schema file that could not be read or parsed.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %q: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %q: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NotFoundError reports a lookup of an unknown schema name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("schema %q not found", e.Name)
}

// ErrorList collects the per-file failures of a directory load.
type ErrorList struct {
	Errors []error
}

// Add appends err.
func (l *ErrorList) Add(err error) {
	l.Errors = append(l.Errors, err)
}

// HasErrors reports whether any error was collected.
func (l *ErrorList) HasErrors() bool {
	return len(l.Errors) > 0
}

func (l *ErrorList) Error() string {
	if len(l.Errors) == 1 {
		return l.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d schemas failed to load:", len(l.Errors))
	for _, err := range l.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (l *ErrorList) Unwrap() []error {
	return l.Errors
}
