package cli

import (
	"errors"
	"fmt"

	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitFailure   = 1 // Unclassified failure
	ExitTransform = 2 // Schema or transformation error
	ExitConfig    = 3 // Invalid configuration or flags
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewCommandError creates a new CommandError. A nil err yields nil.
func NewCommandError(command string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Command: command, Err: err}
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	if schemaerrors.KindOf(err) != "" {
		return ExitTransform
	}
	var list *schemaerrors.ErrorList
	if errors.As(err, &list) {
		return ExitTransform
	}
	return ExitFailure
}
