package cli

import (
	"errors"
	"fmt"
	"testing"

	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("schemas.path", "missing required field")

	expected := "config error in schemas.path: missing required field"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestCommandError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := NewCommandError("run", underlying)

	if err.Error() != "run: underlying error" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is() should see through CommandError")
	}
	if NewCommandError("run", nil) != nil {
		t.Error("NewCommandError(nil) should be nil")
	}
}

func TestExitCode(t *testing.T) {
	list := schemaerrors.NewErrorList()
	list.AddError(schemaerrors.KindSyntax, "bad", schemaerrors.Location{})
	list.AddError(schemaerrors.KindSchemaDefinition, "worse", schemaerrors.Location{})

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"config", NewConfigError("format", "bad"), ExitConfig},
		{"wrapped config", fmt.Errorf("flags: %w", NewConfigError("ctx", "bad")), ExitConfig},
		{"schema error", NewCommandError("run", schemaerrors.New(schemaerrors.KindContextKey, "missing")), ExitTransform},
		{"error list", list, ExitTransform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
