package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(NewDefaultConfig()); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Server.ListenAddress = ""
	cfg.History.Backend = "redis"
	cfg.Telemetry.Logging.Level = "loud"

	err := Validate(cfg)
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(verr.Errors), verr.Errors)
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		wantError  bool
		errorField string
	}{
		{
			name:       "listen address without port",
			mutate:     func(c *Config) { c.Server.ListenAddress = "localhost" },
			wantError:  true,
			errorField: "server.listen_address",
		},
		{
			name:   "listen address any host",
			mutate: func(c *Config) { c.Server.ListenAddress = ":8080" },
		},
		{
			name:       "negative read timeout",
			mutate:     func(c *Config) { c.Server.ReadTimeout = -time.Second },
			wantError:  true,
			errorField: "server.read_timeout",
		},
		{
			name:       "negative body size",
			mutate:     func(c *Config) { c.Server.MaxBodyBytes = -1 },
			wantError:  true,
			errorField: "server.max_body_bytes",
		},
		{
			name:       "blank api key",
			mutate:     func(c *Config) { c.Server.APIKeys = []string{"k1", " "} },
			wantError:  true,
			errorField: "server.api_keys[1]",
		},
		{
			name:       "tls cert without key",
			mutate:     func(c *Config) { c.Server.TLS.CertFile = "server.crt" },
			wantError:  true,
			errorField: "server.tls",
		},
		{
			name: "tls pair",
			mutate: func(c *Config) {
				c.Server.TLS = TLSConfig{CertFile: "server.crt", KeyFile: "server.key"}
			},
		},
		{
			name:       "empty schema path",
			mutate:     func(c *Config) { c.Schemas.Path = "" },
			wantError:  true,
			errorField: "schemas.path",
		},
		{
			name:       "extension without dot",
			mutate:     func(c *Config) { c.Schemas.Extensions = []string{".json", "yaml"} },
			wantError:  true,
			errorField: "schemas.extensions[1]",
		},
		{
			name: "git repository with defaults",
			mutate: func(c *Config) {
				c.Schemas.Git.Repository = "https://example.com/schemas.git"
				ApplyDefaults(c)
			},
		},
		{
			name: "git token auth without token",
			mutate: func(c *Config) {
				c.Schemas.Git.Repository = "https://example.com/schemas.git"
				c.Schemas.Git.Auth.Type = "token"
				ApplyDefaults(c)
			},
			wantError:  true,
			errorField: "schemas.git.auth.token",
		},
		{
			name: "git dir escapes repository",
			mutate: func(c *Config) {
				c.Schemas.Git.Repository = "https://example.com/schemas.git"
				c.Schemas.Git.Dir = "../outside"
				ApplyDefaults(c)
			},
			wantError:  true,
			errorField: "schemas.git.dir",
		},
		{
			name: "git unknown auth type",
			mutate: func(c *Config) {
				c.Schemas.Git.Repository = "https://example.com/schemas.git"
				c.Schemas.Git.Auth.Type = "kerberos"
				ApplyDefaults(c)
			},
			wantError:  true,
			errorField: "schemas.git.auth.type",
		},
		{
			name:       "lookup enabled without dsn",
			mutate:     func(c *Config) { c.Plugins.Lookup.Enabled = true },
			wantError:  true,
			errorField: "plugins.lookup.dsn",
		},
		{
			name: "lookup enabled with dsn",
			mutate: func(c *Config) {
				c.Plugins.Lookup.Enabled = true
				c.Plugins.Lookup.DSN = "file::memory:"
			},
		},
		{
			name:       "blank disabled module",
			mutate:     func(c *Config) { c.Plugins.Disabled = []string{" "} },
			wantError:  true,
			errorField: "plugins.disabled[0]",
		},
		{
			name:       "unknown history backend",
			mutate:     func(c *Config) { c.History.Backend = "postgres" },
			wantError:  true,
			errorField: "history.backend",
		},
		{
			name: "unknown backend ignored when history disabled",
			mutate: func(c *Config) {
				c.History.Enabled = false
				c.History.Backend = "postgres"
			},
		},
		{
			name:       "sqlite without path",
			mutate:     func(c *Config) { c.History.SQLite.Path = "" },
			wantError:  true,
			errorField: "history.sqlite.path",
		},
		{
			name: "memory backend needs no path",
			mutate: func(c *Config) {
				c.History.Backend = "memory"
				c.History.SQLite.Path = ""
			},
		},
		{
			name:       "bad cron schedule",
			mutate:     func(c *Config) { c.History.Retention.Schedule = "every day" },
			wantError:  true,
			errorField: "history.retention.schedule",
		},
		{
			name:       "negative max records",
			mutate:     func(c *Config) { c.History.Retention.MaxRecords = -5 },
			wantError:  true,
			errorField: "history.retention.max_records",
		},
		{
			name:   "level is case-insensitive",
			mutate: func(c *Config) { c.Telemetry.Logging.Level = "DEBUG" },
		},
		{
			name:       "unknown format",
			mutate:     func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantError:  true,
			errorField: "telemetry.logging.format",
		},
		{
			name: "bad redact pattern",
			mutate: func(c *Config) {
				c.Telemetry.Logging.RedactPatterns = []RedactPattern{{Name: "broken", Pattern: "(["}}
			},
			wantError:  true,
			errorField: "telemetry.logging.redact_patterns[0].pattern",
		},
		{
			name: "unnamed redact pattern",
			mutate: func(c *Config) {
				c.Telemetry.Logging.RedactPatterns = []RedactPattern{{Pattern: `\d+`}}
			},
			wantError:  true,
			errorField: "telemetry.logging.redact_patterns[0].name",
		},
		{
			name:       "relative metrics path",
			mutate:     func(c *Config) { c.Telemetry.Metrics.Path = "metrics" },
			wantError:  true,
			errorField: "telemetry.metrics.path",
		},
		{
			name: "tracing sampler unknown",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Sampler = "sometimes"
			},
			wantError:  true,
			errorField: "telemetry.tracing.sampler",
		},
		{
			name:       "sample ratio out of range",
			mutate:     func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			wantError:  true,
			errorField: "telemetry.tracing.sample_ratio",
		},
		{
			name: "metrics path ignored when disabled",
			mutate: func(c *Config) {
				c.Telemetry.Metrics.Enabled = false
				c.Telemetry.Metrics.Path = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)

			if !tt.wantError {
				if err != nil {
					t.Errorf("expected no validation error, got: %v", err)
				}
				return
			}
			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.errorField {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got errors: %v", tt.errorField, verr.Errors)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      ValidationError
		contains string
	}{
		{
			name:     "empty errors",
			err:      ValidationError{Errors: []FieldError{}},
			contains: "configuration validation failed",
		},
		{
			name: "single error",
			err: ValidationError{
				Errors: []FieldError{{Field: "server.listen_address", Message: "required"}},
			},
			contains: "server.listen_address: required",
		},
		{
			name: "multiple errors",
			err: ValidationError{
				Errors: []FieldError{
					{Field: "server.listen_address", Message: "required"},
					{Field: "schemas.path", Message: "required"},
				},
			},
			contains: "2 errors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := tt.err.Error(); !strings.Contains(msg, tt.contains) {
				t.Errorf("expected error message to contain %q, got: %s", tt.contains, msg)
			}
		})
	}
}
