package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "EXCELLER_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values and validates the result. Environment variables
// are not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides named EXCELLER_SECTION_FIELD (for example
// EXCELLER_SERVER_LISTEN_ADDRESS). Environment variables always take
// precedence over file-based configuration. Validation runs once, after the
// overrides, so a file may leave secrets such as tokens to the environment.
//
// An empty path skips the file and starts from NewDefaultConfig.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg, os.Getenv)
	// Overrides can switch on sections whose defaults depend on them.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// parse decodes a YAML document on top of the boolean defaults so that an
// omitted boolean keeps its default while an explicit false is honoured.
func parse(data []byte) (*Config, error) {
	cfg := newConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies overrides read through getenv. Values that fail
// to parse are ignored and the file value is kept.
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	str := func(name string, dst *string) {
		if val := getenv(EnvPrefix + name); val != "" {
			*dst = val
		}
	}
	dur := func(name string, dst *time.Duration) {
		if val := getenv(EnvPrefix + name); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = d
			}
		}
	}
	integer := func(name string, dst *int) {
		if val := getenv(EnvPrefix + name); val != "" {
			if i, err := strconv.Atoi(val); err == nil {
				*dst = i
			}
		}
	}
	int64s := func(name string, dst *int64) {
		if val := getenv(EnvPrefix + name); val != "" {
			if i, err := strconv.ParseInt(val, 10, 64); err == nil {
				*dst = i
			}
		}
	}
	boolean := func(name string, dst *bool) {
		if val := getenv(EnvPrefix + name); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				*dst = b
			}
		}
	}
	floats := func(name string, dst *float64) {
		if val := getenv(EnvPrefix + name); val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				*dst = f
			}
		}
	}
	list := func(name string, dst *[]string) {
		if val := getenv(EnvPrefix + name); val != "" {
			var out []string
			for _, part := range strings.Split(val, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			*dst = out
		}
	}

	// Server overrides
	str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	dur("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	dur("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	dur("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	int64s("SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)
	list("SERVER_API_KEYS", &cfg.Server.APIKeys)
	str("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	str("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)

	// Schema store overrides
	str("SCHEMAS_PATH", &cfg.Schemas.Path)
	boolean("SCHEMAS_WATCH", &cfg.Schemas.Watch)
	dur("SCHEMAS_DEBOUNCE", &cfg.Schemas.Debounce)
	int64s("SCHEMAS_MAX_FILE_SIZE", &cfg.Schemas.MaxFileSize)
	integer("SCHEMAS_MAX_DEPTH", &cfg.Schemas.MaxDepth)
	list("SCHEMAS_EXTENSIONS", &cfg.Schemas.Extensions)
	str("SCHEMAS_GIT_REPOSITORY", &cfg.Schemas.Git.Repository)
	str("SCHEMAS_GIT_BRANCH", &cfg.Schemas.Git.Branch)
	dur("SCHEMAS_GIT_POLL_INTERVAL", &cfg.Schemas.Git.PollInterval)
	str("SCHEMAS_GIT_AUTH_TOKEN", &cfg.Schemas.Git.Auth.Token)
	str("SCHEMAS_GIT_AUTH_SSH_KEY_PASSPHRASE", &cfg.Schemas.Git.Auth.SSHKeyPassphrase)

	// Plugin overrides
	boolean("PLUGINS_LOOKUP_ENABLED", &cfg.Plugins.Lookup.Enabled)
	str("PLUGINS_LOOKUP_DSN", &cfg.Plugins.Lookup.DSN)
	dur("PLUGINS_LOOKUP_QUERY_TIMEOUT", &cfg.Plugins.Lookup.QueryTimeout)
	integer("PLUGINS_LOOKUP_MAX_ROWS", &cfg.Plugins.Lookup.MaxRows)
	list("PLUGINS_DISABLED", &cfg.Plugins.Disabled)

	// History overrides
	boolean("HISTORY_ENABLED", &cfg.History.Enabled)
	str("HISTORY_BACKEND", &cfg.History.Backend)
	str("HISTORY_SQLITE_PATH", &cfg.History.SQLite.Path)
	boolean("HISTORY_SQLITE_WAL_MODE", &cfg.History.SQLite.WALMode)
	dur("HISTORY_SQLITE_BUSY_TIMEOUT", &cfg.History.SQLite.BusyTimeout)
	integer("HISTORY_RETENTION_DAYS", &cfg.History.Retention.Days)
	integer("HISTORY_RETENTION_MAX_RECORDS", &cfg.History.Retention.MaxRecords)
	str("HISTORY_RETENTION_SCHEDULE", &cfg.History.Retention.Schedule)

	// Telemetry overrides
	str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	boolean("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	boolean("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	str("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	boolean("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	str("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
	str("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	floats("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}
