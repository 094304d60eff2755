package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxBodyBytes    = int64(10 << 20) // 10MB

	// Schema store defaults
	DefaultSchemasPath       = "./schemas"
	DefaultSchemasDebounce   = 250 * time.Millisecond
	DefaultSchemaMaxFileSize = int64(1 << 20) // 1MB
	DefaultSchemaMaxDepth    = 64

	// Git schema source defaults
	DefaultGitBranch    = "main"
	DefaultGitLocalPath = "data/schemas-git"
	DefaultGitTimeout   = 30 * time.Second

	// Lookup plugin defaults
	DefaultLookupQueryTimeout = 5 * time.Second
	DefaultLookupMaxRows      = 1000

	// History defaults
	DefaultHistoryBackend           = "sqlite"
	DefaultHistorySQLitePath        = "data/history.db"
	DefaultHistorySQLiteBusyTimeout = 5 * time.Second
	DefaultHistorySQLiteOpenConns   = 4
	DefaultHistoryRetentionDays     = 30
	DefaultHistoryRetentionSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "exceller"
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingTimeout   = 10 * time.Second
	DefaultTracingService   = "exceller"
	DefaultTracingSampler   = "ratio"
	DefaultTracingRatio     = 1.0
)

// DefaultSchemaExtensions are the file extensions the schema store loads.
var DefaultSchemaExtensions = []string{".yaml", ".yml", ".json"}

// NewDefaultConfig returns a configuration with every default applied.
func NewDefaultConfig() *Config {
	cfg := newConfig()
	ApplyDefaults(cfg)
	return cfg
}

// newConfig returns an empty configuration with the boolean defaults set.
func newConfig() *Config {
	cfg := &Config{}
	cfg.History.Enabled = true
	cfg.History.SQLite.WALMode = true
	cfg.Telemetry.Logging.RedactPII = true
	cfg.Telemetry.Metrics.Enabled = true
	return cfg
}

// ApplyDefaults sets default values for every unset field. Fields that
// already hold a value are left alone, so applying defaults twice is a no-op.
// Booleans cannot be told apart from an explicit false and are not defaulted
// here; NewDefaultConfig sets them.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// Schema store defaults
	if cfg.Schemas.Path == "" {
		cfg.Schemas.Path = DefaultSchemasPath
	}
	if cfg.Schemas.Debounce == 0 {
		cfg.Schemas.Debounce = DefaultSchemasDebounce
	}
	if cfg.Schemas.MaxFileSize == 0 {
		cfg.Schemas.MaxFileSize = DefaultSchemaMaxFileSize
	}
	if cfg.Schemas.MaxDepth == 0 {
		cfg.Schemas.MaxDepth = DefaultSchemaMaxDepth
	}
	if cfg.Schemas.Git.Repository != "" {
		if cfg.Schemas.Git.Branch == "" {
			cfg.Schemas.Git.Branch = DefaultGitBranch
		}
		if cfg.Schemas.Git.LocalPath == "" {
			cfg.Schemas.Git.LocalPath = DefaultGitLocalPath
		}
		if cfg.Schemas.Git.Timeout == 0 {
			cfg.Schemas.Git.Timeout = DefaultGitTimeout
		}
		if cfg.Schemas.Git.Auth.Type == "" {
			cfg.Schemas.Git.Auth.Type = "none"
		}
	}
	if len(cfg.Schemas.Extensions) == 0 {
		cfg.Schemas.Extensions = append([]string(nil), DefaultSchemaExtensions...)
	}

	// Lookup plugin defaults
	if cfg.Plugins.Lookup.QueryTimeout == 0 {
		cfg.Plugins.Lookup.QueryTimeout = DefaultLookupQueryTimeout
	}
	if cfg.Plugins.Lookup.MaxRows == 0 {
		cfg.Plugins.Lookup.MaxRows = DefaultLookupMaxRows
	}

	// History defaults
	if cfg.History.Backend == "" {
		cfg.History.Backend = DefaultHistoryBackend
	}
	if cfg.History.SQLite.Path == "" {
		cfg.History.SQLite.Path = DefaultHistorySQLitePath
	}
	if cfg.History.SQLite.BusyTimeout == 0 {
		cfg.History.SQLite.BusyTimeout = DefaultHistorySQLiteBusyTimeout
	}
	if cfg.History.SQLite.MaxOpenConns == 0 {
		cfg.History.SQLite.MaxOpenConns = DefaultHistorySQLiteOpenConns
	}
	if cfg.History.Retention.Days == 0 {
		cfg.History.Retention.Days = DefaultHistoryRetentionDays
	}
	if cfg.History.Retention.Schedule == "" {
		cfg.History.Retention.Schedule = DefaultHistoryRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
		if cfg.Telemetry.Tracing.SampleRatio == 0 {
			cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
		}
	}
}
