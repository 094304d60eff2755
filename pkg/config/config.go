package config

import "time"

// Config is the root configuration of the exceller service and CLI.
type Config struct {
	// Server configures the HTTP transformation service.
	Server ServerConfig `yaml:"server"`

	// Schemas configures where schema documents are loaded from.
	Schemas SchemasConfig `yaml:"schemas"`

	// Plugins configures the capabilities offered to schemas.
	Plugins PluginsConfig `yaml:"plugins"`

	// History configures the run history store.
	History HistoryConfig `yaml:"history"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddress is the host:port the server binds to.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout bounds reading a whole request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing a response.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps the size of a transform request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// APIKeys guards the /v1 routes. Empty leaves them open.
	APIKeys []string `yaml:"api_keys"`

	// TLS serves HTTPS when a certificate is configured.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig points at a PEM certificate and key.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Enabled reports whether a certificate is configured.
func (c TLSConfig) Enabled() bool {
	return c.CertFile != ""
}

// SchemasConfig configures the schema store.
type SchemasConfig struct {
	// Path is a schema file or a directory of schema files.
	Path string `yaml:"path"`

	// Watch reloads schemas when files under Path change.
	Watch bool `yaml:"watch"`

	// Debounce delays a reload until file events settle.
	Debounce time.Duration `yaml:"debounce"`

	// MaxFileSize rejects schema files larger than this many bytes.
	MaxFileSize int64 `yaml:"max_file_size"`

	// MaxDepth rejects schemas nested deeper than this.
	MaxDepth int `yaml:"max_depth"`

	// Extensions lists the file extensions treated as schemas.
	Extensions []string `yaml:"extensions"`

	// Git syncs Path from a Git repository. Unused when Repository is empty.
	Git GitConfig `yaml:"git"`
}

// GitConfig configures a Git repository holding the schemas.
type GitConfig struct {
	// Repository is the clone URL. Local paths are accepted.
	Repository string `yaml:"repository"`

	// Branch is checked out and pulled.
	Branch string `yaml:"branch"`

	// Dir is the schema directory inside the repository.
	Dir string `yaml:"dir"`

	// LocalPath is where the repository is cloned.
	LocalPath string `yaml:"local_path"`

	// Depth limits clone history. 0 clones everything.
	Depth int `yaml:"depth"`

	// PollInterval is how often the remote is pulled. 0 disables polling.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds a single clone or pull.
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures repository credentials.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig configures Git credentials.
type GitAuthConfig struct {
	// Type is "none", "token" or "ssh".
	Type string `yaml:"type"`

	// Token is an HTTPS access token for "token" auth.
	Token string `yaml:"token"`

	// SSHKeyPath is the private key for "ssh" auth.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase unlocks an encrypted SSH key.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// PluginsConfig configures plugin capabilities.
type PluginsConfig struct {
	// Lookup configures the SQL lookup-table plugin.
	Lookup LookupConfig `yaml:"lookup"`

	// Disabled lists built-in modules that schemas may not import.
	Disabled []string `yaml:"disabled"`
}

// LookupConfig configures the lookup plugin.
type LookupConfig struct {
	// Enabled registers the lookup module.
	Enabled bool `yaml:"enabled"`

	// DSN is the SQLite data source name of the lookup database.
	DSN string `yaml:"dsn"`

	// QueryTimeout bounds a single lookup query.
	QueryTimeout time.Duration `yaml:"query_timeout"`

	// MaxRows caps the rows returned by a query.
	MaxRows int `yaml:"max_rows"`
}

// HistoryConfig configures run history.
type HistoryConfig struct {
	// Enabled records every transformation run.
	Enabled bool `yaml:"enabled"`

	// Backend is "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention configures pruning of old records.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig configures the sqlite history backend.
type SQLiteConfig struct {
	// Path is the database file.
	Path string `yaml:"path"`

	// WALMode enables write-ahead logging.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// MaxOpenConns caps open connections.
	MaxOpenConns int `yaml:"max_open_conns"`
}

// RetentionConfig configures history pruning.
type RetentionConfig struct {
	// Days keeps records newer than this many days. Zero keeps everything.
	Days int `yaml:"days"`

	// MaxRecords keeps at most this many of the newest records. Zero means
	// no limit.
	MaxRecords int `yaml:"max_records"`

	// Schedule is the cron expression pruning runs on.
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format is one of "json", "text", "console".
	Format string `yaml:"format"`

	// AddSource includes file and line in log records.
	AddSource bool `yaml:"add_source"`

	// RedactPII masks personal data in logged values.
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom PII redaction patterns.
	// Each pattern has a name, regex, and replacement string.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint.
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path metrics are served on.
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled exports spans for transform runs and HTTP requests.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the host:port of the OTLP gRPC collector.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds a single export.
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name"`

	// Sampler is one of "always", "never", "ratio".
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces kept by the "ratio" sampler.
	SampleRatio float64 `yaml:"sample_ratio"`
}
