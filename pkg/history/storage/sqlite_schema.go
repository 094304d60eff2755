package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Times and durations are stored as integer nanoseconds so that range
// filters and ordering do not depend on timestamp text formats.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    schema_name TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    duration_ns INTEGER NOT NULL,

    status TEXT NOT NULL,
    error_kind TEXT,
    error_message TEXT,

    input_hash TEXT NOT NULL,
    output_hash TEXT,
    input_size INTEGER NOT NULL DEFAULT 0,
    output_size INTEGER NOT NULL DEFAULT 0,

    schema_version TEXT,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_schema ON runs(schema_name);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

const selectSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const runColumns = `id, run_id, schema_name, started_at, duration_ns,
	status, error_kind, error_message,
	input_hash, output_hash, input_size, output_size,
	schema_version, recorded_at`
