package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/history"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file. Its directory is created if missing.
	Path string

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int

	// WALMode enables write-ahead logging.
	WALMode bool

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the configuration used when none is given.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         config.DefaultHistorySQLitePath,
		MaxOpenConns: config.DefaultHistorySQLiteOpenConns,
		WALMode:      true,
		BusyTimeout:  config.DefaultHistorySQLiteBusyTimeout,
	}
}

// SQLiteConfigFrom converts the history.sqlite configuration section.
func SQLiteConfigFrom(cfg *config.SQLiteConfig) *SQLiteConfig {
	sc := DefaultSQLiteConfig()
	if cfg == nil {
		return sc
	}
	if cfg.Path != "" {
		sc.Path = cfg.Path
	}
	if cfg.MaxOpenConns > 0 {
		sc.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.BusyTimeout > 0 {
		sc.BusyTimeout = cfg.BusyTimeout
	}
	sc.WALMode = cfg.WALMode
	return sc
}

// SQLiteStorage stores records in a SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database and creates the schema.
func NewSQLiteStorage(cfg *SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "history.storage.sqlite")

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, history.NewStorageError("sqlite", "open", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, history.NewStorageError("sqlite", "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	s := &SQLiteStorage{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite history storage initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// dsn carries the pragmas as connection parameters so every pooled
// connection gets them.
func dsn(cfg *SQLiteConfig) string {
	params := []string{fmt.Sprintf("_busy_timeout=%d", cfg.BusyTimeout.Milliseconds())}
	if cfg.WALMode {
		params = append(params, "_journal_mode=WAL")
	}
	return cfg.Path + "?" + strings.Join(params, "&")
}

func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return history.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return history.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(selectSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return history.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return history.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	s.logger.Debug("History schema version verified", "version", version)
	return nil
}

// Store inserts record.
func (s *SQLiteStorage) Store(ctx context.Context, r *history.Record) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.RunID, r.Schema, r.StartedAt.UnixNano(), int64(r.Duration),
		r.Status, nullable(r.ErrorKind), nullable(r.ErrorMessage),
		r.InputHash, nullable(r.OutputHash), r.InputSize, r.OutputSize,
		nullable(r.SchemaVersion), r.RecordedAt.UnixNano(),
	)
	if err != nil {
		return history.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query returns the matching records.
func (s *SQLiteStorage) Query(ctx context.Context, q *history.Query) ([]*history.Record, error) {
	if q == nil {
		q = &history.Query{}
	}
	where, args := whereClause(q)

	order := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		order = "ASC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = history.DefaultLimit
	}

	stmt := "SELECT " + runColumns + " FROM runs" + where +
		fmt.Sprintf(" ORDER BY started_at %s, id %s LIMIT %d", order, order, limit)
	if q.Offset > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, history.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*history.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, history.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, history.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of matching records.
func (s *SQLiteStorage) Count(ctx context.Context, q *history.Query) (int64, error) {
	where, args := whereClause(q)
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs"+where, args...).Scan(&n); err != nil {
		return 0, history.NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// Delete removes the matching records.
func (s *SQLiteStorage) Delete(ctx context.Context, q *history.Query) (int64, error) {
	where, args := whereClause(q)
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs"+where, args...)
	if err != nil {
		return 0, history.NewStorageError("sqlite", "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, history.NewStorageError("sqlite", "delete", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return history.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return history.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite history storage closed")
	return nil
}

func whereClause(q *history.Query) (string, []any) {
	if q == nil {
		return "", nil
	}
	var conds []string
	var args []any

	if q.Schema != "" {
		conds = append(conds, "schema_name = ?")
		args = append(args, q.Schema)
	}
	if q.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, q.Status)
	}
	if q.StartTime != nil {
		conds = append(conds, "started_at >= ?")
		args = append(args, q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		conds = append(conds, "started_at <= ?")
		args = append(args, q.EndTime.UnixNano())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanRecord(rows *sql.Rows) (*history.Record, error) {
	var (
		r                                            history.Record
		startedAt, duration, recordedAt              int64
		errorKind, errorMessage, outputHash, version sql.NullString
	)
	err := rows.Scan(
		&r.ID, &r.RunID, &r.Schema, &startedAt, &duration,
		&r.Status, &errorKind, &errorMessage,
		&r.InputHash, &outputHash, &r.InputSize, &r.OutputSize,
		&version, &recordedAt,
	)
	if err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(0, startedAt).UTC()
	r.Duration = time.Duration(duration)
	r.RecordedAt = time.Unix(0, recordedAt).UTC()
	r.ErrorKind = errorKind.String
	r.ErrorMessage = errorMessage.String
	r.OutputHash = outputHash.String
	r.SchemaVersion = version.String
	return &r, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
