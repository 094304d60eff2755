package lookup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/exceller/pkg/transform/value"
)

// ModuleName is the import path the lookup capability is registered under.
const ModuleName = "lookup"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config configures the lookup database.
type Config struct {
	// DSN is the SQLite data source, such as a file path or
	// "file:codes.db?mode=ro".
	DSN string

	// QueryTimeout bounds each query.
	// Default: 5 seconds
	QueryTimeout time.Duration

	// MaxRows caps the rows returned by query.
	// Default: 10000
	MaxRows int
}

// DB is an open lookup database.
type DB struct {
	db      *sql.DB
	timeout time.Duration
	maxRows int
	logger  *slog.Logger
}

// Open opens the database and verifies the connection.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("lookup dsn cannot be empty")
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 5 * time.Second
	}
	if cfg.MaxRows == 0 {
		cfg.MaxRows = 10000
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open lookup database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to lookup database: %w", err)
	}

	return &DB{db: db, timeout: cfg.QueryTimeout, maxRows: cfg.MaxRows, logger: logger}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// SQL returns the underlying handle.
func (d *DB) SQL() *sql.DB { return d.db }

// Query runs q and returns at most MaxRows rows as ordered maps keyed by
// column name.
func (d *DB) Query(q string, args ...any) ([]any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, q, toSQLArgs(args)...)
	if err != nil {
		return nil, fmt.Errorf("lookup query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("lookup query failed: %w", err)
	}

	out := make([]any, 0)
	for rows.Next() {
		if len(out) >= d.maxRows {
			d.logger.Warn("lookup result truncated", "max_rows", d.maxRows)
			break
		}
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("lookup scan failed: %w", err)
		}
		row := value.NewMap()
		for i, col := range cols {
			row.Set(col, fromSQL(cells[i]))
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup query failed: %w", err)
	}
	return out, nil
}

// One returns the first row of q, or nil when there is none.
func (d *DB) One(q string, args ...any) (any, error) {
	rows, err := d.Query(q, args...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Scalar returns the first column of the first row of q, or nil.
func (d *DB) Scalar(q string, args ...any) (any, error) {
	row, err := d.One(q, args...)
	if err != nil || row == nil {
		return nil, err
	}
	m := row.(*value.Map)
	keys := m.Keys()
	if len(keys) == 0 {
		return nil, nil
	}
	v, _ := m.Get(keys[0])
	return v, nil
}

// Get returns valueColumn of the row of table whose keyColumn equals key.
func (d *DB) Get(table, keyColumn string, key any, valueColumn string) (any, error) {
	for _, id := range []string{table, keyColumn, valueColumn} {
		if !identifier.MatchString(id) {
			return nil, fmt.Errorf("invalid identifier %q", id)
		}
	}
	q := fmt.Sprintf(`SELECT "%s" FROM "%s" WHERE "%s" = ? LIMIT 1`, valueColumn, table, keyColumn)
	return d.Scalar(q, key)
}

// Module returns the lookup namespace bound to d.
func (d *DB) Module() *value.Namespace {
	queryFn := func(fn func(q string, args ...any) (any, error)) func(args []any) (any, error) {
		return func(args []any) (any, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("expected a query")
			}
			q, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("query must be a string, got %s", value.KindOf(args[0]))
			}
			return fn(q, args[1:]...)
		}
	}
	return value.NewNamespace(ModuleName, map[string]any{
		"query": value.NewFunc("lookup.query", queryFn(func(q string, args ...any) (any, error) {
			return d.Query(q, args...)
		})),
		"one":    value.NewFunc("lookup.one", queryFn(d.One)),
		"scalar": value.NewFunc("lookup.scalar", queryFn(d.Scalar)),
		"get": value.NewFunc("lookup.get", func(args []any) (any, error) {
			if len(args) != 4 {
				return nil, fmt.Errorf("expected 4 arguments (table, key_column, key, value_column), got %d", len(args))
			}
			names := make([]string, 0, 3)
			for _, i := range []int{0, 1, 3} {
				s, ok := args[i].(string)
				if !ok {
					return nil, fmt.Errorf("argument %d must be a string, got %s", i+1, value.KindOf(args[i]))
				}
				names = append(names, s)
			}
			return d.Get(names[0], names[1], args[2], names[2])
		}),
	})
}

func toSQLArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case nil, bool, int64, float64, string:
			out[i] = v
		case fmt.Stringer:
			out[i] = v.String()
		default:
			out[i] = value.Repr(v)
		}
	}
	return out
}

func fromSQL(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}
