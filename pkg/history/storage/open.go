package storage

import (
	"fmt"
	"log/slog"

	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/history"
)

// Open creates the backend selected by the history configuration.
func Open(cfg *config.HistoryConfig, logger *slog.Logger) (history.Storage, error) {
	if cfg == nil {
		return NewSQLiteStorage(nil, logger)
	}
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "", "sqlite":
		return NewSQLiteStorage(SQLiteConfigFrom(&cfg.SQLite), logger)
	}
	return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
}
