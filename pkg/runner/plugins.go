package runner

import (
	"context"
	"io"
	"log/slog"

	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/plugins/lookup"
	"mercator-hq/exceller/pkg/plugins/stdlib"
	"mercator-hq/exceller/pkg/transform/plugin"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLoader builds the plugin loader for cfg: the built-in modules minus the
// disabled ones, plus the lookup module when it is enabled. Close the
// returned closer to release the lookup database.
func NewLoader(ctx context.Context, cfg *config.PluginsConfig, logger *slog.Logger) (plugin.Loader, io.Closer, error) {
	if cfg == nil {
		return stdlib.Loader(), nopCloser{}, nil
	}
	l := stdlib.Loader(cfg.Disabled...)
	if !cfg.Lookup.Enabled {
		return l, nopCloser{}, nil
	}

	db, err := lookup.Open(ctx, lookup.Config{
		DSN:          cfg.Lookup.DSN,
		QueryTimeout: cfg.Lookup.QueryTimeout,
		MaxRows:      cfg.Lookup.MaxRows,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	l.Register(lookup.ModuleName, db.Module())
	return l, db, nil
}
