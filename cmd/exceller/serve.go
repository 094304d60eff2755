package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/exceller/pkg/cli"
	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/history"
	"mercator-hq/exceller/pkg/history/recorder"
	"mercator-hq/exceller/pkg/history/retention"
	"mercator-hq/exceller/pkg/history/storage"
	"mercator-hq/exceller/pkg/runner"
	"mercator-hq/exceller/pkg/schema/gitsource"
	"mercator-hq/exceller/pkg/schema/store"
	"mercator-hq/exceller/pkg/server"
	"mercator-hq/exceller/pkg/telemetry/health"
	"mercator-hq/exceller/pkg/telemetry/metrics"
	"mercator-hq/exceller/pkg/telemetry/tracing"
)

const healthCheckTimeout = 5 * time.Second

type serveOptions struct {
	listenAddress string
	schemasPath   string
	logLevel      string
	dryRun        bool
}

func newServeCmd(g *globalFlags) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve schemas over HTTP",
		Long: `Load every schema under schemas.path and serve them over HTTP.

When schemas.git.repository is set the schemas are cloned from that
repository and pulled every schemas.git.poll_interval.

Routes:
  POST /v1/transform/{schema}   body {"context": {...}}
  GET  /v1/schemas              loaded schemas
  GET  /v1/runs                 run history (when history is enabled)
  GET  /healthz, /readyz        probes
  GET  /metrics                 Prometheus metrics

Examples:
  # Start with default config
  exceller serve

  # Override listen address and schema directory
  exceller serve --listen 0.0.0.0:8080 --schemas /etc/exceller/schemas

  # Validate config and schemas without starting the server
  exceller serve --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := cli.SetupSignalHandler(cmd.Context())
			defer stop()
			return cli.NewCommandError("serve", serve(ctx, g, opts, cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}

	cmd.Flags().StringVarP(&opts.listenAddress, "listen", "l", "", "override listen address")
	cmd.Flags().StringVar(&opts.schemasPath, "schemas", "", "override schema path")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "load config and schemas, then exit")
	return cmd
}

func serve(ctx context.Context, g *globalFlags, opts *serveOptions, stdout, stderr io.Writer) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if opts.listenAddress != "" {
		cfg.Server.ListenAddress = opts.listenAddress
	}
	if opts.schemasPath != "" {
		cfg.Schemas.Path = opts.schemasPath
	}
	if opts.logLevel != "" {
		cfg.Telemetry.Logging.Level = opts.logLevel
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing, Version)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	var repo *gitsource.Repository
	if cfg.Schemas.Git.Repository != "" && opts.schemasPath == "" {
		if repo, err = cloneSchemas(ctx, cfg.Schemas.Git); err != nil {
			return err
		}
		cfg.Schemas.Path = repo.SchemaDir()
		head, err := repo.Head()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✓ Cloned %s at %s\n", cfg.Schemas.Git.Repository, head.Short())
	}

	schemas := store.New(&cfg.Schemas, logger, store.WithReporter(collector))
	if err := schemas.Load(); err != nil {
		return err
	}
	defer schemas.Close()
	fmt.Fprintf(stdout, "✓ Loaded %d schemas from %s (version %s)\n", len(schemas.List()), cfg.Schemas.Path, schemas.Version())

	if opts.dryRun {
		fmt.Fprintln(stdout, "✓ Configuration valid")
		return nil
	}

	if repo != nil {
		syncer := gitsource.NewSyncer(repo, schemas.Load, gitsource.SyncerConfig{
			Interval:   cfg.Schemas.Git.PollInterval,
			Dir:        cfg.Schemas.Git.Dir,
			Extensions: cfg.Schemas.Extensions,
		}, logger)
		go syncer.Run(ctx)
	}

	if cfg.Schemas.Watch {
		go func() {
			if err := schemas.Watch(ctx); err != nil {
				logger.Error("Schema watcher stopped", "error", err)
			}
		}()
	}

	loader, closer, err := runner.NewLoader(ctx, &cfg.Plugins, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	checker := health.New(healthCheckTimeout)
	checker.Register("schemas", schemas.Check)

	runOpts := []runner.Option{
		runner.WithLoader(loader),
		runner.WithMetrics(collector),
		runner.WithTracer(tracer),
		runner.WithLogger(logger),
	}

	var hist history.Storage
	if cfg.History.Enabled {
		hist, err = storage.Open(&cfg.History, logger)
		if err != nil {
			return err
		}
		defer hist.Close()
		if p, ok := hist.(interface{ Ping(context.Context) error }); ok {
			checker.Register("history", p.Ping)
		}

		rec := recorder.New(hist, recorder.DefaultConfig(), logger, recorder.WithReporter(collector))
		defer rec.Close()
		runOpts = append(runOpts, runner.WithRecorder(rec))

		pruner := retention.NewPruner(hist, retention.ConfigFrom(&cfg.History.Retention), collector, logger)
		scheduler := retention.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()
		fmt.Fprintf(stdout, "✓ History recording to %s backend\n", cfg.History.Backend)
	}

	srv, err := server.New(cfg, server.Deps{
		Schemas:   schemas,
		Runner:    runner.New(runOpts...),
		History:   hist,
		Health:    checker,
		Metrics:   collector.Handler(),
		Tracer:    tracer,
		Logger:    logger,
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "✓ Server listening on %s\n", cfg.Server.ListenAddress)
	return srv.Start(ctx)
}

func cloneSchemas(ctx context.Context, cfg config.GitConfig) (*gitsource.Repository, error) {
	repo, err := gitsource.NewRepository(&cfg)
	if err != nil {
		return nil, err
	}
	if err := repo.Clone(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}
