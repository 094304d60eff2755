package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/exceller/pkg/cli"
	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/telemetry/logging"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "exceller",
		Short: "Exceller - schema-driven JSON transformation",
		Long: `Exceller builds JSON documents from input records using declarative
schemas written in YAML or JSON.

A schema is a tree of literal, expr, tuple, list and object nodes. Expressions
are prefix-notation lists that reference the record ($0.field) and plugin
capabilities ($1.name) such as datetime, math, re and uuid.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.cfgFile, "config", "c", os.Getenv(config.EnvPrefix+"CONFIG"), "config file path (built-in defaults when empty)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newRunCmd(g),
		newValidateCmd(g),
		newServeCmd(g),
		newHistoryCmd(g),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command and exits with the error's exit code.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

// loadConfig reads the config file, if any, with environment overrides.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(g.cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("config", err.Error())
	}
	if g.verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the configured logger writing to w. Commands log to
// stderr so stdout carries only results.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	lc := logging.FromConfig(cfg.Telemetry.Logging)
	lc.Writer = w
	l, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return l.Slog(), nil
}
