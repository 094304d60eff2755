package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/exceller/pkg/cli"
	"mercator-hq/exceller/pkg/history/recorder"
	"mercator-hq/exceller/pkg/history/storage"
	"mercator-hq/exceller/pkg/plugins/stdlib"
	"mercator-hq/exceller/pkg/runner"
	"mercator-hq/exceller/pkg/schema/store"
	"mercator-hq/exceller/pkg/transform/value"
)

type runOptions struct {
	schema string
	input  string
	ctx    []string
	format string
	record bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Transform one record with a schema",
		Long: `Resolve a schema against a JSON record and print the result.

The record is read from --input ("-" for stdin). --ctx sets or overrides
top-level context keys; values that parse as JSON keep their type, anything
else is a string.

Examples:
  # Transform a record file
  exceller run --schema schemas/invoice.yaml --input record.json

  # Pipe a record and override a key
  cat record.json | exceller run -s invoice.yaml -i - --ctx currency='"EUR"'

  # YAML output, recorded into run history
  exceller run -s invoice.yaml -i record.json --format yaml --record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewCommandError("run", runTransform(cmd.Context(), g, opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}

	cmd.Flags().StringVarP(&opts.schema, "schema", "s", "", "schema file (required)")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", `JSON record file, "-" for stdin (empty context when unset)`)
	cmd.Flags().StringArrayVar(&opts.ctx, "ctx", nil, "context override key=value (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(cli.FormatJSON), "output format: json, yaml, text")
	cmd.Flags().BoolVar(&opts.record, "record", false, "record the run into history")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func runTransform(ctx context.Context, g *globalFlags, opts *runOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(opts.format))
	if err != nil {
		return err
	}
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}

	entry, err := store.NewLoader(store.LoaderConfigFrom(&cfg.Schemas)).LoadFile(opts.schema)
	if err != nil {
		return err
	}

	record, err := readRecord(opts.input, stdin)
	if err != nil {
		return err
	}
	if err := applyContextFlags(record, opts.ctx); err != nil {
		return err
	}

	loader, closer, err := runner.NewLoader(ctx, &cfg.Plugins, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	runOpts := []runner.Option{runner.WithLoader(loader), runner.WithLogger(logger)}
	if opts.record {
		hist, err := storage.Open(&cfg.History, logger)
		if err != nil {
			return err
		}
		defer hist.Close()
		rec := recorder.New(hist, recorder.DefaultConfig(), logger)
		defer rec.Close()
		runOpts = append(runOpts, runner.WithRecorder(rec))
	}

	res, err := runner.New(runOpts...).Run(ctx, runner.Request{
		Schema:        entry.Name,
		SchemaVersion: entry.Hash,
		Node:          entry.Node,
		Context:       record,
	})
	if err != nil {
		return err
	}
	return formatter.FormatTo(stdout, res.Value)
}

// readRecord decodes the input record. An empty path is an empty record.
func readRecord(path string, stdin io.Reader) (*value.Map, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "":
		return value.NewMap(), nil
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return runner.DecodeContext(data)
}

// applyContextFlags sets each key=value pair on record.
func applyContextFlags(record *value.Map, pairs []string) error {
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return cli.NewConfigError("ctx", fmt.Sprintf("expected key=value, got %q", pair))
		}
		v, err := stdlib.DecodeJSON([]byte(raw))
		if err != nil {
			v = raw
		}
		record.Set(key, v)
	}
	return nil
}
