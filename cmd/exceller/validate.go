package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/exceller/pkg/cli"
	"mercator-hq/exceller/pkg/schema/store"
)

type validateOptions struct {
	format   string
	progress bool
}

// validationResult is the outcome for one schema file.
type validationResult struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate <file|dir>...",
		Short: "Check schema files for errors",
		Long: `Parse schema files and report structural errors with their location.

Directories are searched recursively for files with a schema extension.
The command fails when any file is invalid.

Examples:
  exceller validate schemas/invoice.yaml
  exceller validate schemas/ --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewCommandError("validate", validateSchemas(g, opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(cli.FormatText), "output format: text, json, yaml")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "show progress on stderr")
	return cmd
}

func validateSchemas(g *globalFlags, opts *validateOptions, paths []string, stdout, stderr io.Writer) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	loader := store.NewLoader(store.LoaderConfigFrom(&cfg.Schemas))

	var progress cli.ProgressReporter
	if opts.progress {
		progress = cli.NewProgressReporter(stderr, "Validating")
		progress.Start(int64(len(paths)))
	}

	var (
		results  []validationResult
		firstErr error
	)
	for i, path := range paths {
		entries, err := loader.Load(path)
		for _, e := range entries {
			results = append(results, validationResult{Path: e.Path, Name: e.Name, Valid: true})
		}
		for _, ferr := range splitLoadErrors(err) {
			if firstErr == nil {
				firstErr = ferr
			}
			results = append(results, validationResult{Path: failedPath(ferr, path), Error: ferr.Error()})
		}
		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}

	if err := printValidation(stdout, opts.format, results); err != nil {
		return err
	}

	invalid := 0
	for _, r := range results {
		if !r.Valid {
			invalid++
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d schema files invalid: %w", invalid, len(results), firstErr)
	}
	return nil
}

func printValidation(w io.Writer, format string, results []validationResult) error {
	if cli.OutputFormat(format) != cli.FormatText {
		formatter, err := cli.NewFormatter(cli.OutputFormat(format))
		if err != nil {
			return err
		}
		if results == nil {
			results = []validationResult{}
		}
		return formatter.FormatTo(w, results)
	}
	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", r.Name, r.Path)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n  %s\n", r.Path, r.Error)
	}
	return nil
}

// splitLoadErrors flattens a directory load failure into per-file errors.
func splitLoadErrors(err error) []error {
	if err == nil {
		return nil
	}
	var list *store.ErrorList
	if errors.As(err, &list) {
		return list.Errors
	}
	return []error{err}
}

func failedPath(err error, fallback string) string {
	var le *store.LoadError
	if errors.As(err, &le) {
		return le.Path
	}
	return fallback
}
