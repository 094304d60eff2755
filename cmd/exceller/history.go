package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/exceller/pkg/cli"
	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/history"
	"mercator-hq/exceller/pkg/history/export"
	"mercator-hq/exceller/pkg/history/retention"
	"mercator-hq/exceller/pkg/history/storage"
)

type historyQueryOptions struct {
	schema string
	status string
	since  string
	until  string
	limit  int
	offset int
	order  string
	format string
	output string
}

type historyPruneOptions struct {
	days       int
	maxRecords int64
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and prune run history",
		Long: `Query and prune the history of transformation runs.

History holds one record per run: schema, timing, status, error kind and
SHA-256 hashes of the input and output. Payloads are never stored.`,
	}
	cmd.AddCommand(newHistoryQueryCmd(g), newHistoryPruneCmd(g))
	return cmd
}

func newHistoryQueryCmd(g *globalFlags) *cobra.Command {
	opts := &historyQueryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List recorded runs",
		Long: `List recorded runs, newest first.

Examples:
  # Last 20 failures
  exceller history query --status error --limit 20

  # One schema over a time window, as CSV
  exceller history query --schema invoice --since 2026-10-01T00:00:00Z --format csv -o runs.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewCommandError("history query", queryHistory(cmd.Context(), g, opts, cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}
	cmd.Flags().StringVar(&opts.schema, "schema", "", "filter by schema name")
	cmd.Flags().StringVar(&opts.status, "status", "", "filter by status: success, error")
	cmd.Flags().StringVar(&opts.since, "since", "", "runs started at or after this RFC 3339 time")
	cmd.Flags().StringVar(&opts.until, "until", "", "runs started at or before this RFC 3339 time")
	cmd.Flags().IntVar(&opts.limit, "limit", history.DefaultLimit, "max results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "pagination offset")
	cmd.Flags().StringVar(&opts.order, "order", "desc", "sort order by start time: asc, desc")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json, csv")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newHistoryPruneCmd(g *globalFlags) *cobra.Command {
	opts := &historyPruneOptions{}
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs outside the retention policy",
		Long: `Delete runs older than the retention period and beyond the record cap.

Flags override history.retention from the config file.

Examples:
  exceller history prune
  exceller history prune --days 7 --max-records 10000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewCommandError("history prune", pruneHistory(cmd.Context(), g, opts, cmd.Flags().Changed, cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}
	cmd.Flags().IntVar(&opts.days, "days", 0, "delete runs older than this many days (0 keeps all)")
	cmd.Flags().Int64Var(&opts.maxRecords, "max-records", 0, "keep at most this many runs (0 is unlimited)")
	return cmd
}

func openHistory(g *globalFlags, stderr io.Writer) (*config.Config, history.Storage, *slog.Logger, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.History.Backend == "memory" {
		logger.Warn("History backend is memory; no runs survive between processes")
	}
	st, err := storage.Open(&cfg.History, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, st, logger, nil
}

func queryHistory(ctx context.Context, g *globalFlags, opts *historyQueryOptions, stdout, stderr io.Writer) error {
	q := &history.Query{
		Schema:    opts.schema,
		Status:    opts.status,
		Limit:     opts.limit,
		Offset:    opts.offset,
		SortOrder: opts.order,
	}
	var err error
	if q.StartTime, err = parseTimeFlag("since", opts.since); err != nil {
		return err
	}
	if q.EndTime, err = parseTimeFlag("until", opts.until); err != nil {
		return err
	}
	if err := q.Validate(); err != nil {
		return cli.NewConfigError("query", err.Error())
	}

	_, st, _, err := openHistory(g, stderr)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.Query(ctx, q)
	if err != nil {
		return err
	}

	w := stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if opts.format == "text" {
		return printRecords(w, records)
	}
	exporter, err := export.ForFormat(opts.format, true)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	return exporter.Export(ctx, records, w)
}

func parseTimeFlag(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, cli.NewConfigError(name, fmt.Sprintf("invalid time %q: want RFC 3339", raw))
	}
	return &t, nil
}

func printRecords(w io.Writer, records []*history.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No runs found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tSCHEMA\tSTATUS\tDURATION\tERROR")
	for _, r := range records {
		errText := ""
		if r.Failed() {
			errText = strings.TrimSpace(r.ErrorKind + " " + r.ErrorMessage)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID,
			r.StartedAt.Format(time.RFC3339),
			r.Schema,
			r.Status,
			r.Duration.Round(time.Microsecond),
			errText,
		)
	}
	return tw.Flush()
}

func pruneHistory(ctx context.Context, g *globalFlags, opts *historyPruneOptions, changed func(string) bool, stdout, stderr io.Writer) error {
	cfg, st, logger, err := openHistory(g, stderr)
	if err != nil {
		return err
	}
	defer st.Close()

	rc := retention.ConfigFrom(&cfg.History.Retention)
	if changed("days") {
		rc.RetentionDays = opts.days
	}
	if changed("max-records") {
		rc.MaxRecords = opts.maxRecords
	}

	pruned, err := retention.NewPruner(st, rc, nil, logger).Prune(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ Pruned %d runs\n", pruned)
	return nil
}
