/*
Package cli provides the helpers shared by the exceller commands.

Output Formatting:

Results print as JSON (default), YAML or text:

	formatter, err := cli.NewFormatter(cli.FormatYAML)
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, result)

YAML output keeps object key order.

Errors and exit codes:

Commands return *CommandError or *ConfigError; ExitCode maps an error to
the process exit status.

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr, "Validating")
	progress.Start(int64(len(files)))
	for i := range files {
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
