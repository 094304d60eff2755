// Package runner executes schemas for the server and the CLI.
//
// A Runner owns everything around a single resolution: the plugin loader,
// a run ID carried in the log context, a trace span, run metrics and the
// history record. The transformation itself is delegated to package
// transform.
package runner
