// Package retention enforces history retention.
//
// A Pruner deletes records older than the configured number of days and
// then trims the store to its maximum record count, oldest first. A
// Scheduler runs the pruner on a standard five-field cron expression using
// github.com/robfig/cron/v3; "0 3 * * *" prunes daily at 03:00.
package retention
