// Package history keeps a record of transformation runs.
//
// Every run through the server or the CLI can produce a Record: which schema
// ran, when, how long it took, whether it failed and with what kind of
// error, and SHA-256 hashes of the input context and the result. Payloads
// themselves are never stored, only their hashes and sizes, so records can
// be kept even when the inputs carry personal data.
//
// The package is split like this:
//
//   - history: the Record and Query types and the Storage interface
//   - history/storage: MemoryStorage and SQLiteStorage backends
//   - history/recorder: asynchronous recording of runs
//   - history/retention: age and count based pruning on a cron schedule
//   - history/export: JSON and CSV output of query results
//
// Typical wiring:
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{Path: "data/history.db", WALMode: true})
//	if err != nil {
//		return err
//	}
//	rec := recorder.New(store, nil, logger)
//	defer rec.Close()
//
//	rec.Record(recorder.Run{Schema: "invoice", StartedAt: start, Duration: d, Input: ctx, Output: result})
package history
