// Package storage provides the history storage backends.
//
// SQLiteStorage is the durable backend. It uses github.com/mattn/go-sqlite3,
// enables WAL mode and a busy timeout through connection parameters, and
// records a schema version so that future migrations can detect old files.
// MemoryStorage keeps records in process and suits tests and one-shot CLI
// runs.
package storage
