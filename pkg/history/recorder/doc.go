// Package recorder records transformation runs into history storage.
//
// Build turns a Run into a history.Record: it assigns a UUID v4, hashes the
// input context and the result with SHA-256 over their JSON encoding, and
// stores the error kind and the first line of the message for failed runs.
// Record queues the record and a single worker writes it, so callers never
// wait on the database. Close drains the queue.
package recorder
