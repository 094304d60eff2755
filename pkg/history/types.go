package history

import (
	"context"
	"io"
	"time"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is the history entry of one transformation run.
type Record struct {
	ID        string        `json:"id"`     // UUID v4
	RunID     string        `json:"run_id"` // Correlates with logs and traces
	Schema    string        `json:"schema"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Status       string `json:"status"`                  // "success" or "error"
	ErrorKind    string `json:"error_kind,omitempty"`    // Kind of a schema error
	ErrorMessage string `json:"error_message,omitempty"` // First line of the error

	InputHash  string `json:"input_hash"`            // SHA-256 of the JSON context
	OutputHash string `json:"output_hash,omitempty"` // SHA-256 of the JSON result
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`

	SchemaVersion string    `json:"schema_version,omitempty"` // Schema set version at run time
	RecordedAt    time.Time `json:"recorded_at"`
}

// Failed reports whether the run ended in an error.
func (r *Record) Failed() bool {
	return r.Status == StatusError
}

// Query filters history records. Zero fields do not filter.
type Query struct {
	Schema string `json:"schema,omitempty"`
	Status string `json:"status,omitempty"` // "success" or "error"

	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	SortOrder string `json:"sort_order,omitempty"` // "asc" or "desc" by start time
}

// Storage persists history records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns the records matching q, newest first unless q asks
	// otherwise. No match yields an empty slice.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of records matching q. Pagination is ignored.
	Count(ctx context.Context, q *Query) (int64, error)

	// Delete removes the records matching q and returns how many went.
	// Pagination is ignored.
	Delete(ctx context.Context, q *Query) (int64, error)

	// Close releases the backend.
	Close() error
}

// Exporter writes records in a particular format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
