package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"mercator-hq/exceller/pkg/history"
)

var csvHeader = []string{
	"id", "run_id", "schema", "started_at", "duration_ms",
	"status", "error_kind", "error_message",
	"input_hash", "output_hash", "input_size", "output_size",
	"schema_version", "recorded_at",
}

// CSVExporter writes one row per record.
type CSVExporter struct {
	IncludeHeader bool
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes records to w.
func (e *CSVExporter) Export(ctx context.Context, records []*history.Record, w io.Writer) error {
	cw := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := cw.Write(csvHeader); err != nil {
			return &history.ExportError{Format: "csv", RecordCount: len(records), Cause: err}
		}
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cw.Write(row(r)); err != nil {
			return &history.ExportError{Format: "csv", RecordCount: len(records), Cause: err}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return &history.ExportError{Format: "csv", RecordCount: len(records), Cause: err}
	}
	return nil
}

func row(r *history.Record) []string {
	return []string{
		r.ID,
		r.RunID,
		r.Schema,
		r.StartedAt.Format(time.RFC3339Nano),
		strconv.FormatFloat(float64(r.Duration)/float64(time.Millisecond), 'f', 3, 64),
		r.Status,
		r.ErrorKind,
		r.ErrorMessage,
		r.InputHash,
		r.OutputHash,
		strconv.Itoa(r.InputSize),
		strconv.Itoa(r.OutputSize),
		r.SchemaVersion,
		r.RecordedAt.Format(time.RFC3339Nano),
	}
}
