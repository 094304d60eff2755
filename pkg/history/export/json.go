package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/exceller/pkg/history"
)

// JSONExporter writes records as a JSON array.
type JSONExporter struct {
	Pretty bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records to w. No records produce "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*history.Record, w io.Writer) error {
	if records == nil {
		records = []*history.Record{}
	}
	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(records); err != nil {
		return &history.ExportError{Format: "json", RecordCount: len(records), Cause: err}
	}
	return nil
}
