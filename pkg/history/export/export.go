// Package export writes history records as JSON or CSV.
package export

import (
	"fmt"

	"mercator-hq/exceller/pkg/history"
)

// ForFormat returns the exporter for "json" or "csv".
func ForFormat(format string, pretty bool) (history.Exporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(pretty), nil
	case "csv":
		return NewCSVExporter(true), nil
	}
	return nil, fmt.Errorf("unsupported export format %q (must be json or csv)", format)
}
