package errors

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ExtractContext reads the schema file and returns the lines surrounding
// location, with the offending line marked and a caret under the column.
func ExtractContext(location Location, contextLines int) string {
	if !location.IsValid() || location.File == "" {
		return ""
	}
	data, err := os.ReadFile(location.File)
	if err != nil {
		return ""
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	at := location.Line - 1
	if at >= len(lines) {
		return ""
	}
	first := max(at-contextLines, 0)
	last := min(at+contextLines, len(lines)-1)
	width := len(strconv.Itoa(last + 1))

	var sb strings.Builder
	for i := first; i <= last; i++ {
		marker := "  "
		if i == at {
			marker = "->"
		}
		fmt.Fprintf(&sb, "%s %*d | %s\n", marker, width, i+1, strings.TrimRight(lines[i], "\r"))
		if i == at && location.Column > 0 {
			fmt.Fprintf(&sb, "   %*s | %s^\n", width, "", strings.Repeat(" ", location.Column-1))
		}
	}
	return sb.String()
}

// AddContextToError attaches two lines of source context on each side of the
// error location.
func AddContextToError(err *Error) *Error {
	if err.Location.IsValid() {
		err.Context = ExtractContext(err.Location, 2)
	}
	return err
}
