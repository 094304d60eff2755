package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestSimpleProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "Validating")

	progress.Start(4)
	progress.Update(2)
	progress.Finish()

	output := buf.String()
	for _, want := range []string{"Validating:", "2/4", "4/4"} {
		if !strings.Contains(output, want) {
			t.Errorf("output %q lacks %q", output, want)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("Finish() should end the line")
	}
}

func TestSimpleProgress_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "")

	progress.Start(0)
	progress.Update(0)
	progress.Finish()

	if buf.String() != "\n" {
		t.Errorf("output = %q, want a bare newline", buf.String())
	}
}

func TestSimpleProgress_Clamp(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "").(*SimpleProgress)

	progress.Start(2)
	progress.Update(10)
	if progress.current != 2 {
		t.Errorf("current = %d, want clamped to 2", progress.current)
	}
	if !strings.Contains(buf.String(), "Progress: ") {
		t.Errorf("default label missing: %q", buf.String())
	}
}

func TestSimpleProgress_Error(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "Loading")
	progress.Start(1)
	progress.Error(errors.New("disk full"))

	if !strings.Contains(buf.String(), "Error: disk full") {
		t.Errorf("output = %q", buf.String())
	}
}
