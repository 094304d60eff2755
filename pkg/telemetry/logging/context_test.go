package logging

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if GetRunID(ctx) != "" || GetSchema(ctx) != "" || GetRequestID(ctx) != "" {
		t.Fatal("empty context carries fields")
	}

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithRunID(ctx, "run-1")
	ctx = WithSchema(ctx, "orders")

	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q", got)
	}
	if got := GetRunID(ctx); got != "run-1" {
		t.Errorf("GetRunID() = %q", got)
	}
	if got := GetSchema(ctx); got != "orders" {
		t.Errorf("GetSchema() = %q", got)
	}

	want := []any{"request_id", "req-1", "run_id", "run-1", "schema", "orders"}
	if diff := cmp.Diff(want, extractContextFields(ctx)); diff != "" {
		t.Errorf("extractContextFields() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetString_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), RunIDKey, 42)
	if got := GetRunID(ctx); got != "" {
		t.Errorf("GetRunID() = %q, want empty for non-string value", got)
	}
}
