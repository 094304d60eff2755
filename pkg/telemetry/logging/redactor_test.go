package logging

import (
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/exceller/pkg/config"
)

func TestNewRedactor(t *testing.T) {
	defaults := []string{
		PatternBearerToken, PatternAPIKey, PatternEmail,
		PatternCreditCard, PatternSSN, PatternPassword,
	}

	tests := []struct {
		name           string
		customPatterns []config.RedactPattern
		want           []string
	}{
		{
			name: "default patterns only",
			want: defaults,
		},
		{
			name: "with custom pattern",
			customPatterns: []config.RedactPattern{
				{Name: "customer_id", Pattern: `CUST-\d{6}`, Replacement: "CUST-******"},
			},
			want: append(append([]string{}, defaults...), "customer_id"),
		},
		{
			name: "invalid custom pattern is skipped",
			customPatterns: []config.RedactPattern{
				{Name: "invalid", Pattern: "[unclosed", Replacement: "***"},
			},
			want: defaults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRedactor(tt.customPatterns)
			if diff := cmp.Diff(tt.want, r.PatternNames()); diff != "" {
				t.Errorf("PatternNames() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor([]config.RedactPattern{
		{Name: "customer_id", Pattern: `CUST-\d{6}`, Replacement: "CUST-******"},
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"no pii", "order 42 shipped", "order 42 shipped"},
		{"api key", "key sk-abc123xyz used", "key sk-*** used"},
		{"email", "mail ada@example.com now", "mail ***@*** now"},
		{"bearer", "Authorization: Bearer eyJhbGciOi.x", "Authorization: Bearer ***"},
		{"card with spaces", "4111 1111 1111 1111", "****-****-****-****"},
		{"card with dashes", "4111-1111-1111-1111", "****-****-****-****"},
		{"ssn", "ssn 123-45-6789", "ssn ***-**-****"},
		{"password", "password=hunter2", "password: ***"},
		{"custom", "customer CUST-123456", "customer CUST-******"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactArgs(t *testing.T) {
	r := NewRedactor(nil)
	args := []any{"user", "ada@example.com", "api_key", "sk-secretvalue", "count", 3}

	got := r.RedactArgs(args...)
	want := []any{"user", "***@***", "api_key", "sk-s***", "count", 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RedactArgs() mismatch (-want +got):\n%s", diff)
	}
	if args[1] != "ada@example.com" {
		t.Error("RedactArgs() modified its input")
	}
}

func TestRedactor_RedactAttr_Group(t *testing.T) {
	r := NewRedactor(nil)
	a := slog.Group("record", slog.String("email", "ada@example.com"), slog.Int("age", 36))

	got := r.RedactAttr(a)
	group := got.Value.Group()
	if len(group) != 2 {
		t.Fatalf("group has %d attrs", len(group))
	}
	if group[0].Value.String() != "***@***" {
		t.Errorf("email = %q", group[0].Value.String())
	}
	if group[1].Value.Int64() != 36 {
		t.Errorf("age = %v", group[1].Value)
	}
}
