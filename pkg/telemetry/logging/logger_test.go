package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid JSON config",
			config: Config{Level: "info", Format: "json", RedactPII: true},
		},
		{
			name:   "valid text config",
			config: Config{Level: "debug", Format: "text"},
		},
		{
			name:   "valid console config",
			config: Config{Level: "WARN", Format: "console", RedactPII: true},
		},
		{
			name:   "defaults",
			config: Config{},
		},
		{
			name:    "invalid log level",
			config:  Config{Level: "invalid", Format: "json"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Level: "info", Format: "invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		logMethod func(*Logger, string)
		wantLog   bool
	}{
		{
			name:      "debug level logs debug",
			logLevel:  "debug",
			logMethod: func(l *Logger, msg string) { l.Debug(msg) },
			wantLog:   true,
		},
		{
			name:      "info level filters debug",
			logLevel:  "info",
			logMethod: func(l *Logger, msg string) { l.Debug(msg) },
			wantLog:   false,
		},
		{
			name:      "info level logs info",
			logLevel:  "info",
			logMethod: func(l *Logger, msg string) { l.Info(msg) },
			wantLog:   true,
		},
		{
			name:      "warn level filters info",
			logLevel:  "warn",
			logMethod: func(l *Logger, msg string) { l.Info(msg) },
			wantLog:   false,
		},
		{
			name:      "error level filters warn",
			logLevel:  "error",
			logMethod: func(l *Logger, msg string) { l.Warn(msg) },
			wantLog:   false,
		},
		{
			name:      "error level logs error",
			logLevel:  "error",
			logMethod: func(l *Logger, msg string) { l.Error(msg) },
			wantLog:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger, err := New(Config{Level: tt.logLevel, Format: "json", Writer: buf})
			if err != nil {
				t.Fatalf("Failed to create logger: %v", err)
			}

			tt.logMethod(logger, "test message")

			if hasLog := strings.Contains(buf.String(), "test message"); hasLog != tt.wantLog {
				t.Errorf("got log=%v, want log=%v, output=%s", hasLog, tt.wantLog, buf.String())
			}
		})
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not a JSON log line: %v\n%s", err, buf.String())
	}
	return entry
}

func TestLogger_ContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithSchema(WithRunID(context.Background(), "run-1"), "orders")
	logger.InfoContext(ctx, "resolved", "nodes", 3)

	entry := decodeLine(t, buf)
	if entry["run_id"] != "run-1" || entry["schema"] != "orders" {
		t.Errorf("context fields missing: %v", entry)
	}
	if entry["nodes"] != float64(3) {
		t.Errorf("nodes = %v", entry["nodes"])
	}
}

func TestLogger_SlogSharesHandler(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "debug", Format: "json", RedactPII: true, Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithRunID(context.Background(), "run-2")
	logger.Slog().DebugContext(ctx, "plugin bound", "owner", "ada@example.com")

	entry := decodeLine(t, buf)
	if entry["run_id"] != "run-2" {
		t.Errorf("run_id = %v", entry["run_id"])
	}
	if entry["owner"] != "***@***" {
		t.Errorf("owner = %v, want redacted", entry["owner"])
	}
}

func TestLogger_Redaction(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  any
	}{
		{"email in value", "note", "contact ada@example.com", "contact ***@***"},
		{"sensitive key", "api_token", "abcdef123", "abcd***"},
		{"short secret", "secret", "abc", "***"},
		{"non-string sensitive", "password", 1234, "***"},
		{"error value", "err", errors.New("bad card 4111 1111 1111 1111"), "bad card ****-****-****-****"},
		{"plain", "count", 7, float64(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger, err := New(Config{Level: "info", Format: "json", RedactPII: true, Writer: buf})
			if err != nil {
				t.Fatal(err)
			}
			logger.Info("msg", tt.key, tt.value)

			if got := decodeLine(t, buf)[tt.key]; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", RedactPII: true, Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.With("component", "store", "token", "abcdefgh").Info("reloaded")

	entry := decodeLine(t, buf)
	if entry["component"] != "store" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["token"] != "abcd***" {
		t.Errorf("token = %v, want masked", entry["token"])
	}
}

func TestLogger_WithContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	if logger.WithContext(context.Background()) != logger {
		t.Error("WithContext without fields should return the same logger")
	}

	logger.WithContext(WithRequestID(context.Background(), "req-9")).Info("served")
	if got := decodeLine(t, buf)["request_id"]; got != "req-9" {
		t.Errorf("request_id = %v", got)
	}
}

func TestLogger_ConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "console", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello", "k", "v")

	out := buf.String()
	if strings.Contains(out, "time=") {
		t.Errorf("console output carries a timestamp: %q", out)
	}
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "k=v") {
		t.Errorf("console output = %q", out)
	}
	if logger.Format() != FormatConsole {
		t.Errorf("Format() = %q", logger.Format())
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "INFO", "", "warning", "Error"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q) error = %v", s, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("ParseLevel(verbose) expected error")
	}
}

func BenchmarkLogger_Info_Redacted(b *testing.B) {
	logger, err := New(Config{Level: "info", Format: "json", RedactPII: true, Writer: &bytes.Buffer{}})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		logger.Info("test message", "owner", "ada@example.com", "count", i)
	}
}

func BenchmarkLogger_Debug_Disabled(b *testing.B) {
	logger, err := New(Config{Level: "info", Format: "json", Writer: &bytes.Buffer{}})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		logger.Debug("test message", "key", "value")
	}
}
