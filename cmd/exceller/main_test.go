package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"

	"mercator-hq/exceller/pkg/cli"
	"mercator-hq/exceller/pkg/history"
)

const invoiceSchema = `type: object
mapping:
  id: {type: expr, mapping: ["$0.id"]}
  total: {type: expr, mapping: ["add", "$0.net", "$0.tax"]}
`

type workspace struct {
	dir     string
	config  string
	schema  string
	history string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	t.Setenv("EXCELLER_CONFIG", "")
	dir := t.TempDir()
	ws := &workspace{
		dir:     dir,
		config:  filepath.Join(dir, "exceller.yaml"),
		schema:  filepath.Join(dir, "schemas", "invoice.yaml"),
		history: filepath.Join(dir, "history.db"),
	}
	writeFile(t, ws.schema, invoiceSchema)
	writeFile(t, ws.config, `schemas:
  path: `+filepath.Join(dir, "schemas")+`
history:
  backend: sqlite
  sqlite:
    path: `+ws.history+`
telemetry:
  logging:
    level: error
`)
	return ws
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// execute runs the command tree with args and returns what it printed.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	for _, want := range []string{"Exceller " + Version, "Git Commit:", "Go Version:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestRunCmd(t *testing.T) {
	ws := newWorkspace(t)
	input := filepath.Join(ws.dir, "record.json")
	writeFile(t, input, `{"id": "inv-1", "net": 100, "tax": 20}`)

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{
			name: "file input",
			args: []string{"-i", input},
			want: "{\n  \"id\": \"inv-1\",\n  \"total\": 120\n}\n",
		},
		{
			name:  "stdin with override",
			stdin: `{"id": "a", "net": 1, "tax": 2}`,
			args:  []string{"-i", "-", "--ctx", "tax=10", "--format", "text"},
			want:  `{"id":"a","total":11}` + "\n",
		},
		{
			name: "context from flags only",
			args: []string{"--ctx", "id=plain", "--ctx", "net=1.5", "--ctx", "tax=1", "-f", "yaml"},
			want: "id: plain\ntotal: 2.5\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"run", "-c", ws.config, "-s", ws.schema}, tt.args...)
			out, stderr, err := execute(t, tt.stdin, args...)
			if err != nil {
				t.Fatalf("run error = %v (stderr %s)", err, stderr)
			}
			if diff := cmp.Diff(tt.want, out); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunCmd_Errors(t *testing.T) {
	ws := newWorkspace(t)

	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"missing context key", []string{"-s", ws.schema, "--ctx", "net=1"}, cli.ExitTransform},
		{"unknown format", []string{"-s", ws.schema, "-f", "xml"}, cli.ExitConfig},
		{"malformed ctx flag", []string{"-s", ws.schema, "--ctx", "novalue"}, cli.ExitConfig},
		{"missing schema file", []string{"-s", filepath.Join(ws.dir, "nope.yaml")}, cli.ExitFailure},
		{"missing config file", []string{"-s", ws.schema, "-c", filepath.Join(ws.dir, "nope.yaml")}, cli.ExitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"run", "-c", ws.config}, tt.args...)
			_, _, err := execute(t, "", args...)
			if err == nil {
				t.Fatal("run succeeded, want an error")
			}
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Errorf("ExitCode() = %d, want %d (error %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestValidateCmd(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := execute(t, "", "validate", "-c", ws.config, ws.schema)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(out, "✓ invoice") {
		t.Errorf("output = %q", out)
	}

	broken := filepath.Join(ws.dir, "schemas", "broken.yaml")
	writeFile(t, broken, "type: triangle\n")

	out, _, err = execute(t, "", "validate", "-c", ws.config, "--format", "json", filepath.Join(ws.dir, "schemas"))
	if cli.ExitCode(err) != cli.ExitTransform {
		t.Fatalf("validate error = %v, want a schema error", err)
	}

	var results []validationResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	byValid := map[bool]validationResult{}
	for _, r := range results {
		byValid[r.Valid] = r
	}
	if byValid[true].Name != "invoice" {
		t.Errorf("valid result = %+v", byValid[true])
	}
	if byValid[false].Path != broken || !strings.Contains(byValid[false].Error, "triangle") {
		t.Errorf("invalid result = %+v", byValid[false])
	}
}

func TestValidateCmd_Progress(t *testing.T) {
	ws := newWorkspace(t)
	_, stderr, err := execute(t, "", "validate", "-c", ws.config, "--progress", ws.schema)
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(stderr, "Validating:") || !strings.Contains(stderr, "1/1") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestHistoryCmds(t *testing.T) {
	ws := newWorkspace(t)
	run := func(ctx ...string) {
		t.Helper()
		args := []string{"run", "-c", ws.config, "-s", ws.schema, "--record"}
		for _, c := range ctx {
			args = append(args, "--ctx", c)
		}
		_, _, _ = execute(t, "", args...)
	}
	run("id=1", "net=1", "tax=1")
	run("net=1")
	run("id=2", "net=2", "tax=2")

	query := func(args ...string) []history.Record {
		t.Helper()
		out, stderr, err := execute(t, "", append([]string{"history", "query", "-c", ws.config, "-f", "json"}, args...)...)
		if err != nil {
			t.Fatalf("history query error = %v (stderr %s)", err, stderr)
		}
		var records []history.Record
		if err := json.Unmarshal([]byte(out), &records); err != nil {
			t.Fatalf("decode %q: %v", out, err)
		}
		return records
	}

	if got := query(); len(got) != 3 {
		t.Fatalf("records = %d, want 3", len(got))
	}
	failed := query("--status", "error")
	if len(failed) != 1 || failed[0].ErrorKind != "context_key" || failed[0].Schema != "invoice" {
		t.Errorf("failed runs = %+v", failed)
	}

	out, _, err := execute(t, "", "history", "query", "-c", ws.config)
	if err != nil {
		t.Fatalf("text query error = %v", err)
	}
	if !strings.HasPrefix(out, "RUN ID") || strings.Count(out, "\n") != 4 {
		t.Errorf("text output:\n%s", out)
	}

	out, _, err = execute(t, "", "history", "prune", "-c", ws.config, "--max-records", "1")
	if err != nil {
		t.Fatalf("prune error = %v", err)
	}
	if !strings.Contains(out, "Pruned 2 runs") {
		t.Errorf("prune output = %q", out)
	}
	if got := query(); len(got) != 1 {
		t.Errorf("records after prune = %d, want 1", len(got))
	}

	if _, _, err := execute(t, "", "history", "query", "-c", ws.config, "--since", "yesterday"); cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("bad --since error = %v", err)
	}
}

func TestServeCmd_DryRun(t *testing.T) {
	ws := newWorkspace(t)
	out, _, err := execute(t, "", "serve", "-c", ws.config, "--dry-run")
	if err != nil {
		t.Fatalf("serve --dry-run error = %v", err)
	}
	if !strings.Contains(out, "Loaded 1 schemas") || !strings.Contains(out, "Configuration valid") {
		t.Errorf("output = %q", out)
	}

	if _, _, err := execute(t, "", "serve", "-c", ws.config, "--dry-run", "--schemas", filepath.Join(ws.dir, "missing")); err == nil {
		t.Error("serve with a missing schema path succeeded")
	}
}

func TestServeCmd_DryRunFromGit(t *testing.T) {
	ws := newWorkspace(t)
	origin := filepath.Join(ws.dir, "origin")
	repo, err := gogit.PlainInit(origin, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	writeFile(t, filepath.Join(origin, "defs", "invoice.yaml"), invoiceSchema)
	wt, _ := repo.Worktree()
	if _, err := wt.Add("defs/invoice.yaml"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := wt.Commit("schemas", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	writeFile(t, ws.config, `schemas:
  git:
    repository: `+origin+`
    branch: master
    dir: defs
    local_path: `+filepath.Join(ws.dir, "clone")+`
telemetry:
  logging:
    level: error
`)
	out, _, err := execute(t, "", "serve", "-c", ws.config, "--dry-run")
	if err != nil {
		t.Fatalf("serve --dry-run error = %v", err)
	}
	for _, want := range []string{"Cloned " + origin, "Loaded 1 schemas from " + filepath.Join(ws.dir, "clone", "defs")} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}
