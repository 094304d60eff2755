package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/exceller/pkg/schema/ast"
)

const objectSchema = `type: object
mapping:
  id: {type: expr, mapping: ["$0.id"]}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func names(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.yaml")
	writeFile(t, path, objectSchema)

	entry, err := NewLoader(nil).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if entry.Name != "invoice" || entry.Path != path {
		t.Errorf("entry = %q at %q", entry.Name, entry.Path)
	}
	if entry.Node.Kind() != ast.KindObject {
		t.Errorf("node kind = %v, want object", entry.Node.Kind())
	}
	if len(entry.Hash) != 64 {
		t.Errorf("hash = %q, want hex sha256", entry.Hash)
	}
	if entry.Size != int64(len(objectSchema)) {
		t.Errorf("size = %d", entry.Size)
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.yaml"), "type: dict\nmapping: 1\n")
	writeFile(t, filepath.Join(dir, "big.yaml"), objectSchema+strings.Repeat("#", 200)+"\n")
	writeFile(t, filepath.Join(dir, "latin1.yaml"), "type: literal\nmapping: \xe9\n")

	l := NewLoader(&LoaderConfig{MaxFileSize: 128, MaxDepth: 8, Extensions: []string{".yaml"}})

	tests := []struct {
		name    string
		path    string
		message string
	}{
		{"missing", filepath.Join(dir, "nope.yaml"), "file not found"},
		{"directory", dir, "not a regular file"},
		{"too large", filepath.Join(dir, "big.yaml"), "exceeds maximum 128 bytes"},
		{"invalid utf8", filepath.Join(dir, "latin1.yaml"), "invalid UTF-8"},
		{"invalid schema", filepath.Join(dir, "bad.yaml"), "unknown node type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.LoadFile(tt.path)
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("error = %v, want *LoadError", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not contain %q", err, tt.message)
			}
		})
	}
}

func TestLoader_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "invoice.yaml"), objectSchema)
	writeFile(t, filepath.Join(dir, "crm", "contact.JSON"), `{"type": "literal", "mapping": 1}`)
	writeFile(t, filepath.Join(dir, "README.md"), "not a schema")
	writeFile(t, filepath.Join(dir, ".hidden.yaml"), objectSchema)
	writeFile(t, filepath.Join(dir, ".git", "x.yaml"), objectSchema)

	entries, err := NewLoader(nil).LoadDirectory(dir)
	if err != nil {
		t.Fatalf("LoadDirectory() error = %v", err)
	}
	if diff := cmp.Diff([]string{"crm/contact", "invoice"}, names(entries)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_LoadDirectory_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.yaml"), objectSchema)
	writeFile(t, filepath.Join(dir, "good.json"), `{"type": "literal", "mapping": 1}`)
	writeFile(t, filepath.Join(dir, "broken.yaml"), "type: [unclosed")

	entries, err := NewLoader(nil).LoadDirectory(dir)
	var list *ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("error = %v, want *ErrorList", err)
	}
	if len(list.Errors) != 2 {
		t.Fatalf("errors = %v, want a parse failure and a duplicate name", list.Errors)
	}
	if !strings.Contains(err.Error(), `schema name "good" already defined`) {
		t.Errorf("missing duplicate error in %q", err)
	}
	if diff := cmp.Diff([]string{"good"}, names(entries)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_LoadDirectory_Empty(t *testing.T) {
	_, err := NewLoader(nil).LoadDirectory(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "no schema files found") {
		t.Errorf("error = %v", err)
	}
}

func TestLoader_Symlinks(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "shared.yaml")
	writeFile(t, outside, objectSchema)
	if err := os.Symlink(outside, filepath.Join(dir, "linked.yaml")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	entries, err := NewLoader(nil).LoadDirectory(dir)
	if err != nil {
		t.Fatalf("LoadDirectory() error = %v", err)
	}
	if diff := cmp.Diff([]string{"linked"}, names(entries)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	cfg := DefaultLoaderConfig()
	cfg.FollowSymlinks = false
	if _, err := NewLoader(cfg).LoadDirectory(dir); err == nil {
		t.Error("expected no schema files when symlinks are not followed")
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.yml")
	writeFile(t, path, objectSchema)

	l := NewLoader(nil)
	for _, p := range []string{path, dir} {
		entries, err := l.Load(p)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", p, err)
		}
		if diff := cmp.Diff([]string{"one"}, names(entries)); diff != "" {
			t.Errorf("Load(%q) names mismatch (-want +got):\n%s", p, diff)
		}
	}
	if _, err := l.Load(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestLoaderConfigFrom(t *testing.T) {
	lc := LoaderConfigFrom(nil)
	if diff := cmp.Diff(DefaultLoaderConfig(), lc); diff != "" {
		t.Errorf("nil config mismatch (-want +got):\n%s", diff)
	}
}
