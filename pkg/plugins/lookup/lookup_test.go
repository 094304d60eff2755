package lookup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/exceller/pkg/transform/value"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), Config{DSN: filepath.Join(t.TempDir(), "codes.db")}, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE countries (iso2 TEXT PRIMARY KEY, name TEXT, population INTEGER)`,
		`INSERT INTO countries VALUES ('FR', 'France', 68000000), ('DE', 'Germany', 84000000)`,
	}
	for _, stmt := range stmts {
		if _, err := db.SQL().Exec(stmt); err != nil {
			t.Fatalf("setup %q: %v", stmt, err)
		}
	}
	return db
}

func call(t *testing.T, ns *value.Namespace, name string, args ...any) any {
	t.Helper()
	fn, ok := ns.Attr(name)
	if !ok {
		t.Fatalf("lookup module has no %q", name)
	}
	got, err := fn.(value.Caller).Call(args)
	if err != nil {
		t.Fatalf("%s() error = %v", name, err)
	}
	return got
}

func TestModule(t *testing.T) {
	ns := openTestDB(t).Module()

	if got := call(t, ns, "get", "countries", "iso2", "FR", "name"); got != "France" {
		t.Errorf("get() = %v, want France", got)
	}
	if got := call(t, ns, "get", "countries", "iso2", "XX", "name"); got != nil {
		t.Errorf("get() for missing key = %v, want nil", got)
	}
	if got := call(t, ns, "scalar", "SELECT population FROM countries WHERE iso2 = ?", "DE"); got != int64(84000000) {
		t.Errorf("scalar() = %#v, want 84000000", got)
	}

	rows := call(t, ns, "query", "SELECT iso2, name FROM countries ORDER BY iso2")
	want := []any{
		value.MapOf("iso2", "DE", "name", "Germany"),
		value.MapOf("iso2", "FR", "name", "France"),
	}
	if !value.Equal(rows, want) {
		t.Errorf("query() = %s, want %s", value.Repr(rows), value.Repr(want))
	}

	one := call(t, ns, "one", "SELECT name FROM countries WHERE iso2 = ?", "FR")
	if diff := cmp.Diff(`{"name":"France"}`, value.Repr(one)); diff != "" {
		t.Errorf("one() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetRejectsIdentifiers(t *testing.T) {
	db := openTestDB(t)

	tests := []struct {
		name   string
		table  string
		keyCol string
		valCol string
	}{
		{"injected table", "countries; DROP TABLE countries", "iso2", "name"},
		{"quoted column", "countries", `iso2"`, "name"},
		{"empty value column", "countries", "iso2", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.Get(tt.table, tt.keyCol, "FR", tt.valCol); err == nil {
				t.Error("Get() expected error")
			}
		})
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{}, nil); err == nil {
		t.Fatal("Open() expected error for empty dsn")
	}
}
