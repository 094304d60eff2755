package history

import (
	"errors"
	"testing"
	"time"
)

func TestQuery_Validate(t *testing.T) {
	early, late := time.Unix(100, 0), time.Unix(200, 0)
	tests := []struct {
		name    string
		query   Query
		wantErr bool
	}{
		{"zero", Query{}, false},
		{"full", Query{Schema: "s", Status: StatusError, StartTime: &early, EndTime: &late, Limit: 5, Offset: 2, SortOrder: "ASC"}, false},
		{"negative limit", Query{Limit: -1}, true},
		{"limit too large", Query{Limit: MaxLimit + 1}, true},
		{"negative offset", Query{Offset: -1}, true},
		{"bad status", Query{Status: "blocked"}, true},
		{"bad sort order", Query{SortOrder: "sideways"}, true},
		{"inverted range", Query{StartTime: &late, EndTime: &early}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var qe *QueryError
			if err != nil && !errors.As(err, &qe) {
				t.Errorf("error %T is not a *QueryError", err)
			}
		})
	}
}

func TestQuery_ApplyDefaults(t *testing.T) {
	q := Query{SortOrder: "ASC"}
	q.ApplyDefaults()
	if q.Limit != DefaultLimit || q.SortOrder != "asc" {
		t.Errorf("ApplyDefaults() = %+v", q)
	}
	q = Query{}
	q.ApplyDefaults()
	if q.SortOrder != "desc" {
		t.Errorf("default sort order = %q", q.SortOrder)
	}
}

func TestQuery_Matches(t *testing.T) {
	at := time.Unix(150, 0)
	r := &Record{Schema: "invoice", Status: StatusSuccess, StartedAt: at}
	before, after := time.Unix(100, 0), time.Unix(200, 0)

	tests := []struct {
		name  string
		query *Query
		want  bool
	}{
		{"nil", nil, true},
		{"schema", &Query{Schema: "invoice"}, true},
		{"other schema", &Query{Schema: "order"}, false},
		{"status", &Query{Status: StatusError}, false},
		{"inside range", &Query{StartTime: &before, EndTime: &after}, true},
		{"inclusive bounds", &Query{StartTime: &at, EndTime: &at}, true},
		{"after end", &Query{EndTime: &before}, false},
		{"before start", &Query{StartTime: &after}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(r); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
