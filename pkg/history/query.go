package history

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultLimit applies when a query sets no limit.
	DefaultLimit = 100

	// MaxLimit caps a single query.
	MaxLimit = 10000
)

// Validate checks the query parameters.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	switch q.Status {
	case "", StatusSuccess, StatusError:
	default:
		return NewQueryError(q, fmt.Errorf("invalid status: %s (must be 'success' or 'error')", q.Status))
	}
	switch strings.ToLower(q.SortOrder) {
	case "", "asc", "desc":
	default:
		return NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return NewQueryError(q, errors.New("start_time must be before end_time"))
	}
	return nil
}

// ApplyDefaults fills the limit and sort order.
func (q *Query) ApplyDefaults() {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
}

// Matches reports whether r passes the query filters.
func (q *Query) Matches(r *Record) bool {
	if q == nil {
		return true
	}
	if q.Schema != "" && r.Schema != q.Schema {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.StartTime != nil && r.StartedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.StartedAt.After(*q.EndTime) {
		return false
	}
	return true
}
