package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/exceller/pkg/history"
)

// MemoryStorage keeps records in a map. Records are lost on Close.
type MemoryStorage struct {
	records map[string]*history.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]*history.Record)}
}

// Store saves a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *history.Record) error {
	if err := ctx.Err(); err != nil {
		return history.NewStorageError("memory", "store", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *record
	s.records[record.ID] = &c
	return nil
}

// Query returns copies of the matching records ordered by start time.
func (s *MemoryStorage) Query(ctx context.Context, q *history.Query) ([]*history.Record, error) {
	if q == nil {
		q = &history.Query{}
	}
	s.mu.RLock()
	results := make([]*history.Record, 0, len(s.records))
	for _, r := range s.records {
		if q.Matches(r) {
			c := *r
			results = append(results, &c)
		}
	}
	s.mu.RUnlock()

	asc := q.SortOrder == "asc"
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.StartedAt.Equal(b.StartedAt) {
			if asc {
				return a.StartedAt.Before(b.StartedAt)
			}
			return a.StartedAt.After(b.StartedAt)
		}
		return a.ID < b.ID
	})

	if q.Offset >= len(results) {
		return []*history.Record{}, nil
	}
	results = results[q.Offset:]

	limit := q.Limit
	if limit <= 0 {
		limit = history.DefaultLimit
	}
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, q *history.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.records {
		if q.Matches(r) {
			n++
		}
	}
	return n, nil
}

// Delete removes the matching records.
func (s *MemoryStorage) Delete(ctx context.Context, q *history.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, r := range s.records {
		if q.Matches(r) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*history.Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
