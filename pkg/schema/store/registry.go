package store

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"
)

// Registry is the concurrency-safe set of loaded schemas. Replace swaps the
// whole set at once, so readers never see a partial reload.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	version  string
	loadTime time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Replace installs entries as the new schema set.
func (r *Registry) Replace(entries []*Entry) {
	next := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		next[e.Name] = e
	}
	version := computeVersion(next)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = next
	r.version = version
	r.loadTime = time.Now()
}

// Get returns the named schema.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// List returns every schema sorted by name.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Version identifies the current schema set. It changes whenever a schema
// is added, removed or edited, and is empty before the first Replace.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// LoadTime returns when the current set was installed.
func (r *Registry) LoadTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadTime
}

// computeVersion hashes the sorted name and content hash pairs.
func computeVersion(entries map[string]*Entry) string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(entries[name].Hash))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
