package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mercator-hq/exceller/pkg/config"
)

type reloads struct {
	mu     sync.Mutex
	counts []int
	errs   int
}

func (r *reloads) RecordSchemaReload(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs++
		return
	}
	r.counts = append(r.counts, n)
}

func (r *reloads) snapshot() ([]int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.counts...), r.errs
}

func newManager(t *testing.T, dir string, rep Reporter) *Manager {
	t.Helper()
	cfg := &config.SchemasConfig{Path: dir, Debounce: 20 * time.Millisecond}
	return New(cfg, nil, WithReporter(rep))
}

func TestManager_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "invoice.yaml"), objectSchema)

	rep := &reloads{}
	m := newManager(t, dir, rep)

	if err := m.Check(context.Background()); err == nil {
		t.Error("Check() passed before any load")
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := m.Check(context.Background()); err != nil {
		t.Errorf("Check() error = %v", err)
	}

	entry, err := m.Get("invoice")
	if err != nil || entry.Name != "invoice" {
		t.Fatalf("Get(invoice) = %v, %v", entry, err)
	}
	var nf *NotFoundError
	if _, err := m.Get("order"); !errors.As(err, &nf) || nf.Name != "order" {
		t.Errorf("Get(order) error = %v", err)
	}
	if len(m.List()) != 1 || m.Version() == "" || m.LastLoadTime().IsZero() {
		t.Error("manager state not updated by Load")
	}

	counts, errs := rep.snapshot()
	if len(counts) != 1 || counts[0] != 1 || errs != 0 {
		t.Errorf("reporter saw counts=%v errs=%d", counts, errs)
	}
}

func TestManager_LoadFailureKeepsPreviousSet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "invoice.yaml"), objectSchema)

	rep := &reloads{}
	m := newManager(t, dir, rep)
	if err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	version := m.Version()

	writeFile(t, filepath.Join(dir, "order.yaml"), "type: [unclosed")
	if err := m.Load(); err == nil {
		t.Fatal("Load() succeeded with a broken file")
	}

	if m.Version() != version {
		t.Error("failed load replaced the schema set")
	}
	if _, err := m.Get("invoice"); err != nil {
		t.Errorf("previous schema lost: %v", err)
	}
	if m.LastError() == nil {
		t.Error("LastError() not recorded")
	}
	if err := m.Check(context.Background()); err != nil {
		t.Errorf("Check() should pass while the old set serves: %v", err)
	}
	if _, errs := rep.snapshot(); errs != 1 {
		t.Errorf("reporter errors = %d, want 1", errs)
	}
}

func TestManager_Watch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "invoice.yaml"), objectSchema)

	m := newManager(t, dir, &reloads{})
	if err := m.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- m.Watch(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	if err := m.Watch(ctx); err == nil {
		t.Error("second Watch() should fail while one is running")
	}

	writeFile(t, filepath.Join(dir, "order.yaml"), objectSchema)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := m.Get("order"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("new schema was not picked up by the watcher")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after Close")
	}
}

func TestManager_Close_NotWatching(t *testing.T) {
	m := New(nil, nil)
	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var mu sync.Mutex
	calls := 0
	inc := func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	for i := 0; i < 5; i++ {
		d.Trigger(inc)
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}

	d.Stop()
	d.Trigger(inc)
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("trigger after Stop ran the callback")
	}
}
