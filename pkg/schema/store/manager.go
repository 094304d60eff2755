package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/exceller/pkg/config"
)

// Reporter receives the outcome of every load. The metrics collector
// implements it.
type Reporter interface {
	RecordSchemaReload(loaded int, err error)
}

// Manager owns the schema registry: it performs the initial load, reloads
// on file changes and serves lookups.
type Manager struct {
	config   *config.SchemasConfig
	loader   *Loader
	registry *Registry
	logger   *slog.Logger
	reporter Reporter

	mu       sync.RWMutex
	lastErr  error
	lastLoad time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithReporter sets the load reporter.
func WithReporter(r Reporter) Option {
	return func(m *Manager) { m.reporter = r }
}

// WithLoader replaces the loader built from the configuration.
func WithLoader(l *Loader) Option {
	return func(m *Manager) { m.loader = l }
}

// New creates a manager for the configured schema path. Nothing is read
// until Load is called.
func New(cfg *config.SchemasConfig, logger *slog.Logger, opts ...Option) *Manager {
	if cfg == nil {
		cfg = &config.SchemasConfig{Path: config.DefaultSchemasPath}
	}
	if logger == nil {
		logger = slog.Default()
	}
	lc := LoaderConfigFrom(cfg)
	m := &Manager{
		config:   cfg,
		loader:   NewLoader(lc),
		registry: NewRegistry(),
		logger:   logger.With("component", "schema_store"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads every schema and installs the set. Loading is all or
// nothing: if any file fails, the current set stays in place and the
// failures are returned.
func (m *Manager) Load() error {
	start := time.Now()
	entries, err := m.loader.Load(m.config.Path)

	m.mu.Lock()
	m.lastErr = err
	m.lastLoad = start
	m.mu.Unlock()

	if err != nil {
		m.report(0, err)
		m.logger.Error("Schema load failed", "path", m.config.Path, "error", err)
		return err
	}

	m.registry.Replace(entries)
	m.report(len(entries), nil)
	m.logger.Info("Schemas loaded",
		"path", m.config.Path,
		"count", len(entries),
		"version", m.registry.Version(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Watch reloads the schemas whenever files under the configured path
// change. It blocks until ctx is cancelled or Close is called. A failed
// reload is logged and the previous set keeps serving.
func (m *Manager) Watch(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return errors.New("schema watcher already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	defer func() {
		close(done)
		m.mu.Lock()
		m.cancel = nil
		m.mu.Unlock()
	}()

	skip := func(string) bool { return false }
	if m.loader.config.SkipHidden {
		skip = hidden
	}
	w, err := NewWatcher(m.config.Path, m.config.Debounce, m.loader.HasSchemaExtension, skip, m.logger)
	if err != nil {
		cancel()
		return err
	}
	err = w.Watch(ctx, func() {
		_ = m.Load()
	})
	cancel()
	return err
}

// Get returns the named schema.
func (m *Manager) Get(name string) (*Entry, error) {
	if e, ok := m.registry.Get(name); ok {
		return e, nil
	}
	return nil, &NotFoundError{Name: name}
}

// List returns every loaded schema sorted by name.
func (m *Manager) List() []*Entry {
	return m.registry.List()
}

// Version identifies the current schema set.
func (m *Manager) Version() string {
	return m.registry.Version()
}

// Registry exposes the underlying registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// LastError returns the error of the most recent load, or nil.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// LastLoadTime returns when the most recent load started.
func (m *Manager) LastLoadTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoad
}

// Check is a readiness check: it fails while no schema is loaded.
func (m *Manager) Check(context.Context) error {
	if m.registry.Len() > 0 {
		return nil
	}
	if err := m.LastError(); err != nil {
		return fmt.Errorf("no schemas loaded: %w", err)
	}
	return errors.New("no schemas loaded")
}

// Close stops a running Watch and waits for it to return.
func (m *Manager) Close() error {
	m.mu.RLock()
	cancel, done := m.cancel, m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (m *Manager) report(n int, err error) {
	if m.reporter != nil {
		m.reporter.RecordSchemaReload(n, err)
	}
}
