package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to schema files below a root path. Bursts of
// events are collapsed into a single callback after a quiet period.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	logger   *slog.Logger
	debounce *Debouncer
	accept   func(path string) bool
	skip     func(name string) bool
}

// NewWatcher creates a watcher for root. accept selects the files whose
// changes matter; skip names directories and files to ignore entirely.
func NewWatcher(root string, interval time.Duration, accept, skip func(string) bool, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if skip == nil {
		skip = func(string) bool { return false }
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		root:     root,
		logger:   logger,
		debounce: NewDebouncer(interval),
		accept:   accept,
		skip:     skip,
	}, nil
}

// Watch blocks until ctx is cancelled, calling onChange after file changes
// settle. The watcher is closed when Watch returns.
func (w *Watcher) Watch(ctx context.Context, onChange func()) error {
	defer w.close()

	if err := w.addTree(w.root); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.root, err)
	}
	w.logger.Info("Schema watcher started", "path", w.root)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Schema watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if event.Has(fsnotify.Create) {
				w.maybeAddDir(event.Name)
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("Schema file event", "path", event.Name, "op", event.Op.String())
			w.debounce.Trigger(onChange)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("Schema watcher error", "error", err)
		}
	}
}

func (w *Watcher) close() {
	w.debounce.Stop()
	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("Failed to close schema watcher", "error", err)
	}
}

// addTree watches root and, when it is a directory, every directory below.
// Editors often replace files by rename, so a single file root is watched
// via its parent directory.
func (w *Watcher) addTree(root string) error {
	isDir, err := isDirectory(root)
	if err != nil {
		return err
	}
	if !isDir {
		return w.fsw.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skip(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) maybeAddDir(path string) {
	if isDir, err := isDirectory(path); err != nil || !isDir || w.skip(filepath.Base(path)) {
		return
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.skip(filepath.Base(event.Name)) {
		return false
	}
	if isDir, err := isDirectory(w.root); err == nil && !isDir {
		return filepath.Clean(event.Name) == filepath.Clean(w.root)
	}
	return w.accept(event.Name)
}

// Debouncer runs the last triggered callback once no trigger arrived for
// the interval.
type Debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger (re)starts the quiet period.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
	})
}

// Stop cancels any pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func isDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
