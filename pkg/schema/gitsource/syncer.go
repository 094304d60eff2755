package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"
)

// ReloadFunc reloads the schema store from the schema directory.
type ReloadFunc func() error

// SyncerConfig configures a Syncer.
type SyncerConfig struct {
	// Interval between pulls. Run returns immediately when it is not positive.
	Interval time.Duration

	// Dir is the schema directory inside the repository, slash-separated.
	// Changes outside it do not trigger a reload.
	Dir string

	// Extensions lists the schema file extensions, dot included.
	Extensions []string
}

// Status is a snapshot of the Syncer state.
type Status struct {
	// Commit is the last commit the store loaded cleanly.
	Commit string `json:"commit"`

	// Rejected is the last commit whose schemas failed to load.
	Rejected string `json:"rejected,omitempty"`

	LastSync  time.Time `json:"last_sync"`
	LastError string    `json:"last_error,omitempty"`
	Reloads   int64     `json:"reloads"`
	Rollbacks int64     `json:"rollbacks"`
}

// Syncer polls a Repository and reloads the schema store on changes.
type Syncer struct {
	repo   *Repository
	reload ReloadFunc
	cfg    SyncerConfig
	logger *slog.Logger

	mu     sync.Mutex
	status Status
}

// NewSyncer returns a Syncer for a cloned repository.
func NewSyncer(repo *Repository, reload ReloadFunc, cfg SyncerConfig, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Dir = strings.Trim(path.Clean("/"+cfg.Dir), "/")
	return &Syncer{
		repo:   repo,
		reload: reload,
		cfg:    cfg,
		logger: logger.With("component", "schema_git"),
	}
}

// Run pulls every Interval until ctx is done.
func (s *Syncer) Run(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		return
	}
	if err := s.markHead(); err != nil {
		s.logger.Error("read schema repository head", "error", err)
		return
	}
	s.logger.Info("schema repository sync started", "interval", s.cfg.Interval, "commit", shortSHA(s.Status().Commit))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("schema repository sync failed", "error", err)
			}
		}
	}
}

// Sync pulls once and reloads when schema files changed. A failed reload
// resets the repository to the last good commit and reloads from it. The
// rejected commit is not reloaded again until a newer commit arrives.
func (s *Syncer) Sync(ctx context.Context) error {
	if s.Status().Commit == "" {
		if err := s.markHead(); err != nil {
			return err
		}
	}

	res, err := s.repo.Pull(ctx)
	s.mu.Lock()
	s.status.LastSync = time.Now()
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
	good, rejected := s.status.Commit, s.status.Rejected
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if !res.Moved() {
		return nil
	}
	if res.To == rejected {
		// Pull fast-forwarded onto the commit we already turned down.
		return s.repo.Reset(good)
	}
	if !s.touchesSchemas(res.Changed) {
		s.logger.Debug("no schema changes", "from", shortSHA(res.From), "to", shortSHA(res.To))
		s.setCommit(res.To)
		return nil
	}

	s.logger.Info("reloading schemas", "from", shortSHA(res.From), "to", shortSHA(res.To), "changed", len(res.Changed))
	if err := s.reload(); err != nil {
		return s.rollback(good, res.To, err)
	}
	s.mu.Lock()
	s.status.Commit = res.To
	s.status.Rejected = ""
	s.status.Reloads++
	s.mu.Unlock()
	return nil
}

// Status returns a snapshot of the sync state.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Syncer) rollback(good, bad string, cause error) error {
	s.logger.Error("schemas failed to load, rolling back",
		"error", cause,
		"commit", shortSHA(bad),
		"rollback_to", shortSHA(good))

	s.mu.Lock()
	s.status.Rejected = bad
	s.status.LastError = cause.Error()
	s.status.Rollbacks++
	s.mu.Unlock()

	if err := s.repo.Reset(good); err != nil {
		return fmt.Errorf("reload %s: %w (rollback failed: %v)", shortSHA(bad), cause, err)
	}
	if err := s.reload(); err != nil {
		return fmt.Errorf("reload %s: %w (reload after rollback failed: %v)", shortSHA(bad), cause, err)
	}
	return fmt.Errorf("reload %s: %w", shortSHA(bad), cause)
}

func (s *Syncer) markHead() error {
	head, err := s.repo.Head()
	if err != nil {
		return err
	}
	s.setCommit(head.SHA)
	return nil
}

func (s *Syncer) setCommit(sha string) {
	s.mu.Lock()
	s.status.Commit = sha
	s.mu.Unlock()
}

func (s *Syncer) touchesSchemas(files []string) bool {
	for _, f := range files {
		if s.cfg.Dir != "" && !strings.HasPrefix(f, s.cfg.Dir+"/") {
			continue
		}
		if len(s.cfg.Extensions) == 0 {
			return true
		}
		ext := path.Ext(f)
		for _, want := range s.cfg.Extensions {
			if strings.EqualFold(ext, want) {
				return true
			}
		}
	}
	return false
}
