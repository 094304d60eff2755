package gitsource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"mercator-hq/exceller/pkg/config"
)

// ErrNotCloned is returned by operations that need a local clone.
var ErrNotCloned = errors.New("repository not cloned")

// Commit describes a commit of the schema repository.
type Commit struct {
	SHA     string    `json:"sha"`
	Author  string    `json:"author"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

// Short returns the abbreviated SHA used in logs.
func (c Commit) Short() string {
	return shortSHA(c.SHA)
}

// PullResult reports what a pull changed.
type PullResult struct {
	From    string
	To      string
	Changed []string
}

// Moved reports whether the pull advanced the branch.
func (p PullResult) Moved() bool {
	return p.From != p.To
}

// Repository is a local clone of the schema repository.
type Repository struct {
	cfg    config.GitConfig
	auth   Auth
	branch plumbing.ReferenceName

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewRepository validates cfg and returns an uncloned Repository.
func NewRepository(cfg *config.GitConfig) (*Repository, error) {
	if cfg == nil {
		return nil, errors.New("git config is nil")
	}
	if cfg.Repository == "" {
		return nil, errors.New("git repository is required")
	}
	if cfg.Branch == "" {
		return nil, errors.New("git branch is required")
	}
	if cfg.LocalPath == "" {
		return nil, errors.New("git local path is required")
	}
	auth, err := NewAuth(cfg.Auth)
	if err != nil {
		return nil, err
	}
	return &Repository{
		cfg:    *cfg,
		auth:   auth,
		branch: plumbing.NewBranchReferenceName(cfg.Branch),
	}, nil
}

// SchemaDir is the directory holding the schemas inside the clone.
func (r *Repository) SchemaDir() string {
	return filepath.Join(r.cfg.LocalPath, filepath.FromSlash(r.cfg.Dir))
}

// Clone opens the local clone, cloning the branch first when LocalPath
// holds no repository yet.
func (r *Repository) Clone(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(filepath.Join(r.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(r.cfg.LocalPath)
		if err != nil {
			return fmt.Errorf("open %s: %w", r.cfg.LocalPath, err)
		}
		r.repo = repo
		return nil
	}

	method, err := r.auth.Method()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.cfg.LocalPath, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", r.cfg.LocalPath, err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	repo, err := gogit.PlainCloneContext(ctx, r.cfg.LocalPath, false, &gogit.CloneOptions{
		URL:           r.cfg.Repository,
		Auth:          method,
		ReferenceName: r.branch,
		SingleBranch:  true,
		Depth:         r.cfg.Depth,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", r.cfg.Repository, err)
	}
	r.repo = repo
	return nil
}

// Pull fast-forwards the branch from origin and lists the files that
// changed, as slash-separated paths relative to the repository root.
func (r *Repository) Pull(ctx context.Context) (PullResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return PullResult{}, ErrNotCloned
	}
	from, err := r.headHash()
	if err != nil {
		return PullResult{}, err
	}

	method, err := r.auth.Method()
	if err != nil {
		return PullResult{}, err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return PullResult{}, fmt.Errorf("worktree: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err = wt.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    gogit.DefaultRemoteName,
		ReferenceName: r.branch,
		SingleBranch:  true,
		Auth:          method,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return PullResult{}, fmt.Errorf("pull %s: %w", r.cfg.Branch, err)
	}

	to, err := r.headHash()
	if err != nil {
		return PullResult{}, err
	}
	res := PullResult{From: from.String(), To: to.String()}
	if from != to {
		if res.Changed, err = r.changed(from, to); err != nil {
			return PullResult{}, err
		}
	}
	return res, nil
}

// Head describes the checked out commit.
func (r *Repository) Head() (Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return Commit{}, ErrNotCloned
	}
	hash, err := r.headHash()
	if err != nil {
		return Commit{}, err
	}
	c, err := r.repo.CommitObject(hash)
	if err != nil {
		return Commit{}, fmt.Errorf("read commit %s: %w", shortSHA(hash.String()), err)
	}
	return Commit{
		SHA:     c.Hash.String(),
		Author:  c.Author.Name,
		Message: c.Message,
		When:    c.Author.When,
	}, nil
}

// Reset moves the branch and the worktree back to sha.
func (r *Repository) Reset(sha string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return ErrNotCloned
	}
	hash := plumbing.NewHash(sha)
	if _, err := r.repo.CommitObject(hash); err != nil {
		return fmt.Errorf("unknown commit %s: %w", shortSHA(sha), err)
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	if err := wt.Reset(&gogit.ResetOptions{Commit: hash, Mode: gogit.HardReset}); err != nil {
		return fmt.Errorf("reset to %s: %w", shortSHA(sha), err)
	}
	return nil
}

func (r *Repository) headHash() (plumbing.Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("read HEAD: %w", err)
	}
	return ref.Hash(), nil
}

func (r *Repository) changed(from, to plumbing.Hash) ([]string, error) {
	fromCommit, err := r.repo.CommitObject(from)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", shortSHA(from.String()), err)
	}
	toCommit, err := r.repo.CommitObject(to)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", shortSHA(to.String()), err)
	}
	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, err
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, err
	}
	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", shortSHA(from.String()), shortSHA(to.String()), err)
	}

	// Renames carry both names, additions and deletions only one.
	seen := make(map[string]bool, len(changes))
	files := make([]string, 0, len(changes))
	for _, ch := range changes {
		for _, name := range []string{ch.From.Name, ch.To.Name} {
			if name != "" && !seen[name] {
				seen[name] = true
				files = append(files, name)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.Timeout)
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
