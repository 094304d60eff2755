package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"mercator-hq/exceller/pkg/schema/parser"
)

// Loader reads schema files from disk.
type Loader struct {
	config *LoaderConfig
	parser *parser.Parser
	now    func() time.Time
}

// NewLoader creates a loader. A nil config uses DefaultLoaderConfig.
func NewLoader(cfg *LoaderConfig) *Loader {
	if cfg == nil {
		cfg = DefaultLoaderConfig()
	}
	return &Loader{
		config: cfg,
		parser: parser.NewParser().WithMaxFileSize(cfg.MaxFileSize).WithMaxDepth(cfg.MaxDepth),
		now:    time.Now,
	}
}

// Load loads path, which is either one schema file or a directory of them.
func (l *Loader) Load(path string) ([]*Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, statError(path, err)
	}
	if info.IsDir() {
		return l.LoadDirectory(path)
	}
	entry, err := l.loadFile(path, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err != nil {
		return nil, err
	}
	return []*Entry{entry}, nil
}

// LoadFile loads a single schema file. The entry is named after the file.
func (l *Loader) LoadFile(path string) (*Entry, error) {
	return l.loadFile(path, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func (l *Loader) loadFile(path, name string) (*Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, statError(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{Path: path, Message: "not a regular file"}
	}
	if info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			Path:    path,
			Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{Path: path, Message: "file contains invalid UTF-8 encoding"}
	}

	node, err := l.parser.ParseBytes(data, path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "invalid schema", Cause: err}
	}

	sum := sha256.Sum256(data)
	return &Entry{
		Name:     name,
		Path:     path,
		Node:     node,
		Hash:     hex.EncodeToString(sum[:]),
		Size:     info.Size(),
		LoadedAt: l.now(),
	}, nil
}

// LoadDirectory loads every schema file under dir. Files that fail are
// reported in an *ErrorList next to the entries that loaded.
func (l *Loader) LoadDirectory(dir string) ([]*Entry, error) {
	files, err := l.collect(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &LoadError{Path: dir, Message: "no schema files found in directory"}
	}

	var entries []*Entry
	errs := &ErrorList{}
	seen := make(map[string]string, len(files))

	for _, path := range files {
		name := entryName(dir, path)
		if prev, dup := seen[name]; dup {
			errs.Add(&LoadError{Path: path, Message: fmt.Sprintf("schema name %q already defined by %s", name, prev)})
			continue
		}
		entry, err := l.loadFile(path, name)
		if err != nil {
			errs.Add(err)
			continue
		}
		seen[name] = path
		entries = append(entries, entry)
	}

	if errs.HasErrors() {
		return entries, errs
	}
	return entries, nil
}

// collect returns the schema file paths under dir in lexical order.
func (l *Loader) collect(dir string) ([]string, error) {
	var files []string
	visited := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && l.config.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !l.config.FollowSymlinks {
				return nil
			}
			real, err := filepath.EvalSymlinks(path)
			if err != nil {
				return &LoadError{Path: path, Message: "failed to resolve symlink", Cause: err}
			}
			if visited[real] {
				return nil
			}
			visited[real] = true
			if !l.HasSchemaExtension(real) {
				return nil
			}
		} else if !l.HasSchemaExtension(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		if _, ok := err.(*LoadError); ok {
			return nil, err
		}
		return nil, &LoadError{Path: dir, Message: "failed to walk directory", Cause: err}
	}

	sort.Strings(files)
	return files, nil
}

// HasSchemaExtension reports whether path has one of the configured
// extensions. The comparison ignores case.
func (l *Loader) HasSchemaExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, want := range l.config.Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

func entryName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
}

func statError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &LoadError{Path: path, Message: "file not found", Cause: err}
	case os.IsPermission(err):
		return &LoadError{Path: path, Message: "permission denied", Cause: err}
	}
	return &LoadError{Path: path, Message: "failed to access file", Cause: err}
}
