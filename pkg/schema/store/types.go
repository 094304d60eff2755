package store

import (
	"time"

	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/schema/ast"
)

// Entry is a parsed schema document.
type Entry struct {
	// Name identifies the schema: its path relative to the store root with
	// the extension removed and forward slashes, e.g. "invoice" or
	// "crm/contact".
	Name string

	// Path is the file the schema was read from.
	Path string

	// Node is the parsed root node.
	Node ast.Node

	// Hash is the hex sha256 of the file contents.
	Hash string

	// Size is the file size in bytes.
	Size int64

	// LoadedAt is when the file was parsed.
	LoadedAt time.Time
}

// LoaderConfig controls which files are loaded and how.
type LoaderConfig struct {
	// MaxFileSize rejects larger files.
	MaxFileSize int64

	// MaxDepth rejects schemas nested deeper than this.
	MaxDepth int

	// Extensions are the file extensions treated as schemas.
	Extensions []string

	// SkipHidden ignores files and directories starting with a dot.
	SkipHidden bool

	// FollowSymlinks loads schema files reached through symbolic links.
	FollowSymlinks bool
}

// DefaultLoaderConfig returns the loader configuration used when none is
// given.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxFileSize:    config.DefaultSchemaMaxFileSize,
		MaxDepth:       config.DefaultSchemaMaxDepth,
		Extensions:     append([]string(nil), config.DefaultSchemaExtensions...),
		SkipHidden:     true,
		FollowSymlinks: true,
	}
}

// LoaderConfigFrom derives a loader configuration from the schemas section.
func LoaderConfigFrom(cfg *config.SchemasConfig) *LoaderConfig {
	lc := DefaultLoaderConfig()
	if cfg == nil {
		return lc
	}
	if cfg.MaxFileSize > 0 {
		lc.MaxFileSize = cfg.MaxFileSize
	}
	if cfg.MaxDepth > 0 {
		lc.MaxDepth = cfg.MaxDepth
	}
	if len(cfg.Extensions) > 0 {
		lc.Extensions = append([]string(nil), cfg.Extensions...)
	}
	return lc
}
