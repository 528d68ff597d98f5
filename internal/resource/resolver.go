package resource

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"onlycut/internal/errs"
)

var (
	ErrEmptyPath    = errors.New("resource path is empty")
	ErrAbsolutePath = errors.New("resource path must be relative to the resource directory")
	ErrOutsideBase  = errors.New("resource path escapes the resource directory")
)

// Resolver maps relative resource paths onto files below a base directory
type Resolver struct {
	baseDir string
}

// NewResolver creates a resolver rooted at baseDir. Relative base
// directories are made absolute against the working directory.
func NewResolver(baseDir string) (*Resolver, error) {
	if baseDir == "" {
		return nil, errs.Platform(ErrEmptyPath)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errs.Platform(fmt.Errorf("failed to resolve resource directory: %w", err))
	}
	return &Resolver{baseDir: abs}, nil
}

// BaseDir returns the absolute resource directory
func (r *Resolver) BaseDir() string {
	return r.baseDir
}

// Resolve returns the absolute location of rel. Nothing is touched on disk;
// a path that does not exist resolves fine and fails later on open.
func (r *Resolver) Resolve(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", errs.Platform(ErrEmptyPath)
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) {
		return "", errs.Platform(fmt.Errorf("%w: %s", ErrAbsolutePath, rel))
	}

	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if !filepath.IsLocal(cleaned) {
		return "", errs.Platform(fmt.Errorf("%w: %s", ErrOutsideBase, rel))
	}

	return filepath.Join(r.baseDir, cleaned), nil
}
