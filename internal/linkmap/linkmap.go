// Package linkmap maps paths inside a source tree to the names of their
// staging-directory symlinks.
package linkmap

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path does not lie under the source root.
var ErrOutsideRoot = errors.New("path is outside source root")

// Normalize returns the absolute, cleaned form of path.
func Normalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// IsRoot reports whether path, once normalized, is root itself. Events on
// the root carry no link name and are ignored by callers.
func IsRoot(root, path string) bool {
	p, err := Normalize(path)
	if err != nil {
		return false
	}
	return p == filepath.Clean(root)
}

// LinkName returns the first path component of path relative to root. Every
// path below root/N, however deep, maps to N.
func LinkName(root, path string) (string, error) {
	p, err := Normalize(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(filepath.Clean(root), p)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	if i := strings.IndexRune(rel, filepath.Separator); i >= 0 {
		rel = rel[:i]
	}
	return rel, nil
}

// SourcePath returns root/name.
func SourcePath(root, name string) string {
	return filepath.Join(root, name)
}

// StagingPath returns staging/name.
func StagingPath(staging, name string) string {
	return filepath.Join(staging, name)
}
