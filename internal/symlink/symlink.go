// Package symlink provides a platform-neutral way to create, test and remove
// symbolic links. Every platform variant satisfies the same contract:
//
//   - Create fails with ErrCreate when the platform refuses the link.
//   - IsLink returns false for paths that do not exist.
//   - Remove fails with ErrNotLink when the path is not currently a link, so a
//     real file is never deleted by accident.
package symlink

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrCreate  = errors.New("creating symlink")
	ErrNotLink = errors.New("not a symlink")
)

// Linker is the symlink capability handed to every synchronizer.
type Linker interface {
	Create(target, link string) error
	IsLink(path string) bool
	Remove(path string) error
}

// New returns the Linker for the current platform.
func New() Linker {
	return newPlatformLinker()
}

// Replace removes any link at link and then creates link -> target.
func Replace(l Linker, target, link string) error {
	if l.IsLink(link) {
		if err := l.Remove(link); err != nil {
			return err
		}
	}
	return l.Create(target, link)
}

func createError(link string, err error) error {
	return fmt.Errorf("%w %s: %w", ErrCreate, link, err)
}

func notLinkError(path string) error {
	return fmt.Errorf("removing %s: %w", path, ErrNotLink)
}
