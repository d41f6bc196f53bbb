//go:build !windows

package symlink

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type posixLinker struct{}

func newPlatformLinker() Linker {
	return posixLinker{}
}

func (posixLinker) Create(target, link string) error {
	if err := unix.Symlink(target, link); err != nil {
		return createError(link, err)
	}
	return nil
}

func (posixLinker) IsLink(path string) bool {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFLNK
}

func (l posixLinker) Remove(path string) error {
	if !l.IsLink(path) {
		return notLinkError(path)
	}
	if err := unix.Unlink(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}
