// Package filelock provides a non-blocking advisory lock used to keep two
// multibuild processes from sharing one symlink directory.
package filelock

import (
	"errors"
	"os"
	"path/filepath"
)

const lockFileMode = 0o600

// ErrLocked is returned by TryLock when another process holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// PathFor returns the lock file guarding dir. It sits beside dir, never
// inside it, so dir keeps containing only symlinks.
func PathFor(dir string) string {
	return filepath.Join(filepath.Dir(dir), "."+filepath.Base(dir)+".lock")
}

// TryLock acquires an exclusive advisory lock on the file at path, creating
// it if it does not exist. It fails with ErrLocked instead of waiting.
// The returned function releases the lock and leaves the file in place, so
// every process always locks the same inode.
func TryLock(path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFileMode) //nolint:gosec // lock path derived from the symlink dir
	if err != nil {
		return nil, err
	}

	if err := tryLockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	return func() error {
		unlockErr := unlockFile(f)
		closeErr := f.Close()
		if unlockErr != nil {
			return unlockErr
		}
		return closeErr
	}, nil
}
