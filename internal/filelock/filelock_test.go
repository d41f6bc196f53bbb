package filelock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFor(t *testing.T) {
	dir := filepath.Join("build", "stage")
	assert.Equal(t, filepath.Join("build", ".stage.lock"), PathFor(dir))
}

func TestTryLock_SecondAttemptFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".stage.lock")

	unlock, err := TryLock(path)
	require.NoError(t, err)

	_, err = TryLock(path)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock())
	assert.FileExists(t, path, "the lock file outlives the lock")

	unlock, err = TryLock(path)
	require.NoError(t, err)
	require.NoError(t, unlock())
}

func TestTryLock_MissingDirectory(t *testing.T) {
	_, err := TryLock(filepath.Join(t.TempDir(), "missing", ".stage.lock"))
	assert.Error(t, err)
}
