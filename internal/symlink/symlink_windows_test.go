//go:build windows

package symlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/windows"
)

func TestWindowsLinkFlags(t *testing.T) {
	assert.Equal(t, 0x2, symbolicLinkFlagAllowUnprivilegedCreate)
	assert.Zero(t, symbolicLinkFlagAllowUnprivilegedCreate&windows.SYMBOLIC_LINK_FLAG_DIRECTORY)
}
