//go:build windows

package symlink

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// symbolicLinkFlagAllowUnprivilegedCreate lets CreateSymbolicLink succeed without elevation in developer mode.
const symbolicLinkFlagAllowUnprivilegedCreate = 0x2

// windowsLinker creates links without administrator rights. Windows needs to
// know up front whether the target is a directory, and deletes directory
// links with RemoveDirectory rather than DeleteFile.
type windowsLinker struct{}

func newPlatformLinker() Linker {
	return windowsLinker{}
}

func (windowsLinker) Create(target, link string) error {
	linkPtr, err := windows.UTF16PtrFromString(link)
	if err != nil {
		return createError(link, err)
	}
	targetPtr, err := windows.UTF16PtrFromString(target)
	if err != nil {
		return createError(link, err)
	}

	flags := uint32(symbolicLinkFlagAllowUnprivilegedCreate)
	if isDir(target) {
		flags |= windows.SYMBOLIC_LINK_FLAG_DIRECTORY
	}
	if err := windows.CreateSymbolicLink(linkPtr, targetPtr, flags); err != nil {
		return createError(link, err)
	}
	return nil
}

func (windowsLinker) IsLink(path string) bool {
	attrs, ok := attributes(path)
	return ok && attrs&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0
}

func (l windowsLinker) Remove(path string) error {
	attrs, ok := attributes(path)
	if !ok || attrs&windows.FILE_ATTRIBUTE_REPARSE_POINT == 0 {
		return notLinkError(path)
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	if attrs&windows.FILE_ATTRIBUTE_DIRECTORY != 0 {
		err = windows.RemoveDirectory(p)
	} else {
		err = windows.DeleteFile(p)
	}
	if err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// attributes returns the attributes of path itself, not of a link target.
func attributes(path string) (uint32, bool) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, false
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil || attrs == windows.INVALID_FILE_ATTRIBUTES {
		return 0, false
	}
	return attrs, true
}

func isDir(path string) bool {
	attrs, ok := attributes(path)
	return ok && attrs&windows.FILE_ATTRIBUTE_DIRECTORY != 0
}
