//go:build linux

package sys

import "golang.org/x/sys/unix"

// DontNeed hints to the kernel that the given byte range of f is unlikely to
// be reused soon, so its pages can be evicted from the page cache first.
// Journal writers use this after a force-write to protect the cache for
// reads of other files.
func DontNeed(f FileHandle, offset, length int64) error {
	fd := int(f.Fd())
	return unix.Fadvise(fd, offset, length, unix.FADV_DONTNEED)
}
