//go:build linux

package sys

import "golang.org/x/sys/unix"

// Fdatasync flushes file data, but not necessarily metadata such as mtime,
// to stable storage. It is cheaper than a full fsync when the file's size
// has not changed since the last sync.
func Fdatasync(f FileHandle) error {
	return unix.Fdatasync(int(f.Fd()))
}
