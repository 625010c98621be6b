//go:build !linux

package sys

// Fdatasync flushes file data (but not necessarily metadata) to stable
// storage. On platforms without a dedicated fdatasync syscall this falls
// back to a full Sync().
func Fdatasync(f FileHandle) error {
	return f.Sync()
}
