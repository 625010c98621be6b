//go:build !linux

package sys

// SyncRange is unavailable on this platform; callers should fall back to a
// full Sync() on the file handle.
func SyncRange(f FileHandle, offset, length int64) error {
	return ErrSyncRangeNotSupported
}
