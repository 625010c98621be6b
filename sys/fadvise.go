//go:build !linux

package sys

// DontNeed is a no-op hint on platforms without posix_fadvise.
func DontNeed(f FileHandle, offset, length int64) error {
	return ErrFadviseNotSupported
}
