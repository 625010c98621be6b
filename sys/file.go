package sys

import (
	"io"
	"os"
)

// File abstracts platform-specific file opening behavior, in particular how
// Windows and Unix differ on deleting/renaming a file that is still open
// (journal rolling and GC need to be able to do this while a reader might
// still hold a handle open).
type File interface {
	Create(name string) (*os.File, error)
	Open(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
}

// FileHandle is the subset of *os.File operations the journal depends on.
// JournalFile is built on top of this interface so tests can substitute a
// fake implementation without touching a real filesystem.
type FileHandle interface {
	io.ReadWriteCloser
	io.ReaderAt
	io.WriterAt
	io.Seeker

	Stat() (os.FileInfo, error)
	Sync() error
	Truncate(size int64) error
	Name() string
	Fd() uintptr
}

var defaultFile = NewFile()

// Create opens name for read/write, creating and truncating it if needed.
func Create(name string) (FileHandle, error) {
	f, err := defaultFile.Create(name)
	if err != nil {
		return nil, err
	}
	return &RealFile{f: f}, nil
}

// Open opens name read-only.
func Open(name string) (FileHandle, error) {
	f, err := defaultFile.Open(name)
	if err != nil {
		return nil, err
	}
	return &RealFile{f: f}, nil
}

// OpenFile opens name with the given flag and permission bits.
func OpenFile(name string, flag int, perm os.FileMode) (FileHandle, error) {
	f, err := defaultFile.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &RealFile{f: f}, nil
}

// Rename renames oldpath to newpath.
func Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Remove removes the named file.
func Remove(name string) error {
	return os.Remove(name)
}
