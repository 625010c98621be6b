// file_unix.go
//go:build unix

package sys

import "os"

// unixFile opens files directly via the os package; Unix-like systems allow
// an open file to be unlinked or renamed out from under a running process,
// which is exactly what journal rolling and GC need.
type unixFile struct{}

// NewFile returns the platform-specific File implementation.
func NewFile() File {
	return &unixFile{}
}

func (ufo *unixFile) Create(name string) (*os.File, error) {
	return os.Create(name)
}

func (ufo *unixFile) Open(name string) (*os.File, error) {
	return os.Open(name)
}

func (ufo *unixFile) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}
