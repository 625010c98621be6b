// file_windows.go
//go:build windows

package sys

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

// windowsFile implements File for Windows, using CreateFile with
// FILE_SHARE_DELETE so a journal file can still be rolled or garbage
// collected by another handle while a reader holds this one open.
type windowsFile struct{}

// NewFile returns the platform-specific File implementation.
func NewFile() File {
	return &windowsFile{}
}

func (wfo *windowsFile) Create(name string) (*os.File, error) {
	return wfo.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func (wfo *windowsFile) Open(name string) (*os.File, error) {
	return wfo.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens a file on Windows with FILE_SHARE_DELETE set, which is
// crucial for journal rolling: the writer closes and a GC pass deletes old
// journal files while other handles may still be open.
func (wfo *windowsFile) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	var access uint32
	var creationDisposition uint32
	var shareMode uint32 = windows.FILE_SHARE_READ | windows.FILE_SHARE_WRITE | windows.FILE_SHARE_DELETE

	if flag&os.O_RDWR != 0 {
		access = windows.GENERIC_READ | windows.GENERIC_WRITE
	} else if flag&os.O_WRONLY != 0 {
		access = windows.GENERIC_WRITE
	} else {
		access = windows.GENERIC_READ
	}

	if flag&os.O_CREATE != 0 {
		if flag&os.O_EXCL != 0 {
			creationDisposition = windows.CREATE_NEW
		} else {
			creationDisposition = windows.OPEN_ALWAYS
		}
	} else {
		creationDisposition = windows.OPEN_EXISTING
	}

	if flag&os.O_TRUNC != 0 {
		if creationDisposition == windows.OPEN_EXISTING {
			creationDisposition = windows.TRUNCATE_EXISTING
		} else {
			creationDisposition = windows.CREATE_ALWAYS
		}
	}

	pathp, err := syscall.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}

	handle, err := windows.CreateFile(
		pathp,
		access,
		shareMode,
		nil,
		creationDisposition,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		if errno, ok := err.(syscall.Errno); ok && errno == windows.ERROR_FILE_NOT_FOUND {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("windows CreateFile failed for %s: %w", name, err)
	}

	file := os.NewFile(uintptr(handle), name)

	if flag&os.O_APPEND != 0 {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			file.Close()
			return nil, fmt.Errorf("seek to end for append on %s: %w", name, err)
		}
	}

	return file, nil
}
