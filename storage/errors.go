package storage

import (
	"errors"
	"fmt"
	"syscall"
)

// Common storage errors.
var (
	// ErrStateNotFound is returned when no workflow state exists under a root.
	ErrStateNotFound = errors.New("workflow state not found")
)

// FileSystemError reports a failed filesystem operation.
type FileSystemError struct {
	// Op is the operation that failed ("write", "rename", "mkdir", ...).
	Op string
	// Path is the file or directory involved.
	Path string
	// Code is the OS error name (ENOSPC, EACCES, ...) when one is known.
	Code string
	// Err is the underlying error.
	Err error
}

func (e *FileSystemError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %s (%v)", e.Op, e.Path, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}

var errnoNames = map[syscall.Errno]string{
	syscall.ENOENT:  "ENOENT",
	syscall.EACCES:  "EACCES",
	syscall.EPERM:   "EPERM",
	syscall.EEXIST:  "EEXIST",
	syscall.ENOSPC:  "ENOSPC",
	syscall.EROFS:   "EROFS",
	syscall.EISDIR:  "EISDIR",
	syscall.ENOTDIR: "ENOTDIR",
	syscall.EXDEV:   "EXDEV",
	syscall.EIO:     "EIO",
}

// fsError wraps err as a FileSystemError, extracting the errno name.
func fsError(op, path string, err error) error {
	fe := &FileSystemError{Op: op, Path: path, Err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if name, ok := errnoNames[errno]; ok {
			fe.Code = name
		} else {
			fe.Code = fmt.Sprintf("errno %d", int(errno))
		}
	}
	return fe
}
