package fsops

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// Failure reasons attached to per-file errors
const (
	ReasonPermission = "permission_denied"
	ReasonStale      = "stale_handle"
	ReasonIO         = "io_error"
)

// IsNotExist reports whether err means the file is already gone
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// IsPermission reports EACCES/EPERM style failures
func IsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}

// IsStaleHandle reports NFS stale-handle style failures (ESTALE, EIO, ENXIO)
func IsStaleHandle(err error) bool {
	return errors.Is(err, unix.ESTALE) ||
		errors.Is(err, unix.EIO) ||
		errors.Is(err, unix.ENXIO)
}

// Classify maps a delete error to a failure reason label
func Classify(err error) string {
	switch {
	case IsPermission(err):
		return ReasonPermission
	case IsStaleHandle(err):
		return ReasonStale
	default:
		return ReasonIO
	}
}
