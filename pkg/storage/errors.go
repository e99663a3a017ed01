package storage

import "github.com/pkg/errors"

type storageError string

// ErrNotFound is returned by a sub-store when no snapshot was saved yet.
const ErrNotFound = storageError("snapshot not found")

func (e storageError) Error() string {
	return string(e)
}

// IsNotFound reports whether err, or the cause it wraps, is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}
