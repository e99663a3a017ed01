package broker

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by every operation after Run returned.
	ErrClosed = errors.New("broker: closed")
	// ErrAlreadyStarted is returned by Run and Load once Run was called.
	ErrAlreadyStarted = errors.New("broker: already started")
)

type ErrorReason string

const (
	ErrReasonNotFound         ErrorReason = "ERR_NOT_FOUND"
	ErrReasonPermissionDenied ErrorReason = "ERR_PERMISSION_DENIED"
	ErrReasonInvalidArgument  ErrorReason = "ERR_INVALID_ARGUMENT"
)

func (e ErrorReason) String() string {
	return string(e)
}

// ScheduleError is returned by the scheduler operations. The target entry is
// left unchanged whenever one is returned.
type ScheduleError struct {
	Reason ErrorReason
	ID     string
}

func newScheduleError(reason ErrorReason, id string) error {
	return &ScheduleError{
		Reason: reason,
		ID:     id,
	}
}

func (e *ScheduleError) Error() string {
	switch e.Reason {
	case ErrReasonNotFound:
		return fmt.Sprintf("scheduled message '%s' does not exist", e.ID)
	case ErrReasonPermissionDenied:
		return fmt.Sprintf("not allowed to modify scheduled message '%s'", e.ID)
	case ErrReasonInvalidArgument:
		return fmt.Sprintf("scheduled message '%s' is invalid", e.ID)
	}
	return fmt.Sprintf("scheduled message '%s' failed: reason: %s", e.ID, e.Reason)
}

func IsNotFoundError(e error) bool {
	se, ok := e.(*ScheduleError)
	return ok && se.Reason == ErrReasonNotFound
}

func IsPermissionError(e error) bool {
	se, ok := e.(*ScheduleError)
	return ok && se.Reason == ErrReasonPermissionDenied
}
