package proto

import "fmt"

// MalformedError is returned when an inbound envelope cannot be parsed or
// misses a required field.
type MalformedError struct {
	Type   MessageType
	Reason string
}

func newMalformedError(msgType MessageType, format string, args ...interface{}) error {
	return &MalformedError{
		Type:   msgType,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (e *MalformedError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("malformed message: %s", e.Reason)
	}
	return fmt.Sprintf("malformed %s message: %s", e.Type, e.Reason)
}

func IsMalformedError(e error) bool {
	_, ok := e.(*MalformedError)
	return ok
}
