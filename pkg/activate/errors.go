package activate

import (
	"fmt"
)

// Error is the catch-all activation failure: a message plus an optional cause
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	msg := "activation failed"
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errorf(format string, args ...interface{}) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

func wrap(err error, format string, args ...interface{}) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Err: err}
}

// BadMagicError means the directory is not a recognised OSD volume, or was
// created by an incompatible version. Callers often treat it as "not
// provisioned yet" rather than a fault.
type BadMagicError struct {
	Path  string
	Found string // Empty when the magic marker is absent
}

func (e *BadMagicError) Error() string {
	return fmt.Sprintf("does not look like a Ceph OSD, or incompatible version: %s", e.Path)
}
