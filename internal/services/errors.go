package services

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes engine errors so the transport layer can map them.
type ErrorKind string

const (
	KindNotFound                  ErrorKind = "NOT_FOUND"
	KindInvalidStateTransition    ErrorKind = "INVALID_STATE_TRANSITION"
	KindSessionNotEditable        ErrorKind = "SESSION_NOT_EDITABLE"
	KindSessionNotYetStartable    ErrorKind = "SESSION_NOT_YET_STARTABLE"
	KindInvalidSessionTime        ErrorKind = "INVALID_SESSION_TIME"
	KindInvalidExceptionTime      ErrorKind = "INVALID_EXCEPTION_TIME"
	KindDuplicateException        ErrorKind = "DUPLICATE_EXCEPTION"
	KindDuplicateAttendance       ErrorKind = "DUPLICATE_ATTENDANCE"
	KindExceptionAlreadyProcessed ErrorKind = "EXCEPTION_ALREADY_PROCESSED"
	KindForbidden                 ErrorKind = "FORBIDDEN"
	KindValidationFailed          ErrorKind = "VALIDATION_ERROR"
	KindConflict                  ErrorKind = "CONFLICT"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of an engine error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

func IsNotFound(err error) bool  { return IsKind(err, KindNotFound) }
func IsForbidden(err error) bool { return IsKind(err, KindForbidden) }
