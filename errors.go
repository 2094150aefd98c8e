package xdispatch

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrEmptyQueue is returned when popping from an empty MessageQueue.
	ErrEmptyQueue = errors.New("xdispatch: pop from empty message queue")

	// ErrNilMessage is returned when a nil message is queued or handled.
	ErrNilMessage = errors.New("xdispatch: nil message")

	// ErrNilHandler is returned when subscribing a nil handler.
	ErrNilHandler = errors.New("xdispatch: nil handler")

	// ErrNoUnitOfWork is returned by the builder when no unit of work
	// was configured.
	ErrNoUnitOfWork = errors.New("xdispatch: no unit of work configured")

	// ErrDuplicateKey is returned by storage adapters when adding an
	// aggregate whose key is already present.
	ErrDuplicateKey = errors.New("xdispatch: duplicate aggregate key")

	// ErrDispatchNotInitialized is returned by the facade when the
	// default bus has not been installed.
	ErrDispatchNotInitialized = errors.New("xdispatch: default bus not initialized")
)

// UnregisteredHandlerError reports a command dispatched with no
// subscribed handler. Always fatal, never retried.
type UnregisteredHandlerError struct {
	Type reflect.Type
}

func (e UnregisteredHandlerError) Error() string {
	return fmt.Sprintf("xdispatch: no handler registered for command %s", e.Type)
}

// TypeMismatchError reports a message whose Kind is neither command nor
// event. Always fatal at wiring time.
type TypeMismatchError struct {
	Type reflect.Type
	Kind Kind
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("xdispatch: %s is not a command or an event (kind %d)", e.Type, e.Kind)
}

// DomainError is a recognized business-rule violation raised by a
// handler. It is the only error class the bus recovers from, and only
// on the event fan-out path.
type DomainError struct {
	Reason string
	Err    error
}

// NewDomainError builds a DomainError with a formatted reason.
func NewDomainError(format string, args ...any) *DomainError {
	return &DomainError{Reason: fmt.Sprintf(format, args...)}
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *DomainError) Unwrap() error { return e.Err }

// IsDomainError reports whether err is, or wraps, a DomainError.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
