package bridge

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an [Error].
type ErrorKind uint8

const (
	// KindSetup is a synchronous failure of a host-initiated operation.
	KindSetup ErrorKind = iota + 1
	// KindStream is a failure reported by the engine for an established
	// stream, e.g. a read error.
	KindStream
	// KindWrite is the status of a failed write, passed to its callback.
	KindWrite
	// KindCallback is an exception raised by a host callback.
	KindCallback
)

func (k ErrorKind) String() string {
	switch k {
	case KindSetup:
		return "setup"
	case KindStream:
		return "stream"
	case KindWrite:
		return "write"
	case KindCallback:
		return "callback"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

var (
	// ErrHandleClosing is returned for operations on a handle that has been
	// closed, but whose closed event is still pending.
	ErrHandleClosing = errors.New("handle is closing")

	// ErrHandleClosed is returned for operations on a fully closed handle.
	ErrHandleClosed = errors.New("handle is closed")

	// ErrInvalidHandle is returned for a handle owned by another bridge.
	ErrInvalidHandle = errors.New("invalid handle")
)

// Error is the error type produced by the bridge. Op is the operation, or
// for KindCallback the event being dispatched.
type Error struct {
	Err  error
	Op   string
	Kind ErrorKind
}

func (e *Error) Error() string {
	if e.Kind == KindCallback {
		return fmt.Sprintf("error running function 'on_%s': %v", e.Op, e.Err)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the engine's symbolic error code for err, e.g. "ECONNRESET",
// or an empty string.
func Code(err error) string {
	var target interface{ Code() string }
	if errors.As(err, &target) {
		return target.Code()
	}
	return ""
}

// Status returns the numeric status for err: 0 for nil, the engine's
// (negative) status where available, otherwise -1.
func Status(err error) int {
	if err == nil {
		return 0
	}
	var target interface{ Status() int }
	if errors.As(err, &target) {
		return target.Status()
	}
	return -1
}

// maxPanicStack bounds the stack trace retained by a HostPanicError.
const maxPanicStack = 4 << 10

// HostPanicError wraps a value recovered from a panicking host call.
type HostPanicError struct {
	Value any
	// Stack is the (possibly truncated) stack of the panicking goroutine.
	Stack []byte
}

func (e *HostPanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *HostPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
