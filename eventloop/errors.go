package eventloop

import (
	"errors"
	"fmt"
)

var (
	// ErrLoopAlreadyRunning is returned when Run is called on a loop that is already running.
	ErrLoopAlreadyRunning = errors.New("eventloop: loop is already running")

	// ErrLoopTerminated is returned when operations are attempted on a terminated loop.
	ErrLoopTerminated = errors.New("eventloop: loop has been terminated")

	// ErrReentrantRun is returned when Run is called from within the loop itself.
	ErrReentrantRun = errors.New("eventloop: cannot call Run() from within the loop")
)

// PanicError wraps a value recovered from a panicking task or I/O callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("eventloop: task panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error, enabling [errors.Is] and
// [errors.As] through the recovered value.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// FatalPanic is implemented by panic values that report a broken program
// invariant. A task or I/O callback panicking with one is not recovered:
// the loop terminates and Run panics with the same value.
type FatalPanic interface {
	FatalPanic()
}
