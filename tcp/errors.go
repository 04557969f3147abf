//go:build linux || darwin

package tcp

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// EOF is the nread value reported when the peer has closed its end.
const EOF = -4095

// Error is an engine error, carrying a machine readable code, e.g.
// "ECONNRESET", and human readable text.
type Error struct {
	Errno unix.Errno
	code  string
	msg   string
}

// ErrEOF is passed to the read callback, with nread == EOF, once the peer
// has closed its end of the stream.
var ErrEOF = &Error{code: `EOF`, msg: `end of file`}

// newError converts a syscall error to an *Error, other errors pass through.
func newError(err error) error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return err
	}
	code := unix.ErrnoName(errno)
	if code == `` {
		code = fmt.Sprintf(`E%d`, int(errno))
	}
	return &Error{Errno: errno, code: code, msg: errno.Error()}
}

// Code returns the symbolic error code.
func (e *Error) Code() string {
	return e.code
}

// Status returns the libuv style status, a negative errno, or EOF.
func (e *Error) Status() int {
	if e.Errno == 0 {
		return EOF
	}
	return -int(e.Errno)
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	if e.Errno == 0 {
		return nil
	}
	return e.Errno
}

// Is matches other *Error values by code, so e.g. errors.Is(err, ErrEOF)
// holds for any end of stream error. ErrEOF also matches io.EOF.
func (e *Error) Is(target error) bool {
	if target == io.EOF {
		return e.Errno == 0 && e.code == ErrEOF.code
	}
	t, ok := target.(*Error)
	return ok && t.code == e.code
}
