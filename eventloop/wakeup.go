//go:build linux || darwin

package eventloop

import (
	"golang.org/x/sys/unix"
)

// wakeValue is written to the wake fd. An eventfd requires exactly 8 bytes,
// a pipe accepts any length.
var wakeValue = [8]byte{1}

// signalWake writes a wake-up token. EAGAIN means a token is already pending.
func signalWake(fd int) error {
	_, err := unix.Write(fd, wakeValue[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// drainWake consumes all pending wake-up tokens.
func drainWake(fd int, buf []byte) {
	for {
		if _, err := unix.Read(fd, buf); err != nil {
			return
		}
	}
}

// closeWakeFDs closes both ends, which may be the same fd.
func closeWakeFDs(readFD, writeFD int) {
	_ = unix.Close(readFD)
	if writeFD != readFD {
		_ = unix.Close(writeFD)
	}
}
