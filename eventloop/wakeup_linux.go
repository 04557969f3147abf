//go:build linux

package eventloop

import (
	"golang.org/x/sys/unix"
)

// newWakeFD creates a non-blocking eventfd, used as both the read and the
// write end of the wake-up channel.
func newWakeFD() (readFD, writeFD int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, -1, err
	}
	return fd, fd, nil
}
