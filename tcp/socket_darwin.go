//go:build darwin

package tcp

import (
	"golang.org/x/sys/unix"
)

func newSocket(domain int) (int, error) {
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	if err := prepareSocket(fd); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func acceptSocket(fd int) (int, error) {
	nfd, _, err := unix.Accept(fd)
	if err != nil {
		return -1, err
	}
	if err := prepareSocket(nfd); err != nil {
		_ = unix.Close(nfd)
		return -1, err
	}
	return nfd, nil
}

func prepareSocket(fd int) error {
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}

func writeSocket(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}
