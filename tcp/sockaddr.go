//go:build linux || darwin

package tcp

import (
	"net/netip"

	"golang.org/x/sys/unix"
)

// sockaddr parses a numeric host and a port, no name resolution is performed.
func sockaddr(host string, port int) (unix.Sockaddr, int, error) {
	if port < 0 || port > 0xffff {
		return nil, 0, newError(unix.EINVAL)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil, 0, newError(unix.EINVAL)
	}
	if addr.Is4() || addr.Is4In6() {
		return &unix.SockaddrInet4{Port: port, Addr: addr.Unmap().As4()}, unix.AF_INET, nil
	}
	return &unix.SockaddrInet6{Port: port, Addr: addr.As16()}, unix.AF_INET6, nil
}

// addrPort converts a socket address back to a netip.AddrPort.
func addrPort(sa unix.Sockaddr) netip.AddrPort {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port))
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port))
	default:
		return netip.AddrPort{}
	}
}
