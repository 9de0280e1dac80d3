//go:build linux

package mcmc

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// fdSocket is a raw nonblocking TCP socket.
type fdSocket struct {
	fd    int
	raddr netip.AddrPort
}

var _ socket = &fdSocket{}

// dialNonblock opens a nonblocking socket and starts connecting to addr.
// connected is true when the connect completed immediately.
func dialNonblock(addr netip.AddrPort, keepalive bool) (s *fdSocket, connected bool, err error) {
	addr = netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())

	family := unix.AF_INET6
	if addr.Addr().Is4() {
		family = unix.AF_INET
	}

	sa, err := sockaddr(addr)
	if err != nil {
		return nil, false, err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, false, os.NewSyscallError("socket", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, boolint(keepalive)); err != nil {
		unix.Close(fd)
		return nil, false, os.NewSyscallError("setsockopt", err)
	}

	err = unix.Connect(fd, sa)
	switch {
	case err == nil:
		connected = true
	case errors.Is(err, unix.EINPROGRESS), errors.Is(err, unix.EINTR):
	default:
		unix.Close(fd)
		return nil, false, os.NewSyscallError("connect", err)
	}

	return &fdSocket{fd: fd, raddr: addr}, connected, nil
}

func sockaddr(addr netip.AddrPort) (unix.Sockaddr, error) {
	if addr.Addr().Is4() {
		return &unix.SockaddrInet4{Port: int(addr.Port()), Addr: addr.Addr().As4()}, nil
	}
	zone, err := zoneID(addr.Addr().Zone())
	if err != nil {
		return nil, err
	}
	return &unix.SockaddrInet6{Port: int(addr.Port()), ZoneId: zone, Addr: addr.Addr().As16()}, nil
}

// zoneID maps an IPv6 zone, an interface name or index, to a scope id.
func zoneID(zone string) (uint32, error) {
	if zone == "" {
		return 0, nil
	}
	if n, err := strconv.ParseUint(zone, 10, 32); err == nil {
		return uint32(n), nil
	}
	ifi, err := net.InterfaceByName(zone)
	if err != nil {
		return 0, fmt.Errorf("ipv6 zone %q: %w", zone, err)
	}
	return uint32(ifi.Index), nil
}

func boolint(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *fdSocket) Write(b []byte) (int, error) {
	for {
		n, err := unix.Write(s.fd, b)
		switch {
		case err == nil:
			return n, nil
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, errWouldBlock
		default:
			return 0, os.NewSyscallError("write", err)
		}
	}
}

func (s *fdSocket) Writev(segments [][]byte) (int, error) {
	for {
		n, err := unix.Writev(s.fd, segments)
		switch {
		case err == nil:
			return n, nil
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, errWouldBlock
		default:
			return 0, os.NewSyscallError("writev", err)
		}
	}
}

func (s *fdSocket) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Read(s.fd, b)
		switch {
		case err == nil && n == 0:
			return 0, io.EOF
		case err == nil:
			return n, nil
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return 0, errWouldBlock
		default:
			return 0, os.NewSyscallError("read", err)
		}
	}
}

func (s *fdSocket) SetDeadline(time.Time) error {
	return nil
}

func (s *fdSocket) Fd() int {
	return s.fd
}

func (s *fdSocket) connectResult() error {
	v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt", err)
	}
	if v != 0 {
		return os.NewSyscallError("connect", unix.Errno(v))
	}
	return nil
}

func (s *fdSocket) localAddr() string {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return ""
	}
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port)).String()
	case *unix.SockaddrInet6:
		return netip.AddrPortFrom(netip.AddrFrom16(sa.Addr), uint16(sa.Port)).String()
	}
	return ""
}

func (s *fdSocket) remoteAddr() string {
	return s.raddr.String()
}

func (s *fdSocket) network() string {
	return "tcp"
}

func (s *fdSocket) Close() error {
	if err := unix.Close(s.fd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}
