package mcmc

import (
	"errors"
	"net"
	"slices"
	"syscall"
	"time"

	"github.com/bassosimone/safeconn"
)

// errWouldBlock is returned by socket I/O when the operation would block.
// Connection turns it into ErrWantRead or ErrWantWrite.
var errWouldBlock = errors.New("mcmc: operation would block")

// socket is the transport under a Connection: either a dialed net.Conn
// (blocking mode) or a raw nonblocking descriptor.
type socket interface {
	Write(b []byte) (int, error)
	Writev(segments [][]byte) (int, error)
	Read(b []byte) (int, error)
	Fd() int

	// SetDeadline bounds blocking reads and writes. Nonblocking sockets
	// never block and ignore it.
	SetDeadline(t time.Time) error

	// connectResult returns the outcome of an asynchronous connect.
	connectResult() error

	localAddr() string
	remoteAddr() string
	network() string
	Close() error
}

// connSocket adapts a net.Conn obtained from the Dialer.
type connSocket struct {
	conn net.Conn
}

var _ socket = &connSocket{}

func (s *connSocket) Write(b []byte) (int, error) {
	return s.conn.Write(b)
}

func (s *connSocket) Writev(segments [][]byte) (int, error) {
	// WriteTo consumes the slice it is called on.
	bufs := net.Buffers(slices.Clone(segments))
	n, err := bufs.WriteTo(s.conn)
	return int(n), err
}

func (s *connSocket) Read(b []byte) (int, error) {
	return s.conn.Read(b)
}

func (s *connSocket) SetDeadline(t time.Time) error {
	return s.conn.SetDeadline(t)
}

func (s *connSocket) Fd() int {
	sc, ok := s.conn.(syscall.Conn)
	if !ok {
		return -1
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1
	}
	fd := -1
	if err := raw.Control(func(v uintptr) { fd = int(v) }); err != nil {
		return -1
	}
	return fd
}

func (s *connSocket) connectResult() error {
	return nil
}

func (s *connSocket) localAddr() string {
	return safeconn.LocalAddr(s.conn)
}

func (s *connSocket) remoteAddr() string {
	return safeconn.RemoteAddr(s.conn)
}

func (s *connSocket) network() string {
	return safeconn.Network(s.conn)
}

func (s *connSocket) Close() error {
	return s.conn.Close()
}
