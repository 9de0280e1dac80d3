package mcmc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/netstub"
	"github.com/bassosimone/slogstub"
)

// newCapturingLogger returns a logger that appends every record to the
// returned slice.
func newCapturingLogger() (*slog.Logger, *[]slog.Record) {
	var records []slog.Record
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			records = append(records, record)
			return nil
		},
	}
	return slog.New(handler), &records
}

func recordMessages(records []slog.Record) []string {
	msgs := make([]string, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, r.Message)
	}
	return msgs
}

// newMinimalConn returns a conn with just enough to be logged and closed.
func newMinimalConn() *netstub.FuncConn {
	return &netstub.FuncConn{
		CloseFunc: func() error { return nil },
		LocalAddrFunc: func() net.Addr {
			return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 54321}
		},
		RemoteAddrFunc: func() net.Addr {
			return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 11211}
		},
	}
}

// newDialedConnection returns a blocking Connection connected to conn.
func newDialedConnection(cfg *Config, conn net.Conn) *Connection {
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			return conn, nil
		},
	}
	c := NewConnection(cfg, Options{})
	if _, err := c.Connect(context.Background(), "127.0.0.1", "11211"); err != nil {
		panic(err)
	}
	return c
}

// fakeSocket lets tests drive the nonblocking code paths without a kernel
// socket.
type fakeSocket struct {
	WriteFunc  func(b []byte) (int, error)
	WritevFunc func(segments [][]byte) (int, error)
	ReadFunc   func(b []byte) (int, error)
	ResultFunc func() error
	closed     int
	deadline   time.Time
}

var _ socket = &fakeSocket{}

func (s *fakeSocket) Write(b []byte) (int, error)           { return s.WriteFunc(b) }
func (s *fakeSocket) Writev(segments [][]byte) (int, error) { return s.WritevFunc(segments) }
func (s *fakeSocket) Read(b []byte) (int, error)            { return s.ReadFunc(b) }
func (s *fakeSocket) Fd() int                               { return 42 }
func (s *fakeSocket) SetDeadline(t time.Time) error         { s.deadline = t; return nil }
func (s *fakeSocket) connectResult() error                  { return s.ResultFunc() }
func (s *fakeSocket) localAddr() string                     { return "127.0.0.1:54321" }
func (s *fakeSocket) remoteAddr() string                    { return "127.0.0.1:11211" }
func (s *fakeSocket) network() string                       { return "tcp" }

func (s *fakeSocket) Close() error {
	s.closed++
	return nil
}

// newFakeConnection returns a nonblocking Connection on sock in the given
// state.
func newFakeConnection(cfg *Config, sock *fakeSocket, state State) *Connection {
	c := NewConnection(cfg, Options{Nonblocking: true})
	c.sock = sock
	c.state = state
	return c
}
