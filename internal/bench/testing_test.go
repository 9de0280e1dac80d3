package bench

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeServer is a tiny meta protocol server handling mg, ms and mn.
type fakeServer struct {
	listener net.Listener

	mu    sync.Mutex
	items map[string][]byte
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeServer{listener: listener, items: map[string][]byte{}}
	go s.serve()
	t.Cleanup(func() { listener.Close() })
	return s
}

func (s *fakeServer) Addr() string {
	return s.listener.Addr().String()
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return
		}

		var reply string
		switch {
		case fields[0] == "mg" && len(fields) >= 2:
			s.mu.Lock()
			v, ok := s.items[fields[1]]
			s.mu.Unlock()
			if ok {
				reply = fmt.Sprintf("VA %d\r\n%s\r\n", len(v), v)
			} else {
				reply = "EN\r\n"
			}
		case fields[0] == "ms" && len(fields) >= 3:
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				reply = "CLIENT_ERROR bad data chunk\r\n"
				break
			}
			data := make([]byte, n+2)
			if _, err := io.ReadFull(r, data); err != nil {
				return
			}
			s.mu.Lock()
			s.items[fields[1]] = data[:n]
			s.mu.Unlock()
			reply = "HD\r\n"
		case fields[0] == "mn":
			reply = "MN\r\n"
		case fields[0] == "boom":
			reply = "SERVER_ERROR out of memory\r\n"
		default:
			reply = "ERROR\r\n"
		}

		if _, err := io.WriteString(conn, reply); err != nil {
			return
		}
	}
}

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()
	return addr
}

// stalledAddr returns the address of a listener that accepts connections,
// reads nothing and never answers.
func stalledAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		listener.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			conn.Close()
		}
	})
	return listener.Addr().String()
}
