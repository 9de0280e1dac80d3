package mcmc

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/bassosimone/errclass"
	"github.com/bassosimone/netstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/mcmc/protocol"
)

func TestNewConnection(t *testing.T) {
	c := NewConnection(nil, Options{TCPKeepalive: true})

	require.NotNil(t, c)
	assert.Equal(t, StateNotConnected, c.State())
	assert.Equal(t, Options{TCPKeepalive: true}, c.Options())
	assert.Equal(t, -1, c.Fd())
	assert.NoError(t, c.Err())
	assert.NotNil(t, c.cfg.Dialer)
	assert.NotNil(t, c.cfg.Resolver)
	assert.NotNil(t, c.cfg.Logger)
}

func TestConnectBlocking(t *testing.T) {
	var gotNetwork, gotAddress string
	cfg := NewConfig()
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			gotNetwork, gotAddress = network, address
			return newMinimalConn(), nil
		},
	}

	c := NewConnection(cfg, Options{})
	state, err := c.Connect(context.Background(), "::1", "11211")

	require.NoError(t, err)
	assert.Equal(t, StateConnected, state)
	assert.Equal(t, StateConnected, c.State())
	assert.Equal(t, "tcp", gotNetwork)
	assert.Equal(t, "[::1]:11211", gotAddress)
	assert.Equal(t, -1, c.Fd(), "stub conn exposes no descriptor")

	_, err = c.Connect(context.Background(), "::1", "11211")
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestConnectBlockingFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	cfg := NewConfig()
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			return nil, dialErr
		},
	}

	c := NewConnection(cfg, Options{})
	state, err := c.Connect(context.Background(), "127.0.0.1", "1")

	require.Error(t, err)
	assert.Equal(t, StateNotConnected, state)
	assert.ErrorIs(t, err, dialErr)

	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "connect", cerr.Op)
	assert.True(t, ShouldCloseConnection(err))

	assert.Equal(t, errclass.New(dialErr), c.Diagnostics().Code())
	assert.Contains(t, c.Diagnostics().Message(), "connection refused")
	assert.Same(t, cerr, c.Err())
}

func TestConnectClassifier(t *testing.T) {
	cfg := NewConfig()
	cfg.ErrClassifier = ErrClassifierFunc(func(err error) string {
		if err == nil {
			return ""
		}
		return "ECUSTOM"
	})
	cfg.Dialer = &netstub.FuncDialer{
		DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
			return nil, errors.New("boom")
		},
	}

	c := NewConnection(cfg, Options{})
	_, err := c.Connect(context.Background(), "127.0.0.1", "11211")
	require.Error(t, err)

	code := make([]byte, ErrorCodeMax)
	msg := make([]byte, ErrorMsgMax)
	nc, nm := c.GetError(code, msg)
	assert.Equal(t, "ECUSTOM", string(code[:nc]))
	assert.Equal(t, "connection error during connect: boom", string(msg[:nm]))
}

func TestConnectLogs(t *testing.T) {
	logger, records := newCapturingLogger()
	cfg := NewConfig()
	cfg.Logger = logger

	c := newDialedConnection(cfg, newMinimalConn())
	require.NoError(t, c.Disconnect())

	assert.Equal(t, []string{"connectStart", "connectDone", "closeDone"}, recordMessages(*records))
}

func TestConnectLoopback(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		if string(buf[:n]) == "mn\r\n" {
			conn.Write([]byte("MN\r\n"))
		}
	}()

	host, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)

	c := NewConnection(NewConfig(), Options{TCPKeepalive: true})
	state, err := c.Connect(context.Background(), host, port)
	require.NoError(t, err)
	assert.Equal(t, StateConnected, state)
	assert.Greater(t, c.Fd(), 0)
	defer c.Disconnect()

	n, err := c.SendRequest([]byte("mn\r\n"), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, MinBufferSize(c.Options()))
	n, err = c.Receive(buf)
	require.NoError(t, err)

	resp, err := c.Parse(buf, n)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeMeta, resp.Type)
	assert.Equal(t, protocol.StatusNop, resp.Code)
}

func TestSetDeadline(t *testing.T) {
	c := NewConnection(nil, Options{})
	assert.ErrorIs(t, c.SetDeadline(time.Now()), ErrNotConnected)

	sock := &fakeSocket{}
	c = newFakeConnection(nil, sock, StateConnected)
	deadline := time.Now().Add(time.Second)
	require.NoError(t, c.SetDeadline(deadline))
	assert.Equal(t, deadline, sock.deadline)
}

func TestReceiveDeadlineLoopback(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		<-done
	}()

	host, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)

	c := NewConnection(NewConfig(), Options{})
	_, err = c.Connect(context.Background(), host, port)
	require.NoError(t, err)
	defer c.Disconnect()

	require.NoError(t, c.SetDeadline(time.Now().Add(50*time.Millisecond)))

	buf := make([]byte, MinBufferSize(c.Options()))
	_, err = c.Receive(buf)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "read", connErr.Op)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.True(t, ShouldCloseConnection(err))
	assert.ErrorIs(t, c.Err(), os.ErrDeadlineExceeded)
}

func TestDisconnect(t *testing.T) {
	closed := 0
	conn := newMinimalConn()
	conn.CloseFunc = func() error {
		closed++
		return nil
	}

	c := newDialedConnection(NewConfig(), conn)
	require.NoError(t, c.Disconnect())
	require.NoError(t, c.Disconnect())

	assert.Equal(t, 1, closed)
	assert.Equal(t, StateNotConnected, c.State())
	assert.Equal(t, -1, c.Fd())
}

func TestDisconnectError(t *testing.T) {
	closeErr := errors.New("close failed")
	conn := newMinimalConn()
	conn.CloseFunc = func() error { return closeErr }

	c := newDialedConnection(NewConfig(), conn)
	err := c.Disconnect()

	assert.ErrorIs(t, err, closeErr)
	assert.Equal(t, StateNotConnected, c.State())
	assert.NoError(t, c.Disconnect())
}

func TestCheckNonblockConnect(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		sock := &fakeSocket{ResultFunc: func() error { return nil }}
		c := newFakeConnection(NewConfig(), sock, StateConnecting)

		state, err := c.CheckNonblockConnect()
		require.NoError(t, err)
		assert.Equal(t, StateConnected, state)
		assert.Equal(t, 0, sock.closed)
	})

	t.Run("refused", func(t *testing.T) {
		refused := errors.New("connection refused")
		sock := &fakeSocket{ResultFunc: func() error { return refused }}
		c := newFakeConnection(NewConfig(), sock, StateConnecting)

		state, err := c.CheckNonblockConnect()
		assert.ErrorIs(t, err, refused)
		assert.Equal(t, StateNotConnected, state)
		assert.Equal(t, 1, sock.closed)
		assert.Equal(t, errclass.New(refused), c.Diagnostics().Code())
		assert.Equal(t, -1, c.Fd())
	})

	t.Run("not connecting", func(t *testing.T) {
		c := NewConnection(NewConfig(), Options{Nonblocking: true})
		state, err := c.CheckNonblockConnect()
		assert.ErrorIs(t, err, ErrNotConnecting)
		assert.Equal(t, StateNotConnected, state)
		assert.NoError(t, c.Err(), "usage errors are not recorded")
	})
}

func TestReceive(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		c := NewConnection(NewConfig(), Options{})
		_, err := c.Receive(make([]byte, 16))
		assert.ErrorIs(t, err, ErrNotConnected)
	})

	t.Run("would block", func(t *testing.T) {
		sock := &fakeSocket{ReadFunc: func(b []byte) (int, error) { return 0, errWouldBlock }}
		c := newFakeConnection(NewConfig(), sock, StateConnected)

		n, err := c.Receive(make([]byte, 16))
		assert.Equal(t, 0, n)
		assert.ErrorIs(t, err, ErrWantRead)
		assert.Equal(t, StateWantRead, c.State())
		assert.False(t, ShouldCloseConnection(err))
		assert.NoError(t, c.Err())

		sock.ReadFunc = func(b []byte) (int, error) { return copy(b, "END\r\n"), nil }
		n, err = c.Receive(make([]byte, 16))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, StateConnected, c.State())
	})

	t.Run("eof", func(t *testing.T) {
		conn := newMinimalConn()
		conn.ReadFunc = func(b []byte) (int, error) { return 0, io.EOF }
		c := newDialedConnection(NewConfig(), conn)

		_, err := c.Receive(make([]byte, 16))
		assert.ErrorIs(t, err, io.EOF)
		assert.True(t, ShouldCloseConnection(err))
		assert.ErrorIs(t, c.Err(), io.EOF)
	})

	t.Run("error", func(t *testing.T) {
		conn := newMinimalConn()
		conn.ReadFunc = func(b []byte) (int, error) { return 0, errors.New("connection reset") }
		c := newDialedConnection(NewConfig(), conn)

		_, err := c.Receive(make([]byte, 16))
		var cerr *ConnectionError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "read", cerr.Op)
	})

	t.Run("logs", func(t *testing.T) {
		logger, records := newCapturingLogger()
		cfg := NewConfig()
		cfg.Logger = logger
		cfg.TimeNow = func() time.Time { return time.Unix(1700000000, 0) }

		conn := newMinimalConn()
		conn.ReadFunc = func(b []byte) (int, error) { return copy(b, "HD\r\n"), nil }
		c := newDialedConnection(cfg, conn)
		*records = nil

		_, err := c.Receive(make([]byte, 16))
		require.NoError(t, err)
		require.Len(t, *records, 1)
		assert.Equal(t, "readDone", (*records)[0].Message)
	})
}

func TestConnectionParse(t *testing.T) {
	c := NewConnection(NewConfig(), Options{})
	buf := make([]byte, MinBufferSize(c.Options()))

	n := copy(buf, "VALUE foo 0 -1\r\n")
	resp, err := c.Parse(buf, n)
	var verr *protocol.ValueError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, protocol.StatusValue, resp.Code)
	assert.Equal(t, CodeValue, c.Diagnostics().Code())

	n = copy(buf, "BOGUS\r\n")
	_, err = c.Parse(buf, n)
	var perr *protocol.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, CodeParse, c.Diagnostics().Code())

	n = copy(buf, "VALUE foo 0 3\r\nba")
	_, err = c.Parse(buf, n)
	assert.ErrorIs(t, err, protocol.ErrShort)
	assert.Equal(t, CodeParse, c.Diagnostics().Code(), "short reads are not recorded")

	_, _, err = c.ContinueValue([]byte("rXX"), 3)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, CodeParse, c.Diagnostics().Code())
}
