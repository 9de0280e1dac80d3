package mcmc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/pior/mcmc/protocol"
)

// Connection is a single memcached connection: a socket, its handshake
// state and the diagnostics of the last failure.
//
// A Connection has no internal locking and must be used by one goroutine
// at a time. The zero value is not usable, create one with NewConnection.
type Connection struct {
	cfg    *Config
	opts   Options
	state  State
	sock   socket
	parser Parser
	diag   Diagnostics
}

// NewConnection returns a Connection in StateNotConnected. A nil cfg means
// NewConfig().
func NewConnection(cfg *Config, opts Options) *Connection {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Connection{
		cfg:    cfg,
		opts:   opts,
		parser: NewParser(opts),
	}
}

// Options returns the options the connection was created with.
func (c *Connection) Options() Options {
	return c.opts
}

// State returns the current connection state.
func (c *Connection) State() State {
	return c.state
}

// Fd returns the socket descriptor for use with a readiness loop, or -1
// when there is no socket or the dialed conn does not expose one.
func (c *Connection) Fd() int {
	if c.sock == nil {
		return -1
	}
	return c.sock.Fd()
}

// SetDeadline sets the deadline of blocking reads and writes, as
// net.Conn.SetDeadline does. A zero t clears it. I/O past the deadline
// fails with an error wrapping os.ErrDeadlineExceeded.
//
// Nonblocking connections never block and ignore the deadline: bound the
// readiness wait instead.
func (c *Connection) SetDeadline(t time.Time) error {
	if c.sock == nil {
		return ErrNotConnected
	}
	return c.sock.SetDeadline(t)
}

// Connect resolves host and port and connects.
//
// In blocking mode it dials through Config.Dialer and returns
// StateConnected. In nonblocking mode it tries every resolved address in
// turn and returns StateConnecting as soon as a connect is in progress;
// wait for the descriptor to become writable and call CheckNonblockConnect.
//
// Failures are recorded in the diagnostics and returned as *ConnectionError.
func (c *Connection) Connect(ctx context.Context, host, port string) (State, error) {
	if c.state != StateNotConnected {
		return c.state, ErrAlreadyConnected
	}

	address := net.JoinHostPort(host, port)
	t0 := c.cfg.TimeNow()
	deadline, _ := ctx.Deadline()
	c.logConnectStart(address, t0, deadline)

	var err error
	if c.opts.Nonblocking {
		err = c.connectNonblock(ctx, host, port)
	} else {
		err = c.connectBlocking(ctx, address)
	}
	c.logConnectDone(address, t0, deadline, err)

	if err != nil {
		return c.state, c.fail("connect", err)
	}
	return c.state, nil
}

func (c *Connection) connectBlocking(ctx context.Context, address string) error {
	conn, err := c.cfg.Dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetKeepAlive(c.opts.TCPKeepalive); err != nil {
			conn.Close()
			return err
		}
	}

	c.sock = &connSocket{conn: conn}
	c.state = StateConnected
	return nil
}

func (c *Connection) connectNonblock(ctx context.Context, host, port string) error {
	addrs, err := c.resolve(ctx, host, port)
	if err != nil {
		return err
	}

	lastErr := ErrNoAddress
	for _, addr := range addrs {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, connected, err := dialNonblock(addr, c.opts.TCPKeepalive)
		if err != nil {
			lastErr = err
			continue
		}

		c.sock = s
		c.state = StateConnecting
		if connected {
			c.state = StateConnected
		}
		return nil
	}
	return lastErr
}

func (c *Connection) resolve(ctx context.Context, host, port string) ([]netip.AddrPort, error) {
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		n, lerr := c.cfg.Resolver.LookupPort(ctx, "tcp", port)
		if lerr != nil {
			return nil, lerr
		}
		p = uint64(n)
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		return []netip.AddrPort{netip.AddrPortFrom(ip, uint16(p))}, nil
	}

	ips, err := c.cfg.Resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	addrs := make([]netip.AddrPort, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, netip.AddrPortFrom(ip, uint16(p)))
	}
	return addrs, nil
}

// CheckNonblockConnect completes a nonblocking connect. Call it only once
// the descriptor reports writability; calling it earlier is a usage error.
func (c *Connection) CheckNonblockConnect() (State, error) {
	if c.state != StateConnecting {
		return c.state, ErrNotConnecting
	}

	t0 := c.cfg.TimeNow()
	err := c.sock.connectResult()
	c.logCheckConnectDone(t0, err)

	if err != nil {
		c.sock.Close()
		c.sock = nil
		c.state = StateNotConnected
		return c.state, c.fail("connect", err)
	}

	c.state = StateConnected
	return c.state, nil
}

// Disconnect closes the socket and resets the state to StateNotConnected.
// Calling it again is a no-op.
func (c *Connection) Disconnect() error {
	if c.sock == nil {
		c.state = StateNotConnected
		return nil
	}

	t0 := c.cfg.TimeNow()
	laddr, raddr := c.sock.localAddr(), c.sock.remoteAddr()
	err := c.sock.Close()
	c.sock = nil
	c.state = StateNotConnected
	c.logCloseDone(laddr, raddr, t0, err)

	if err != nil {
		return c.fail("close", err)
	}
	return nil
}

// Receive performs a single read into buf.
//
// It returns ErrWantRead (state StateWantRead) when nothing can be read
// without blocking and io.EOF when the server closed the connection.
func (c *Connection) Receive(buf []byte) (int, error) {
	if !c.state.isOpen() {
		return 0, ErrNotConnected
	}

	t0 := c.cfg.TimeNow()
	n, err := c.sock.Read(buf)
	c.logIO("readDone", len(buf), n, t0, err)

	switch {
	case err == nil:
		c.state = StateConnected
		return n, nil
	case errors.Is(err, errWouldBlock):
		c.state = StateWantRead
		return 0, ErrWantRead
	case errors.Is(err, io.EOF):
		c.record(err)
		return n, io.EOF
	default:
		return n, c.fail("read", err)
	}
}

// Parse parses the response at the start of buf[:n]. len(buf) must be at
// least MinBufferSize(c.Options()). Fatal parser failures are recorded in
// the diagnostics.
func (c *Connection) Parse(buf []byte, n int) (protocol.Response, error) {
	return c.ParseAt(buf, 0, n)
}

// ParseAt parses the response at buf[off:n]; see Parser.ParseAt.
func (c *Connection) ParseAt(buf []byte, off, n int) (protocol.Response, error) {
	resp, err := c.parser.ParseAt(buf, off, n)
	c.recordParse(err)
	return resp, err
}

// ContinueValue is protocol.ContinueValue with fatal failures recorded in
// the diagnostics.
func (c *Connection) ContinueValue(buf []byte, remaining int) ([]byte, int, error) {
	chunk, left, err := protocol.ContinueValue(buf, remaining)
	c.recordParse(err)
	return chunk, left, err
}

// GetError copies the code and message of the last failure into the given
// buffers, truncated to their length. See Diagnostics.Copy.
func (c *Connection) GetError(code, msg []byte) (int, int) {
	return c.diag.Copy(code, msg)
}

// Err returns the last recorded failure, nil if none.
func (c *Connection) Err() error {
	return c.diag.Err()
}

// Diagnostics returns the connection diagnostics.
func (c *Connection) Diagnostics() *Diagnostics {
	return &c.diag
}

func (c *Connection) fail(op string, err error) error {
	cerr := &ConnectionError{Op: op, Err: err}
	c.diag.record(c.cfg.ErrClassifier.Classify(err), cerr)
	return cerr
}

func (c *Connection) record(err error) {
	c.diag.record(c.cfg.ErrClassifier.Classify(err), err)
}

func (c *Connection) recordParse(err error) {
	switch protocol.StatusOf(err) {
	case protocol.StatusParse:
		c.diag.record(CodeParse, err)
	case protocol.StatusValue:
		c.diag.record(CodeValue, err)
	}
}

func (c *Connection) logConnectStart(address string, t0, deadline time.Time) {
	c.cfg.Logger.Info(
		"connectStart",
		slog.Time("deadline", deadline),
		slog.Bool("nonblocking", c.opts.Nonblocking),
		slog.String("protocol", "tcp"),
		slog.String("remoteAddr", address),
		slog.Time("t", t0),
	)
}

func (c *Connection) logConnectDone(address string, t0, deadline time.Time, err error) {
	var laddr string
	if c.sock != nil {
		laddr = c.sock.localAddr()
	}
	c.cfg.Logger.Info(
		"connectDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", c.cfg.ErrClassifier.Classify(err)),
		slog.String("localAddr", laddr),
		slog.String("protocol", "tcp"),
		slog.String("remoteAddr", address),
		slog.String("state", c.state.String()),
		slog.Time("t0", t0),
		slog.Time("t", c.cfg.TimeNow()),
	)
}

func (c *Connection) logCheckConnectDone(t0 time.Time, err error) {
	c.cfg.Logger.Info(
		"checkConnectDone",
		slog.Any("err", err),
		slog.String("errClass", c.cfg.ErrClassifier.Classify(err)),
		slog.String("localAddr", c.sock.localAddr()),
		slog.String("protocol", c.sock.network()),
		slog.String("remoteAddr", c.sock.remoteAddr()),
		slog.Time("t0", t0),
		slog.Time("t", c.cfg.TimeNow()),
	)
}

func (c *Connection) logCloseDone(laddr, raddr string, t0 time.Time, err error) {
	c.cfg.Logger.Info(
		"closeDone",
		slog.Any("err", err),
		slog.String("errClass", c.cfg.ErrClassifier.Classify(err)),
		slog.String("localAddr", laddr),
		slog.String("remoteAddr", raddr),
		slog.Time("t0", t0),
		slog.Time("t", c.cfg.TimeNow()),
	)
}

func (c *Connection) logIO(msg string, size, n int, t0 time.Time, err error) {
	c.cfg.Logger.Debug(
		msg,
		slog.Any("err", err),
		slog.String("errClass", c.cfg.ErrClassifier.Classify(err)),
		slog.Int("ioBufferSize", size),
		slog.Int("ioBytesCount", n),
		slog.String("localAddr", c.sock.localAddr()),
		slog.String("protocol", c.sock.network()),
		slog.String("remoteAddr", c.sock.remoteAddr()),
		slog.Time("t0", t0),
		slog.Time("t", c.cfg.TimeNow()),
	)
}
