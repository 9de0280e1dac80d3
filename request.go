package mcmc

import (
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/bassosimone/runtimex"
)

// SendRequest writes buf to the socket and returns how many bytes were
// written. A short write is not an error: resend buf[n:].
//
// When the socket cannot take any byte without blocking it returns
// 0, ErrWantWrite and the state becomes StateWantWrite. commandCount is the
// number of commands in buf; it is only used for logging.
func (c *Connection) SendRequest(buf []byte, commandCount int) (int, error) {
	if !c.state.isOpen() {
		return 0, ErrNotConnected
	}

	t0 := c.cfg.TimeNow()
	n, err := c.sock.Write(buf)
	c.logWrite("writeDone", len(buf), 1, commandCount, n, t0, err)
	return c.sent(n, err, "write")
}

// RequestWritev is SendRequest over a scatter list. The returned byte count
// spans segments; use AdvanceSegments to build the continuation.
func (c *Connection) RequestWritev(segments [][]byte, commandCount int) (int, error) {
	if !c.state.isOpen() {
		return 0, ErrNotConnected
	}

	var size int
	for _, seg := range segments {
		size += len(seg)
	}

	t0 := c.cfg.TimeNow()
	n, err := c.sock.Writev(segments)
	c.logWrite("writevDone", size, len(segments), commandCount, n, t0, err)
	return c.sent(n, err, "writev")
}

func (c *Connection) sent(n int, err error, op string) (int, error) {
	switch {
	case err == nil:
		c.state = StateConnected
		return n, nil
	case errors.Is(err, errWouldBlock):
		c.state = StateWantWrite
		return 0, ErrWantWrite
	default:
		return n, c.fail(op, err)
	}
}

// AdvanceSegments returns the scatter list that remains after sent bytes
// of segments were written. Payload bytes are never copied: the result
// re-slices the original buffers. segments itself is not modified.
//
// sent must not exceed the total length of segments.
func AdvanceSegments(segments [][]byte, sent int) [][]byte {
	for len(segments) > 0 && sent >= len(segments[0]) {
		sent -= len(segments[0])
		segments = segments[1:]
	}
	runtimex.Assert(sent == 0 || len(segments) > 0)

	if len(segments) == 0 {
		return nil
	}
	if sent == 0 {
		return segments
	}

	out := slices.Clone(segments)
	out[0] = out[0][sent:]
	return out
}

func (c *Connection) logWrite(msg string, size, segments, commands, n int, t0 time.Time, err error) {
	c.cfg.Logger.Debug(
		msg,
		slog.Int("commandCount", commands),
		slog.Any("err", err),
		slog.String("errClass", c.cfg.ErrClassifier.Classify(err)),
		slog.Int("ioBufferSize", size),
		slog.Int("ioBytesCount", n),
		slog.Int("ioSegments", segments),
		slog.String("localAddr", c.sock.localAddr()),
		slog.String("protocol", c.sock.network()),
		slog.String("remoteAddr", c.sock.remoteAddr()),
		slog.Time("t0", t0),
		slog.Time("t", c.cfg.TimeNow()),
	)
}
