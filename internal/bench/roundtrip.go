package bench

import (
	"context"
	"errors"
	"net"

	"github.com/pior/mcmc"
	"github.com/pior/mcmc/protocol"
)

// ErrResponseTooLarge is returned when a response does not fit the read
// buffer.
var ErrResponseTooLarge = errors.New("bench: response larger than read buffer")

// Dial connects to addr and drives the nonblocking handshake to completion.
func Dial(ctx context.Context, cfg *mcmc.Config, opts mcmc.Options, addr string) (*mcmc.Connection, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	c := mcmc.NewConnection(cfg, opts)
	state, err := c.Connect(ctx, host, port)
	if err != nil {
		return nil, err
	}

	if state == mcmc.StateConnecting {
		if err := Wait(ctx, c.Fd(), true); err != nil {
			c.Disconnect()
			return nil, err
		}
		if _, err := c.CheckNonblockConnect(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// applyDeadline bounds blocking I/O on c by the deadline of ctx. A ctx
// without deadline clears any deadline left by a previous call.
func applyDeadline(ctx context.Context, c *mcmc.Connection) error {
	deadline, _ := ctx.Deadline()
	return c.SetDeadline(deadline)
}

// Send writes every segment, waiting for writability as needed. Blocking
// writes are bounded by the deadline of ctx.
func Send(ctx context.Context, c *mcmc.Connection, segments [][]byte, commandCount int) error {
	if err := applyDeadline(ctx, c); err != nil {
		return err
	}
	for len(segments) > 0 {
		n, err := c.RequestWritev(segments, commandCount)
		if errors.Is(err, mcmc.ErrWantWrite) {
			if err := Wait(ctx, c.Fd(), true); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		segments = mcmc.AdvanceSegments(segments, n)
	}
	return nil
}

// Fill reads once into buf, waiting for readability as needed. Blocking
// reads are bounded by the deadline of ctx.
func Fill(ctx context.Context, c *mcmc.Connection, buf []byte) (int, error) {
	if err := applyDeadline(ctx, c); err != nil {
		return 0, err
	}
	for {
		n, err := c.Receive(buf)
		if errors.Is(err, mcmc.ErrWantRead) {
			if err := Wait(ctx, c.Fd(), false); err != nil {
				return 0, err
			}
			continue
		}
		return n, err
	}
}

// RoundTrip sends a single command and reads its response into buf. The
// returned Response borrows buf.
func RoundTrip(ctx context.Context, c *mcmc.Connection, segments [][]byte, buf []byte) (protocol.Response, error) {
	if err := Send(ctx, c, segments, 1); err != nil {
		return protocol.Response{}, err
	}

	filled := 0
	for {
		resp, err := c.Parse(buf, filled)
		if !errors.Is(err, protocol.ErrShort) {
			return resp, err
		}
		if filled == len(buf) {
			return resp, ErrResponseTooLarge
		}

		n, err := Fill(ctx, c, buf[filled:])
		if err != nil {
			return resp, err
		}
		filled += n
	}
}
