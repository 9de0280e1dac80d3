package bench

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/pior/mcmc"
	"github.com/pior/mcmc/protocol"
)

// Server wraps a connection pool and a circuit breaker with its address.
type Server struct {
	addr    string
	pool    *puddle.Pool[*mcmc.Connection]
	breaker *gobreaker.CircuitBreaker[protocol.StatusCode]

	createdConns   atomic.Int64
	destroyedConns atomic.Int64
}

// NewServer creates the pool and breaker for addr. Connections are opened
// lazily on first acquire.
func NewServer(addr string, cfg Config, mcfg *mcmc.Config) (*Server, error) {
	s := &Server{addr: addr}
	opts := mcmc.Options{Nonblocking: cfg.Nonblocking, TCPKeepalive: cfg.TCPKeepalive}

	pool, err := puddle.NewPool(&puddle.Config[*mcmc.Connection]{
		Constructor: func(ctx context.Context) (*mcmc.Connection, error) {
			ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()

			c, err := Dial(ctx, mcfg, opts, addr)
			if err == nil {
				s.createdConns.Add(1)
			}
			return c, err
		},
		Destructor: func(c *mcmc.Connection) {
			s.destroyedConns.Add(1)
			_ = c.Disconnect()
		},
		MaxSize: cfg.PoolSize,
	})
	if err != nil {
		return nil, err
	}
	s.pool = pool
	s.breaker = newBreaker(addr, cfg.Breaker)
	return s, nil
}

func newBreaker(addr string, cfg BreakerConfig) *gobreaker.CircuitBreaker[protocol.StatusCode] {
	return gobreaker.NewCircuitBreaker[protocol.StatusCode](gobreaker.Settings{
		Name:        addr,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	})
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.addr
}

// Execute runs one request/response cycle through the breaker and returns
// the status of the response. buf is the caller's read buffer.
//
// Connections are destroyed when the error leaves them unusable and
// released otherwise. Server error lines count as breaker failures.
func (s *Server) Execute(ctx context.Context, segments [][]byte, buf []byte) (protocol.StatusCode, error) {
	return s.breaker.Execute(func() (protocol.StatusCode, error) {
		res, err := s.pool.Acquire(ctx)
		if err != nil {
			return protocol.StatusNone, err
		}

		resp, err := RoundTrip(ctx, res.Value(), segments, buf)
		if err != nil {
			if mcmc.ShouldCloseConnection(err) {
				res.Destroy()
			} else {
				res.Release()
			}
			return protocol.StatusNone, err
		}
		res.Release()

		if resp.IsError() {
			return resp.Code, &ServerError{Code: resp.Code, Message: string(resp.Text)}
		}
		return resp.Code, nil
	})
}

// ServerError is an ERROR, CLIENT_ERROR or SERVER_ERROR response line.
type ServerError struct {
	Code    protocol.StatusCode
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Code.String() + " " + e.Message
}

// Stats returns a snapshot of the pool and breaker state.
func (s *Server) Stats() ServerStats {
	ps := s.pool.Stat()
	return ServerStats{
		Addr: s.addr,
		Pool: PoolStats{
			TotalConns:       ps.TotalResources(),
			IdleConns:        ps.IdleResources(),
			ActiveConns:      ps.AcquiredResources(),
			AcquireCount:     uint64(ps.AcquireCount()),
			AcquireWaitCount: uint64(ps.EmptyAcquireCount()),
			AcquireErrors:    uint64(ps.CanceledAcquireCount()),
			AcquireWaitTime:  ps.EmptyAcquireWaitTime(),
			CreatedConns:     uint64(s.createdConns.Load()),
			DestroyedConns:   uint64(s.destroyedConns.Load()),
		},
		BreakerState:  s.breaker.State(),
		BreakerCounts: s.breaker.Counts(),
	}
}

// Close destroys every pooled connection.
func (s *Server) Close() {
	s.pool.Close()
}

// PoolStats mirrors the puddle pool counters.
type PoolStats struct {
	AcquireCount     uint64 // Total acquire attempts
	AcquireWaitCount uint64 // Acquires that had to wait
	AcquireErrors    uint64 // Canceled acquires
	AcquireWaitTime  time.Duration
	CreatedConns     uint64
	DestroyedConns   uint64

	TotalConns  int32 // Total connections in pool (active + idle)
	IdleConns   int32
	ActiveConns int32
}

// ServerStats contains stats for a single server.
type ServerStats struct {
	Addr          string
	Pool          PoolStats
	BreakerState  gobreaker.State
	BreakerCounts gobreaker.Counts
}
