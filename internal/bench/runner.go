package bench

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/mcmc"
	"github.com/pior/mcmc/internal/cluster"
	"github.com/pior/mcmc/protocol"
)

const keyPrefix = "mcmc-bench-"

var crlf = []byte(protocol.CRLF)

// Counters are updated concurrently by the workers.
type Counters struct {
	Ops       atomic.Uint64
	Hits      atomic.Uint64 // mg returning a value
	Misses    atomic.Uint64
	Stored    atomic.Uint64
	NotStored atomic.Uint64
	Errors    atomic.Uint64 // I/O, protocol and server errors
	Rejected  atomic.Uint64 // refused by an open breaker
	Latency   atomic.Int64  // total nanoseconds
}

// Result is the outcome of a run.
type Result struct {
	Elapsed time.Duration
	Ops     uint64
	Hits    uint64
	Misses  uint64
	Stored  uint64

	NotStored uint64
	Errors    uint64
	Rejected  uint64

	AvgLatency time.Duration
	Servers    []ServerStats
}

// OpsPerSecond returns the throughput of the run.
func (r *Result) OpsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// Runner issues mg/ms requests against a cluster until its duration
// elapses.
type Runner struct {
	cfg     Config
	servers *cluster.Servers
	pools   []*Server
	logger  mcmc.SLogger
	value   []byte
	bufSize int

	counters Counters
}

// NewRunner validates cfg and prepares one pool per server.
func NewRunner(cfg Config, mcfg *mcmc.Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if mcfg == nil {
		mcfg = mcmc.NewConfig()
	}

	// The longest generated key.
	if err := ValidateKey(keyPrefix + strconv.Itoa(cfg.Keys-1)); err != nil {
		return nil, err
	}

	servers, err := cluster.New(cfg.Servers, nil)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:     cfg,
		servers: servers,
		logger:  mcfg.Logger,
		value:   makeValue(cfg.ValueSize),
		bufSize: max(mcmc.MinBufferSize(mcmc.Options{Nonblocking: cfg.Nonblocking}), cfg.ValueSize+protocol.MaxFixedLineLength),
	}
	for _, addr := range servers.Addrs() {
		s, err := NewServer(addr, cfg, mcfg)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.pools = append(r.pools, s)
	}
	return r, nil
}

func makeValue(size int) []byte {
	v := make([]byte, size)
	for i := range v {
		v[i] = 'a' + byte(i%26)
	}
	return v
}

// Run starts the workers and blocks until the configured duration elapsed
// or ctx is done.
func (r *Runner) Run(ctx context.Context) *Result {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Duration)
	defer cancel()

	r.logger.Info("benchStart",
		slog.Int("concurrency", r.cfg.Concurrency),
		slog.Int("servers", r.servers.Len()),
		slog.Duration("duration", r.cfg.Duration),
	)

	start := time.Now()
	var wg sync.WaitGroup
	for i := range r.cfg.Concurrency {
		wg.Go(func() {
			r.worker(ctx, uint64(i))
		})
	}
	wg.Wait()

	res := r.result(time.Since(start))
	r.logger.Info("benchDone",
		slog.Uint64("ops", res.Ops),
		slog.Uint64("errors", res.Errors),
		slog.Duration("elapsed", res.Elapsed),
	)
	return res
}

func (r *Runner) worker(ctx context.Context, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, uint64(time.Now().UnixNano())))
	buf := make([]byte, r.bufSize)
	var scratch []byte

	for ctx.Err() == nil {
		key := keyPrefix + strconv.Itoa(rng.IntN(r.cfg.Keys))
		set := rng.Float64() < r.cfg.SetRatio

		var segments [][]byte
		segments, scratch = r.request(scratch[:0], key, set)

		idx, _ := r.servers.Select(key)

		opCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		t0 := time.Now()
		code, err := r.pools[idx].Execute(opCtx, segments, buf)
		latency := time.Since(t0)
		cancel()

		if ctx.Err() != nil && err != nil {
			// Interrupted by the end of the run, not a server failure.
			return
		}
		r.count(set, code, err, latency)
	}
}

// request builds the scatter list for a mg or ms command. The value is
// shared by all workers and never copied.
func (r *Runner) request(scratch []byte, key string, set bool) ([][]byte, []byte) {
	if !set {
		scratch = AppendGet(scratch, key, protocol.FlagValue)
		return [][]byte{scratch}, scratch
	}

	scratch = AppendSetHeader(scratch, key, len(r.value))
	return [][]byte{scratch, r.value, crlf}, scratch
}

func (r *Runner) count(set bool, code protocol.StatusCode, err error, latency time.Duration) {
	c := &r.counters
	c.Ops.Add(1)
	c.Latency.Add(int64(latency))

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.Rejected.Add(1)
	case err != nil:
		c.Errors.Add(1)
		r.logger.Debug("benchError", slog.Any("err", err))
	case code == protocol.StatusNotFound:
		c.Misses.Add(1)
	case code == protocol.StatusNotStored:
		c.NotStored.Add(1)
	case code == protocol.StatusOK && set:
		c.Stored.Add(1)
	case code == protocol.StatusOK:
		c.Hits.Add(1)
	}
}

func (r *Runner) result(elapsed time.Duration) *Result {
	c := &r.counters
	res := &Result{
		Elapsed:   elapsed,
		Ops:       c.Ops.Load(),
		Hits:      c.Hits.Load(),
		Misses:    c.Misses.Load(),
		Stored:    c.Stored.Load(),
		NotStored: c.NotStored.Load(),
		Errors:    c.Errors.Load(),
		Rejected:  c.Rejected.Load(),
	}
	if res.Ops > 0 {
		res.AvgLatency = time.Duration(c.Latency.Load() / int64(res.Ops))
	}
	for _, s := range r.pools {
		res.Servers = append(res.Servers, s.Stats())
	}
	return res
}

// Close releases every pool.
func (r *Runner) Close() {
	for _, s := range r.pools {
		s.Close()
	}
}
