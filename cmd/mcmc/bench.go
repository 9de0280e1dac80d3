package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pior/mcmc/internal/bench"
	"github.com/pior/mcmc/internal/cluster"
)

var benchFlags struct {
	profile     string
	servers     string
	concurrency int
	duration    time.Duration
	keys        int
	valueSize   int
	setRatio    float64
	nonblock    bool
	keepalive   bool
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a mg/ms load against memcached servers",
	Long: `Keys are spread over the servers with jump hashing. Each server gets
a connection pool and a circuit breaker. Settings come from the defaults,
then the YAML profile, then the flags given on the command line.`,
	Example: `  mcmc bench --servers 127.0.0.1:11211,127.0.0.1:11212 --concurrency 8
  mcmc bench --profile load.yaml --duration 1m`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := bench.DefaultConfig()
		if benchFlags.profile != "" {
			var err error
			cfg, err = bench.LoadProfile(benchFlags.profile)
			if err != nil {
				return fmt.Errorf("failed to load profile: %w", err)
			}
		}
		applyBenchFlags(cmd, &cfg)

		r, err := bench.NewRunner(cfg, engineConfig)
		if err != nil {
			return err
		}
		defer r.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Benchmarking %d server(s) with %d workers for %v\n",
			len(cfg.Servers), cfg.Concurrency, cfg.Duration)

		printResult(cmd.OutOrStdout(), r.Run(cmd.Context()))
		return nil
	},
}

func init() {
	f := benchCmd.Flags()
	f.StringVar(&benchFlags.profile, "profile", "", "YAML bench profile")
	f.StringVar(&benchFlags.servers, "servers", "localhost:11211", "comma-separated memcached servers")
	f.IntVarP(&benchFlags.concurrency, "concurrency", "c", 4, "number of workers")
	f.DurationVarP(&benchFlags.duration, "duration", "d", 5*time.Second, "run duration")
	f.IntVar(&benchFlags.keys, "keys", 1000, "size of the key space")
	f.IntVar(&benchFlags.valueSize, "value-size", 100, "bytes per stored value")
	f.Float64Var(&benchFlags.setRatio, "set-ratio", 0.1, "share of ms requests")
	f.BoolVar(&benchFlags.nonblock, "nonblock", true, "use nonblocking sockets (linux)")
	f.BoolVar(&benchFlags.keepalive, "keepalive", false, "enable TCP keepalive")
}

// applyBenchFlags overrides cfg with the flags set on the command line.
func applyBenchFlags(cmd *cobra.Command, cfg *bench.Config) {
	f := cmd.Flags()
	if f.Changed("servers") || benchFlags.profile == "" {
		cfg.Servers = cluster.Parse(benchFlags.servers)
	}
	if f.Changed("concurrency") {
		cfg.Concurrency = benchFlags.concurrency
	}
	if f.Changed("duration") {
		cfg.Duration = benchFlags.duration
	}
	if f.Changed("keys") {
		cfg.Keys = benchFlags.keys
	}
	if f.Changed("value-size") {
		cfg.ValueSize = benchFlags.valueSize
	}
	if f.Changed("set-ratio") {
		cfg.SetRatio = benchFlags.setRatio
	}
	if f.Changed("nonblock") {
		cfg.Nonblocking = benchFlags.nonblock
	}
	if f.Changed("keepalive") {
		cfg.TCPKeepalive = benchFlags.keepalive
	}
}

func printResult(out io.Writer, res *bench.Result) {
	fmt.Fprintf(out, "\nElapsed:      %v\n", res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Operations:   %d (%.0f ops/s)\n", res.Ops, res.OpsPerSecond())
	fmt.Fprintf(out, "Avg latency:  %v\n", res.AvgLatency)
	fmt.Fprintf(out, "Hits:         %d\n", res.Hits)
	fmt.Fprintf(out, "Misses:       %d\n", res.Misses)
	fmt.Fprintf(out, "Stored:       %d\n", res.Stored)
	fmt.Fprintf(out, "Not stored:   %d\n", res.NotStored)
	fmt.Fprintf(out, "Errors:       %d\n", res.Errors)
	fmt.Fprintf(out, "Rejected:     %d\n", res.Rejected)

	for _, s := range res.Servers {
		fmt.Fprintf(out, "\n%s breaker=%s conns created=%d destroyed=%d acquires=%d waits=%d\n",
			s.Addr, s.BreakerState, s.Pool.CreatedConns, s.Pool.DestroyedConns,
			s.Pool.AcquireCount, s.Pool.AcquireWaitCount)
	}
}
