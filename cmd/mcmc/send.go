package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/spf13/cobra"

	"github.com/pior/mcmc"
	"github.com/pior/mcmc/internal/bench"
	"github.com/pior/mcmc/protocol"
)

var sendFlags struct {
	server    string
	nonblock  bool
	keepalive bool
	timeout   time.Duration
}

var sendCmd = &cobra.Command{
	Use:   "send <request line>...",
	Short: "Send raw request lines and print the parsed responses",
	Long: `Each argument is sent as one request line terminated by \r\n.
Responses are read until every request got its terminal response
(anything but VALUE and STAT lines). Commands sent with noreply never
complete and end with a timeout.`,
	Example: `  mcmc send "ms foo 3" bar "mg foo v f t"
  mcmc send "get foo bar" stats`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), sendFlags.timeout)
		defer cancel()

		opts := mcmc.Options{Nonblocking: sendFlags.nonblock, TCPKeepalive: sendFlags.keepalive}
		c, err := bench.Dial(ctx, engineConfig, opts, sendFlags.server)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer c.Disconnect()

		segments := make([][]byte, 0, len(args))
		for _, line := range args {
			segments = append(segments, []byte(line+protocol.CRLF))
		}
		if err := bench.Send(ctx, c, segments, len(args)); err != nil {
			return fmt.Errorf("failed to send: %w", err)
		}

		// Data lines such as the value of "ms" get no response of their own.
		expected := countCommands(args)
		return readResponses(ctx, c, cmd.OutOrStdout(), expected)
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendFlags.server, "server", "s", "localhost:11211", "memcached server address")
	sendCmd.Flags().BoolVar(&sendFlags.nonblock, "nonblock", false, "use a nonblocking socket (linux)")
	sendCmd.Flags().BoolVar(&sendFlags.keepalive, "keepalive", false, "enable TCP keepalive")
	sendCmd.Flags().DurationVar(&sendFlags.timeout, "timeout", 5*time.Second, "overall deadline")
}

// countCommands returns how many terminal responses args should produce.
// The argument following a storage command is its data block.
func countCommands(args []string) int {
	n := 0
	for i := 0; i < len(args); i++ {
		n++
		if isStorageCommand(args[i]) {
			i++
		}
	}
	return n
}

func isStorageCommand(line string) bool {
	cmd, _, _ := strings.Cut(line, " ")
	switch cmd {
	case "ms", "set", "add", "replace", "append", "prepend", "cas":
		return true
	}
	return false
}

// readResponses parses responses into a fixed buffer of MinBufferSize. It
// walks every response of a fill by offset, compacts only when more bytes
// are needed and streams values that do not fit.
func readResponses(ctx context.Context, c *mcmc.Connection, out io.Writer, expected int) error {
	buf := make([]byte, mcmc.MinBufferSize(c.Options()))
	start, filled := 0, 0

	for expected > 0 {
		resp, err := c.ParseAt(buf, start, filled)
		switch {
		case errors.Is(err, protocol.ErrShortValue):
			printResponse(out, resp)
			filled, err = streamValue(ctx, c, out, buf, resp)
			if err != nil {
				return err
			}
			start = 0
		case errors.Is(err, protocol.ErrShort):
			if start > 0 {
				filled = copy(buf, buf[start:filled])
				start = 0
			}
			if filled == len(buf) {
				return errors.New("response line longer than the read buffer")
			}
			n, err := bench.Fill(ctx, c, buf[filled:])
			if err != nil {
				return fmt.Errorf("failed to read: %w", err)
			}
			filled += n
			continue
		case err != nil:
			return fmt.Errorf("failed to parse response: %w", err)
		default:
			printResponse(out, resp)
			if resp.HasValue() {
				fmt.Fprintf(out, "%s\n", resp.Value)
			}
			start += resp.Len()
		}

		if resp.Type != protocol.TypeGet && resp.Type != protocol.TypeStat {
			expected--
		}
	}
	return nil
}

// streamValue writes the value bytes of resp as they arrive and returns
// how many bytes following the response are left at the front of buf.
// Every buffered byte already belongs to resp, so buf is reused from the
// start.
func streamValue(ctx context.Context, c *mcmc.Connection, out io.Writer, buf []byte, resp protocol.Response) (int, error) {
	out.Write(resp.Value)
	remaining := resp.Remaining()
	filled := 0

	for remaining > 0 {
		n, err := bench.Fill(ctx, c, buf)
		if err != nil {
			return 0, fmt.Errorf("failed to read value: %w", err)
		}

		chunk, left, err := c.ContinueValue(buf[:n], remaining)
		if err != nil && !errors.Is(err, protocol.ErrShort) {
			return 0, fmt.Errorf("failed to stream value: %w", err)
		}
		out.Write(chunk)

		consumed := remaining - left
		runtimex.Assert(consumed <= n)
		remaining = left
		filled = copy(buf, buf[consumed:n])
	}

	fmt.Fprintln(out)
	return filled, nil
}

func printResponse(out io.Writer, resp protocol.Response) {
	fmt.Fprintf(out, "%-13s %-12s", resp.Type, resp.Code)

	switch resp.Type {
	case protocol.TypeGet:
		fmt.Fprintf(out, " key=%s flags=%d cas=%d len=%d", resp.Get.Key, resp.Get.Flags, resp.Get.CAS, resp.ValueLen)
	case protocol.TypeMeta:
		fmt.Fprintf(out, " %s", resp.Meta.Line)
		if resp.HasValue() {
			fmt.Fprintf(out, " len=%d", resp.ValueLen)
		}
	case protocol.TypeStat:
		fmt.Fprintf(out, " %s=%s", resp.Stat.Name, resp.Stat.Value)
	case protocol.TypeNumeric:
		fmt.Fprintf(out, " %d", resp.Number)
	case protocol.TypeVersion, protocol.TypeErrorMessage:
		fmt.Fprintf(out, " %s", resp.Text)
	}
	fmt.Fprintln(out)
}
