//go:build linux

package bench

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Wait blocks until fd is writable (write) or readable, or ctx is done.
func Wait(ctx context.Context, fd int, write bool) error {
	events := int16(unix.POLLIN)
	if write {
		events = unix.POLLOUT
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		timeout := -1
		if deadline, ok := ctx.Deadline(); ok {
			timeout = int(time.Until(deadline).Milliseconds()) + 1
			if timeout <= 0 {
				return context.DeadlineExceeded
			}
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		n, err := unix.Poll(fds, timeout)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return os.NewSyscallError("poll", err)
		case n > 0:
			// Errors and hangups surface on the following I/O call.
			return nil
		}
	}
}
