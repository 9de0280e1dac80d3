//go:build !linux

package bench

import (
	"context"
	"errors"
)

// Wait is only needed by nonblocking connections, which require linux.
func Wait(ctx context.Context, fd int, write bool) error {
	return errors.New("bench: readiness polling is not supported on this platform")
}
