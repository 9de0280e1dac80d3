//go:build !linux

package mcmc

import (
	"errors"
	"net/netip"
)

var errNonblockUnsupported = errors.New("mcmc: nonblocking connect is only supported on linux")

type fdSocket struct {
	socket
}

func dialNonblock(addr netip.AddrPort, keepalive bool) (*fdSocket, bool, error) {
	return nil, false, errNonblockUnsupported
}
