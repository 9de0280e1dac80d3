package mcmc

import (
	"unsafe"

	"github.com/pior/mcmc/protocol"
)

// Options configures a Connection. The zero value is a blocking connection
// without TCP keepalive.
type Options struct {
	// Nonblocking makes Connect return StateConnecting right after the
	// connect syscall and makes I/O report ErrWantRead/ErrWantWrite instead
	// of blocking.
	Nonblocking bool

	// TCPKeepalive enables SO_KEEPALIVE on the socket. When false keepalive
	// is explicitly disabled.
	TCPKeepalive bool
}

// ConnectionStateSize returns the memory footprint of a Connection,
// diagnostic buffers included. It only depends on opts.
func ConnectionStateSize(opts Options) int {
	return int(unsafe.Sizeof(Connection{}))
}

// MinBufferSize returns the smallest read buffer the parser accepts for a
// connection configured with opts. It never decreases when an option is
// enabled.
func MinBufferSize(opts Options) int {
	return protocol.MinBufferSize
}
