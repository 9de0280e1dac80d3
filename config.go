package mcmc

import (
	"context"
	"net"
	"net/netip"
	"time"
)

// Dialer abstracts the [*net.Dialer] behavior. It is used for blocking
// connections.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Resolver abstracts the [*net.Resolver] behavior. It is used for
// nonblocking connections, which open raw sockets themselves.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
	LookupPort(ctx context.Context, network, service string) (int, error)
}

// Config holds the collaborators of a Connection.
//
// All fields have sensible defaults set by [NewConfig]. Fields must not be
// mutated while a Connection created from the Config is in use.
type Config struct {
	// Dialer is used by blocking connects.
	//
	// Set by [NewConfig] to [*net.Dialer].
	Dialer Dialer

	// Resolver is used by nonblocking connects.
	//
	// Set by [NewConfig] to [net.DefaultResolver].
	Resolver Resolver

	// ErrClassifier produces the diagnostic codes.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// Logger receives lifecycle and I/O events.
	//
	// Set by [NewConfig] to [DefaultSLogger].
	Logger SLogger

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Dialer:        &net.Dialer{},
		Resolver:      net.DefaultResolver,
		ErrClassifier: DefaultErrClassifier,
		Logger:        DefaultSLogger(),
		TimeNow:       time.Now,
	}
}
