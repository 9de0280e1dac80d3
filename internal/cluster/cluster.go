// Package cluster spreads keys over a fixed list of memcached servers.
package cluster

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/zeebo/xxh3"
)

var ErrNoServers = errors.New("cluster: no servers")

// Selector picks which server to use for a given key.
// It must return an index in [0, serverCount).
type Selector func(key string, serverCount int) int

// DefaultSelector hashes the key with xxh3 and places it with Jump Hash,
// which moves few keys when servers are added or removed.
func DefaultSelector(key string, serverCount int) int {
	return JumpHash(xxh3.HashString(key), serverCount)
}

// Servers is an immutable list of "host:port" addresses.
type Servers struct {
	addrs    []string
	selector Selector
}

// New validates addrs and returns the server list. A nil selector means
// DefaultSelector.
func New(addrs []string, selector Selector) (*Servers, error) {
	if len(addrs) == 0 {
		return nil, ErrNoServers
	}
	for _, addr := range addrs {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return nil, fmt.Errorf("cluster: invalid server %q: %w", addr, err)
		}
	}
	if selector == nil {
		selector = DefaultSelector
	}
	return &Servers{addrs: addrs, selector: selector}, nil
}

// Parse splits a comma-separated server list, ignoring blanks.
func Parse(list string) []string {
	var addrs []string
	for addr := range strings.SplitSeq(list, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// Select returns the index and address of the server owning key.
func (s *Servers) Select(key string) (int, string) {
	i := s.selector(key, len(s.addrs))
	return i, s.addrs[i]
}

// Addrs returns the server addresses in configuration order.
func (s *Servers) Addrs() []string {
	return s.addrs
}

// Len returns the number of servers.
func (s *Servers) Len() int {
	return len(s.addrs)
}
