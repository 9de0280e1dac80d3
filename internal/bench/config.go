// Package bench drives load against memcached servers through pooled
// mcmc connections.
package bench

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes a load run. It can be read from a YAML profile.
type Config struct {
	Servers     []string      `yaml:"servers"`
	Concurrency int           `yaml:"concurrency"`
	Duration    time.Duration `yaml:"duration"`

	// Timeout bounds a single round trip, connection establishment included.
	Timeout time.Duration `yaml:"timeout"`

	Keys      int     `yaml:"keys"`       // size of the key space
	ValueSize int     `yaml:"value_size"` // bytes per stored value
	SetRatio  float64 `yaml:"set_ratio"`  // share of ms requests, the rest is mg

	Nonblocking  bool  `yaml:"nonblocking"`
	TCPKeepalive bool  `yaml:"tcp_keepalive"`
	PoolSize     int32 `yaml:"pool_size"` // connections per server

	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the per-server circuit breaker.
type BreakerConfig struct {
	MaxRequests uint32        `yaml:"max_requests"` // allowed in half-open state
	Interval    time.Duration `yaml:"interval"`     // closed state counter reset period
	Timeout     time.Duration `yaml:"timeout"`      // open state duration
}

// DefaultConfig returns the configuration used when no profile overrides it.
func DefaultConfig() Config {
	return Config{
		Servers:     []string{"localhost:11211"},
		Concurrency: 4,
		Duration:    5 * time.Second,
		Timeout:     time.Second,
		Keys:        1000,
		ValueSize:   100,
		SetRatio:    0.1,
		Nonblocking: true,
		PoolSize:    8,
		Breaker: BreakerConfig{
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     time.Second,
		},
	}
}

// LoadProfile reads a YAML profile on top of DefaultConfig.
func LoadProfile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("bench: invalid profile %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case len(c.Servers) == 0:
		return errors.New("bench: no servers")
	case c.Concurrency <= 0:
		return errors.New("bench: concurrency must be positive")
	case c.Duration <= 0:
		return errors.New("bench: duration must be positive")
	case c.Timeout <= 0:
		return errors.New("bench: timeout must be positive")
	case c.Keys <= 0:
		return errors.New("bench: key space must be positive")
	case c.ValueSize < 0:
		return errors.New("bench: negative value size")
	case c.SetRatio < 0 || c.SetRatio > 1:
		return errors.New("bench: set ratio must be within [0, 1]")
	case c.PoolSize <= 0:
		return errors.New("bench: pool size must be positive")
	}
	return nil
}
