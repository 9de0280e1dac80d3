package mcmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/mcmc/protocol"
)

var allOptions = []Options{
	{},
	{Nonblocking: true},
	{TCPKeepalive: true},
	{Nonblocking: true, TCPKeepalive: true},
}

func TestConnectionStateSize(t *testing.T) {
	for _, opts := range allOptions {
		size := ConnectionStateSize(opts)
		assert.GreaterOrEqual(t, size, ErrorCodeMax+ErrorMsgMax)
		assert.Equal(t, size, ConnectionStateSize(opts), "pure")
	}
}

func TestMinBufferSizeMonotonic(t *testing.T) {
	base := MinBufferSize(Options{})
	assert.GreaterOrEqual(t, base, protocol.MaxFixedLineLength)

	for _, opts := range allOptions {
		size := MinBufferSize(opts)
		assert.GreaterOrEqual(t, size, base)
		if opts.Nonblocking && opts.TCPKeepalive {
			assert.GreaterOrEqual(t, size, MinBufferSize(Options{Nonblocking: true}))
			assert.GreaterOrEqual(t, size, MinBufferSize(Options{TCPKeepalive: true}))
		}
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "NOT_CONNECTED", StateNotConnected.String())
	assert.Equal(t, "CONNECTING", StateConnecting.String())
	assert.Equal(t, "CONNECTED", StateConnected.String())
	assert.Equal(t, "WANT_READ", StateWantRead.String())
	assert.Equal(t, "WANT_WRITE", StateWantWrite.String())
	assert.Equal(t, "UNKNOWN", State(99).String())

	var zero State
	require.Equal(t, StateNotConnected, zero)
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.Dialer)
	assert.NotNil(t, cfg.Resolver)
	assert.NotNil(t, cfg.ErrClassifier)
	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.TimeNow)
}

func TestDefaultSLogger(t *testing.T) {
	logger := DefaultSLogger()
	assert.NotPanics(t, func() {
		logger.Debug("readDone")
		logger.Info("connectStart")
	})
}
